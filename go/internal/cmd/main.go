package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mdahlke/jeoparty/go/internal/auth"
	"github.com/mdahlke/jeoparty/go/internal/clientid"
	"github.com/mdahlke/jeoparty/go/internal/editor"
	"github.com/mdahlke/jeoparty/go/internal/game"
	"github.com/mdahlke/jeoparty/go/internal/rounds"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := flag.String("config", getEnv("CONFIG_PATH", ""), "path to config file")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	gen := clientid.NewGenerator()

	repo := rounds.NewRepository(db, gen)
	roundsApp := rounds.NewApp(repo, gen, config.Board)

	sessions := editor.NewSessionManager(roundsApp, clock, config.Sessions.EditorIdleTimeout)
	editorHandler := editor.NewHandler(sessions)

	hub := game.NewHub(game.DefaultHubConfig())
	games := game.NewManager(gen, clock, config.Sessions.GameIdleTimeout, hub)
	gameHandler := game.NewHandler(games, roundsApp, hub)

	go hub.Start(ctx)
	go sessions.Start(ctx)
	go games.Start(ctx)

	verifier := auth.NewVerifier(config.Auth.JWTSecret)

	apiMux := http.NewServeMux()
	editorHandler.RegisterRoutes(apiMux)
	gameHandler.RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/api/", auth.Middleware(verifier)(apiMux))
	gameHandler.RegisterSocketRoutes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(mux)

	server := &http.Server{
		Addr:    ":" + config.Server.Port,
		Handler: corsHandler,
	}

	go func() {
		log.Info().Str("port", config.Server.Port).Msg("starting jeoparty server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
