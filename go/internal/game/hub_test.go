package game

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// Screens come and go while score updates are in flight; a disconnect
// during a broadcast must never take the hub down.
func TestBroadcastSurvivesDisconnectingScreens(t *testing.T) {
	h := NewHub(DefaultHubConfig())
	sessionID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Subscribe(w, r, sessionID)
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		event := &Event{
			Type:      EventScoreUpdated,
			SessionID: sessionID,
			Timestamp: time.Now(),
		}
		for {
			select {
			case <-stop:
				return
			default:
				h.handleBroadcast(broadcastMessage{sessionID: sessionID, event: event})
			}
		}
	}()

	for i := 0; i < 50; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		conn.Close()
	}

	close(stop)
	wg.Wait()
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(DefaultHubConfig())
	sessionID := uuid.New()

	c := &connection{
		id:        "c_1",
		sessionID: sessionID,
		send:      make(chan []byte, 1),
		hub:       h,
	}
	h.register(c)

	// Both pumps unregister on exit; the second call must not close the
	// send channel twice.
	h.unregister(c)
	h.unregister(c)

	_, open := <-c.send
	require.False(t, open)
}
