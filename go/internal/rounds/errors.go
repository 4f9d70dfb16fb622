package rounds

import "errors"

var (
	// ErrBusy is returned when a save or delete is already in flight
	// for the same owner. The app itself rejects overlapping remote
	// operations instead of relying on callers to disable their
	// triggers; other owners are not affected.
	ErrBusy = errors.New("another save or delete is in progress")

	// ErrNoPrincipal is returned for operations that require an
	// authenticated owner.
	ErrNoPrincipal = errors.New("no authenticated user")

	// ErrNoRounds is returned when saving an empty round list.
	ErrNoRounds = errors.New("no rounds to save")

	// ErrLastRound is returned when deleting the only remaining round.
	ErrLastRound = errors.New("the last round cannot be deleted")

	// ErrNotConfirmed is returned when a delete arrives without the
	// explicit confirmation gate.
	ErrNotConfirmed = errors.New("delete requires confirmation")

	// ErrRoundNotFound is returned for an out-of-range round index on
	// operations that cannot clamp.
	ErrRoundNotFound = errors.New("round index out of range")
)
