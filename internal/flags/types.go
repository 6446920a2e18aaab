package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Well-known keys checked by the running services. Anything else is free-form
// operator state.
const (
	// KeyAutopostPaused suspends autopost dispatch without restarting the
	// bot. Scans keep running; nothing is sent while it is on.
	KeyAutopostPaused = "autopost.paused"

	// KeyStreamPaused ignores migration hints from the websocket stream.
	KeyStreamPaused = "stream.paused"
)

// Flag is one boolean runtime toggle.
type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
