package lot

import (
	"time"

	"github.com/google/uuid"
)

// ImportedEvent is published after a primary feed run commits its rows
// and records the shared feed-freshness timestamp, announcing the run
// to any observer on the bus.
type ImportedEvent struct {
	RunID      uuid.UUID
	Rows       int
	ImportedAt time.Time
}
