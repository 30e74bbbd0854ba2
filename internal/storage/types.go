package storage

import (
	"time"

	"github.com/OCharnyshevich/loot-randomizer/pkg/randomizer"
)

// AssignmentFile is the serializable result of one run.
type AssignmentFile struct {
	RunID      string            `json:"run_id,omitempty"`
	Seed       int64             `json:"seed"`
	Mode       string            `json:"mode"`
	Relaxed    bool              `json:"relaxed,omitempty"`
	Assignment *randomizer.Table `json:"assignment"`
}

// Run is one row of the run history.
type Run struct {
	ID        string
	Seed      int64
	Mode      string
	Archive   string
	Datapack  string
	Relaxed   bool
	Failures  int // unsatisfied criteria left by a relaxed run
	CreatedAt time.Time
}
