package trigbits

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// RunStatus represents the lifecycle state of an update run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunRecord captures a single update run with full provenance: the
// IOV bounds it was configured with, how many edits of each kind it
// applied, and the warnings it produced along the way.
type RunRecord struct {
	ID       string    `json:"id"`
	Tag      string    `json:"tag"`
	Status   RunStatus `json:"status"`
	FirstRun uint64    `json:"first_run"`
	LastRun  int64     `json:"last_run"` // < 1 = open-ended

	Removed int `json:"removed"`
	Added   int `json:"added"`
	Renamed int `json:"renamed"`

	Warnings []string `json:"warnings,omitempty"`
	Error    *string  `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GenerateID generates a random ID with the given prefix.
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
