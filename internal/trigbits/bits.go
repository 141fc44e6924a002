// Package trigbits holds the core domain types for versioned
// trigger-selection conditions: the key→path-list map, the edit
// specification applied to it, and the audit record of an update run.
package trigbits

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PathDelimiter joins the paths of one trigger list into the single
// string stored per map slot. Storing one flat string instead of a
// nested list keeps the persisted format compact; the delimiter must
// therefore never appear inside an individual path name.
const PathDelimiter = ","

// TriggerMap maps a trigger-selection list name to its encoded path list.
type TriggerMap map[string]string

// Bits is the persisted conditions object: one trigger map plus the
// encoding helpers that pack path lists into its string slots.
type Bits struct {
	TrigMap TriggerMap `json:"trig_map" yaml:"trig_map"`
}

// NewBits returns an empty Bits ready for edits.
func NewBits() *Bits {
	return &Bits{TrigMap: make(TriggerMap)}
}

// Copy returns a deep copy so edits never touch the source map.
func (b *Bits) Copy() *Bits {
	cp := NewBits()
	for k, v := range b.TrigMap {
		cp.TrigMap[k] = v
	}
	return cp
}

// ComposePaths packs an ordered path list into one encoded string.
// A path containing the delimiter would not survive the round trip,
// so it is rejected as a configuration error.
func ComposePaths(paths []string) (string, error) {
	for _, p := range paths {
		if strings.Contains(p, PathDelimiter) {
			return "", &ConfigError{Op: "encode", Key: p, Reason: "path contains the reserved delimiter " + PathDelimiter}
		}
	}
	return strings.Join(paths, PathDelimiter), nil
}

// DecomposePaths is the inverse of ComposePaths. An empty encoded
// string yields no paths.
func DecomposePaths(encoded string) []string {
	if encoded == "" {
		return nil
	}
	return strings.Split(encoded, PathDelimiter)
}

// Payload is one stored version of a trigger map: the Bits plus the
// coordinates that place it in a tag's IOV history.
type Payload struct {
	PayloadID  uuid.UUID `json:"payload_id"`
	Tag        string    `json:"tag"`
	SinceRun   uint64    `json:"since_run"`
	Bits       *Bits     `json:"bits"`
	InsertedAt time.Time `json:"inserted_at"`
}
