package trigbits

import (
	"context"
	"fmt"

	"github.com/TrT-TOT/trigcond/internal/validate"
)

// ConfigError reports a mismatch between an update spec and the current
// map state, usually an operator typo. It aborts the whole update run.
type ConfigError struct {
	Op     string // "remove", "add", "rename", "encode"
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cannot %s key %q: %s", e.Op, e.Key, e.Reason)
}

// UpdateSpec drives one update run: which tag to edit, the IOV lower
// bound for the new version, and the ordered edit lists applied in the
// fixed order remove → add → rename.
type UpdateSpec struct {
	Tag        string `json:"tag" yaml:"tag" validate:"required"`
	FirstRun   uint64 `json:"first_run" yaml:"first_run" validate:"required,gte=1"`
	LastRun    int64  `json:"last_run" yaml:"last_run"` // < 1 = open-ended
	StartEmpty bool   `json:"start_empty" yaml:"start_empty"`

	Remove []string    `json:"remove,omitempty" yaml:"remove,omitempty"`
	Add    []AddList   `json:"add,omitempty" yaml:"add,omitempty" validate:"dive"`
	Rename []KeyRename `json:"rename,omitempty" yaml:"rename,omitempty" validate:"dive"`
}

// AddList is one list to insert: the key and the ordered paths that
// will be encoded into its slot.
type AddList struct {
	ListName string   `json:"list_name" yaml:"list_name" validate:"required"`
	Paths    []string `json:"paths" yaml:"paths" validate:"required,min=1"`
}

// KeyRename moves the value of From to To, dropping From.
type KeyRename struct {
	From string `json:"from" yaml:"from" validate:"required"`
	To   string `json:"to" yaml:"to" validate:"required"`
}

// Validate checks the structural shape of the spec. Conflicts with the
// current map state (removing an absent key, adding a duplicate) are
// only detectable at apply time and are reported there.
func (s *UpdateSpec) Validate(ctx context.Context) error {
	if err := validate.Struct(ctx, s); err != nil {
		return fmt.Errorf("invalid update spec: %w", err)
	}
	return nil
}

// Bounded reports whether the spec names a closed IOV upper bound.
// The upper bound is advisory: it is logged and audited but never
// stored, since a version stays current until the next one's SinceRun.
func (s *UpdateSpec) Bounded() bool {
	return s.LastRun > 0
}

// RemoveKeys deletes the listed keys in order. A key absent from the
// map aborts the pass with a ConfigError; removals made earlier in the
// same pass stay applied, and callers must treat the whole run as
// failed.
func RemoveKeys(m TriggerMap, keys []string) error {
	for _, key := range keys {
		if _, ok := m[key]; !ok {
			return &ConfigError{Op: "remove", Key: key, Reason: "not in map - typo in configuration?"}
		}
		delete(m, key)
	}
	return nil
}

// AddEntries inserts the listed entries in order, encoding each path
// list into its slot. A key already present fails with a ConfigError
// to prevent a silent overwrite.
func AddEntries(bits *Bits, entries []AddList) error {
	for _, entry := range entries {
		merged, err := ComposePaths(entry.Paths)
		if err != nil {
			return err
		}
		if _, ok := bits.TrigMap[entry.ListName]; ok {
			return &ConfigError{Op: "add", Key: entry.ListName, Reason: "already in map - remove it first or drop it from the add list"}
		}
		bits.TrigMap[entry.ListName] = merged
	}
	return nil
}

// RenameKeys moves values between keys in order. A missing From key
// does not fail the run: that rename alone is skipped and reported as
// a warning, and the pass continues with the rest.
func RenameKeys(m TriggerMap, renames []KeyRename) []string {
	var warnings []string
	for _, r := range renames {
		value, ok := m[r.From]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("cannot rename key %q to %q: not in map - typo in configuration?", r.From, r.To))
			continue
		}
		delete(m, r.From)
		m[r.To] = value
	}
	return warnings
}

// ApplyTo mutates bits according to the spec, in the fixed pass order
// remove → add → rename. The returned warnings come from skipped
// renames; any error is a ConfigError and the run must be aborted.
func (s *UpdateSpec) ApplyTo(bits *Bits) ([]string, error) {
	if err := RemoveKeys(bits.TrigMap, s.Remove); err != nil {
		return nil, err
	}
	if err := AddEntries(bits, s.Add); err != nil {
		return nil, err
	}
	return RenameKeys(bits.TrigMap, s.Rename), nil
}
