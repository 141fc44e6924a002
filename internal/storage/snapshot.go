// Package storage writes conditions snapshots to the local filesystem.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// SnapshotStore exports payload versions as YAML files named
// "<tag>-<since_run>.yaml" under a base directory.
type SnapshotStore struct {
	baseDir string
}

// snapshotDoc is the on-disk layout of one exported payload. Path
// lists are written decoded, one path per line, so snapshots diff
// cleanly under review.
type snapshotDoc struct {
	Tag        string              `yaml:"tag"`
	SinceRun   uint64              `yaml:"since_run"`
	PayloadID  string              `yaml:"payload_id"`
	InsertedAt time.Time           `yaml:"inserted_at"`
	Lists      map[string][]string `yaml:"lists"`
}

func NewSnapshotStore(baseDir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotStore{baseDir: baseDir}, nil
}

// WritePayload exports one payload version and returns the written
// filename. The file is written to a temp name and renamed into place,
// so readers never observe a half-written snapshot.
func (s *SnapshotStore) WritePayload(_ context.Context, p *trigbits.Payload) (string, error) {
	lists := make(map[string][]string, len(p.Bits.TrigMap))
	for name, encoded := range p.Bits.TrigMap {
		lists[name] = trigbits.DecomposePaths(encoded)
	}
	doc := snapshotDoc{
		Tag:        p.Tag,
		SinceRun:   p.SinceRun,
		PayloadID:  p.PayloadID.String(),
		InsertedAt: p.InsertedAt,
		Lists:      lists,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("%s-%d.yaml", p.Tag, p.SinceRun)
	path := filepath.Join(s.baseDir, name)

	tmp, err := os.CreateTemp(s.baseDir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}

	return name, nil
}

// ReadPayload loads a previously exported snapshot back into a payload.
func (s *SnapshotStore) ReadPayload(_ context.Context, name string) (*trigbits.Payload, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, name))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}

	var doc snapshotDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", name, err)
	}

	bits := trigbits.NewBits()
	for listName, paths := range doc.Lists {
		encoded, err := trigbits.ComposePaths(paths)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", name, err)
		}
		bits.TrigMap[listName] = encoded
	}
	p := &trigbits.Payload{
		Tag:        doc.Tag,
		SinceRun:   doc.SinceRun,
		Bits:       bits,
		InsertedAt: doc.InsertedAt,
	}
	if doc.PayloadID != "" {
		id, err := uuid.Parse(doc.PayloadID)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", name, err)
		}
		p.PayloadID = id
	}
	return p, nil
}

// List returns the snapshot filenames present in the base directory,
// sorted.
func (s *SnapshotStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
