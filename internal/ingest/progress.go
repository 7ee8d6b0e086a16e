// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Checkpoint records how far a file has been committed.
type Checkpoint struct {
	Kind string `json:"kind"`
	File string `json:"file"`

	// Offset is the number of data rows covered by committed batches.
	Offset int64 `json:"offset"`

	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressTracker persists checkpoints between runs.
type ProgressTracker interface {
	// Save stores the checkpoint for its kind and file.
	Save(ctx context.Context, cp Checkpoint) error

	// Load returns the checkpoint for kind and file, or nil if none exists.
	Load(ctx context.Context, kind, file string) (*Checkpoint, error)

	// Clear removes the checkpoint for kind and file.
	Clear(ctx context.Context, kind, file string) error
}

// checkpointKey builds the storage key. Paths are made absolute so the
// same file resolves to one key from any working directory.
func checkpointKey(kind, file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	return "ingest:" + kind + ":" + file
}

// BadgerProgress implements ProgressTracker using BadgerDB for persistence.
type BadgerProgress struct {
	db *badger.DB
}

// OpenBadgerProgress opens (or creates) a BadgerDB directory for checkpoints.
func OpenBadgerProgress(dir string) (*BadgerProgress, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store %s: %w", dir, err)
	}
	return &BadgerProgress{db: db}, nil
}

// Close closes the underlying BadgerDB.
func (p *BadgerProgress) Close() error {
	return p.db.Close()
}

// Save persists the checkpoint.
func (p *BadgerProgress) Save(_ context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(checkpointKey(cp.Kind, cp.File)), data)
	})
}

// Load retrieves a checkpoint. Returns nil, nil when none was saved.
func (p *BadgerProgress) Load(_ context.Context, kind, file string) (*Checkpoint, error) {
	var (
		cp    Checkpoint
		found bool
	)

	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(checkpointKey(kind, file)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cp)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &cp, nil
}

// Clear removes a checkpoint.
func (p *BadgerProgress) Clear(_ context.Context, kind, file string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(checkpointKey(kind, file)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// InMemoryProgress implements ProgressTracker without persistence.
type InMemoryProgress struct {
	mu          sync.Mutex
	checkpoints map[string]Checkpoint
}

// NewInMemoryProgress creates an empty in-memory tracker.
func NewInMemoryProgress() *InMemoryProgress {
	return &InMemoryProgress{checkpoints: make(map[string]Checkpoint)}
}

// Save stores the checkpoint in memory.
func (p *InMemoryProgress) Save(_ context.Context, cp Checkpoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkpoints[checkpointKey(cp.Kind, cp.File)] = cp
	return nil
}

// Load returns a copy of the stored checkpoint.
func (p *InMemoryProgress) Load(_ context.Context, kind, file string) (*Checkpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp, ok := p.checkpoints[checkpointKey(kind, file)]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

// Clear removes the stored checkpoint.
func (p *InMemoryProgress) Clear(_ context.Context, kind, file string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.checkpoints, checkpointKey(kind, file))
	return nil
}
