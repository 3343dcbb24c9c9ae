// Package registry holds a session's developer records in insertion order.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"devconnect/internal/developer/models"
	id "devconnect/pkg/domain"
	"devconnect/pkg/platform/sentinel"
)

// maxIDAttempts bounds how often Add asks the generator for an unused id.
const maxIDAttempts = 16

// ErrIDExhausted is returned when the generator keeps producing ids in use.
var ErrIDExhausted = errors.New("registry: could not allocate a free developer id")

// Registry is an ordered in-memory collection of developer records.
// Records are stored by value and copied on the way in and out, so callers
// can never mutate stored state except through Update.
type Registry struct {
	mu      sync.RWMutex
	ids     IDGenerator
	records []models.Developer
	index   map[id.DeveloperID]int
}

// New returns an empty registry. A nil generator defaults to UUIDGenerator.
func New(ids IDGenerator) *Registry {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Registry{
		ids:   ids,
		index: make(map[id.DeveloperID]int),
	}
}

// Add validates the draft, assigns a fresh id, and appends the record.
func (r *Registry) Add(_ context.Context, draft models.Draft) (models.Developer, error) {
	dev, err := draft.Build()
	if err != nil {
		return models.Developer{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	newID, err := r.allocateID()
	if err != nil {
		return models.Developer{}, err
	}
	dev.ID = newID
	r.appendLocked(dev)
	return dev.Clone(), nil
}

// Get returns the record with the given id or sentinel.ErrNotFound.
func (r *Registry) Get(_ context.Context, devID id.DeveloperID) (models.Developer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[devID]
	if !ok {
		return models.Developer{}, sentinel.ErrNotFound
	}
	return r.records[i].Clone(), nil
}

// Update merges the patch into the stored record. Unknown ids return
// sentinel.ErrNotFound; invalid patches return the validation error. Either
// way the registry is unchanged.
func (r *Registry) Update(_ context.Context, devID id.DeveloperID, patch models.Patch) (models.Developer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[devID]
	if !ok {
		return models.Developer{}, sentinel.ErrNotFound
	}
	merged, err := patch.Apply(r.records[i])
	if err != nil {
		return models.Developer{}, err
	}
	r.records[i] = merged
	return merged.Clone(), nil
}

// Delete removes the record. Unknown ids return sentinel.ErrNotFound.
func (r *Registry) Delete(_ context.Context, devID id.DeveloperID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[devID]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.records = append(r.records[:i], r.records[i+1:]...)
	delete(r.index, devID)
	for j := i; j < len(r.records); j++ {
		r.index[r.records[j].ID] = j
	}
	return nil
}

// List returns a copy of every record in insertion order.
func (r *Registry) List(_ context.Context) []models.Developer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Developer, len(r.records))
	for i, dev := range r.records {
		out[i] = dev.Clone()
	}
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// insert stores a record that already has an id. Used for seeding.
func (r *Registry) insert(dev models.Developer) error {
	if err := dev.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[dev.ID]; exists || dev.ID == "" {
		return fmt.Errorf("insert developer %q: %w", dev.ID, sentinel.ErrAlreadyUsed)
	}
	r.appendLocked(dev.Clone())
	return nil
}

func (r *Registry) appendLocked(dev models.Developer) {
	r.index[dev.ID] = len(r.records)
	r.records = append(r.records, dev)
}

func (r *Registry) allocateID() (id.DeveloperID, error) {
	for range maxIDAttempts {
		candidate := r.ids.NextID()
		if candidate == "" {
			continue
		}
		if _, taken := r.index[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", ErrIDExhausted
}
