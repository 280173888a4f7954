package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"BitLearn/internal/domain/models"
)

// ModelRegistry holds models keyed by id. Every read and write deep-copies.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]models.Model
}

// NewModelRegistry creates a registry seeded with the given models.
func NewModelRegistry(seed ...models.Model) *ModelRegistry {
	r := &ModelRegistry{models: make(map[string]models.Model, len(seed))}
	for _, m := range seed {
		r.models[m.ID] = m.Clone()
	}
	return r
}

func (r *ModelRegistry) Get(id string) (models.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	if !ok {
		return models.Model{}, fmt.Errorf("get model %q: %w", id, models.ErrModelNotFound)
	}
	return m.Clone(), nil
}

// List returns all models sorted by id.
func (r *ModelRegistry) List() []models.Model {
	r.mu.RLock()
	out := make([]models.Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ModelRegistry) Upsert(m models.Model) {
	c := m.Clone()
	r.mu.Lock()
	r.models[c.ID] = c
	r.mu.Unlock()
}

// Remove deletes a model and reports whether it existed.
func (r *ModelRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; !ok {
		return false
	}
	delete(r.models, id)
	return true
}

// Len returns the number of registered models.
func (r *ModelRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// MergeNewer overwrites local models with remote ones that are absent locally
// or were trained strictly later. Remote models failing Validate are skipped
// and returned as rejected. It returns how many were replaced.
func (r *ModelRegistry) MergeNewer(remote []models.Model) (int, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		n        int
		rejected []error
	)
	for _, rm := range remote {
		if err := rm.Validate(); err != nil {
			rejected = append(rejected, err)
			continue
		}
		local, ok := r.models[rm.ID]
		if ok && !rm.LastTrainingTimestamp.After(local.LastTrainingTimestamp) {
			continue
		}
		r.models[rm.ID] = rm.Clone()
		n++
	}
	return n, rejected
}

// LastUpdate returns the most recent training timestamp across models.
func (r *ModelRegistry) LastUpdate() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var last time.Time
	for _, m := range r.models {
		if m.LastTrainingTimestamp.After(last) {
			last = m.LastTrainingTimestamp
		}
	}
	return last
}
