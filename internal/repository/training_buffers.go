package repository

import (
	"sort"
	"sync"
	"time"

	"BitLearn/internal/domain/models"
)

// BufferStore keeps one timestamp-ordered TrainingBuffer per category.
type BufferStore struct {
	mu      sync.RWMutex
	buffers map[models.DataCategory][]models.TrainingRecord
	maxSize int
}

func NewBufferStore(maxSize int) *BufferStore {
	b := &BufferStore{
		buffers: make(map[models.DataCategory][]models.TrainingRecord, len(models.AllCategories)),
		maxSize: maxSize,
	}
	for _, c := range models.AllCategories {
		b.buffers[c] = nil
	}
	return b
}

// SetMaxSize changes the cap applied on future appends and merges.
func (b *BufferStore) SetMaxSize(n int) {
	b.mu.Lock()
	b.maxSize = n
	b.mu.Unlock()
}

// Append adds records, keeping each buffer ordered by timestamp and capped.
func (b *BufferStore) Append(records ...models.TrainingRecord) {
	if len(records) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	touched := make(map[models.DataCategory]bool)
	for _, r := range records {
		if !models.IsValidCategory(r.Category) {
			continue
		}
		buf := b.buffers[r.Category]
		if n := len(buf); n > 0 && r.Timestamp.Before(buf[n-1].Timestamp) {
			touched[r.Category] = true
		}
		b.buffers[r.Category] = append(buf, cloneRecord(r))
	}
	for cat, buf := range b.buffers {
		if touched[cat] {
			sortRecords(buf)
		}
		b.buffers[cat] = capRecent(buf, b.maxSize)
	}
}

// Records returns a copy of one category's buffer.
func (b *BufferStore) Records(cat models.DataCategory) []models.TrainingRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneRecords(b.buffers[cat])
}

// Len returns the size of one category's buffer.
func (b *BufferStore) Len(cat models.DataCategory) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buffers[cat])
}

// Counts returns the size of every buffer.
func (b *BufferStore) Counts() map[models.DataCategory]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[models.DataCategory]int, len(b.buffers))
	for cat, buf := range b.buffers {
		out[cat] = len(buf)
	}
	return out
}

// Snapshot returns a deep copy of all buffers.
func (b *BufferStore) Snapshot() models.TrainingBuffers {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(models.TrainingBuffers, len(b.buffers))
	for cat, buf := range b.buffers {
		out[cat] = cloneRecords(buf)
	}
	return out
}

// PruneBefore drops records older than cutoff and returns how many were removed.
func (b *BufferStore) PruneBefore(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for cat, buf := range b.buffers {
		// buffers are ordered, so the first kept index splits the slice
		i := sort.Search(len(buf), func(i int) bool { return !buf[i].Timestamp.Before(cutoff) })
		if i == 0 {
			continue
		}
		removed += i
		b.buffers[cat] = append([]models.TrainingRecord(nil), buf[i:]...)
	}
	return removed
}

// Merge unions remote records into local buffers by natural key, then sorts
// and caps each buffer. It returns the number of new records added.
func (b *BufferStore) Merge(remote models.TrainingBuffers) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	added := 0
	for cat, incoming := range remote {
		if len(incoming) == 0 || !models.IsValidCategory(cat) {
			continue
		}
		buf := b.buffers[cat]
		seen := make(map[string]struct{}, len(buf)+len(incoming))
		for _, r := range buf {
			seen[r.Key()] = struct{}{}
		}
		for _, r := range incoming {
			r.Category = cat
			if _, dup := seen[r.Key()]; dup {
				continue
			}
			seen[r.Key()] = struct{}{}
			buf = append(buf, cloneRecord(r))
			added++
		}
		sortRecords(buf)
		b.buffers[cat] = capRecent(buf, b.maxSize)
	}
	return added
}

func sortRecords(rs []models.TrainingRecord) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Timestamp.Before(rs[j].Timestamp) })
}

func capRecent(rs []models.TrainingRecord, max int) []models.TrainingRecord {
	if max <= 0 || len(rs) <= max {
		return rs
	}
	return append([]models.TrainingRecord(nil), rs[len(rs)-max:]...)
}

func cloneRecord(r models.TrainingRecord) models.TrainingRecord {
	if r.Fields != nil {
		f := make(map[string]float64, len(r.Fields))
		for k, v := range r.Fields {
			f[k] = v
		}
		r.Fields = f
	}
	return r
}

func cloneRecords(rs []models.TrainingRecord) []models.TrainingRecord {
	out := make([]models.TrainingRecord, len(rs))
	for i, r := range rs {
		out[i] = cloneRecord(r)
	}
	return out
}
