package repository

import (
	"sort"
	"sync"
	"time"

	"BitLearn/internal/domain/models"
)

// InsightStore keeps the latest generated batch and a capped history.
type InsightStore struct {
	mu      sync.RWMutex
	latest  []models.Insight
	history []models.Insight // newest first
	limit   int
}

func NewInsightStore(historyLimit int) *InsightStore {
	return &InsightStore{limit: historyLimit}
}

// SetLimit changes the history cap and trims immediately.
func (s *InsightStore) SetLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = n
	s.history = capInsights(s.history, n)
}

// ReplaceLatest swaps in a new batch and folds it into history.
func (s *InsightStore) ReplaceLatest(batch []models.Insight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = cloneInsights(batch)
	s.history = mergeInsights(s.history, batch, s.limit)
}

// Latest returns the current batch.
func (s *InsightStore) Latest() []models.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneInsights(s.latest)
}

// Recent returns up to limit insights sorted by timestamp descending,
// optionally restricted to the given types. limit <= 0 means no limit.
func (s *InsightStore) Recent(limit int, types ...models.InsightType) []models.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var allowed map[models.InsightType]bool
	if len(types) > 0 {
		allowed = make(map[models.InsightType]bool, len(types))
		for _, t := range types {
			allowed[t] = true
		}
	}
	out := make([]models.Insight, 0, len(s.history))
	for _, in := range s.history {
		if allowed != nil && !allowed[in.Type] {
			continue
		}
		out = append(out, cloneInsight(in))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *InsightStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// PruneBefore drops insights older than cutoff from both the batch and history.
func (s *InsightStore) PruneBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.history)
	s.history = keepSince(s.history, cutoff)
	s.latest = keepSince(s.latest, cutoff)
	return before - len(s.history)
}

// Merge unions remote insights into history by id. It returns how many were new.
func (s *InsightStore) Merge(remote []models.Insight) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := make(map[string]struct{}, len(s.history))
	for _, in := range s.history {
		before[in.ID] = struct{}{}
	}
	s.history = mergeInsights(s.history, remote, s.limit)
	added := 0
	for _, in := range s.history {
		if _, ok := before[in.ID]; !ok {
			added++
		}
	}
	return added
}

func mergeInsights(existing, incoming []models.Insight, limit int) []models.Insight {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]models.Insight, 0, len(existing)+len(incoming))
	for _, src := range [][]models.Insight{incoming, existing} {
		for _, in := range src {
			if in.ID == "" {
				continue
			}
			if _, dup := seen[in.ID]; dup {
				continue
			}
			seen[in.ID] = struct{}{}
			out = append(out, cloneInsight(in))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return capInsights(out, limit)
}

func capInsights(in []models.Insight, limit int) []models.Insight {
	if limit <= 0 || len(in) <= limit {
		return in
	}
	return in[:limit]
}

func keepSince(in []models.Insight, cutoff time.Time) []models.Insight {
	out := in[:0:0]
	for _, x := range in {
		if !x.Timestamp.Before(cutoff) {
			out = append(out, x)
		}
	}
	return out
}

func cloneInsight(in models.Insight) models.Insight {
	if in.RelatedMetrics != nil {
		in.RelatedMetrics = append([]string(nil), in.RelatedMetrics...)
	}
	if in.Payload.Arbitrage != nil {
		a := *in.Payload.Arbitrage
		in.Payload.Arbitrage = &a
	}
	return in
}

func cloneInsights(in []models.Insight) []models.Insight {
	if in == nil {
		return nil
	}
	out := make([]models.Insight, len(in))
	for i, x := range in {
		out[i] = cloneInsight(x)
	}
	return out
}
