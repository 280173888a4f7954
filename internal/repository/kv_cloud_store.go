package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/repository"
	"BitLearn/pkg/cache"
)

const (
	kvModelPrefix    = "models"
	kvTrainingPrefix = "training"
	kvInsightsKey    = "insights:recent"
	kvWriteLock      = "lock:sync"
	kvLockTTL        = 30 * time.Second

	defaultRemoteRecordCap  = 20000
	defaultRemoteInsightCap = 1000
)

// KVCloudStore persists engine state in any cache.Service (Redis or memory).
type KVCloudStore struct {
	kv         cache.Service
	name       string
	recordCap  int
	insightCap int
}

// NewKVCloudStore wraps kv as a CloudStore. name is reported in sync info.
func NewKVCloudStore(kv cache.Service, name string) repository.CloudStore {
	return &KVCloudStore{
		kv:         kv,
		name:       name,
		recordCap:  defaultRemoteRecordCap,
		insightCap: defaultRemoteInsightCap,
	}
}

func (s *KVCloudStore) Name() string { return s.name }

func (s *KVCloudStore) LoadAllModels(ctx context.Context) ([]models.Model, error) {
	keys, err := s.kv.Keys(ctx, cache.PrefixPattern(kvModelPrefix))
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	out := make([]models.Model, 0, len(keys))
	for _, key := range keys {
		m, err := cache.GetTyped[models.Model](ctx, s.kv, key)
		if err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				continue
			}
			return nil, fmt.Errorf("load model %s: %w", key, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *KVCloudStore) SaveModel(ctx context.Context, m models.Model) error {
	if err := s.kv.Set(ctx, cache.Key(kvModelPrefix, m.ID), m, 0); err != nil {
		return fmt.Errorf("save model %s: %w", m.ID, err)
	}
	return nil
}

func (s *KVCloudStore) LoadTrainingData(ctx context.Context, retentionDays int) (models.TrainingBuffers, error) {
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	out := make(models.TrainingBuffers, len(models.AllCategories))
	for _, cat := range models.AllCategories {
		records, err := cache.GetTyped[[]models.TrainingRecord](ctx, s.kv, cache.Key(kvTrainingPrefix, string(cat)))
		if err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				continue
			}
			return nil, fmt.Errorf("load training %s: %w", cat, err)
		}
		out[cat] = records
	}
	if retentionDays > 0 {
		out = out.Since(cutoff)
	}
	return out, nil
}

func (s *KVCloudStore) SaveTrainingData(ctx context.Context, data models.TrainingBuffers) error {
	return s.withLock(ctx, func() error {
		for cat, incoming := range data {
			if len(incoming) == 0 {
				continue
			}
			key := cache.Key(kvTrainingPrefix, string(cat))
			existing, err := cache.GetTyped[[]models.TrainingRecord](ctx, s.kv, key)
			if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
				return fmt.Errorf("read training %s: %w", cat, err)
			}
			merged := mergeRecords(existing, incoming, s.recordCap)
			if err := s.kv.Set(ctx, key, merged, 0); err != nil {
				return fmt.Errorf("save training %s: %w", cat, err)
			}
		}
		return nil
	})
}

func (s *KVCloudStore) LoadInsights(ctx context.Context, limit int) ([]models.Insight, error) {
	insights, err := cache.GetTyped[[]models.Insight](ctx, s.kv, kvInsightsKey)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load insights: %w", err)
	}
	return capInsights(insights, limit), nil
}

func (s *KVCloudStore) SaveInsights(ctx context.Context, insights []models.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	return s.withLock(ctx, func() error {
		existing, err := cache.GetTyped[[]models.Insight](ctx, s.kv, kvInsightsKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			return fmt.Errorf("read insights: %w", err)
		}
		merged := mergeInsights(existing, insights, s.insightCap)
		if err := s.kv.Set(ctx, kvInsightsKey, merged, 0); err != nil {
			return fmt.Errorf("save insights: %w", err)
		}
		return nil
	})
}

// withLock serializes read-modify-write cycles across engine instances.
func (s *KVCloudStore) withLock(ctx context.Context, fn func() error) error {
	ok, err := s.kv.TryLock(ctx, kvWriteLock, kvLockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("acquire lock: held by another writer")
	}
	defer func() { _ = s.kv.Unlock(context.WithoutCancel(ctx), kvWriteLock) }()
	return fn()
}

// mergeRecords unions two record slices by natural key, sorted by time and
// capped to the most recent max entries.
func mergeRecords(existing, incoming []models.TrainingRecord, max int) []models.TrainingRecord {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]models.TrainingRecord, 0, len(existing)+len(incoming))
	for _, src := range [][]models.TrainingRecord{existing, incoming} {
		for _, r := range src {
			if _, dup := seen[r.Key()]; dup {
				continue
			}
			seen[r.Key()] = struct{}{}
			out = append(out, r)
		}
	}
	sortRecords(out)
	return capRecent(out, max)
}
