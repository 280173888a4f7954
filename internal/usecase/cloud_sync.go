package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"BitLearn/internal/domain/models"
	domrepo "BitLearn/internal/domain/repository"
	"BitLearn/internal/domain/service"
	"BitLearn/internal/repository"
	applogger "BitLearn/pkg/logger"
)

const (
	pushTrainingWindow = 24 * time.Hour
	pushInsightLimit   = 100
	pullInsightLimit   = 1000
)

// CloudSync reconciles local engine state with a CloudStore.
type CloudSync struct {
	store    domrepo.CloudStore
	registry *repository.ModelRegistry
	buffers  *repository.BufferStore
	insights *repository.InsightStore
	bus      EventPublisher
	metrics  domrepo.Metrics
	clock    service.Clock
	l        *applogger.Logger

	mu   sync.Mutex
	info models.SyncInfo
}

// NewCloudSync builds the bridge. A nil store disables both phases.
func NewCloudSync(
	store domrepo.CloudStore,
	registry *repository.ModelRegistry,
	buffers *repository.BufferStore,
	insights *repository.InsightStore,
	bus EventPublisher,
	metrics domrepo.Metrics,
	clock service.Clock,
	l *applogger.Logger,
) *CloudSync {
	s := &CloudSync{
		store:    store,
		registry: registry,
		buffers:  buffers,
		insights: insights,
		bus:      bus,
		metrics:  metrics,
		clock:    clock,
		l:        l,
	}
	if store != nil {
		s.info.Backend = store.Name()
	}
	return s
}

// Available reports whether a store is configured.
func (s *CloudSync) Available() bool { return s.store != nil }

// Info returns a copy of the sync bookkeeping. enabled mirrors the config flag.
func (s *CloudSync) Info(enabled bool) models.SyncInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.info
	info.Enabled = enabled && s.store != nil
	return info
}

// Pull loads remote state and merges it. Local state is only touched once all
// three loads have succeeded.
func (s *CloudSync) Pull(ctx context.Context, cfg models.EngineConfig) error {
	if s.store == nil {
		return nil
	}
	start := time.Now()

	var (
		remoteModels   []models.Model
		remoteRecords  models.TrainingBuffers
		remoteInsights []models.Insight
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		remoteModels, err = s.store.LoadAllModels(gctx)
		return err
	})
	g.Go(func() (err error) {
		remoteRecords, err = s.store.LoadTrainingData(gctx, cfg.DataRetentionDays)
		return err
	})
	g.Go(func() (err error) {
		remoteInsights, err = s.store.LoadInsights(gctx, pullInsightLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		err = fmt.Errorf("%w: pull from %s: %v", models.ErrCloudSyncFailure, s.store.Name(), err)
		s.recordPull(0, err)
		s.metrics.RecordSync("pull", err)
		s.l.Warn("cloud pull failed", applogger.Error(err))
		return err
	}

	updated, rejected := s.registry.MergeNewer(remoteModels)
	for _, err := range rejected {
		s.l.Warn("skipping malformed cloud model", applogger.String("backend", s.store.Name()), applogger.Error(err))
	}
	payload := models.CloudDataLoadedPayload{
		ModelsUpdated: updated,
		Records:       s.buffers.Merge(remoteRecords),
		Insights:      s.insights.Merge(remoteInsights),
	}
	s.recordPull(payload.ModelsUpdated, nil)
	s.metrics.RecordSync("pull", nil)
	s.metrics.RecordLatency("cloud_pull", time.Since(start).Seconds())
	s.bus.Publish(models.Event{Type: models.EventCloudDataLoaded, Timestamp: s.clock.Now(), Payload: payload})
	s.l.Info("cloud pull complete",
		applogger.String("backend", s.store.Name()),
		applogger.Int("models_updated", payload.ModelsUpdated),
		applogger.Int("records", payload.Records),
		applogger.Int("insights", payload.Insights),
	)
	return nil
}

// Push uploads every model, the last 24h of training data and the 100 most
// recent insights. Individual failures are joined; the rest still upload.
func (s *CloudSync) Push(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	start := time.Now()
	now := s.clock.Now()

	var errs []error
	all := s.registry.List()
	saved := 0
	for _, m := range all {
		if err := s.store.SaveModel(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("save model %s: %w", m.ID, err))
			continue
		}
		saved++
	}

	recent := s.buffers.Snapshot().Since(now.Add(-pushTrainingWindow))
	if recent.Count() > 0 {
		if err := s.store.SaveTrainingData(ctx, recent); err != nil {
			errs = append(errs, fmt.Errorf("save training data: %w", err))
		}
	}

	insights := s.insights.Recent(pushInsightLimit)
	if len(insights) > 0 {
		if err := s.store.SaveInsights(ctx, insights); err != nil {
			errs = append(errs, fmt.Errorf("save insights: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		err = fmt.Errorf("%w: push to %s: %v", models.ErrCloudSyncFailure, s.store.Name(), err)
		s.recordPush(saved, err)
		s.metrics.RecordSync("push", err)
		s.l.Warn("cloud push failed", applogger.Error(err))
		return err
	}

	s.recordPush(saved, nil)
	s.metrics.RecordSync("push", nil)
	s.metrics.RecordLatency("cloud_push", time.Since(start).Seconds())
	s.bus.Publish(models.Event{
		Type:      models.EventCloudDataSaved,
		Timestamp: now,
		Payload: models.CloudDataSavedPayload{
			Models:   saved,
			Records:  recent.Count(),
			Insights: len(insights),
		},
	})
	s.l.Debug("cloud push complete", applogger.String("backend", s.store.Name()), applogger.Int("models", saved))
	return nil
}

// Sync runs pull then push. Each phase fails independently.
func (s *CloudSync) Sync(ctx context.Context, cfg models.EngineConfig) (pullErr, pushErr error) {
	pullErr = s.Pull(ctx, cfg)
	pushErr = s.Push(ctx)
	return pullErr, pushErr
}

func (s *CloudSync) recordPull(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.LastPull = s.clock.Now()
	if err != nil {
		s.info.LastPullError = err.Error()
		s.info.ConsecutiveErr++
		return
	}
	s.info.LastPullError = ""
	s.info.ModelsPulled = n
	s.info.ConsecutiveErr = 0
}

func (s *CloudSync) recordPush(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.LastPush = s.clock.Now()
	s.info.ModelsPushed = n
	if err != nil {
		s.info.LastPushError = err.Error()
		s.info.ConsecutiveErr++
		return
	}
	s.info.LastPushError = ""
	s.info.ConsecutiveErr = 0
}
