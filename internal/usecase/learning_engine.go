package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/service"
	"BitLearn/internal/repository"
	applogger "BitLearn/pkg/logger"
)

var configValidator = validator.New()

// ValidateConfig checks cfg against its validate tags.
func ValidateConfig(cfg models.EngineConfig) error {
	if err := configValidator.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", models.ErrConfigInvalid, err)
	}
	return nil
}

// EventBus is the engine's publish/subscribe channel.
type EventBus interface {
	EventPublisher
	Subscribe(buffer int, topics ...models.EventType) (<-chan models.Event, func())
}

// LearningEngine owns the periodic collect, train, prune and sync jobs and is
// the API the HTTP layer talks to.
type LearningEngine struct {
	registry  *repository.ModelRegistry
	buffers   *repository.BufferStore
	insights  *repository.InsightStore
	collector *DataCollector
	trainer   *Trainer
	generator *InsightGenerator
	pruner    *RetentionPruner
	sync      *CloudSync
	scheduler *Scheduler
	bus       EventBus
	clock     service.Clock
	symbolSrc SymbolSourceFunc
	l         *applogger.Logger

	cfgMu sync.RWMutex
	cfg   models.EngineConfig

	lifeMu sync.Mutex // serializes Start, Stop and UpdateConfig
	runCtx context.Context
}

// EngineDeps groups the components a LearningEngine drives.
type EngineDeps struct {
	Registry  *repository.ModelRegistry
	Buffers   *repository.BufferStore
	Insights  *repository.InsightStore
	Collector *DataCollector
	Trainer   *Trainer
	Generator *InsightGenerator
	Pruner    *RetentionPruner
	Sync      *CloudSync
	Scheduler *Scheduler
	Bus       EventBus
	Clock     service.Clock
	// SymbolSource builds the market feed for an added symbol; nil disables
	// per-symbol collection.
	SymbolSource SymbolSourceFunc
}

// SymbolSourceFunc builds the market feed for one symbol.
type SymbolSourceFunc func(symbol string) service.Source

// NewLearningEngine validates cfg and wires the engine. Nothing runs until Start.
func NewLearningEngine(cfg models.EngineConfig, deps EngineDeps, l *applogger.Logger) (*LearningEngine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	deps.Buffers.SetMaxSize(cfg.MaxBufferSize)
	deps.Insights.SetLimit(cfg.InsightHistoryLimit)
	return &LearningEngine{
		registry:  deps.Registry,
		buffers:   deps.Buffers,
		insights:  deps.Insights,
		collector: deps.Collector,
		trainer:   deps.Trainer,
		generator: deps.Generator,
		pruner:    deps.Pruner,
		sync:      deps.Sync,
		scheduler: deps.Scheduler,
		bus:       deps.Bus,
		clock:     deps.Clock,
		symbolSrc: deps.SymbolSource,
		l:         l,
		cfg:       cfg,
	}, nil
}

// Config returns the current configuration.
func (e *LearningEngine) Config() models.EngineConfig {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

func (e *LearningEngine) cloudEnabled() bool {
	return e.sync.Available() && e.Config().UseCloudStorage
}

// Start launches the periodic jobs. Calling it while running is a no-op and
// returns false.
func (e *LearningEngine) Start(ctx context.Context) bool {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if !e.scheduler.Start(ctx, e.jobs(e.Config(), true)...) {
		return false
	}
	e.runCtx = ctx
	e.ensureSymbolSources()
	e.bus.Publish(models.Event{
		Type:      models.EventLearningStarted,
		Timestamp: e.clock.Now(),
		Payload:   models.LearningStatePayload{Models: e.registry.Len()},
	})
	e.l.Info("learning engine started", applogger.Int("models", e.registry.Len()))
	return true
}

// Stop cancels every job, waits for in-flight ticks and then pushes state to
// the cloud store once. Stopping an idle engine does nothing.
func (e *LearningEngine) Stop(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if !e.scheduler.Stop() {
		return nil
	}
	e.runCtx = nil

	var err error
	if e.cloudEnabled() {
		if err = e.sync.Push(ctx); err != nil {
			e.l.Warn("final cloud push failed", applogger.Error(err))
		}
	}
	e.bus.Publish(models.Event{
		Type:      models.EventLearningStopped,
		Timestamp: e.clock.Now(),
		Payload:   models.LearningStatePayload{Models: e.registry.Len()},
	})
	e.l.Info("learning engine stopped")
	return err
}

func (e *LearningEngine) jobs(cfg models.EngineConfig, initial bool) []Job {
	return []Job{
		{
			Name:      "collect",
			Interval:  cfg.DataCollectionInterval,
			Immediate: initial,
			Run: func(ctx context.Context) {
				e.collector.Collect(ctx, e.Config().FetchTimeout)
			},
		},
		{
			Name:     "train",
			Interval: cfg.TrainingInterval,
			Run: func(ctx context.Context) {
				if _, err := e.trainCycle(ctx, nil); err != nil {
					e.l.Warn("scheduled training skipped", applogger.Error(err))
				}
			},
		},
		{
			Name:     "prune",
			Interval: cfg.EffectivePruneInterval(),
			Run: func(context.Context) {
				e.pruner.Prune(e.clock.Now(), e.Config())
			},
		},
		{
			Name:      "cloud-sync",
			Interval:  cfg.CloudSyncInterval,
			Immediate: initial,
			Run: func(ctx context.Context) {
				if !e.cloudEnabled() {
					return
				}
				_, _ = e.sync.Sync(ctx, e.Config())
				// pulled models may carry symbols this process has no feed for
				e.ensureSymbolSources()
			},
		},
	}
}

// trainCycle trains then generates insights from the same pass.
func (e *LearningEngine) trainCycle(ctx context.Context, filter func(models.Model) bool) (TrainResult, error) {
	release, err := e.trainer.Begin()
	if err != nil {
		return TrainResult{}, err
	}
	defer release()
	return e.trainAndGenerate(ctx, filter), nil
}

// trainAndGenerate expects the caller to hold the training flag.
func (e *LearningEngine) trainAndGenerate(ctx context.Context, filter func(models.Model) bool) TrainResult {
	cfg := e.Config()
	res := e.trainer.Train(ctx, cfg, filter)
	e.generator.Generate(ctx, cfg, cfg.InsightBatchSize, cfg.ConfidenceThreshold)
	return res
}

// ForceTraining runs a training pass now. An empty symbol trains every model;
// otherwise only the symbol's price model, created on demand. It fails with
// ErrTrainingInProgress when a pass is already running, without creating
// anything.
func (e *LearningEngine) ForceTraining(ctx context.Context, symbol string) (TrainResult, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return e.trainCycle(ctx, nil)
	}
	release, err := e.trainer.Begin()
	if err != nil {
		return TrainResult{}, err
	}
	defer release()

	m, err := e.AddSymbol(symbol)
	if err != nil {
		return TrainResult{}, err
	}
	return e.trainAndGenerate(ctx, func(candidate models.Model) bool { return candidate.ID == m.ID }), nil
}

// ForceSyncWithCloud pulls then pushes immediately.
func (e *LearningEngine) ForceSyncWithCloud(ctx context.Context) error {
	if !e.cloudEnabled() {
		return fmt.Errorf("%w: cloud storage disabled", models.ErrCloudSyncFailure)
	}
	pullErr, pushErr := e.sync.Sync(ctx, e.Config())
	payload := models.ForcedCloudSyncPayload{}
	if pullErr != nil {
		payload.PullError = pullErr.Error()
	}
	if pushErr != nil {
		payload.PushError = pushErr.Error()
	}
	e.bus.Publish(models.Event{Type: models.EventForcedCloudSync, Timestamp: e.clock.Now(), Payload: payload})
	return errors.Join(pullErr, pushErr)
}

// Status is a consistent-enough snapshot for dashboards; each store is read
// under its own lock.
func (e *LearningEngine) Status() models.Status {
	cfg := e.Config()
	all := e.registry.List()
	summaries := make([]models.ModelSummary, 0, len(all))
	for _, m := range all {
		summaries = append(summaries, m.Summary())
	}
	return models.Status{
		IsLearning:      e.scheduler.Running(),
		IsTraining:      e.trainer.IsTraining(),
		Models:          summaries,
		LastModelUpdate: e.registry.LastUpdate(),
		DataPointCounts: e.buffers.Counts(),
		InsightCount:    e.insights.Len(),
		Config:          models.NewConfigView(cfg),
		CloudSyncInfo:   e.sync.Info(cfg.UseCloudStorage),
	}
}

func (e *LearningEngine) AllModels() []models.Model { return e.registry.List() }

func (e *LearningEngine) Model(id string) (models.Model, error) { return e.registry.Get(id) }

// RecentInsights returns history newest first, optionally filtered by type.
func (e *LearningEngine) RecentInsights(limit int, types ...models.InsightType) []models.Insight {
	return e.insights.Recent(limit, types...)
}

// GenerateInsights runs the generator on demand. count <= 0 uses the configured batch size.
func (e *LearningEngine) GenerateInsights(ctx context.Context, count int, minConfidence float64) []models.Insight {
	return e.generator.Generate(ctx, e.Config(), count, minConfidence)
}

// UpdateConfig applies patch atomically. An invalid result is rejected with
// ErrConfigInvalid and the previous config stays in force. A running
// scheduler is restarted so new intervals take effect.
func (e *LearningEngine) UpdateConfig(patch models.ConfigPatch) (models.EngineConfig, error) {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	e.cfgMu.Lock()
	next := patch.Apply(e.cfg)
	if err := ValidateConfig(next); err != nil {
		prev := e.cfg
		e.cfgMu.Unlock()
		return prev, err
	}
	e.cfg = next
	e.cfgMu.Unlock()

	e.buffers.SetMaxSize(next.MaxBufferSize)
	e.insights.SetLimit(next.InsightHistoryLimit)

	if e.scheduler.Stop() {
		e.scheduler.Start(e.runCtx, e.jobs(next, false)...)
		e.l.Info("scheduler restarted with new config")
	}
	return next, nil
}

// AddSymbol registers the per-symbol price model and its market feed, and
// returns the model. Adding an existing symbol returns the current model.
func (e *LearningEngine) AddSymbol(symbol string) (models.Model, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return models.Model{}, fmt.Errorf("%w: empty symbol", models.ErrConfigInvalid)
	}
	id := models.SymbolModelID(symbol)
	if m, err := e.registry.Get(id); err == nil {
		return m, nil
	}
	m := models.NewSymbolModel(symbol)
	e.registry.Upsert(m)
	e.registerSymbolSource(symbol)
	e.l.Info("symbol model added", applogger.String("model_id", id))
	return m, nil
}

// RemoveSymbol deletes the per-symbol price model and stops its feed.
func (e *LearningEngine) RemoveSymbol(symbol string) error {
	id := models.SymbolModelID(symbol)
	if !e.registry.Remove(id) {
		return fmt.Errorf("%s: %w", id, models.ErrModelNotFound)
	}
	if e.symbolSrc != nil {
		e.collector.RemoveSource(e.symbolSrc(symbol).Name())
	}
	return nil
}

func (e *LearningEngine) ensureSymbolSources() {
	if e.symbolSrc == nil {
		return
	}
	have := make(map[string]bool)
	for _, name := range e.collector.SourceNames() {
		have[name] = true
	}
	for _, m := range e.registry.List() {
		if m.Symbol == "" {
			continue
		}
		if src := e.symbolSrc(m.Symbol); !have[src.Name()] {
			e.collector.AddSource(src)
		}
	}
}

func (e *LearningEngine) registerSymbolSource(symbol string) {
	if e.symbolSrc == nil {
		return
	}
	e.collector.AddSource(e.symbolSrc(symbol))
}

// Subscribe registers for engine events; subscribe before Start to see
// learning-started.
func (e *LearningEngine) Subscribe(buffer int, topics ...models.EventType) (<-chan models.Event, func()) {
	return e.bus.Subscribe(buffer, topics...)
}
