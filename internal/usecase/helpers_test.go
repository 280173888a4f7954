package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/service"
	"BitLearn/internal/repository"
	"BitLearn/internal/service/eventbus"
	applogger "BitLearn/pkg/logger"
	"BitLearn/pkg/util"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type nopMetrics struct{}

func (nopMetrics) RecordCollection(string, bool)  {}
func (nopMetrics) RecordTraining(string, float64) {}
func (nopMetrics) RecordTrainingSkipped(string)   {}
func (nopMetrics) RecordInsights(string, int)     {}
func (nopMetrics) RecordSync(string, error)       {}
func (nopMetrics) RecordError(string)             {}
func (nopMetrics) RecordLatency(string, float64)  {}

// recordingBus captures published events and still fans them out.
type recordingBus struct {
	*eventbus.Bus
	mu     sync.Mutex
	events []models.Event
}

func newRecordingBus() *recordingBus { return &recordingBus{Bus: eventbus.New()} }

func (b *recordingBus) Publish(ev models.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	b.Bus.Publish(ev)
}

func (b *recordingBus) ofType(t models.EventType) []models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Event
	for _, ev := range b.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// stubSource returns a fixed record, an error, or blocks until ctx is done.
type stubSource struct {
	name     string
	category models.DataCategory
	fields   map[string]float64
	err      error
	block    bool
}

func (s *stubSource) Name() string                  { return s.name }
func (s *stubSource) Category() models.DataCategory { return s.category }

func (s *stubSource) Fetch(ctx context.Context) (models.TrainingRecord, error) {
	if s.block {
		<-ctx.Done()
		return models.TrainingRecord{}, ctx.Err()
	}
	if s.err != nil {
		return models.TrainingRecord{}, s.err
	}
	return models.TrainingRecord{Category: s.category, Source: s.name, Fields: s.fields}, nil
}

func (s *stubSource) Fallback(now time.Time) models.TrainingRecord {
	return models.TrainingRecord{
		Category:  s.category,
		Timestamp: now,
		Source:    s.name,
		Synthetic: true,
		Fields:    map[string]float64{"synthetic": 1},
	}
}

type fixedScorer struct {
	score float64
	err   error
	panic bool
	calls chan struct{} // optional; receives once per call
	gate  chan struct{} // optional; Score waits on it
}

func (s *fixedScorer) Score(ctx context.Context, _ models.Model, _ []models.TrainingRecord) (float64, error) {
	if s.calls != nil {
		s.calls <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
		}
	}
	if s.panic {
		panic("scorer exploded")
	}
	return s.score, s.err
}

// memCloud is an in-memory CloudStore that counts calls.
type memCloud struct {
	mu          sync.Mutex
	models      map[string]models.Model
	records     models.TrainingBuffers
	insights    []models.Insight
	loadErr     error
	saveErr     error
	modelSaves  int
	recordSaves []models.TrainingBuffers
	insightSave [][]models.Insight
}

func newMemCloud() *memCloud {
	return &memCloud{models: map[string]models.Model{}, records: models.TrainingBuffers{}}
}

func (c *memCloud) Name() string { return "mem" }

func (c *memCloud) LoadAllModels(context.Context) ([]models.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	out := make([]models.Model, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m.Clone())
	}
	return out, nil
}

func (c *memCloud) SaveModel(_ context.Context, m models.Model) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.models[m.ID] = m.Clone()
	c.modelSaves++
	return nil
}

func (c *memCloud) LoadTrainingData(context.Context, int) (models.TrainingBuffers, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return c.records, nil
}

func (c *memCloud) SaveTrainingData(_ context.Context, data models.TrainingBuffers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.recordSaves = append(c.recordSaves, data)
	return nil
}

func (c *memCloud) LoadInsights(context.Context, int) ([]models.Insight, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return c.insights, nil
}

func (c *memCloud) SaveInsights(_ context.Context, in []models.Insight) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.insightSave = append(c.insightSave, in)
	return nil
}

func (c *memCloud) pushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recordSaves)
}

var errBoom = errors.New("boom")

func testConfig() models.EngineConfig {
	return models.EngineConfig{
		LearningRate:             0.01,
		BatchSize:                32,
		Epochs:                   10,
		ValidationSplit:          0.2,
		DataRetentionDays:        30,
		MinDataPointsForTraining: 10,
		ConfidenceThreshold:      0.6,
		DataCollectionInterval:   time.Hour,
		TrainingInterval:         time.Hour,
		CloudSyncInterval:        time.Hour,
		FetchTimeout:             50 * time.Millisecond,
		UseCloudStorage:          true,
		InsightBatchSize:         8,
		InsightHistoryLimit:      500,
		MaxBufferSize:            10000,
		SimulationSeed:           42,
	}
}

// marketRecords returns n market records one minute apart with a rising price.
func marketRecords(n int, start time.Time) []models.TrainingRecord {
	out := make([]models.TrainingRecord, n)
	for i := range out {
		p := 60000 + float64(i)*10
		out[i] = models.TrainingRecord{
			Category:  models.CategoryMarket,
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Source:    "test",
			Fields: map[string]float64{
				"price": p, "high": p * 1.001, "low": p * 0.999, "volume": 1e9, "change_24h": 1, "market_cap": 1.2e12,
			},
		}
	}
	return out
}

func categoryRecords(cat models.DataCategory, n int, start time.Time, fields func(i int) map[string]float64) []models.TrainingRecord {
	out := make([]models.TrainingRecord, n)
	for i := range out {
		out[i] = models.TrainingRecord{
			Category:  cat,
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Source:    "test",
			Fields:    fields(i),
		}
	}
	return out
}

type fixture struct {
	clock     *fakeClock
	registry  *repository.ModelRegistry
	buffers   *repository.BufferStore
	insights  *repository.InsightStore
	bus       *recordingBus
	scorer    *fixedScorer
	cloud     *memCloud
	trainer   *Trainer
	generator *InsightGenerator
	pruner    *RetentionPruner
	sync      *CloudSync
}

func newFixture(seed ...models.Model) *fixture {
	l := applogger.NewNop()
	f := &fixture{
		clock:    &fakeClock{now: t0},
		registry: repository.NewModelRegistry(seed...),
		buffers:  repository.NewBufferStore(10000),
		insights: repository.NewInsightStore(500),
		bus:      newRecordingBus(),
		scorer:   &fixedScorer{score: 1},
		cloud:    newMemCloud(),
	}
	rnd := util.NewLockedRand(7)
	f.trainer = NewTrainer(f.registry, f.buffers, f.scorer, rnd, f.bus, nopMetrics{}, f.clock, l)
	f.generator = NewInsightGenerator(f.registry, f.buffers, f.insights, f.bus, nopMetrics{}, f.clock, l)
	f.pruner = NewRetentionPruner(f.buffers, f.insights, f.bus, l)
	f.sync = NewCloudSync(f.cloud, f.registry, f.buffers, f.insights, f.bus, nopMetrics{}, f.clock, l)
	return f
}

func (f *fixture) collector(sources ...service.Source) *DataCollector {
	return NewDataCollector(sources, f.buffers, nil, f.bus, nopMetrics{}, f.clock, applogger.NewNop())
}

func (f *fixture) engine(cfg models.EngineConfig, sources ...service.Source) *LearningEngine {
	return f.engineWithSymbols(cfg, nil, sources...)
}

func (f *fixture) engineWithSymbols(cfg models.EngineConfig, symbolSrc SymbolSourceFunc, sources ...service.Source) *LearningEngine {
	l := applogger.NewNop()
	e, err := NewLearningEngine(cfg, EngineDeps{
		Registry:  f.registry,
		Buffers:   f.buffers,
		Insights:  f.insights,
		Collector: f.collector(sources...),
		Trainer:   f.trainer,
		Generator: f.generator,
		Pruner:    f.pruner,
		Sync:      f.sync,
		Scheduler: NewScheduler(l),
		Bus:       f.bus,
		Clock:     f.clock,

		SymbolSource: symbolSrc,
	}, l)
	if err != nil {
		panic(err)
	}
	return e
}
