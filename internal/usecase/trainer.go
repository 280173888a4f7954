package usecase

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"BitLearn/internal/domain/models"
	domrepo "BitLearn/internal/domain/repository"
	"BitLearn/internal/domain/service"
	"BitLearn/internal/repository"
	"BitLearn/internal/services/features"
	applogger "BitLearn/pkg/logger"
	"BitLearn/pkg/util"
)

const (
	baseImprovementRate = 0.05
	metricDecay         = 0.95
	metricFloor         = 1e-4
	r2Nudge             = 0.05
)

// TrainResult summarises one training pass.
type TrainResult struct {
	Trained []string
	Skipped []string
	Failed  []string
}

// Trainer runs the simulated training pass over the model registry.
type Trainer struct {
	registry *repository.ModelRegistry
	buffers  *repository.BufferStore
	scorer   service.Scorer
	rnd      *util.LockedRand
	bus      EventPublisher
	metrics  domrepo.Metrics
	clock    service.Clock
	l        *applogger.Logger

	training atomic.Bool
}

func NewTrainer(
	registry *repository.ModelRegistry,
	buffers *repository.BufferStore,
	scorer service.Scorer,
	rnd *util.LockedRand,
	bus EventPublisher,
	metrics domrepo.Metrics,
	clock service.Clock,
	l *applogger.Logger,
) *Trainer {
	return &Trainer{
		registry: registry,
		buffers:  buffers,
		scorer:   scorer,
		rnd:      rnd,
		bus:      bus,
		metrics:  metrics,
		clock:    clock,
		l:        l,
	}
}

// Begin claims the training flag. It fails fast with ErrTrainingInProgress
// when a pass is already running; the returned release must be called once.
func (t *Trainer) Begin() (func(), error) {
	if !t.training.CompareAndSwap(false, true) {
		return nil, models.ErrTrainingInProgress
	}
	return func() { t.training.Store(false) }, nil
}

func (t *Trainer) IsTraining() bool { return t.training.Load() }

// Train runs one pass over every model accepted by filter (nil means all).
// The caller must hold the flag from Begin.
func (t *Trainer) Train(ctx context.Context, cfg models.EngineConfig, filter func(models.Model) bool) TrainResult {
	start := time.Now()
	var res TrainResult
	for _, m := range t.registry.List() {
		if ctx.Err() != nil {
			break
		}
		if filter != nil && !filter(m) {
			continue
		}
		records := trainingRecords(t.buffers.Records(m.Category), m.TargetMetric)
		if len(records) < cfg.MinDataPointsForTraining {
			t.l.Debug("skipping model",
				applogger.String("model_id", m.ID),
				applogger.String("target", m.TargetMetric),
				applogger.Int("records", len(records)),
				applogger.Int("required", cfg.MinDataPointsForTraining),
				applogger.Error(models.ErrInsufficientData),
			)
			t.metrics.RecordTrainingSkipped(m.ID)
			res.Skipped = append(res.Skipped, m.ID)
			continue
		}

		trained, err := t.trainOne(ctx, cfg, m, records)
		if err != nil {
			t.l.Error("model training failed", applogger.String("model_id", m.ID), applogger.Error(err))
			t.metrics.RecordError("training")
			res.Failed = append(res.Failed, m.ID)
			continue
		}
		t.registry.Upsert(trained)
		t.metrics.RecordTraining(trained.ID, trained.Accuracy)
		res.Trained = append(res.Trained, trained.ID)

		t.bus.Publish(models.Event{
			Type:      models.EventModelTrained,
			Timestamp: trained.LastTrainingTimestamp,
			Payload: models.ModelTrainedPayload{
				ModelID:        trained.ID,
				AccuracyBefore: m.Accuracy,
				AccuracyAfter:  trained.Accuracy,
				Version:        trained.Version,
			},
		})
	}
	t.metrics.RecordLatency("train", time.Since(start).Seconds())
	t.l.Info("training pass finished",
		applogger.Int("trained", len(res.Trained)),
		applogger.Int("skipped", len(res.Skipped)),
		applogger.Int("failed", len(res.Failed)),
	)
	return res
}

// trainOne returns the updated copy of m. Panics are turned into errors.
func (t *Trainer) trainOne(ctx context.Context, cfg models.EngineConfig, m models.Model, records []models.TrainingRecord) (out models.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic training %s: %v", m.ID, r)
		}
	}()

	score, err := t.scorer.Score(ctx, m, records)
	if err != nil {
		return models.Model{}, fmt.Errorf("score %s: %w", m.ID, err)
	}
	score = clamp(score, 0, 1)

	out = m.Clone()
	improvement := baseImprovementRate * (1 - out.Accuracy)
	out.Accuracy = clamp(math.Min(models.MaxAccuracy, out.Accuracy+score*improvement), 0, models.MaxAccuracy)

	if out.Weights == nil {
		out.Weights = make(map[string]float64, len(out.Features))
		for _, f := range out.Features {
			out.Weights[f] = 1
		}
	}
	epochs := cfg.Epochs
	if epochs <= 0 {
		epochs = 1
	}
	delta := cfg.LearningRate / float64(epochs)
	for e := 0; e < epochs; e++ {
		for k, w := range out.Weights {
			out.Weights[k] = w + t.rnd.Symmetric(delta)
		}
		models.NormalizeWeights(out.Weights)
	}

	pm := &out.PerformanceMetrics
	pm.MSE = math.Max(metricFloor, pm.MSE*metricDecay)
	pm.MAE = math.Max(metricFloor, pm.MAE*metricDecay)
	pm.R2 += r2Nudge * (models.MaxAccuracy - pm.R2)
	pm.Accuracy = out.Accuracy

	now := t.clock.Now()
	if series := features.Tail(features.Series(records, out.TargetMetric), cfg.BatchSize); len(series) > 0 {
		actual := features.Mean(series)
		predicted := actual * (1 + t.rnd.Symmetric(1-out.Accuracy))
		out.PredictionHistory = append(out.PredictionHistory, models.PredictionPoint{
			Timestamp: now,
			Predicted: predicted,
			Actual:    actual,
			Error:     math.Abs(predicted - actual),
		})
		if n := len(out.PredictionHistory); n > models.MaxPredictionHistory {
			out.PredictionHistory = append([]models.PredictionPoint(nil), out.PredictionHistory[n-models.MaxPredictionHistory:]...)
		}
	}

	out.LastTrainingTimestamp = now
	out.DataPointsSeen += int64(len(records))
	out.Version++
	return out, nil
}

// trainingRecords keeps the records that carry target; a model without a
// target trains on its whole category.
func trainingRecords(records []models.TrainingRecord, target string) []models.TrainingRecord {
	if target == "" {
		return records
	}
	return withField(records, target)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
