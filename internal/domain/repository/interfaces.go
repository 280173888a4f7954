package repository

import (
	"context"

	"BitLearn/internal/domain/models"
)

// CloudStore is the remote persistence the engine synchronizes with.
type CloudStore interface {
	Name() string
	LoadAllModels(ctx context.Context) ([]models.Model, error)
	SaveModel(ctx context.Context, m models.Model) error
	LoadTrainingData(ctx context.Context, retentionDays int) (models.TrainingBuffers, error)
	SaveTrainingData(ctx context.Context, data models.TrainingBuffers) error
	LoadInsights(ctx context.Context, limit int) ([]models.Insight, error)
	SaveInsights(ctx context.Context, insights []models.Insight) error
}

// TelemetryArchive stores collected records for offline analysis.
type TelemetryArchive interface {
	ArchiveBatch(ctx context.Context, records []models.TrainingRecord) error
}

// EventSink forwards engine events outside the process.
type EventSink interface {
	Publish(ctx context.Context, ev models.Event) error
}

type Metrics interface {
	RecordCollection(category string, fallback bool)
	RecordTraining(modelID string, accuracy float64)
	RecordTrainingSkipped(modelID string)
	RecordInsights(insightType string, n int)
	RecordSync(phase string, err error)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
