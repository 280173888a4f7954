package service

import (
	"context"
	"time"

	"BitLearn/internal/domain/models"
)

// Source is one external telemetry feed. Fallback must never fail.
type Source interface {
	Name() string
	Category() models.DataCategory
	Fetch(ctx context.Context) (models.TrainingRecord, error)
	Fallback(now time.Time) models.TrainingRecord
}

// Scorer supplies the training signal in [0,1] for one model pass.
type Scorer interface {
	Score(ctx context.Context, m models.Model, records []models.TrainingRecord) (float64, error)
}

// Clock abstracts time for the engine's periodic jobs.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
