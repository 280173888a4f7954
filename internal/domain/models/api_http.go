package models

import (
	"fmt"
	"time"
)

// Requests for the learning API. Bound by echo, defaulted by creasty/defaults
// and checked by validator.

type InsightsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	Types string `query:"types" json:"types"` // comma separated InsightType values
}

type GenerateInsightsRequest struct {
	Count         int      `query:"count" json:"count" default:"8" validate:"gte=1,lte=100"`
	MinConfidence *float64 `query:"min_confidence" json:"min_confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type ForceTrainingRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=32,alphanum"`
}

type SymbolRequest struct {
	Symbol string `json:"symbol" validate:"required,max=32,alphanum"`
}

// ConfigUpdateRequest mirrors ConfigPatch with durations as Go duration
// strings ("90s", "5m").
type ConfigUpdateRequest struct {
	LearningRate             *float64 `json:"learning_rate,omitempty"`
	BatchSize                *int     `json:"batch_size,omitempty"`
	Epochs                   *int     `json:"epochs,omitempty"`
	ValidationSplit          *float64 `json:"validation_split,omitempty"`
	DataRetentionDays        *int     `json:"data_retention_days,omitempty"`
	MinDataPointsForTraining *int     `json:"min_data_points_for_training,omitempty"`
	ConfidenceThreshold      *float64 `json:"confidence_threshold,omitempty"`
	DataCollectionInterval   *string  `json:"data_collection_interval,omitempty"`
	TrainingInterval         *string  `json:"training_interval,omitempty"`
	CloudSyncInterval        *string  `json:"cloud_sync_interval,omitempty"`
	PruneInterval            *string  `json:"prune_interval,omitempty"`
	FetchTimeout             *string  `json:"fetch_timeout,omitempty"`
	UseCloudStorage          *bool    `json:"use_cloud_storage,omitempty"`
	InsightBatchSize         *int     `json:"insight_batch_size,omitempty"`
	InsightHistoryLimit      *int     `json:"insight_history_limit,omitempty"`
	MaxBufferSize            *int     `json:"max_buffer_size,omitempty"`
}

// Patch converts the request; a malformed duration is reported with its field name.
func (r ConfigUpdateRequest) Patch() (ConfigPatch, error) {
	p := ConfigPatch{
		LearningRate:             r.LearningRate,
		BatchSize:                r.BatchSize,
		Epochs:                   r.Epochs,
		ValidationSplit:          r.ValidationSplit,
		DataRetentionDays:        r.DataRetentionDays,
		MinDataPointsForTraining: r.MinDataPointsForTraining,
		ConfidenceThreshold:      r.ConfidenceThreshold,
		UseCloudStorage:          r.UseCloudStorage,
		InsightBatchSize:         r.InsightBatchSize,
		InsightHistoryLimit:      r.InsightHistoryLimit,
		MaxBufferSize:            r.MaxBufferSize,
	}
	durations := []struct {
		name string
		src  *string
		dst  **time.Duration
	}{
		{"data_collection_interval", r.DataCollectionInterval, &p.DataCollectionInterval},
		{"training_interval", r.TrainingInterval, &p.TrainingInterval},
		{"cloud_sync_interval", r.CloudSyncInterval, &p.CloudSyncInterval},
		{"prune_interval", r.PruneInterval, &p.PruneInterval},
		{"fetch_timeout", r.FetchTimeout, &p.FetchTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return ConfigPatch{}, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, d.name, err)
		}
		*d.dst = &v
	}
	return p, nil
}
