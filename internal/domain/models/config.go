package models

import "time"

// EngineConfig tunes the learning engine. Default tags are applied with
// creasty/defaults and validate tags are checked with go-playground/validator.
type EngineConfig struct {
	LearningRate             float64       `yaml:"learning_rate" json:"learning_rate" default:"0.01" validate:"gt=0,lte=1"`
	BatchSize                int           `yaml:"batch_size" json:"batch_size" default:"32" validate:"gt=0"`
	Epochs                   int           `yaml:"epochs" json:"epochs" default:"10" validate:"gt=0"`
	ValidationSplit          float64       `yaml:"validation_split" json:"validation_split" default:"0.2" validate:"gte=0,lt=1"`
	DataRetentionDays        int           `yaml:"data_retention_days" json:"data_retention_days" default:"30" validate:"gt=0"`
	MinDataPointsForTraining int           `yaml:"min_data_points_for_training" json:"min_data_points_for_training" default:"10" validate:"gte=1"`
	ConfidenceThreshold      float64       `yaml:"confidence_threshold" json:"confidence_threshold" default:"0.6" validate:"gte=0,lte=1"`
	DataCollectionInterval   time.Duration `yaml:"data_collection_interval" json:"data_collection_interval" default:"1m" validate:"gt=0"`
	TrainingInterval         time.Duration `yaml:"training_interval" json:"training_interval" default:"5m" validate:"gt=0"`
	CloudSyncInterval        time.Duration `yaml:"cloud_sync_interval" json:"cloud_sync_interval" default:"10m" validate:"gt=0"`
	PruneInterval            time.Duration `yaml:"prune_interval" json:"prune_interval" validate:"gte=0"` // 0 means TrainingInterval
	FetchTimeout             time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" default:"5s" validate:"gt=0"`
	UseCloudStorage          bool          `yaml:"use_cloud_storage" json:"use_cloud_storage"`
	InsightBatchSize         int           `yaml:"insight_batch_size" json:"insight_batch_size" default:"8" validate:"gt=0"`
	InsightHistoryLimit      int           `yaml:"insight_history_limit" json:"insight_history_limit" default:"500" validate:"gt=0"`
	MaxBufferSize            int           `yaml:"max_buffer_size" json:"max_buffer_size" default:"10000" validate:"gt=0"`
	SimulationSeed           int64         `yaml:"simulation_seed" json:"simulation_seed"`
}

// EffectivePruneInterval falls back to the training interval.
func (c EngineConfig) EffectivePruneInterval() time.Duration {
	if c.PruneInterval > 0 {
		return c.PruneInterval
	}
	return c.TrainingInterval
}

// RetentionCutoff returns the oldest timestamp still retained at now.
func (c EngineConfig) RetentionCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(c.DataRetentionDays) * 24 * time.Hour)
}

// ConfigPatch is a partial update; nil fields are left untouched.
type ConfigPatch struct {
	LearningRate             *float64       `json:"learning_rate,omitempty"`
	BatchSize                *int           `json:"batch_size,omitempty"`
	Epochs                   *int           `json:"epochs,omitempty"`
	ValidationSplit          *float64       `json:"validation_split,omitempty"`
	DataRetentionDays        *int           `json:"data_retention_days,omitempty"`
	MinDataPointsForTraining *int           `json:"min_data_points_for_training,omitempty"`
	ConfidenceThreshold      *float64       `json:"confidence_threshold,omitempty"`
	DataCollectionInterval   *time.Duration `json:"data_collection_interval,omitempty"`
	TrainingInterval         *time.Duration `json:"training_interval,omitempty"`
	CloudSyncInterval        *time.Duration `json:"cloud_sync_interval,omitempty"`
	PruneInterval            *time.Duration `json:"prune_interval,omitempty"`
	FetchTimeout             *time.Duration `json:"fetch_timeout,omitempty"`
	UseCloudStorage          *bool          `json:"use_cloud_storage,omitempty"`
	InsightBatchSize         *int           `json:"insight_batch_size,omitempty"`
	InsightHistoryLimit      *int           `json:"insight_history_limit,omitempty"`
	MaxBufferSize            *int           `json:"max_buffer_size,omitempty"`
}

// Apply returns a copy of c with the patch applied.
func (p ConfigPatch) Apply(c EngineConfig) EngineConfig {
	if p.LearningRate != nil {
		c.LearningRate = *p.LearningRate
	}
	if p.BatchSize != nil {
		c.BatchSize = *p.BatchSize
	}
	if p.Epochs != nil {
		c.Epochs = *p.Epochs
	}
	if p.ValidationSplit != nil {
		c.ValidationSplit = *p.ValidationSplit
	}
	if p.DataRetentionDays != nil {
		c.DataRetentionDays = *p.DataRetentionDays
	}
	if p.MinDataPointsForTraining != nil {
		c.MinDataPointsForTraining = *p.MinDataPointsForTraining
	}
	if p.ConfidenceThreshold != nil {
		c.ConfidenceThreshold = *p.ConfidenceThreshold
	}
	if p.DataCollectionInterval != nil {
		c.DataCollectionInterval = *p.DataCollectionInterval
	}
	if p.TrainingInterval != nil {
		c.TrainingInterval = *p.TrainingInterval
	}
	if p.CloudSyncInterval != nil {
		c.CloudSyncInterval = *p.CloudSyncInterval
	}
	if p.PruneInterval != nil {
		c.PruneInterval = *p.PruneInterval
	}
	if p.FetchTimeout != nil {
		c.FetchTimeout = *p.FetchTimeout
	}
	if p.UseCloudStorage != nil {
		c.UseCloudStorage = *p.UseCloudStorage
	}
	if p.InsightBatchSize != nil {
		c.InsightBatchSize = *p.InsightBatchSize
	}
	if p.InsightHistoryLimit != nil {
		c.InsightHistoryLimit = *p.InsightHistoryLimit
	}
	if p.MaxBufferSize != nil {
		c.MaxBufferSize = *p.MaxBufferSize
	}
	return c
}

// ConfigView is the API form of EngineConfig. Durations are rendered as Go
// duration strings so a GET body can be sent back as a PATCH.
type ConfigView struct {
	LearningRate             float64 `json:"learning_rate"`
	BatchSize                int     `json:"batch_size"`
	Epochs                   int     `json:"epochs"`
	ValidationSplit          float64 `json:"validation_split"`
	DataRetentionDays        int     `json:"data_retention_days"`
	MinDataPointsForTraining int     `json:"min_data_points_for_training"`
	ConfidenceThreshold      float64 `json:"confidence_threshold"`
	DataCollectionInterval   string  `json:"data_collection_interval"`
	TrainingInterval         string  `json:"training_interval"`
	CloudSyncInterval        string  `json:"cloud_sync_interval"`
	PruneInterval            string  `json:"prune_interval"`
	FetchTimeout             string  `json:"fetch_timeout"`
	UseCloudStorage          bool    `json:"use_cloud_storage"`
	InsightBatchSize         int     `json:"insight_batch_size"`
	InsightHistoryLimit      int     `json:"insight_history_limit"`
	MaxBufferSize            int     `json:"max_buffer_size"`
	SimulationSeed           int64   `json:"simulation_seed"`
}

func NewConfigView(c EngineConfig) ConfigView {
	return ConfigView{
		LearningRate:             c.LearningRate,
		BatchSize:                c.BatchSize,
		Epochs:                   c.Epochs,
		ValidationSplit:          c.ValidationSplit,
		DataRetentionDays:        c.DataRetentionDays,
		MinDataPointsForTraining: c.MinDataPointsForTraining,
		ConfidenceThreshold:      c.ConfidenceThreshold,
		DataCollectionInterval:   c.DataCollectionInterval.String(),
		TrainingInterval:         c.TrainingInterval.String(),
		CloudSyncInterval:        c.CloudSyncInterval.String(),
		PruneInterval:            c.PruneInterval.String(),
		FetchTimeout:             c.FetchTimeout.String(),
		UseCloudStorage:          c.UseCloudStorage,
		InsightBatchSize:         c.InsightBatchSize,
		InsightHistoryLimit:      c.InsightHistoryLimit,
		MaxBufferSize:            c.MaxBufferSize,
		SimulationSeed:           c.SimulationSeed,
	}
}
