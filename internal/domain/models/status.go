package models

import "time"

// SyncInfo records the outcome of the latest cloud pull and push.
type SyncInfo struct {
	Enabled        bool      `json:"enabled"`
	Backend        string    `json:"backend"`
	LastPull       time.Time `json:"last_pull,omitempty"`
	LastPush       time.Time `json:"last_push,omitempty"`
	ModelsPulled   int       `json:"models_pulled"`
	ModelsPushed   int       `json:"models_pushed"`
	LastPullError  string    `json:"last_pull_error,omitempty"`
	LastPushError  string    `json:"last_push_error,omitempty"`
	ConsecutiveErr int       `json:"consecutive_errors"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	IsLearning      bool                 `json:"is_learning"`
	IsTraining      bool                 `json:"is_training"`
	Models          []ModelSummary       `json:"models"`
	LastModelUpdate time.Time            `json:"last_model_update,omitempty"`
	DataPointCounts map[DataCategory]int `json:"data_point_counts"`
	InsightCount    int                  `json:"insight_count"`
	Config          ConfigView           `json:"config"`
	CloudSyncInfo   SyncInfo             `json:"cloud_sync_info"`
}
