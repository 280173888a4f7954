package models

import "time"

// EventType is an Event Bus topic.
type EventType string

const (
	EventDataCollected     EventType = "data-collected"
	EventModelTrained      EventType = "model-trained"
	EventInsightsGenerated EventType = "insights-generated"
	EventDataPruned        EventType = "data-pruned"
	EventCloudDataLoaded   EventType = "cloud-data-loaded"
	EventCloudDataSaved    EventType = "cloud-data-saved"
	EventForcedCloudSync   EventType = "forced-cloud-sync"
	EventLearningStarted   EventType = "learning-started"
	EventLearningStopped   EventType = "learning-stopped"
)

// AllEventTypes lists every topic.
var AllEventTypes = []EventType{
	EventDataCollected,
	EventModelTrained,
	EventInsightsGenerated,
	EventDataPruned,
	EventCloudDataLoaded,
	EventCloudDataSaved,
	EventForcedCloudSync,
	EventLearningStarted,
	EventLearningStopped,
}

// Event is what subscribers receive. Payload is one of the *Payload types below.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

type DataCollectedPayload struct {
	Counts             map[DataCategory]int `json:"counts"`
	FallbackCategories []DataCategory       `json:"fallback_categories,omitempty"`
}

type ModelTrainedPayload struct {
	ModelID        string  `json:"model_id"`
	AccuracyBefore float64 `json:"accuracy_before"`
	AccuracyAfter  float64 `json:"accuracy_after"`
	Version        int     `json:"version"`
}

type InsightsGeneratedPayload struct {
	Count int           `json:"count"`
	Types []InsightType `json:"types"`
}

type DataPrunedPayload struct {
	Cutoff          time.Time `json:"cutoff"`
	RecordsRemoved  int       `json:"records_removed"`
	InsightsRemoved int       `json:"insights_removed"`
}

type CloudDataLoadedPayload struct {
	ModelsUpdated int `json:"models_updated"`
	Records       int `json:"records"`
	Insights      int `json:"insights"`
}

type CloudDataSavedPayload struct {
	Models   int `json:"models"`
	Records  int `json:"records"`
	Insights int `json:"insights"`
}

type ForcedCloudSyncPayload struct {
	PullError string `json:"pull_error,omitempty"`
	PushError string `json:"push_error,omitempty"`
}

type LearningStatePayload struct {
	Models int `json:"models"`
}
