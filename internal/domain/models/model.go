package models

import (
	"fmt"
	"math"
	"time"
)

// MaxPredictionHistory bounds Model.PredictionHistory.
const MaxPredictionHistory = 100

// MaxAccuracy is the asymptote training can approach but never exceed.
const MaxAccuracy = 0.99

// ModelKind selects which insight family a model drives.
type ModelKind string

const (
	KindPrice       ModelKind = "price"
	KindTrend       ModelKind = "trend"
	KindSMC         ModelKind = "smc"
	KindOrdinals    ModelKind = "ordinals"
	KindRunes       ModelKind = "runes"
	KindArbitrage   ModelKind = "arbitrage"
	KindAnomaly     ModelKind = "anomaly"
	KindCorrelation ModelKind = "correlation"
)

type PredictionPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Predicted float64   `json:"predicted"`
	Actual    float64   `json:"actual"`
	Error     float64   `json:"error"`
}

type PerformanceMetrics struct {
	MSE      float64 `json:"mse"`
	MAE      float64 `json:"mae"`
	R2       float64 `json:"r2"`
	Accuracy float64 `json:"accuracy"`
}

// Model is a named, versioned scoring unit. Weights always sum to 1.
type Model struct {
	ID                    string             `json:"id"`
	Name                  string             `json:"name"`
	Version               int                `json:"version"`
	Kind                  ModelKind          `json:"kind"`
	Category              DataCategory       `json:"category"`
	Symbol                string             `json:"symbol,omitempty"`
	Accuracy              float64            `json:"accuracy"`
	LastTrainingTimestamp time.Time          `json:"last_training_timestamp"`
	DataPointsSeen        int64              `json:"data_points_seen"`
	Weights               map[string]float64 `json:"weights"`
	Biases                map[string]float64 `json:"biases"`
	Features              []string           `json:"features"`
	TargetMetric          string             `json:"target_metric"`
	PredictionHistory     []PredictionPoint  `json:"prediction_history"`
	PerformanceMetrics    PerformanceMetrics `json:"performance_metrics"`
}

// Clone returns a deep copy; registries hand out clones only.
func (m Model) Clone() Model {
	out := m
	if m.Weights != nil {
		out.Weights = make(map[string]float64, len(m.Weights))
		for k, v := range m.Weights {
			out.Weights[k] = v
		}
	}
	if m.Biases != nil {
		out.Biases = make(map[string]float64, len(m.Biases))
		for k, v := range m.Biases {
			out.Biases[k] = v
		}
	}
	if m.Features != nil {
		out.Features = append([]string(nil), m.Features...)
	}
	if m.PredictionHistory != nil {
		out.PredictionHistory = append([]PredictionPoint(nil), m.PredictionHistory...)
	}
	return out
}

// WeightSum returns the sum of all weights.
func (m Model) WeightSum() float64 {
	sum := 0.0
	for _, w := range m.Weights {
		sum += w
	}
	return sum
}

// weightSumTolerance bounds how far a valid model's weights may drift from 1.
const weightSumTolerance = 1e-6

// Validate reports whether m could have been produced by training: a non-empty
// id, accuracy within [0, MaxAccuracy] and finite non-negative weights summing
// to 1.
func (m Model) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrModelInvalid)
	}
	if math.IsNaN(m.Accuracy) || m.Accuracy < 0 || m.Accuracy > MaxAccuracy {
		return fmt.Errorf("%w: %s accuracy %v outside [0, %v]", ErrModelInvalid, m.ID, m.Accuracy, MaxAccuracy)
	}
	if len(m.Weights) == 0 {
		return fmt.Errorf("%w: %s has no weights", ErrModelInvalid, m.ID)
	}
	for k, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: %s weight %s=%v", ErrModelInvalid, m.ID, k, w)
		}
	}
	if sum := m.WeightSum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: %s weights sum to %v", ErrModelInvalid, m.ID, sum)
	}
	return nil
}

// NormalizeWeights rescales weights so they sum to 1. Non-positive weights are
// clamped to a small floor first; an all-zero map becomes uniform.
func NormalizeWeights(w map[string]float64) {
	const floor = 1e-6
	if len(w) == 0 {
		return
	}
	sum := 0.0
	for k, v := range w {
		if v < floor || math.IsNaN(v) || math.IsInf(v, 0) {
			v = floor
			w[k] = v
		}
		sum += v
	}
	for k, v := range w {
		w[k] = v / sum
	}
}

// ModelSummary is the compact form reported by engine status.
type ModelSummary struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Kind                  ModelKind `json:"kind"`
	Version               int       `json:"version"`
	Accuracy              float64   `json:"accuracy"`
	LastTrainingTimestamp time.Time `json:"last_training_timestamp"`
	DataPointsSeen        int64     `json:"data_points_seen"`
}

func (m Model) Summary() ModelSummary {
	return ModelSummary{
		ID:                    m.ID,
		Name:                  m.Name,
		Kind:                  m.Kind,
		Version:               m.Version,
		Accuracy:              m.Accuracy,
		LastTrainingTimestamp: m.LastTrainingTimestamp,
		DataPointsSeen:        m.DataPointsSeen,
	}
}
