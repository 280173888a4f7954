package models

import (
	"fmt"
	"time"
)

// DataCategory names one TrainingBuffer.
type DataCategory string

const (
	CategoryMarket   DataCategory = "market"
	CategoryMempool  DataCategory = "mempool"
	CategoryOrdinals DataCategory = "ordinals"
	CategoryRunes    DataCategory = "runes"
	CategorySocial   DataCategory = "social"
)

// AllCategories lists buffers in a stable order.
var AllCategories = []DataCategory{
	CategoryMarket,
	CategoryMempool,
	CategoryOrdinals,
	CategoryRunes,
	CategorySocial,
}

// IsValidCategory returns true if c is a known buffer category.
func IsValidCategory(c DataCategory) bool {
	for _, k := range AllCategories {
		if k == c {
			return true
		}
	}
	return false
}

// TrainingRecord is one normalized telemetry sample.
type TrainingRecord struct {
	Category  DataCategory       `json:"category"`
	Timestamp time.Time          `json:"timestamp"`
	Source    string             `json:"source"`
	Synthetic bool               `json:"synthetic"`
	Fields    map[string]float64 `json:"fields"`
}

// Key is the natural identity used for dedup during merges.
func (r TrainingRecord) Key() string {
	return fmt.Sprintf("%s|%d|%s", r.Category, r.Timestamp.UnixNano(), r.Source)
}

// Value returns a field or zero.
func (r TrainingRecord) Value(field string) float64 {
	if r.Fields == nil {
		return 0
	}
	return r.Fields[field]
}

// TrainingBuffers is the snapshot/transfer form of all buffers.
type TrainingBuffers map[DataCategory][]TrainingRecord

// Count returns the total number of records across categories.
func (b TrainingBuffers) Count() int {
	n := 0
	for _, rs := range b {
		n += len(rs)
	}
	return n
}

// Since returns a copy holding only records at or after t.
func (b TrainingBuffers) Since(t time.Time) TrainingBuffers {
	out := make(TrainingBuffers, len(b))
	for cat, rs := range b {
		kept := make([]TrainingRecord, 0, len(rs))
		for _, r := range rs {
			if !r.Timestamp.Before(t) {
				kept = append(kept, r)
			}
		}
		out[cat] = kept
	}
	return out
}
