package models

import "time"

type InsightType string

const (
	InsightPrice       InsightType = "price"
	InsightTrend       InsightType = "trend"
	InsightArbitrage   InsightType = "arbitrage"
	InsightSMC         InsightType = "smc"
	InsightOrdinals    InsightType = "ordinals"
	InsightRunes       InsightType = "runes"
	InsightAnomaly     InsightType = "anomaly"
	InsightCorrelation InsightType = "correlation"
)

// IsValidInsightType returns true for the eight known insight types.
func IsValidInsightType(t InsightType) bool {
	switch t {
	case InsightPrice, InsightTrend, InsightArbitrage, InsightSMC,
		InsightOrdinals, InsightRunes, InsightAnomaly, InsightCorrelation:
		return true
	default:
		return false
	}
}

// Insight is immutable once generated.
type Insight struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	ModelID        string         `json:"model_id"`
	Confidence     float64        `json:"confidence"`
	Type           InsightType    `json:"type"`
	Payload        InsightPayload `json:"payload"`
	Explanation    string         `json:"explanation"`
	RelatedMetrics []string       `json:"related_metrics"`
	DataPoints     int            `json:"data_points"`
}

// InsightPayload carries the type-specific fields; unused ones are omitted.
type InsightPayload struct {
	Direction      string                `json:"direction,omitempty"` // increase | decrease | bullish | bearish
	Magnitude      float64               `json:"magnitude,omitempty"` // percent
	CurrentValue   float64               `json:"current_value,omitempty"`
	ProjectedValue float64               `json:"projected_value,omitempty"`
	Horizon        string                `json:"horizon,omitempty"`
	Pattern        string                `json:"pattern,omitempty"`
	Metric         string                `json:"metric,omitempty"`
	ZScore         float64               `json:"z_score,omitempty"`
	Correlation    float64               `json:"correlation,omitempty"`
	Arbitrage      *ArbitrageOpportunity `json:"arbitrage,omitempty"`
}

// ArbitrageOpportunity is the cross-venue spread found for one asset.
type ArbitrageOpportunity struct {
	AssetID          string  `json:"asset_id"`
	AssetName        string  `json:"asset_name"`
	SourceVenue      string  `json:"source_venue"`
	TargetVenue      string  `json:"target_venue"`
	SourcePrice      float64 `json:"source_price"`
	TargetPrice      float64 `json:"target_price"`
	GrossSpreadPct   float64 `json:"gross_spread_pct"`
	NetProfitPerUnit float64 `json:"net_profit_per_unit"`
	ProfitPercent    float64 `json:"profit_percent"`
	TransactionSize  float64 `json:"transaction_size"`
	EstimatedProfit  float64 `json:"estimated_profit"`
	Volume24h        float64 `json:"volume_24h"`
	Confidence       float64 `json:"confidence"`
}
