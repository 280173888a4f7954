package models

import "strings"

type modelTemplate struct {
	id       string
	name     string
	kind     ModelKind
	category DataCategory
	target   string
	accuracy float64
	features []string
}

var catalog = []modelTemplate{
	{"btc-price-predictor", "BTC Price Predictor", KindPrice, CategoryMarket, "price",
		0.72, []string{"price", "volume", "change_24h", "market_cap"}},
	{"market-trend-analyzer", "Market Trend Analyzer", KindTrend, CategoryMarket, "change_24h",
		0.68, []string{"price", "volume", "change_24h"}},
	{"smc-pattern-detector", "Smart Money Concepts Detector", KindSMC, CategoryMarket, "price",
		0.65, []string{"high", "low", "price", "volume"}},
	{"ordinals-market-analyzer", "Ordinals Market Analyzer", KindOrdinals, CategoryOrdinals, "floor_price",
		0.66, []string{"floor_price", "volume", "inscriptions", "holders"}},
	{"runes-market-analyzer", "Runes Market Analyzer", KindRunes, CategoryRunes, "market_cap",
		0.64, []string{"market_cap", "volume", "holders", "mints"}},
	{"runes-arbitrage-detector", "Runes Arbitrage Detector", KindArbitrage, CategoryRunes, "volume",
		0.7, []string{"volume", "market_cap", "holders"}},
	{"mempool-anomaly-detector", "Mempool Anomaly Detector", KindAnomaly, CategoryMempool, "fee_rate",
		0.7, []string{"tx_count", "vsize", "fee_rate", "total_fees"}},
	{"sentiment-correlation", "Sentiment Correlation Model", KindCorrelation, CategorySocial, "sentiment",
		0.62, []string{"sentiment", "mentions", "engagement"}},
}

func (t modelTemplate) build(id, name, symbol string) Model {
	weights := make(map[string]float64, len(t.features))
	biases := make(map[string]float64, len(t.features))
	for _, f := range t.features {
		weights[f] = 1
		biases[f] = 0
	}
	NormalizeWeights(weights)
	return Model{
		ID:           id,
		Name:         name,
		Version:      1,
		Kind:         t.kind,
		Category:     t.category,
		Symbol:       symbol,
		Accuracy:     t.accuracy,
		Weights:      weights,
		Biases:       biases,
		Features:     append([]string(nil), t.features...),
		TargetMetric: t.target,
		PerformanceMetrics: PerformanceMetrics{
			MSE:      0.05,
			MAE:      0.15,
			R2:       0.5,
			Accuracy: t.accuracy,
		},
	}
}

// DefaultCatalog returns fresh copies of the built-in models.
func DefaultCatalog() []Model {
	out := make([]Model, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, t.build(t.id, t.name, ""))
	}
	return out
}

// SymbolModelID returns the id of the per-symbol price model.
func SymbolModelID(symbol string) string {
	return "price-" + strings.ToLower(strings.TrimSpace(symbol))
}

// SymbolField returns the per-symbol variant of a market field, e.g. price_eth.
func SymbolField(field, symbol string) string {
	return field + "_" + strings.ToLower(strings.TrimSpace(symbol))
}

// NewSymbolModel builds a price model for symbol from the price template. It
// trains on the symbol's own series (price_<symbol> and friends).
func NewSymbolModel(symbol string) Model {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	t := catalog[0]
	t.target = SymbolField("price", sym)
	t.features = []string{SymbolField("price", sym), SymbolField("volume", sym), SymbolField("change_24h", sym)}
	return t.build(SymbolModelID(symbol), sym+" Price Predictor", sym)
}
