package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitLearn/internal/domain/models"
	applogger "BitLearn/pkg/logger"
)

func catalogModel(t *testing.T, id string) models.Model {
	t.Helper()
	for _, m := range models.DefaultCatalog() {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("no catalog model %s", id)
	return models.Model{}
}

func arbitrageGenerator(f *fixture, quotes StaticQuotes) *InsightGenerator {
	venues := []models.ArbitrageVenue{
		models.NewVenue("Alpha", 0, "GOOD", "THIN", "SOLO"),
		models.NewVenue("Beta", 0, "GOOD", "THIN"),
	}
	assets := []models.RuneAsset{
		{ID: "GOOD", Name: "GOOD", ReferencePrice: 100, Volume24h: 100_000},
		{ID: "THIN", Name: "THIN", ReferencePrice: 100, Volume24h: 100_000},
		{ID: "SOLO", Name: "SOLO", ReferencePrice: 100, Volume24h: 100_000},
	}
	return NewInsightGenerator(f.registry, f.buffers, f.insights, f.bus, nopMetrics{}, f.clock, applogger.NewNop(),
		WithArbitrageUniverse(venues, assets), WithQuotes(quotes))
}

func TestInsightGenerator_Arbitrage(t *testing.T) {
	f := newFixture(catalogModel(t, "runes-arbitrage-detector"))
	g := arbitrageGenerator(f, StaticQuotes{
		"Alpha": {"GOOD": 100, "THIN": 100, "SOLO": 100},
		"Beta":  {"GOOD": 102.5, "THIN": 101.5},
	})

	got := g.Generate(context.Background(), testConfig(), 10, 0)
	require.Len(t, got, 1)
	in := got[0]
	assert.Equal(t, models.InsightArbitrage, in.Type)
	assert.Equal(t, "runes-arbitrage-detector", in.ModelID)
	assert.Equal(t, t0, in.Timestamp)
	assert.NotEmpty(t, in.ID)
	require.NotNil(t, in.Payload.Arbitrage)
	assert.Equal(t, "GOOD", in.Payload.Arbitrage.AssetID)
	assert.InDelta(t, 0.7+2.5/20+0.01, in.Confidence, 1e-9)

	events := f.bus.ofType(models.EventInsightsGenerated)
	require.Len(t, events, 1)
	payload := events[0].Payload.(models.InsightsGeneratedPayload)
	assert.Equal(t, 1, payload.Count)
	assert.Equal(t, []models.InsightType{models.InsightArbitrage}, payload.Types)
}

func TestInsightGenerator_SkipsModelsBelowThreshold(t *testing.T) {
	m := catalogModel(t, "runes-arbitrage-detector")
	m.Accuracy = 0.5
	f := newFixture(m)
	g := arbitrageGenerator(f, StaticQuotes{"Alpha": {"GOOD": 100}, "Beta": {"GOOD": 150}})

	assert.Empty(t, g.Generate(context.Background(), testConfig(), 10, 0))
}

func TestInsightGenerator_CountAndMinConfidence(t *testing.T) {
	f := newFixture(catalogModel(t, "runes-arbitrage-detector"))
	g := arbitrageGenerator(f, StaticQuotes{
		"Alpha": {"GOOD": 100, "THIN": 100},
		"Beta":  {"GOOD": 104, "THIN": 102.5},
	})
	// GOOD: 0.7+0.2+0.01 = 0.91, THIN: 0.7+0.125+0.01 = 0.835

	got := g.Generate(context.Background(), testConfig(), 10, 0)
	require.Len(t, got, 2)
	assert.Greater(t, got[0].Confidence, got[1].Confidence)

	got = g.Generate(context.Background(), testConfig(), 1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "GOOD", got[0].Payload.Arbitrage.AssetID)

	got = g.Generate(context.Background(), testConfig(), 10, 0.9)
	require.Len(t, got, 1)
	assert.Equal(t, "GOOD", got[0].Payload.Arbitrage.AssetID)

	// latest batch replaced, history accumulates
	assert.Len(t, f.insights.Latest(), 1)
	assert.Len(t, f.insights.Recent(0), 4)
}

func TestInsightGenerator_Anomaly(t *testing.T) {
	m := catalogModel(t, "mempool-anomaly-detector")

	calm := func(i int) map[string]float64 { return map[string]float64{"fee_rate": 10 + float64(i%2)} }
	f := newFixture(m)
	f.buffers.Append(categoryRecords(models.CategoryMempool, 20, t0.Add(-time.Hour), calm)...)
	assert.Empty(t, f.generator.Generate(context.Background(), testConfig(), 10, 0))

	f.buffers.Append(models.TrainingRecord{
		Category:  models.CategoryMempool,
		Timestamp: t0,
		Source:    "test",
		Fields:    map[string]float64{"fee_rate": 200},
	})
	got := f.generator.Generate(context.Background(), testConfig(), 10, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.InsightAnomaly, got[0].Type)
	assert.Equal(t, "increase", got[0].Payload.Direction)
	assert.Greater(t, got[0].Payload.ZScore, 2.0)
	assert.Equal(t, "fee_rate", got[0].Payload.Metric)
}

func TestInsightGenerator_BreakOfStructure(t *testing.T) {
	m := catalogModel(t, "smc-pattern-detector")
	f := newFixture(m)
	f.buffers.Append(categoryRecords(models.CategoryMarket, 10, t0.Add(-time.Hour), func(i int) map[string]float64 {
		return map[string]float64{"price": 100, "high": 101, "low": 99}
	})...)
	assert.Empty(t, f.generator.Generate(context.Background(), testConfig(), 10, 0), "no break inside range")

	f.buffers.Append(models.TrainingRecord{
		Category:  models.CategoryMarket,
		Timestamp: t0,
		Source:    "test",
		Fields:    map[string]float64{"price": 103, "high": 103.5, "low": 102},
	})
	got := f.generator.Generate(context.Background(), testConfig(), 10, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.InsightSMC, got[0].Type)
	assert.Equal(t, "bullish", got[0].Payload.Direction)
	assert.Equal(t, "break_of_structure", got[0].Payload.Pattern)
	assert.InDelta(t, 101.0, got[0].Payload.ProjectedValue, 1e-9)
}

func TestInsightGenerator_PriceAndTrend(t *testing.T) {
	f := newFixture(catalogModel(t, "btc-price-predictor"), catalogModel(t, "market-trend-analyzer"))
	f.buffers.Append(marketRecords(25, t0.Add(-time.Hour))...)

	got := f.generator.Generate(context.Background(), testConfig(), 10, 0)
	require.Len(t, got, 2)

	byType := map[models.InsightType]models.Insight{}
	for _, in := range got {
		byType[in.Type] = in
	}
	price := byType[models.InsightPrice]
	assert.Equal(t, "increase", price.Payload.Direction)
	assert.Greater(t, price.Payload.ProjectedValue, price.Payload.CurrentValue)
	assert.LessOrEqual(t, price.Confidence, 0.95)

	trend := byType[models.InsightTrend]
	assert.Equal(t, "bullish", trend.Payload.Direction)
	assert.Greater(t, trend.Payload.Magnitude, 0.0)
}

func TestInsightGenerator_PriceConfidenceDropsWithVolatility(t *testing.T) {
	confidence := func(swing float64) float64 {
		f := newFixture(models.NewSymbolModel("eth"))
		f.buffers.Append(categoryRecords(models.CategoryMarket, 30, t0, func(i int) map[string]float64 {
			return map[string]float64{"price_eth": 3000 + swing*float64(i%2)}
		})...)
		got := f.generator.Generate(context.Background(), testConfig(), 10, 0)
		require.Len(t, got, 1)
		return got[0].Confidence
	}

	mild := confidence(30)
	assert.Less(t, mild, 0.72)
	assert.Greater(t, mild, 0.52)
	// the horizon volatility penalty is capped at 0.2
	assert.InDelta(t, 0.52, confidence(600), 1e-9)
}

func TestInsightGenerator_SymbolModelNeedsSymbolSeries(t *testing.T) {
	f := newFixture(models.NewSymbolModel("eth"))
	f.buffers.Append(marketRecords(10, t0.Add(-time.Hour))...)
	assert.Empty(t, f.generator.Generate(context.Background(), testConfig(), 10, 0))

	f.buffers.Append(categoryRecords(models.CategoryMarket, 10, t0, func(i int) map[string]float64 {
		return map[string]float64{"price_eth": 3000 - float64(i)}
	})...)
	got := f.generator.Generate(context.Background(), testConfig(), 10, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "price-eth", got[0].ModelID)
	assert.Equal(t, "decrease", got[0].Payload.Direction)
}
