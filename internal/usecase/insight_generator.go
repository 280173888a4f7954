package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"BitLearn/internal/domain/models"
	domrepo "BitLearn/internal/domain/repository"
	"BitLearn/internal/domain/service"
	"BitLearn/internal/repository"
	"BitLearn/internal/services/features"
	applogger "BitLearn/pkg/logger"
)

const (
	priceWindow     = 30
	priceHorizon    = 12 // collection ticks
	trendWindow     = 20
	structureWindow = 20
	momentumWindow  = 5
	anomalyWindow   = 50
	anomalyMinZ     = 2.0
	correlWindow    = 30
	correlMinAbs    = 0.2
)

// InsightGenerator turns trained models and buffered data into ranked insights.
type InsightGenerator struct {
	registry *repository.ModelRegistry
	buffers  *repository.BufferStore
	insights *repository.InsightStore
	venues   []models.ArbitrageVenue
	assets   []models.RuneAsset
	quotes   Quotes
	bus      EventPublisher
	metrics  domrepo.Metrics
	clock    service.Clock
	l        *applogger.Logger
}

// InsightOption customises an InsightGenerator.
type InsightOption func(*InsightGenerator)

// WithArbitrageUniverse replaces the default venues and rune assets.
func WithArbitrageUniverse(venues []models.ArbitrageVenue, assets []models.RuneAsset) InsightOption {
	return func(g *InsightGenerator) {
		g.venues = venues
		g.assets = assets
	}
}

// WithQuotes sets a live quote provider. Venues without a quote are simulated.
func WithQuotes(q Quotes) InsightOption {
	return func(g *InsightGenerator) { g.quotes = q }
}

func NewInsightGenerator(
	registry *repository.ModelRegistry,
	buffers *repository.BufferStore,
	insights *repository.InsightStore,
	bus EventPublisher,
	metrics domrepo.Metrics,
	clock service.Clock,
	l *applogger.Logger,
	opts ...InsightOption,
) *InsightGenerator {
	g := &InsightGenerator{
		registry: registry,
		buffers:  buffers,
		insights: insights,
		venues:   models.DefaultVenues(),
		assets:   models.DefaultRuneAssets(),
		bus:      bus,
		metrics:  metrics,
		clock:    clock,
		l:        l,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a fresh batch from every model at or above the confidence
// threshold, keeps those with confidence >= minConfidence, and stores the top
// count of them as the latest batch.
func (g *InsightGenerator) Generate(ctx context.Context, cfg models.EngineConfig, count int, minConfidence float64) []models.Insight {
	if count <= 0 {
		count = cfg.InsightBatchSize
	}
	now := g.clock.Now()

	var batch []models.Insight
	for _, m := range g.registry.List() {
		if ctx.Err() != nil {
			break
		}
		if m.Accuracy < cfg.ConfidenceThreshold {
			continue
		}
		for _, in := range g.forModel(m, now) {
			if in.Confidence < minConfidence {
				continue
			}
			batch = append(batch, in)
		}
	}

	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Confidence > batch[j].Confidence })
	if len(batch) > count {
		batch = batch[:count]
	}
	g.insights.ReplaceLatest(batch)

	types := make([]models.InsightType, 0, len(batch))
	seen := make(map[models.InsightType]bool)
	for _, in := range batch {
		g.metrics.RecordInsights(string(in.Type), 1)
		if !seen[in.Type] {
			seen[in.Type] = true
			types = append(types, in.Type)
		}
	}
	g.bus.Publish(models.Event{
		Type:      models.EventInsightsGenerated,
		Timestamp: now,
		Payload:   models.InsightsGeneratedPayload{Count: len(batch), Types: types},
	})
	g.l.Debug("insights generated", applogger.Int("count", len(batch)))
	return batch
}

func (g *InsightGenerator) forModel(m models.Model, now time.Time) []models.Insight {
	records := g.buffers.Records(m.Category)
	var out []models.Insight
	emit := func(in *models.Insight) {
		if in == nil {
			return
		}
		in.ID = uuid.NewString()
		in.Timestamp = now
		in.ModelID = m.ID
		in.Confidence = math.Max(0, math.Min(maxConfidence, in.Confidence))
		if in.DataPoints == 0 {
			in.DataPoints = len(records)
		}
		out = append(out, *in)
	}

	switch m.Kind {
	case models.KindPrice:
		emit(priceInsight(m, records))
	case models.KindTrend:
		emit(trendInsight(m, records))
	case models.KindSMC:
		emit(structureInsight(m, records))
	case models.KindOrdinals:
		emit(momentumInsight(m, records, models.InsightOrdinals, "floor_price", "Ordinals floor price"))
	case models.KindRunes:
		emit(momentumInsight(m, records, models.InsightRunes, "market_cap", "Runes market cap"))
	case models.KindAnomaly:
		emit(anomalyInsight(m, records))
	case models.KindCorrelation:
		emit(correlationInsight(m, records, g.buffers.Records(models.CategoryMarket)))
	case models.KindArbitrage:
		for _, opp := range DetectArbitrage(g.assets, g.venues, g.quotes, m.Accuracy, now) {
			emit(arbitrageInsight(opp))
		}
	default:
		g.l.Warn("no insight family for model kind",
			applogger.String("model_id", m.ID),
			applogger.String("kind", string(m.Kind)),
		)
	}
	return out
}

func direction(change float64, up, down string) string {
	if change >= 0 {
		return up
	}
	return down
}

// priceSeries picks the field a price model projects: its target metric,
// with the plain market price as the fallback for BTC.
func priceSeries(m models.Model, records []models.TrainingRecord) []float64 {
	target := m.TargetMetric
	if target == "" {
		target = "price"
	}
	series := features.Series(records, target)
	if len(series) == 0 && strings.EqualFold(m.Symbol, "btc") {
		series = features.Series(records, "price")
	}
	return series
}

// withField keeps the records that carry field. Per-symbol feeds share the
// market buffer without the plain BTC fields.
func withField(records []models.TrainingRecord, field string) []models.TrainingRecord {
	out := make([]models.TrainingRecord, 0, len(records))
	for _, r := range records {
		if _, ok := r.Fields[field]; ok {
			out = append(out, r)
		}
	}
	return out
}

func priceInsight(m models.Model, records []models.TrainingRecord) *models.Insight {
	prices := features.Tail(priceSeries(m, records), priceWindow)
	if len(prices) < 3 {
		return nil
	}
	returns := features.ComputeLogReturns(prices)
	drift := features.Mean(returns)
	horizonVol := features.RealizedVolatility(returns, len(returns), priceHorizon)
	current := prices[len(prices)-1]
	projected := current * math.Exp(drift*priceHorizon)
	change := features.PercentChange(current, projected)
	dir := direction(change, "increase", "decrease")

	label := "BTC"
	if m.Symbol != "" {
		label = strings.ToUpper(m.Symbol)
	}
	return &models.Insight{
		Type:       models.InsightPrice,
		Confidence: m.Accuracy - math.Min(0.2, horizonVol),
		Payload: models.InsightPayload{
			Direction:      dir,
			Magnitude:      math.Abs(change),
			CurrentValue:   current,
			ProjectedValue: projected,
			Horizon:        fmt.Sprintf("%d intervals", priceHorizon),
			Metric:         "price",
		},
		Explanation: fmt.Sprintf("%s price projected to %s %.2f%% from %.2f to %.2f over the next %d intervals",
			label, dir, math.Abs(change), current, projected, priceHorizon),
		RelatedMetrics: []string{"price", "volume"},
		DataPoints:     len(prices),
	}
}

func trendInsight(m models.Model, records []models.TrainingRecord) *models.Insight {
	prices := features.Tail(features.Series(records, "price"), trendWindow)
	if len(prices) < 3 {
		return nil
	}
	mean := features.Mean(prices)
	if mean == 0 {
		return nil
	}
	// percent move implied by the fitted line across the window
	move := features.Slope(prices) * float64(len(prices)-1) / mean * 100
	dir := direction(move, "bullish", "bearish")
	return &models.Insight{
		Type:       models.InsightTrend,
		Confidence: m.Accuracy + math.Min(0.1, math.Abs(move)/100),
		Payload: models.InsightPayload{
			Direction:    dir,
			Magnitude:    math.Abs(move),
			CurrentValue: prices[len(prices)-1],
			Pattern:      dir + " trend",
			Metric:       "price",
		},
		Explanation:    fmt.Sprintf("Market is in a %s trend, %.2f%% across the last %d samples", dir, math.Abs(move), len(prices)),
		RelatedMetrics: []string{"price", "change_24h"},
		DataPoints:     len(prices),
	}
}

// structureInsight flags a break of structure: the latest price closing above
// the prior window's highest high or below its lowest low.
func structureInsight(m models.Model, records []models.TrainingRecord) *models.Insight {
	window := withField(records, "price")
	if len(window) > structureWindow+1 {
		window = window[len(window)-structureWindow-1:]
	}
	if len(window) < 3 {
		return nil
	}
	prior, last := window[:len(window)-1], window[len(window)-1]
	highs := features.Series(prior, "high")
	lows := features.Series(prior, "low")
	price, ok := last.Fields["price"]
	if !ok || len(highs) == 0 || len(lows) == 0 {
		return nil
	}
	hi, lo := highs[0], lows[0]
	for _, v := range highs {
		hi = math.Max(hi, v)
	}
	for _, v := range lows {
		lo = math.Min(lo, v)
	}

	var dir string
	var level float64
	switch {
	case price > hi:
		dir, level = "bullish", hi
	case price < lo:
		dir, level = "bearish", lo
	default:
		return nil
	}
	dist := math.Abs(features.PercentChange(level, price))
	return &models.Insight{
		Type:       models.InsightSMC,
		Confidence: m.Accuracy + math.Min(0.1, dist/20),
		Payload: models.InsightPayload{
			Direction:      dir,
			Magnitude:      dist,
			CurrentValue:   price,
			ProjectedValue: level,
			Pattern:        "break_of_structure",
			Metric:         "price",
		},
		Explanation: fmt.Sprintf("Break of structure (%s): price %.2f cleared the %d-sample swing level %.2f by %.2f%%",
			dir, price, len(prior), level, dist),
		RelatedMetrics: []string{"high", "low", "price"},
		DataPoints:     len(window),
	}
}

// momentumInsight compares the mean of the last momentumWindow values with the
// window before it.
func momentumInsight(m models.Model, records []models.TrainingRecord, typ models.InsightType, field, label string) *models.Insight {
	values := features.Tail(features.Series(records, field), 2*momentumWindow)
	if len(values) < 2*momentumWindow {
		return nil
	}
	prev := features.Mean(values[:momentumWindow])
	cur := features.Mean(values[momentumWindow:])
	change := features.PercentChange(prev, cur)
	dir := direction(change, "increase", "decrease")
	return &models.Insight{
		Type:       typ,
		Confidence: m.Accuracy + math.Min(0.1, math.Abs(change)/100),
		Payload: models.InsightPayload{
			Direction:      dir,
			Magnitude:      math.Abs(change),
			CurrentValue:   values[len(values)-1],
			ProjectedValue: cur,
			Pattern:        "momentum",
			Metric:         field,
		},
		Explanation:    fmt.Sprintf("%s momentum shows a %.2f%% %s over the last %d samples", label, math.Abs(change), dir, momentumWindow),
		RelatedMetrics: append([]string(nil), m.Features...),
		DataPoints:     len(values),
	}
}

func anomalyInsight(m models.Model, records []models.TrainingRecord) *models.Insight {
	metric := m.TargetMetric
	if metric == "" {
		metric = "fee_rate"
	}
	values := features.Tail(features.Series(records, metric), anomalyWindow)
	z := features.ZScore(values)
	if math.Abs(z) < anomalyMinZ {
		return nil
	}
	dir := direction(z, "increase", "decrease")
	return &models.Insight{
		Type:       models.InsightAnomaly,
		Confidence: m.Accuracy + math.Min(0.15, (math.Abs(z)-anomalyMinZ)*0.05),
		Payload: models.InsightPayload{
			Direction:    dir,
			Magnitude:    math.Abs(z),
			CurrentValue: values[len(values)-1],
			Metric:       metric,
			ZScore:       z,
			Pattern:      "outlier",
		},
		Explanation:    fmt.Sprintf("Mempool %s is %.1f standard deviations from its recent mean", metric, z),
		RelatedMetrics: []string{metric, "tx_count"},
		DataPoints:     len(values),
	}
}

func correlationInsight(m models.Model, social, market []models.TrainingRecord) *models.Insight {
	sentiment := features.Tail(features.Series(social, "sentiment"), correlWindow)
	returns := features.Tail(features.ComputeLogReturns(features.Series(market, "price")), correlWindow)
	r := features.Pearson(sentiment, returns)
	if math.Abs(r) < correlMinAbs {
		return nil
	}
	dir := direction(r, "positive", "negative")
	n := len(sentiment)
	if len(returns) < n {
		n = len(returns)
	}
	return &models.Insight{
		Type:       models.InsightCorrelation,
		Confidence: m.Accuracy * (0.8 + 0.2*math.Abs(r)),
		Payload: models.InsightPayload{
			Direction:   dir,
			Magnitude:   math.Abs(r),
			Correlation: r,
			Metric:      "sentiment",
			Pattern:     dir + " correlation",
		},
		Explanation:    fmt.Sprintf("Social sentiment shows a %s correlation (r=%.2f) with BTC returns over %d samples", dir, r, n),
		RelatedMetrics: []string{"sentiment", "price"},
		DataPoints:     n,
	}
}

func arbitrageInsight(opp models.ArbitrageOpportunity) *models.Insight {
	o := opp
	return &models.Insight{
		Type:       models.InsightArbitrage,
		Confidence: o.Confidence,
		Payload: models.InsightPayload{
			Direction:      "buy_low_sell_high",
			Magnitude:      o.GrossSpreadPct,
			CurrentValue:   o.SourcePrice,
			ProjectedValue: o.TargetPrice,
			Metric:         "spread",
			Arbitrage:      &o,
		},
		Explanation: fmt.Sprintf("Buy %s on %s at %.6f and sell on %s at %.6f: %.2f%% gross spread, est. profit %.4f after fees",
			o.AssetName, o.SourceVenue, o.SourcePrice, o.TargetVenue, o.TargetPrice, o.GrossSpreadPct, o.EstimatedProfit),
		RelatedMetrics: []string{"price", "volume", "fee"},
		DataPoints:     1,
	}
}
