package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/service"
	internalrepo "BitLearn/internal/repository"
	"BitLearn/internal/service/eventbus"
	"BitLearn/pkg/config"
	applogger "BitLearn/pkg/logger"
	"BitLearn/pkg/metrics"
	"BitLearn/pkg/util"
)

func arbitrageDetector(t *testing.T) models.Model {
	t.Helper()
	for _, m := range models.DefaultCatalog() {
		if m.Kind == models.KindArbitrage {
			return m
		}
	}
	t.Fatal("no arbitrage model in catalog")
	return models.Model{}
}

func TestProvideInsightGenerator_ConfiguredArbitrageUniverse(t *testing.T) {
	cfg, err := config.Parse([]byte(`
arbitrage:
  venues:
    - name: Alpha
      assets: [DOG]
    - name: Beta
      assets: [DOG]
  assets:
    - id: DOG
      reference_price: 100
      volume_24h: 500000
  quotes:
    Alpha: {DOG: 100}
    Beta: {DOG: 103}
`))
	require.NoError(t, err)

	gen := ProvideInsightGenerator(cfg,
		internalrepo.NewModelRegistry(arbitrageDetector(t)),
		internalrepo.NewBufferStore(100),
		internalrepo.NewInsightStore(100),
		eventbus.New(),
		metrics.New(prometheus.NewRegistry()),
		service.SystemClock{},
		applogger.NewNop(),
	)
	engineCfg := cfg.Engine
	engineCfg.ConfidenceThreshold = 0

	got := gen.Generate(context.Background(), engineCfg, 10, 0)
	require.Len(t, got, 1)
	opp := got[0].Payload.Arbitrage
	require.NotNil(t, opp)
	assert.Equal(t, "DOG", opp.AssetID)
	assert.Equal(t, "DOG", opp.AssetName)
	assert.Equal(t, "Alpha", opp.SourceVenue)
	assert.Equal(t, "Beta", opp.TargetVenue)
	assert.InDelta(t, 3.0, opp.GrossSpreadPct, 1e-9)
}

func TestArbitrageOptions_EmptyKeepsDefaults(t *testing.T) {
	assert.Empty(t, arbitrageOptions(config.ArbitrageConfig{}))
	assert.Len(t, arbitrageOptions(config.ArbitrageConfig{Quotes: map[string]map[string]float64{"OKX": {"X": 1}}}), 1)
}

func TestProvideSymbolSource_UsesTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"lastPrice":"150.25","quoteVolume":"900000000","priceChangePercent":"-1.5","closeTime":1714564800000}`))
	}))
	defer srv.Close()

	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Sources.Symbol = srv.URL + "/ticker/24hr?symbol={SYMBOL}USDT"

	src := ProvideSymbolSource(cfg, util.NewLockedRand(1))("sol")
	assert.Equal(t, "market-sol", src.Name())
	rec, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.25, rec.Fields[models.SymbolField("price", "sol")])
}
