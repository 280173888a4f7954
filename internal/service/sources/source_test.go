package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitLearn/internal/domain/models"
	xhttp "BitLearn/pkg/http"
	"BitLearn/pkg/util"
)

func mempoolSpec(url string) Spec {
	return DefaultSpecs(Endpoints{Mempool: url})[1]
}

func marketSpec(url string) Spec {
	return DefaultSpecs(Endpoints{Market: url})[0]
}

// serveJSON answers every request with body.
func serveJSON(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_MempoolResponse(t *testing.T) {
	// GET https://mempool.space/api/mempool
	srv := serveJSON(t, `{
		"count": 12000,
		"vsize": 2500000,
		"total_fee": 150000000,
		"fee_histogram": [[42.1, 50000], [20.0, 120000], [3.0, 400000]]
	}`)

	src := NewHTTPSource(mempoolSpec(srv.URL), xhttp.NewClient(), util.NewLockedRand(1))
	before := time.Now().UTC()
	rec, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CategoryMempool, rec.Category)
	assert.Equal(t, "mempool", rec.Source)
	assert.False(t, rec.Synthetic)
	assert.Equal(t, 12000.0, rec.Fields["tx_count"])
	assert.Equal(t, 2.5e6, rec.Fields["vsize"])
	assert.Equal(t, 42.1, rec.Fields["fee_rate"])
	assert.InDelta(t, 1.5, rec.Fields["total_fees"], 1e-12, "sats scaled to BTC")
	assert.False(t, rec.Timestamp.Before(before), "no timestamp in the payload")
}

func TestHTTPSource_CoinGeckoResponse(t *testing.T) {
	// GET https://api.coingecko.com/api/v3/coins/bitcoin, trimmed
	srv := serveJSON(t, `{
		"id": "bitcoin",
		"symbol": "btc",
		"last_updated": "2024-05-01T12:00:00.123Z",
		"market_data": {
			"current_price": {"usd": 64820.5, "eur": 60500},
			"market_cap": {"usd": 1276000000000},
			"total_volume": {"usd": 31200000000},
			"high_24h": {"usd": 65100},
			"low_24h": {"usd": 63900.25},
			"price_change_percentage_24h": -1.84
		}
	}`)

	src := NewHTTPSource(marketSpec(srv.URL), xhttp.NewClient(), util.NewLockedRand(1))
	rec, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"price":      64820.5,
		"volume":     3.12e10,
		"change_24h": -1.84,
		"market_cap": 1.276e12,
		"high":       65100,
		"low":        63900.25,
	}, rec.Fields)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 123e6, time.UTC), rec.Timestamp)
}

func TestHTTPSource_SymbolTickerResponse(t *testing.T) {
	// GET https://api.binance.com/api/v3/ticker/24hr?symbol=ETHUSDT, trimmed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{
			"symbol": "ETHUSDT",
			"priceChangePercent": "-3.250",
			"lastPrice": "2827.30000000",
			"volume": "412345.1200",
			"quoteVolume": "1165432100.55",
			"closeTime": 1714564800000
		}`))
	}))
	defer srv.Close()

	spec := SymbolSpec(" Eth ", srv.URL+"/api/v3/ticker/24hr?symbol={SYMBOL}USDT")
	assert.Equal(t, "market-eth", spec.Name)
	assert.Equal(t, SymbolSourceName("ETH"), spec.Name)

	rec, err := NewHTTPSource(spec, xhttp.NewClient(), util.NewLockedRand(1)).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMarket, rec.Category)
	assert.Equal(t, 2827.3, rec.Fields["price_eth"])
	assert.Equal(t, 1165432100.55, rec.Fields["volume_eth"])
	assert.Equal(t, -3.25, rec.Fields["change_24h_eth"])
	assert.NotContains(t, rec.Fields, "price")
	assert.Equal(t, time.UnixMilli(1714564800000).UTC(), rec.Timestamp)
}

func TestSymbolSpec_SyntheticFallback(t *testing.T) {
	spec := SymbolSpec("sol", "")
	assert.Empty(t, spec.URL)

	rec := Synthesize(spec, time.Now(), util.NewLockedRand(2))
	p := rec.Fields["price_sol"]
	assert.GreaterOrEqual(t, p, 120.0)
	assert.Less(t, p, 210.0)

	unknown := Synthesize(SymbolSpec("pepe", ""), time.Now(), util.NewLockedRand(2))
	assert.Contains(t, unknown.Fields, "price_pepe")
}

func TestHTTPSource_FetchFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		"missing field": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"count": 1, "vsize": 2, "total_fee": 3}`))
		},
		"empty histogram": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"count": 1, "vsize": 2, "total_fee": 3, "fee_histogram": []}`))
		},
		"non numeric": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"count": 1, "vsize": 2, "total_fee": 3, "fee_histogram": [["fast", 1]]}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			src := NewHTTPSource(mempoolSpec(srv.URL), xhttp.NewClient(), util.NewLockedRand(1))
			_, err := src.Fetch(context.Background())
			assert.True(t, errors.Is(err, models.ErrFetchFailure), err)
		})
	}

	noURL := NewHTTPSource(mempoolSpec(""), xhttp.NewClient(), util.NewLockedRand(1))
	_, err := noURL.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrFetchFailure)
}

func TestSynthesize_StaysInRange(t *testing.T) {
	rnd := util.NewLockedRand(99)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, spec := range DefaultSpecs(Endpoints{}) {
		for i := 0; i < 50; i++ {
			rec := Synthesize(spec, now, rnd)
			require.True(t, rec.Synthetic)
			require.Equal(t, spec.Category, rec.Category)
			require.Equal(t, now, rec.Timestamp)
			for field, r := range spec.Ranges {
				v := rec.Fields[field]
				require.GreaterOrEqual(t, v, r.Min, "%s.%s", spec.Name, field)
				require.Less(t, v, r.Max, "%s.%s", spec.Name, field)
			}
		}
	}
}

func TestSynthesize_MarketHighLowBracketPrice(t *testing.T) {
	rnd := util.NewLockedRand(3)
	market := DefaultSpecs(Endpoints{})[0]
	for i := 0; i < 20; i++ {
		f := Synthesize(market, time.Now(), rnd).Fields
		assert.GreaterOrEqual(t, f["high"], f["price"])
		assert.LessOrEqual(t, f["low"], f["price"])
	}
}

func TestSynthesize_SeedIsReproducible(t *testing.T) {
	social := DefaultSpecs(Endpoints{})[4]
	now := time.Now()
	a := Synthesize(social, now, util.NewLockedRand(5))
	b := Synthesize(social, now, util.NewLockedRand(5))
	assert.Equal(t, a.Fields, b.Fields)
}
