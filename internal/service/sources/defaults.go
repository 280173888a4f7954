package sources

import (
	"strings"

	"BitLearn/internal/domain/models"
	xhttp "BitLearn/pkg/http"
	"BitLearn/pkg/util"
)

// Synthetic ranges. They bracket typical 2024 Bitcoin conditions and keep
// downstream stages fed when an endpoint is unreachable.
var (
	marketRanges = map[string]Range{
		"price":      {Min: 58_000, Max: 72_000},
		"volume":     {Min: 15e9, Max: 45e9},
		"change_24h": {Min: -6, Max: 6},
		"market_cap": {Min: 1.15e12, Max: 1.42e12},
	}
	mempoolRanges = map[string]Range{
		"tx_count":   {Min: 5_000, Max: 150_000},
		"vsize":      {Min: 1e6, Max: 3e8},
		"fee_rate":   {Min: 2, Max: 150},
		"total_fees": {Min: 0.1, Max: 5},
	}
	ordinalsRanges = map[string]Range{
		"floor_price":  {Min: 0.001, Max: 0.5},
		"volume":       {Min: 5, Max: 500},
		"inscriptions": {Min: 70e6, Max: 80e6},
		"holders":      {Min: 100_000, Max: 300_000},
	}
	runesRanges = map[string]Range{
		"market_cap": {Min: 5e8, Max: 3e9},
		"volume":     {Min: 1e6, Max: 5e7},
		"holders":    {Min: 50_000, Max: 300_000},
		"mints":      {Min: 1_000, Max: 50_000},
	}
	socialRanges = map[string]Range{
		"sentiment":  {Min: -1, Max: 1},
		"mentions":   {Min: 1_000, Max: 50_000},
		"engagement": {Min: 0.01, Max: 0.2},
	}
)

// deriveHighLow places high and low within 3% around price.
func deriveHighLow(fields map[string]float64, rnd *util.LockedRand) {
	p := fields["price"]
	fields["high"] = p * (1 + rnd.Between(0, 0.03))
	fields["low"] = p * (1 - rnd.Between(0, 0.03))
}

// Endpoints holds one URL per category. Empty URLs always fall back.
type Endpoints struct {
	Market   string
	Mempool  string
	Ordinals string
	Runes    string
	Social   string
}

// DefaultSpecs returns the five built-in sources in category order.
func DefaultSpecs(ep Endpoints) []Spec {
	return []Spec{
		{
			Name:     "market",
			Category: models.CategoryMarket,
			URL:      ep.Market,
			// CoinGecko /coins/bitcoin
			Fields: map[string]string{
				"price":      "market_data.current_price.usd",
				"volume":     "market_data.total_volume.usd",
				"change_24h": "market_data.price_change_percentage_24h",
				"market_cap": "market_data.market_cap.usd",
				"high":       "market_data.high_24h.usd",
				"low":        "market_data.low_24h.usd",
			},
			TimeField: "last_updated",
			Ranges:    marketRanges,
			Derive: deriveHighLow,
		},
		{
			Name:     "mempool",
			Category: models.CategoryMempool,
			URL:      ep.Mempool,
			// mempool.space /api/mempool; the histogram is ordered by
			// descending fee rate, so its first band is the fastest.
			Fields: map[string]string{
				"tx_count":   "count",
				"vsize":      "vsize",
				"fee_rate":   "fee_histogram.0.0",
				"total_fees": "total_fee",
			},
			Scale:  map[string]float64{"total_fees": 1e-8},
			Ranges: mempoolRanges,
		},
		{
			Name:     "ordinals",
			Category: models.CategoryOrdinals,
			URL:      ep.Ordinals,
			Fields: map[string]string{
				"floor_price":  "floor_price",
				"volume":       "volume_24h",
				"inscriptions": "total_inscriptions",
				"holders":      "holders",
			},
			Ranges: ordinalsRanges,
		},
		{
			Name:     "runes",
			Category: models.CategoryRunes,
			URL:      ep.Runes,
			Fields: map[string]string{
				"market_cap": "market_cap",
				"volume":     "volume_24h",
				"holders":    "holders",
				"mints":      "mints",
			},
			Ranges: runesRanges,
		},
		{
			Name:     "social",
			Category: models.CategorySocial,
			URL:      ep.Social,
			Fields: map[string]string{
				"sentiment":  "sentiment.score",
				"mentions":   "mentions",
				"engagement": "engagement_rate",
			},
			Ranges: socialRanges,
		},
	}
}

// symbolPriceRanges bracket the synthetic price of well-known symbols;
// anything else uses defaultSymbolPrice.
var (
	symbolPriceRanges = map[string]Range{
		"btc": {Min: 58_000, Max: 72_000},
		"eth": {Min: 2_800, Max: 4_000},
		"sol": {Min: 120, Max: 210},
	}
	defaultSymbolPrice = Range{Min: 1, Max: 100}
)

// SymbolSourceName is the collector source name for a per-symbol feed.
func SymbolSourceName(symbol string) string {
	return "market-" + strings.ToLower(strings.TrimSpace(symbol))
}

// SymbolSpec builds the market feed for one symbol. urlTemplate may contain
// {SYMBOL} (upper case) or {symbol} (lower case); fields follow the Binance
// 24h ticker and are suffixed with the symbol, e.g. price_eth.
func SymbolSpec(symbol, urlTemplate string) Spec {
	sym := strings.ToLower(strings.TrimSpace(symbol))
	url := ""
	if urlTemplate != "" {
		url = strings.NewReplacer("{SYMBOL}", strings.ToUpper(sym), "{symbol}", sym).Replace(urlTemplate)
	}
	price, ok := symbolPriceRanges[sym]
	if !ok {
		price = defaultSymbolPrice
	}
	return Spec{
		Name:     SymbolSourceName(sym),
		Category: models.CategoryMarket,
		URL:      url,
		Fields: map[string]string{
			"price_" + sym:      "lastPrice",
			"volume_" + sym:     "quoteVolume",
			"change_24h_" + sym: "priceChangePercent",
		},
		TimeField: "closeTime",
		Ranges: map[string]Range{
			"price_" + sym:      price,
			"volume_" + sym:     {Min: 1e8, Max: 2e10},
			"change_24h_" + sym: {Min: -8, Max: 8},
		},
	}
}

// NewDefaultSources builds HTTP sources for all five categories.
func NewDefaultSources(ep Endpoints, client *xhttp.Client, rnd *util.LockedRand) []*HTTPSource {
	specs := DefaultSpecs(ep)
	out := make([]*HTTPSource, 0, len(specs))
	for _, spec := range specs {
		out = append(out, NewHTTPSource(spec, client, rnd))
	}
	return out
}
