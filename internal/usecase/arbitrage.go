package usecase

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"BitLearn/internal/domain/models"
)

const (
	minGrossSpreadPct   = 2.0
	transactionSizeRate = 0.001
	volumeConfidenceCap = 1_000_000
	maxConfidence       = 0.95
	quoteBandPct        = 0.10
	quoteBucket         = time.Minute
)

// Quotes returns a venue's price for an asset. ok=false means no live quote.
type Quotes interface {
	Quote(venue models.ArbitrageVenue, asset models.RuneAsset, now time.Time) (price float64, ok bool)
}

// StaticQuotes maps venue name then asset id to a fixed price.
type StaticQuotes map[string]map[string]float64

func (q StaticQuotes) Quote(venue models.ArbitrageVenue, asset models.RuneAsset, _ time.Time) (float64, bool) {
	p, ok := q[venue.Name][asset.ID]
	return p, ok && p > 0
}

// SimulatedQuote is a deterministic price inside ±10% of the reference price.
// The offset is a hash of venue, asset and the minute bucket, so repeated scans
// within the same minute see the same book.
func SimulatedQuote(venue models.ArbitrageVenue, asset models.RuneAsset, now time.Time) float64 {
	bucket := now.Truncate(quoteBucket).Unix()
	h := xxhash.Sum64String(venue.Name + "|" + asset.ID + "|" + strconv.FormatInt(bucket, 10))
	unit := float64(h%1_000_000) / 1_000_000 // [0,1)
	return asset.ReferencePrice * (1 + (unit*2-1)*quoteBandPct)
}

type venueQuote struct {
	venue models.ArbitrageVenue
	price decimal.Decimal
}

// DetectArbitrage scans assets across venues. Assets listed on fewer than two
// venues, or whose gross spread is under 2%, produce nothing. The result is
// sorted by profit percent, highest first.
func DetectArbitrage(assets []models.RuneAsset, venues []models.ArbitrageVenue, quotes Quotes, accuracy float64, now time.Time) []models.ArbitrageOpportunity {
	hundred := decimal.NewFromInt(100)
	out := make([]models.ArbitrageOpportunity, 0)

	for _, asset := range assets {
		var book []venueQuote
		for _, v := range venues {
			if !v.Supports(asset.ID) {
				continue
			}
			price, ok := 0.0, false
			if quotes != nil {
				price, ok = quotes.Quote(v, asset, now)
			}
			if !ok {
				price = SimulatedQuote(v, asset, now)
			}
			if price <= 0 {
				continue
			}
			book = append(book, venueQuote{venue: v, price: decimal.NewFromFloat(price)})
		}
		if len(book) < 2 {
			continue
		}

		sort.SliceStable(book, func(i, j int) bool { return book[i].price.LessThan(book[j].price) })
		source, target := book[0], book[len(book)-1]

		gross := target.price.Sub(source.price).Div(source.price).Mul(hundred)
		grossPct, _ := gross.Float64()
		if grossPct < minGrossSpreadPct {
			continue
		}

		sourceFee := decimal.NewFromFloat(source.venue.FeePercent).Div(hundred)
		targetFee := decimal.NewFromFloat(target.venue.FeePercent).Div(hundred)
		net := target.price.Mul(decimal.NewFromInt(1).Sub(targetFee)).
			Sub(source.price.Mul(decimal.NewFromInt(1).Add(sourceFee)))

		size := decimal.NewFromFloat(asset.Volume24h).Mul(decimal.NewFromFloat(transactionSizeRate))
		profit := net.Mul(size)
		profitPct := net.Div(source.price).Mul(hundred)

		confidence := math.Min(maxConfidence,
			accuracy+grossPct/20+math.Min(asset.Volume24h, volumeConfidenceCap)/volumeConfidenceCap*0.1)

		sp, _ := source.price.Float64()
		tp, _ := target.price.Float64()
		np, _ := net.Float64()
		pp, _ := profitPct.Float64()
		ts, _ := size.Float64()
		ep, _ := profit.Float64()
		out = append(out, models.ArbitrageOpportunity{
			AssetID:          asset.ID,
			AssetName:        asset.Name,
			SourceVenue:      source.venue.Name,
			TargetVenue:      target.venue.Name,
			SourcePrice:      sp,
			TargetPrice:      tp,
			GrossSpreadPct:   grossPct,
			NetProfitPerUnit: np,
			ProfitPercent:    pp,
			TransactionSize:  ts,
			EstimatedProfit:  ep,
			Volume24h:        asset.Volume24h,
			Confidence:       confidence,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ProfitPercent > out[j].ProfitPercent })
	return out
}
