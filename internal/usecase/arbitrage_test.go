package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitLearn/internal/domain/models"
)

func TestDetectArbitrage_Gating(t *testing.T) {
	venues := []models.ArbitrageVenue{
		models.NewVenue("Alpha", 1.0, "TWO", "LOW", "SOLO"),
		models.NewVenue("Beta", 1.5, "TWO", "LOW"),
	}
	assets := []models.RuneAsset{
		{ID: "TWO", Name: "TWO", ReferencePrice: 100, Volume24h: 500_000},
		{ID: "LOW", Name: "LOW", ReferencePrice: 100, Volume24h: 500_000},
		{ID: "SOLO", Name: "SOLO", ReferencePrice: 100, Volume24h: 500_000},
	}
	quotes := StaticQuotes{
		"Alpha": {"TWO": 100, "LOW": 100, "SOLO": 100},
		"Beta":  {"TWO": 102.5, "LOW": 101.5},
	}

	got := DetectArbitrage(assets, venues, quotes, 0.5, t0)
	require.Len(t, got, 1)

	opp := got[0]
	assert.Equal(t, "TWO", opp.AssetID)
	assert.Equal(t, "Alpha", opp.SourceVenue)
	assert.Equal(t, "Beta", opp.TargetVenue)
	assert.InDelta(t, 2.5, opp.GrossSpreadPct, 1e-9)
	assert.InDelta(t, 102.5*(1-0.015)-100*1.01, opp.NetProfitPerUnit, 1e-9)
	assert.InDelta(t, 500.0, opp.TransactionSize, 1e-9)
	assert.InDelta(t, opp.NetProfitPerUnit*500, opp.EstimatedProfit, 1e-9)
	assert.InDelta(t, 0.5+2.5/20+0.05, opp.Confidence, 1e-9)
}

func TestDetectArbitrage_SingleVenueNeverQualifies(t *testing.T) {
	venues := []models.ArbitrageVenue{
		models.NewVenue("Alpha", 0, "SOLO"),
		models.NewVenue("Beta", 0, "OTHER"),
	}
	assets := []models.RuneAsset{{ID: "SOLO", ReferencePrice: 1, Volume24h: 1}}
	quotes := StaticQuotes{"Alpha": {"SOLO": 1}, "Beta": {"SOLO": 100}}

	assert.Empty(t, DetectArbitrage(assets, venues, quotes, 0.9, t0))
}

func TestDetectArbitrage_SourceIsCheapestTargetIsDearest(t *testing.T) {
	venues := []models.ArbitrageVenue{
		models.NewVenue("Mid", 1, "X"),
		models.NewVenue("Cheap", 1, "X"),
		models.NewVenue("Dear", 1, "X"),
	}
	assets := []models.RuneAsset{{ID: "X", Name: "X", ReferencePrice: 100, Volume24h: 2_000_000}}
	quotes := StaticQuotes{"Mid": {"X": 105}, "Cheap": {"X": 100}, "Dear": {"X": 110}}

	got := DetectArbitrage(assets, venues, quotes, 0.7, t0)
	require.Len(t, got, 1)
	assert.Equal(t, "Cheap", got[0].SourceVenue)
	assert.Equal(t, "Dear", got[0].TargetVenue)
	assert.InDelta(t, 10.0, got[0].GrossSpreadPct, 1e-9)
	assert.InDelta(t, 110*0.99-100*1.01, got[0].NetProfitPerUnit, 1e-9)
	assert.InDelta(t, 7.9, got[0].ProfitPercent, 1e-9)
	// volume above the cap contributes the full 0.1 and the total is capped
	assert.Equal(t, 0.95, got[0].Confidence)
}

func TestDetectArbitrage_SortedByProfitPercent(t *testing.T) {
	venues := []models.ArbitrageVenue{
		models.NewVenue("A", 0, "SMALL", "BIG", "MID"),
		models.NewVenue("B", 0, "SMALL", "BIG", "MID"),
	}
	assets := []models.RuneAsset{
		{ID: "SMALL", ReferencePrice: 100, Volume24h: 1000},
		{ID: "BIG", ReferencePrice: 100, Volume24h: 1000},
		{ID: "MID", ReferencePrice: 100, Volume24h: 1000},
	}
	quotes := StaticQuotes{
		"A": {"SMALL": 100, "BIG": 100, "MID": 100},
		"B": {"SMALL": 103, "BIG": 120, "MID": 108},
	}

	got := DetectArbitrage(assets, venues, quotes, 0.6, t0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"BIG", "MID", "SMALL"}, []string{got[0].AssetID, got[1].AssetID, got[2].AssetID})
}

func TestSimulatedQuote_DeterministicWithinBand(t *testing.T) {
	venue := models.NewVenue("Alpha", 1, "X")
	asset := models.RuneAsset{ID: "X", ReferencePrice: 0.005}

	a := SimulatedQuote(venue, asset, t0)
	b := SimulatedQuote(venue, asset, t0.Add(30*time.Second))
	assert.Equal(t, a, b, "same minute bucket")
	assert.GreaterOrEqual(t, a, 0.005*0.9)
	assert.LessOrEqual(t, a, 0.005*1.1)

	for i := 0; i < 100; i++ {
		q := SimulatedQuote(venue, asset, t0.Add(time.Duration(i)*time.Minute))
		assert.GreaterOrEqual(t, q, 0.005*0.9)
		assert.LessOrEqual(t, q, 0.005*1.1)
	}
}

func TestDetectArbitrage_DefaultUniverseSkipsSingleVenueAsset(t *testing.T) {
	for i := 0; i < 30; i++ {
		got := DetectArbitrage(models.DefaultRuneAssets(), models.DefaultVenues(), nil, 0.7, t0.Add(time.Duration(i)*time.Minute))
		for _, opp := range got {
			assert.NotEqual(t, "LOBO•THE•WOLF•PUP", opp.AssetID)
			assert.GreaterOrEqual(t, opp.GrossSpreadPct, 2.0)
			assert.LessOrEqual(t, opp.Confidence, 0.95)
		}
	}
}
