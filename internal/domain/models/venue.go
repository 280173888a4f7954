package models

// ArbitrageVenue is static reference data for a trading venue.
type ArbitrageVenue struct {
	Name              string
	FeePercent        float64
	SupportedAssetIDs map[string]struct{}
}

// NewVenue builds a venue supporting the given assets.
func NewVenue(name string, feePercent float64, assetIDs ...string) ArbitrageVenue {
	set := make(map[string]struct{}, len(assetIDs))
	for _, id := range assetIDs {
		set[id] = struct{}{}
	}
	return ArbitrageVenue{Name: name, FeePercent: feePercent, SupportedAssetIDs: set}
}

func (v ArbitrageVenue) Supports(assetID string) bool {
	_, ok := v.SupportedAssetIDs[assetID]
	return ok
}

// RuneAsset is an asset scanned for cross-venue spreads.
type RuneAsset struct {
	ID             string
	Name           string
	ReferencePrice float64 // sats
	Volume24h      float64
}

// DefaultVenues are the marketplaces scanned by the arbitrage detector.
func DefaultVenues() []ArbitrageVenue {
	return []ArbitrageVenue{
		NewVenue("Magic Eden", 2.0, "DOG•GO•TO•THE•MOON", "RSIC•GENESIS•RUNE", "UNCOMMON•GOODS", "SATOSHI•NAKAMOTO"),
		NewVenue("OKX", 1.5, "DOG•GO•TO•THE•MOON", "RSIC•GENESIS•RUNE", "SATOSHI•NAKAMOTO"),
		NewVenue("Unisat", 1.0, "DOG•GO•TO•THE•MOON", "UNCOMMON•GOODS", "PUPS•WORLD•PEACE"),
		NewVenue("Ordinals Wallet", 2.5, "RSIC•GENESIS•RUNE", "PUPS•WORLD•PEACE"),
		NewVenue("Luminex", 1.2, "LOBO•THE•WOLF•PUP"),
	}
}

// DefaultRuneAssets are the assets scanned when no live quotes are available.
func DefaultRuneAssets() []RuneAsset {
	return []RuneAsset{
		{ID: "DOG•GO•TO•THE•MOON", Name: "DOG", ReferencePrice: 0.0052, Volume24h: 2_450_000},
		{ID: "RSIC•GENESIS•RUNE", Name: "RSIC", ReferencePrice: 0.0031, Volume24h: 680_000},
		{ID: "UNCOMMON•GOODS", Name: "UNCOMMON GOODS", ReferencePrice: 0.0018, Volume24h: 340_000},
		{ID: "SATOSHI•NAKAMOTO", Name: "SATOSHI", ReferencePrice: 0.0120, Volume24h: 910_000},
		{ID: "PUPS•WORLD•PEACE", Name: "PUPS", ReferencePrice: 0.0440, Volume24h: 125_000},
		{ID: "LOBO•THE•WOLF•PUP", Name: "LOBO", ReferencePrice: 0.0009, Volume24h: 55_000},
	}
}
