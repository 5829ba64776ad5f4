package calculator

import "errors"

// VolumeToMarketCapRatio divides 24h volume by market cap. Market caps of
// zero are reported by the provider for unknowns, so that case is absent
// rather than infinity.
func VolumeToMarketCapRatio(volume, marketCap float64) (float64, error) {
	if marketCap <= 0 {
		return 0, errors.New("market cap is zero or unknown")
	}
	return volume / marketCap, nil
}
