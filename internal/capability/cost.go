package capability

import "math"

// EstimateCost returns the USD cost of rendering seconds of output on provider,
// billed on the duration actually submitted (clamped to the provider maximum).
func EstimateCost(provider string, seconds int) float64 {
	rec := Lookup(provider)
	billed := rec.ClampDuration(seconds)
	return math.Round(rec.CostPerSecond*float64(billed)*100) / 100
}
