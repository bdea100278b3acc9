// Package scoring holds the numeric building blocks shared by the dish,
// bid and supplier engines.
package scoring

import "math"

const earthRadiusKm = 6371.0

type Point struct {
	Lat float64
	Lng float64
}

// MinMaxInverse maps each value to (max - v) / (max - min), so the smallest
// value scores 1 and the largest 0. When every value is equal the range is
// taken as 1 and all values score 0.
func MinMaxInverse(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i, v := range values {
		out[i] = (hi - v) / span
	}
	return out
}

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceScore decays linearly from 1 at zero distance to 0 at maxKm.
func DistanceScore(km, maxKm float64) float64 {
	if maxKm <= 0 {
		return 0
	}
	return math.Max(0, 1-km/maxKm)
}

func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Ratio returns num/den capped at 1; a non-positive den yields 1.
func Ratio(num, den float64) float64 {
	if den <= 0 {
		return 1
	}
	return math.Min(num/den, 1)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
