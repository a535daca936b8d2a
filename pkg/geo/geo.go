package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Bounds describes a latitude/longitude rectangle used to prefilter
// proximity queries before the exact distance check.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// BoundingBox returns a rectangle guaranteed to contain every point within
// radiusKm of origin. Longitude spans are widened by the cosine of the
// latitude; near the poles, or when the span crosses the antimeridian, the
// box degenerates to the full longitude range so a single BETWEEN predicate
// stays correct. The exact distance check trims the excess.
func BoundingBox(origin Point, radiusKm float64) Bounds {
	if radiusKm < 0 {
		radiusKm = 0
	}

	dLat := radiusKm / earthRadiusKm * 180 / math.Pi

	cosLat := math.Cos(origin.Lat * math.Pi / 180)
	dLng := 180.0
	if cosLat > 1e-6 {
		dLng = radiusKm / (earthRadiusKm * cosLat) * 180 / math.Pi
	}

	bounds := Bounds{
		MinLat: origin.Lat - dLat,
		MaxLat: origin.Lat + dLat,
		MinLng: origin.Lng - dLng,
		MaxLng: origin.Lng + dLng,
	}

	if bounds.MinLat < -90 {
		bounds.MinLat = -90
	}
	if bounds.MaxLat > 90 {
		bounds.MaxLat = 90
	}
	if bounds.MinLng < -180 || bounds.MaxLng > 180 {
		bounds.MinLng = -180
		bounds.MaxLng = 180
	}

	return bounds
}
