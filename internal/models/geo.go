package models

import "math"

const kmPerDegree = 111.0

// BoundingBox is a lat/lng rectangle. It is a flat approximation and does
// not wrap around the antimeridian.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// NewBoundingBox returns the box of radiusKm around (lat, lng).
func NewBoundingBox(lat, lng, radiusKm float64) BoundingBox {
	latDelta := radiusKm / kmPerDegree
	cos := math.Cos(lat * math.Pi / 180)
	lngDelta := 180.0
	if cos > 1e-6 {
		lngDelta = math.Min(radiusKm/(kmPerDegree*cos), 180)
	}
	return BoundingBox{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
		MinLng: math.Max(lng-lngDelta, -180),
		MaxLng: math.Min(lng+lngDelta, 180),
	}
}

func (b BoundingBox) Contains(c *Coordinates) bool {
	if c == nil {
		return false
	}
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}
