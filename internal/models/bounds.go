package models

// Bounds is an axis-aligned lat/lng box serialized as
// [[minLat, minLng], [maxLat, maxLng]]. A nil *Bounds means "no data",
// which is distinct from a zero-area box around a single point.
type Bounds [2][2]float64

// NewBounds builds a box from its four edges.
func NewBounds(minLat, minLng, maxLat, maxLng float64) *Bounds {
	return &Bounds{{minLat, minLng}, {maxLat, maxLng}}
}

func (b *Bounds) MinLat() float64 { return b[0][0] }
func (b *Bounds) MinLng() float64 { return b[0][1] }
func (b *Bounds) MaxLat() float64 { return b[1][0] }
func (b *Bounds) MaxLng() float64 { return b[1][1] }

// Contains reports whether the (lat, lng) point lies inside the box,
// edges inclusive.
func (b *Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat() && lat <= b.MaxLat() &&
		lng >= b.MinLng() && lng <= b.MaxLng()
}

// Extend grows the box to include the (lat, lng) point.
func (b *Bounds) Extend(lat, lng float64) {
	if lat < b[0][0] {
		b[0][0] = lat
	}
	if lat > b[1][0] {
		b[1][0] = lat
	}
	if lng < b[0][1] {
		b[0][1] = lng
	}
	if lng > b[1][1] {
		b[1][1] = lng
	}
}
