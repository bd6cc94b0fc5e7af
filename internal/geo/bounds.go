// Package geo provides coordinate normalization and bounding box math for
// normalized geometry features.
package geo

import (
	"math"

	"github.com/geoimport/backend/internal/models"
)

// Padding clamp, in degrees. The floor keeps point-like data visibly
// padded, the ceiling keeps huge regions from over-zooming out.
const (
	MinPadDegrees = 0.01
	MaxPadDegrees = 0.1
)

// LatLngPairs flattens a feature's coordinates to [lat, lng] pairs,
// reordering each source tuple from (lng, lat). For Polygon and
// MultiPolygon only outer rings are used. Malformed input (wrong nesting,
// short tuples, NaN/Inf) is filtered out silently; it never panics.
func LatLngPairs(f models.GeometryFeature) [][2]float64 {
	var pairs [][2]float64

	switch coords := f.Coordinates.(type) {
	case []float64:
		pairs = appendPair(pairs, coords)
	case [][]float64:
		for _, tuple := range coords {
			pairs = appendPair(pairs, tuple)
		}
	case [][][]float64:
		// Outer boundary ring only.
		if len(coords) > 0 {
			for _, tuple := range coords[0] {
				pairs = appendPair(pairs, tuple)
			}
		}
	case [][][][]float64:
		for _, poly := range coords {
			if len(poly) > 0 {
				for _, tuple := range poly[0] {
					pairs = appendPair(pairs, tuple)
				}
			}
		}
	}

	return pairs
}

// appendPair validates one (lng, lat[, alt]) tuple and appends it as
// [lat, lng]. Altitude, if present, is discarded.
func appendPair(pairs [][2]float64, tuple []float64) [][2]float64 {
	if len(tuple) < 2 {
		return pairs
	}
	lng, lat := tuple[0], tuple[1]
	if !validCoord(lat) || !validCoord(lng) {
		return pairs
	}
	return append(pairs, [2]float64{lat, lng})
}

// validCoord guards every candidate explicitly rather than relying on
// NaN-propagating comparisons.
func validCoord(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// UnionBounds computes the min/max lat and lng across all valid coordinate
// pairs of all input features in one linear pass. It returns nil when no
// valid coordinate was found; a single point yields a valid zero-area box.
func UnionBounds(features []models.GeometryFeature) *models.Bounds {
	var b *models.Bounds

	for _, f := range features {
		for _, pair := range LatLngPairs(f) {
			lat, lng := pair[0], pair[1]
			if b == nil {
				b = models.NewBounds(lat, lng, lat, lng)
				continue
			}
			b.Extend(lat, lng)
		}
	}

	return b
}

// UnionOf merges already-computed boxes, skipping nils. Returns nil when
// every input is nil.
func UnionOf(boxes ...*models.Bounds) *models.Bounds {
	var b *models.Bounds
	for _, box := range boxes {
		if box == nil {
			continue
		}
		if b == nil {
			c := *box
			b = &c
			continue
		}
		b.Extend(box.MinLat(), box.MinLng())
		b.Extend(box.MaxLat(), box.MaxLng())
	}
	return b
}

// Pad expands a box by max(MinPadDegrees, min(MaxPadDegrees,
// fraction*maxSpan)) degrees in each direction.
func Pad(b *models.Bounds, fraction float64) *models.Bounds {
	if b == nil {
		return nil
	}

	latSpan := b.MaxLat() - b.MinLat()
	lngSpan := b.MaxLng() - b.MinLng()
	span := math.Max(latSpan, lngSpan)

	// NaN slips through both clamp comparisons and would poison the box.
	pad := fraction * span
	if math.IsNaN(pad) || pad < MinPadDegrees {
		pad = MinPadDegrees
	}
	if pad > MaxPadDegrees {
		pad = MaxPadDegrees
	}

	return models.NewBounds(
		b.MinLat()-pad, b.MinLng()-pad,
		b.MaxLat()+pad, b.MaxLng()+pad,
	)
}
