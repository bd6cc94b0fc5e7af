package models

// GeometryType identifies the shape of a feature's coordinates.
type GeometryType string

const (
	GeometryPoint        GeometryType = "Point"
	GeometryLineString   GeometryType = "LineString"
	GeometryPolygon      GeometryType = "Polygon"
	GeometryMultiPolygon GeometryType = "MultiPolygon"
)

// GeometryFeature is one geometric shape with its property bag.
// Coordinates holds nested float64 slices whose depth depends on Type:
// []float64 for Point, [][]float64 for LineString, [][][]float64 for
// Polygon and [][][][]float64 for MultiPolygon. Each innermost pair is
// (lng, lat) in source order.
type GeometryFeature struct {
	Type        GeometryType           `json:"type"`
	Coordinates interface{}            `json:"coordinates"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// Valid reports whether Coordinates nesting matches Type.
// A feature failing this check is dropped during normalization.
func (f GeometryFeature) Valid() bool {
	switch f.Type {
	case GeometryPoint:
		_, ok := f.Coordinates.([]float64)
		return ok
	case GeometryLineString:
		_, ok := f.Coordinates.([][]float64)
		return ok
	case GeometryPolygon:
		_, ok := f.Coordinates.([][][]float64)
		return ok
	case GeometryMultiPolygon:
		_, ok := f.Coordinates.([][][][]float64)
		return ok
	}
	return false
}

// NewPoint builds a Point feature from a single (lng, lat[, alt]) tuple.
func NewPoint(coords []float64, props map[string]interface{}) GeometryFeature {
	return GeometryFeature{Type: GeometryPoint, Coordinates: coords, Properties: props}
}

// NewLineString builds a LineString feature from an ordered tuple list.
func NewLineString(coords [][]float64, props map[string]interface{}) GeometryFeature {
	return GeometryFeature{Type: GeometryLineString, Coordinates: coords, Properties: props}
}

// NewPolygon builds a Polygon feature. The outer ring is ring index 0.
func NewPolygon(rings [][][]float64, props map[string]interface{}) GeometryFeature {
	return GeometryFeature{Type: GeometryPolygon, Coordinates: rings, Properties: props}
}

// NewMultiPolygon builds a MultiPolygon feature from a polygon list.
func NewMultiPolygon(polys [][][][]float64, props map[string]interface{}) GeometryFeature {
	return GeometryFeature{Type: GeometryMultiPolygon, Coordinates: polys, Properties: props}
}
