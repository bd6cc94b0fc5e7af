package kml

import (
	"strconv"
	"strings"

	"github.com/geoimport/backend/internal/models"
)

// Minimum valid tuple counts per geometry shape.
const (
	minLinePoints = 2
	minRingPoints = 3
)

// NormalizePlacemark converts one placemark into zero or more normalized
// features. A placemark with no geometry, or whose geometry fails its
// minimum-point requirement, contributes nothing. A MultiGeometry yields
// its points and lines individually and its polygons as one MultiPolygon.
func NormalizePlacemark(pm Placemark) []models.GeometryFeature {
	props := properties(pm)
	var out []models.GeometryFeature

	if pm.Point != nil {
		if f, ok := normalizePoint(pm.Point.Coordinates, props); ok {
			out = append(out, f)
		}
	}
	if pm.LineString != nil {
		if f, ok := normalizeLine(pm.LineString.Coordinates, props); ok {
			out = append(out, f)
		}
	}
	if pm.Polygon != nil {
		if f, ok := normalizePolygon(*pm.Polygon, props); ok {
			out = append(out, f)
		}
	}
	if pm.MultiGeom != nil {
		for _, p := range pm.MultiGeom.Points {
			if f, ok := normalizePoint(p.Coordinates, props); ok {
				out = append(out, f)
			}
		}
		for _, l := range pm.MultiGeom.LineStrings {
			if f, ok := normalizeLine(l.Coordinates, props); ok {
				out = append(out, f)
			}
		}
		var polys [][][][]float64
		for _, p := range pm.MultiGeom.Polygons {
			ring := parseTuples(p.OuterBoundaryIs.LinearRing.Coordinates)
			if len(ring) >= minRingPoints {
				polys = append(polys, [][][]float64{ring})
			}
		}
		if len(polys) > 0 {
			out = append(out, models.NewMultiPolygon(polys, props))
		}
	}

	return out
}

// Normalize converts a whole document in one pass. It returns a
// *NoFeaturesError when the document holds zero valid placemarks.
func Normalize(root *Root) ([]models.GeometryFeature, error) {
	placemarks := root.Placemarks()

	var features []models.GeometryFeature
	for _, pm := range placemarks {
		features = append(features, NormalizePlacemark(pm)...)
	}

	if len(features) == 0 {
		return nil, &NoFeaturesError{Placemarks: len(placemarks)}
	}
	return features, nil
}

func normalizePoint(raw string, props map[string]interface{}) (models.GeometryFeature, bool) {
	tuples := parseTuples(raw)
	if len(tuples) != 1 {
		return models.GeometryFeature{}, false
	}
	return models.NewPoint(tuples[0], props), true
}

func normalizeLine(raw string, props map[string]interface{}) (models.GeometryFeature, bool) {
	tuples := parseTuples(raw)
	if len(tuples) < minLinePoints {
		return models.GeometryFeature{}, false
	}
	return models.NewLineString(tuples, props), true
}

func normalizePolygon(p Polygon, props map[string]interface{}) (models.GeometryFeature, bool) {
	ring := parseTuples(p.OuterBoundaryIs.LinearRing.Coordinates)
	if len(ring) < minRingPoints {
		return models.GeometryFeature{}, false
	}
	return models.NewPolygon([][][]float64{ring}, props), true
}

// parseTuples splits a KML coordinates text node into numeric tuples.
// The format is whitespace-separated "lng,lat[,alt]" groups. Tuples with
// fewer than two components, or any non-numeric component, are skipped.
func parseTuples(raw string) [][]float64 {
	var tuples [][]float64

	for _, field := range strings.Fields(raw) {
		parts := strings.Split(field, ",")
		if len(parts) < 2 {
			continue
		}
		if len(parts) > 3 {
			parts = parts[:3]
		}

		tuple := make([]float64, 0, len(parts))
		ok := true
		for _, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				ok = false
				break
			}
			tuple = append(tuple, v)
		}
		if ok {
			tuples = append(tuples, tuple)
		}
	}

	return tuples
}

// properties builds the placemark's property bag. Scalar child values are
// coerced to bool, float64 or string; empty values are omitted.
func properties(pm Placemark) map[string]interface{} {
	props := make(map[string]interface{})

	if pm.Name != "" {
		props["name"] = pm.Name
	}
	if pm.Description != "" {
		props["description"] = pm.Description
	}
	if pm.ExtendedData != nil {
		for _, d := range pm.ExtendedData.Data {
			if d.Name == "" || d.Value == "" {
				continue
			}
			props[d.Name] = coerce(d.Value)
		}
	}

	if len(props) == 0 {
		return nil
	}
	return props
}

// coerce converts a raw attribute string to bool or float64 where
// possible, leaving everything else as the original string.
func coerce(raw string) interface{} {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return raw
}
