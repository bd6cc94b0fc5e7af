package kml

import "fmt"

// ParseError indicates the markup document could not be parsed at all.
// Per-placemark problems never raise it; they drop the placemark instead.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed KML document: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// NoFeaturesError indicates a document that parsed but contained zero
// valid placemarks.
type NoFeaturesError struct {
	Placemarks int // placemarks seen before validation
}

func (e *NoFeaturesError) Error() string {
	if e.Placemarks == 0 {
		return "document contains no placemarks"
	}
	return fmt.Sprintf("document contains no valid features (%d placemarks, all invalid)", e.Placemarks)
}
