// Package kml parses KML markup documents into normalized geometry
// features. Invalid placemarks are skipped, never errored; only an
// unparseable document is a failure.
package kml

import "encoding/xml"

// Root represents the root kml element. Placemarks may appear at the
// root, inside a Document, or nested in Folders at any depth.
type Root struct {
	XMLName  xml.Name    `xml:"kml"`
	Document Document    `xml:"Document"`
	Folder   *Folder     `xml:"Folder"`
	TopLevel []Placemark `xml:"Placemark"`
}

// Document represents a KML Document element.
type Document struct {
	Name       string      `xml:"name"`
	Folders    []Folder    `xml:"Folder"`
	Placemarks []Placemark `xml:"Placemark"`
}

// Folder represents a KML Folder, which may nest further folders.
type Folder struct {
	Name       string      `xml:"name"`
	Folders    []Folder    `xml:"Folder"`
	Placemarks []Placemark `xml:"Placemark"`
}

// Placemark is a named geometric entry in the source document.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description"`
	Point        *Point        `xml:"Point"`
	LineString   *LineString   `xml:"LineString"`
	Polygon      *Polygon      `xml:"Polygon"`
	MultiGeom    *MultiGeom    `xml:"MultiGeometry"`
	ExtendedData *ExtendedData `xml:"ExtendedData"`
}

// Point holds a single (lng, lat[, alt]) coordinate tuple.
type Point struct {
	Coordinates string `xml:"coordinates"`
}

// LineString holds whitespace-separated coordinate tuples.
type LineString struct {
	Coordinates string `xml:"coordinates"`
}

// Polygon holds an outer boundary ring; inner rings are not consumed.
type Polygon struct {
	OuterBoundaryIs Boundary `xml:"outerBoundaryIs"`
}

// Boundary wraps a LinearRing.
type Boundary struct {
	LinearRing LinearRing `xml:"LinearRing"`
}

// LinearRing holds the ring's coordinate tuples.
type LinearRing struct {
	Coordinates string `xml:"coordinates"`
}

// MultiGeom represents a KML MultiGeometry container.
type MultiGeom struct {
	Points      []Point      `xml:"Point"`
	LineStrings []LineString `xml:"LineString"`
	Polygons    []Polygon    `xml:"Polygon"`
}

// ExtendedData carries arbitrary typed attributes of a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data is one named attribute value.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

// Parse unmarshals a KML document. A malformed document yields a
// *ParseError; structural emptiness is not an error at this stage.
func Parse(data []byte) (*Root, error) {
	var root Root
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Cause: err}
	}
	return &root, nil
}

// Placemarks returns every placemark in the document in tree order:
// root-level first, then the Document's, then folders depth-first.
func (r *Root) Placemarks() []Placemark {
	var out []Placemark
	out = append(out, r.TopLevel...)
	out = append(out, r.Document.Placemarks...)
	for _, f := range r.Document.Folders {
		out = append(out, collectPlacemarks(f)...)
	}
	if r.Folder != nil {
		out = append(out, collectPlacemarks(*r.Folder)...)
	}
	return out
}

func collectPlacemarks(f Folder) []Placemark {
	out := append([]Placemark(nil), f.Placemarks...)
	for _, sub := range f.Folders {
		out = append(out, collectPlacemarks(sub)...)
	}
	return out
}
