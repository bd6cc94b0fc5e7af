package models

// Layer is a named collection of features of one geometry type.
// Visible is mutated only through store actions, never by the parser.
type Layer struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Visible  bool              `json:"visible"`
	Color    string            `json:"color"` // hex, e.g. "#3388ff"
	Geometry []GeometryFeature `json:"geometry"`
	Bounds   *Bounds           `json:"bounds,omitempty"`
}

// LayerGroup is the set of layers produced from one imported source file.
// Once appended to the store it is treated as immutable except for the
// visibility flags, which the store flips via copy-on-write replacement.
type LayerGroup struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"` // source file name, extension stripped
	Visible bool    `json:"visible"`
	Layers  []Layer `json:"layers"`
	Bounds  *Bounds `json:"bounds,omitempty"`
}

// FeatureCount returns the number of features across all layers.
func (g *LayerGroup) FeatureCount() int {
	n := 0
	for i := range g.Layers {
		n += len(g.Layers[i].Geometry)
	}
	return n
}
