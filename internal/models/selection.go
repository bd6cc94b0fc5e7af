package models

// SelectedFeature is one feature the user picked on a rendered layer.
// ID is derived from the feature's index within its layer plus the layer
// and group IDs, so it is stable across snapshots.
type SelectedFeature struct {
	ID         string                 `json:"id"`
	GroupID    string                 `json:"groupId"`
	LayerID    string                 `json:"layerId"`
	GroupName  string                 `json:"groupName"`
	LayerName  string                 `json:"layerName"`
	Geometry   GeometryFeature        `json:"geometry"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}
