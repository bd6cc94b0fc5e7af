package store

import (
	"github.com/dhconnelly/rtreego"

	"github.com/geoimport/backend/internal/geo"
	"github.com/geoimport/backend/internal/models"
)

// degenerateExtent pads zero-area boxes (single points) so they form a
// valid R-tree rectangle.
const degenerateExtent = 1e-9

// FeatureRef identifies one indexed feature for spatial query results.
type FeatureRef struct {
	FeatureID string              `json:"featureId"`
	GroupID   string              `json:"groupId"`
	LayerID   string              `json:"layerId"`
	Type      models.GeometryType `json:"type"`
	Box       *models.Bounds      `json:"bounds"`
}

// rect converts a lat/lng box to an R-tree rectangle in (lng, lat) axis
// order, matching the coordinate convention of the feature data.
func rect(b *models.Bounds) rtreego.Rect {
	lengths := []float64{
		b.MaxLng() - b.MinLng(),
		b.MaxLat() - b.MinLat(),
	}
	for i := range lengths {
		if lengths[i] <= 0 {
			lengths[i] = degenerateExtent
		}
	}
	r, _ := rtreego.NewRect(rtreego.Point{b.MinLng(), b.MinLat()}, lengths)
	return r
}

// Bounds implements rtreego.Spatial.
func (f FeatureRef) Bounds() rtreego.Rect {
	return rect(f.Box)
}

// spatialIndex is rebuilt from the group list whenever groups change.
// Queries are O(log N) instead of a linear scan over every feature.
type spatialIndex struct {
	tree *rtreego.Rtree
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{tree: rtreego.NewTree(2, 25, 50)}
}

func (idx *spatialIndex) rebuild(groups []models.LayerGroup) {
	tree := rtreego.NewTree(2, 25, 50)
	for _, g := range groups {
		for _, l := range g.Layers {
			for i, feature := range l.Geometry {
				b := geo.UnionBounds([]models.GeometryFeature{feature})
				if b == nil {
					continue
				}
				tree.Insert(FeatureRef{
					FeatureID: FeatureID(g.ID, l.ID, i),
					GroupID:   g.ID,
					LayerID:   l.ID,
					Type:      feature.Type,
					Box:       b,
				})
			}
		}
	}
	idx.tree = tree
}

// QueryBounds returns references to all features whose bounding box
// intersects the given box.
func (s *Store) QueryBounds(b models.Bounds) []FeatureRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.index.tree.SearchIntersect(rect(&b))
	refs := make([]FeatureRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m.(FeatureRef))
	}
	return refs
}
