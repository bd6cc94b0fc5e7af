package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/geoimport/backend/internal/geo"
	"github.com/geoimport/backend/internal/models"
)

// Assembler groups normalized features into layers and layer groups.
// Layer IDs and colors are deterministic for a given input order: the ID
// suffix and palette index both follow the per-type creation counter.
type Assembler struct {
	styles   *StyleRules
	counters map[models.GeometryType]int
}

// NewAssembler creates an assembler using the given style rules, or the
// built-in defaults when styles is nil.
func NewAssembler(styles *StyleRules) *Assembler {
	if styles == nil {
		styles = DefaultStyleRules()
	}
	return &Assembler{
		styles:   styles,
		counters: make(map[models.GeometryType]int),
	}
}

// BuildLayers materializes one layer per non-empty type bucket, in
// first-seen-type order. Empty buckets are skipped, so a created layer's
// geometry is never empty.
func (a *Assembler) BuildLayers(grouped map[models.GeometryType][]models.GeometryFeature, order []models.GeometryType) []models.Layer {
	var layers []models.Layer

	for _, gtype := range order {
		features := grouped[gtype]
		if len(features) == 0 {
			continue
		}

		index := a.counters[gtype]
		a.counters[gtype]++

		layers = append(layers, models.Layer{
			ID:       fmt.Sprintf("%s-%d", strings.ToLower(string(gtype)), index+1),
			Name:     fmt.Sprintf("%s (%d)", gtype, len(features)),
			Visible:  true,
			Color:    a.styles.Color(gtype, index),
			Geometry: features,
			Bounds:   geo.UnionBounds(features),
		})
	}

	return layers
}

// BuildLayerGroup packages layers produced from one source file. The
// display name is the file name with its extension stripped.
func (a *Assembler) BuildLayerGroup(fileName string, layers []models.Layer) *models.LayerGroup {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	boxes := make([]*models.Bounds, 0, len(layers))
	for i := range layers {
		boxes = append(boxes, layers[i].Bounds)
	}

	return &models.LayerGroup{
		ID:      uuid.New().String(),
		Name:    name,
		Visible: true,
		Layers:  layers,
		Bounds:  geo.UnionOf(boxes...),
	}
}

// GroupByType buckets features by geometry type, recording first-seen
// order so layer output is deterministic for a given input order.
func GroupByType(features []models.GeometryFeature) (map[models.GeometryType][]models.GeometryFeature, []models.GeometryType) {
	grouped := make(map[models.GeometryType][]models.GeometryFeature)
	var order []models.GeometryType

	for _, f := range features {
		if _, seen := grouped[f.Type]; !seen {
			order = append(order, f.Type)
		}
		grouped[f.Type] = append(grouped[f.Type], f)
	}

	return grouped, order
}
