package store

import "github.com/geoimport/backend/internal/models"

// Stats is the set of derived counts recomputed from the current state
// snapshot on demand.
type Stats struct {
	TotalFeatures   int          `json:"totalFeatures"`
	VisibleFeatures int          `json:"visibleFeatures"`
	SelectedCount   int          `json:"selectedCount"`
	AssignmentCount int          `json:"assignmentCount"`
	Layers          []LayerStats `json:"layers"`
	CanProceed      bool         `json:"canProceed"`
}

// LayerStats reports package assignment coverage for one line layer.
type LayerStats struct {
	GroupID    string `json:"groupId"`
	LayerID    string `json:"layerId"`
	LayerName  string `json:"layerName"`
	Total      int    `json:"total"`
	Assigned   int    `json:"assigned"`
	Unassigned int    `json:"unassigned"`
}

// Stats computes the derived views from the current snapshot.
func (s *Store) Stats() Stats {
	state := s.Snapshot()

	stats := Stats{
		SelectedCount:   len(state.Selection),
		AssignmentCount: len(state.Assignments),
		CanProceed:      canProceed(state),
	}

	// Assignments are unique per (group, layer, lineString) key, so
	// counting them per layer cannot multiply duplicates.
	assignedPerLayer := make(map[string]int)
	for _, a := range state.Assignments {
		assignedPerLayer[a.GroupID+"/"+a.LayerID]++
	}

	for _, g := range state.Groups {
		for _, l := range g.Layers {
			n := len(l.Geometry)
			stats.TotalFeatures += n
			if g.Visible && l.Visible {
				stats.VisibleFeatures += n
			}

			if len(l.Geometry) > 0 && l.Geometry[0].Type == models.GeometryLineString {
				assigned := assignedPerLayer[g.ID+"/"+l.ID]
				stats.Layers = append(stats.Layers, LayerStats{
					GroupID:    g.ID,
					LayerID:    l.ID,
					LayerName:  l.Name,
					Total:      n,
					Assigned:   assigned,
					Unassigned: n - assigned,
				})
			}
		}
	}

	return stats
}

// canProceed requires a selected project context and at least one
// successfully parsed file.
func canProceed(state State) bool {
	if state.ProjectID == "" {
		return false
	}
	for _, f := range state.Files {
		if f.Status == models.FileStatusSuccess {
			return true
		}
	}
	return false
}
