package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/geoimport/backend/internal/models"
)

func lineGroup() models.LayerGroup {
	return models.LayerGroup{
		ID:      "g1",
		Name:    "route",
		Visible: true,
		Layers: []models.Layer{
			{
				ID:      "linestring-1",
				Name:    "LineString (2)",
				Visible: true,
				Color:   "#3388ff",
				Geometry: []models.GeometryFeature{
					models.NewLineString([][]float64{{0, 0}, {1, 1}}, nil),
					models.NewLineString([][]float64{{2, 2}, {3, 3}}, nil),
				},
				Bounds: models.NewBounds(0, 0, 3, 3),
			},
			{
				ID:      "point-1",
				Name:    "Point (1)",
				Visible: true,
				Color:   "#e74c3c",
				Geometry: []models.GeometryFeature{
					models.NewPoint([]float64{5, 5}, nil),
				},
				Bounds: models.NewBounds(5, 5, 5, 5),
			},
		},
		Bounds: models.NewBounds(0, 0, 5, 5),
	}
}

func selectedLine(index int) models.SelectedFeature {
	return models.SelectedFeature{
		ID:        FeatureID("g1", "linestring-1", index),
		GroupID:   "g1",
		LayerID:   "linestring-1",
		GroupName: "route",
		LayerName: "LineString (2)",
		Geometry:  models.NewLineString([][]float64{{0, 0}, {1, 1}}, nil),
	}
}

func TestSelectFeature_Idempotent(t *testing.T) {
	s := New()
	before, _ := json.Marshal(s.Snapshot().Selection)

	s.SelectFeature(selectedLine(0))
	s.SelectFeature(selectedLine(0))
	if got := len(s.Snapshot().Selection); got != 1 {
		t.Fatalf("double select: expected 1 entry, got %d", got)
	}

	s.DeselectFeature(selectedLine(0).ID)
	after, _ := json.Marshal(s.Snapshot().Selection)
	if string(before) != string(after) {
		t.Errorf("select then deselect must restore prior set: before=%s after=%s", before, after)
	}
}

func TestAssignPackage_Upsert(t *testing.T) {
	s := New()
	s.AddLayerGroup(lineGroup())
	s.SelectFeature(selectedLine(0))

	first, err := s.AssignPackage(selectedLine(0), models.Package{ID: "p1", Name: "Package One"})
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	second, err := s.AssignPackage(selectedLine(0), models.Package{ID: "p2", Name: "Package Two"})
	if err != nil {
		t.Fatalf("reassign failed: %v", err)
	}
	if first.Key() != second.Key() {
		t.Fatalf("keys differ: %s vs %s", first.Key(), second.Key())
	}

	assignments := s.Snapshot().Assignments
	if len(assignments) != 1 {
		t.Fatalf("expected exactly 1 assignment, got %d", len(assignments))
	}
	if assignments[0].PackageID != "p2" || assignments[0].PackageName != "Package Two" {
		t.Errorf("upsert must keep latest package data, got %+v", assignments[0])
	}
	if assignments[0].Timestamp.IsZero() || time.Since(assignments[0].Timestamp) > time.Minute {
		t.Errorf("unexpected timestamp: %v", assignments[0].Timestamp)
	}
}

func TestAssignPackage_RejectsNonLine(t *testing.T) {
	s := New()
	sel := models.SelectedFeature{
		ID:       FeatureID("g1", "point-1", 0),
		GroupID:  "g1",
		LayerID:  "point-1",
		Geometry: models.NewPoint([]float64{5, 5}, nil),
	}

	_, err := s.AssignPackage(sel, models.Package{ID: "p1"})
	var nle *NotLineStringError
	if !errors.As(err, &nle) {
		t.Fatalf("expected *NotLineStringError, got %v", err)
	}
	if len(s.Snapshot().Assignments) != 0 {
		t.Error("failed assignment must not change state")
	}
}

func TestConfirmImportToMap_EmptySelection(t *testing.T) {
	s := New()
	s.SetProject("proj-1")
	s.AddLayerGroup(lineGroup())

	before, _ := json.Marshal(s.Snapshot())

	payload, err := s.ConfirmImportToMap()
	if payload != nil {
		t.Error("no payload must be produced on empty selection")
	}
	var ese *EmptySelectionError
	if !errors.As(err, &ese) {
		t.Fatalf("expected *EmptySelectionError, got %v", err)
	}

	after, _ := json.Marshal(s.Snapshot())
	if string(before) != string(after) {
		t.Error("state must be byte-identical after failed confirm")
	}
}

func TestConfirmImportToMap_Payload(t *testing.T) {
	s := New()
	s.SetProject("proj-1")
	s.AddLayerGroup(lineGroup())
	s.SelectFeature(selectedLine(0))
	if _, err := s.AssignPackage(selectedLine(0), models.Package{ID: "p1", Name: "Package One"}); err != nil {
		t.Fatal(err)
	}

	payload, err := s.ConfirmImportToMap()
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if payload.ProjectID != "proj-1" {
		t.Errorf("project id: got %q", payload.ProjectID)
	}
	if len(payload.Assignments) != 1 || len(payload.LayerGroups) != 1 {
		t.Errorf("unexpected payload shape: %d assignments, %d groups",
			len(payload.Assignments), len(payload.LayerGroups))
	}
}

func TestToggleVisibility(t *testing.T) {
	s := New()
	s.AddLayerGroup(lineGroup())

	s.ToggleGroupVisibility("g1")
	if s.Snapshot().Groups[0].Visible {
		t.Error("group should be hidden after toggle")
	}
	s.ToggleGroupVisibility("g1")
	if !s.Snapshot().Groups[0].Visible {
		t.Error("group should be visible after second toggle")
	}

	s.ToggleLayerVisibility("g1", "point-1")
	if s.Snapshot().Groups[0].Layers[1].Visible {
		t.Error("layer should be hidden after toggle")
	}

	// Unknown IDs are a no-op, not an error.
	before, _ := json.Marshal(s.Snapshot())
	s.ToggleGroupVisibility("missing")
	s.ToggleLayerVisibility("g1", "missing")
	s.ToggleLayerVisibility("missing", "point-1")
	after, _ := json.Marshal(s.Snapshot())
	if string(before) != string(after) {
		t.Error("toggling unknown ids must not change state")
	}
}

func TestRemoveLayer_KeepsEmptyGroup(t *testing.T) {
	s := New()
	s.AddLayerGroup(lineGroup())
	s.SelectFeature(selectedLine(0))
	if _, err := s.AssignPackage(selectedLine(0), models.Package{ID: "p1"}); err != nil {
		t.Fatal(err)
	}

	s.RemoveLayer("g1", "linestring-1")
	s.RemoveLayer("g1", "point-1")

	state := s.Snapshot()
	if len(state.Groups) != 1 {
		t.Fatal("emptied group must not be auto-removed")
	}
	if len(state.Groups[0].Layers) != 0 {
		t.Errorf("expected 0 layers, got %d", len(state.Groups[0].Layers))
	}
	if len(state.Selection) != 0 {
		t.Error("selection referencing removed layer must be dropped")
	}
	if len(state.Assignments) != 0 {
		t.Error("assignments referencing removed layer must be dropped")
	}

	s.RemoveGroup("g1")
	if len(s.Snapshot().Groups) != 0 {
		t.Error("explicit RemoveGroup must remove the group")
	}
}

func TestStats(t *testing.T) {
	s := New()
	if s.Stats().CanProceed {
		t.Error("empty store must not allow proceeding")
	}

	s.SetProject("proj-1")
	s.AddFile(models.FileInfo{ID: "f1", Name: "route.kml", Status: models.FileStatusPending})
	if s.Stats().CanProceed {
		t.Error("pending file must not allow proceeding")
	}

	s.UpdateFile("f1", models.FileStatusSuccess, 100, "")
	if !s.Stats().CanProceed {
		t.Error("project plus parsed file must allow proceeding")
	}

	s.AddLayerGroup(lineGroup())
	s.SelectFeature(selectedLine(0))
	if _, err := s.AssignPackage(selectedLine(0), models.Package{ID: "p1"}); err != nil {
		t.Fatal(err)
	}

	stats := s.Stats()
	if stats.TotalFeatures != 3 {
		t.Errorf("total features: got %d, want 3", stats.TotalFeatures)
	}
	if stats.VisibleFeatures != 3 {
		t.Errorf("visible features: got %d, want 3", stats.VisibleFeatures)
	}
	if stats.SelectedCount != 1 || stats.AssignmentCount != 1 {
		t.Errorf("selection/assignment counts: %d/%d", stats.SelectedCount, stats.AssignmentCount)
	}

	if len(stats.Layers) != 1 {
		t.Fatalf("expected stats for 1 line layer, got %d", len(stats.Layers))
	}
	ls := stats.Layers[0]
	if ls.Total != 2 || ls.Assigned != 1 || ls.Unassigned != 1 {
		t.Errorf("layer stats: %+v", ls)
	}

	s.ToggleLayerVisibility("g1", "point-1")
	if got := s.Stats().VisibleFeatures; got != 2 {
		t.Errorf("visible features after hiding point layer: got %d, want 2", got)
	}
	s.ToggleGroupVisibility("g1")
	if got := s.Stats().VisibleFeatures; got != 0 {
		t.Errorf("visible features after hiding group: got %d, want 0", got)
	}
}

func TestUpdateFile_ProgressMonotonic(t *testing.T) {
	s := New()
	s.AddFile(models.FileInfo{ID: "f1", Status: models.FileStatusPending, Progress: 40})

	s.UpdateFile("f1", models.FileStatusPending, 20, "")
	if got := s.Snapshot().Files[0].Progress; got != 40 {
		t.Errorf("pending progress must not regress: got %v", got)
	}

	s.UpdateFile("f1", models.FileStatusPending, 80, "")
	if got := s.Snapshot().Files[0].Progress; got != 80 {
		t.Errorf("progress should advance: got %v", got)
	}

	// Only the explicit reset path may regress progress.
	s.UpdateFile("f1", models.FileStatusPending, 0, "")
	if got := s.Snapshot().Files[0].Progress; got != 80 {
		t.Errorf("monotonic while pending: got %v", got)
	}
	s.ResetFile("f1")
	f := s.Snapshot().Files[0]
	if f.Progress != 0 || f.Status != models.FileStatusPending {
		t.Errorf("reset: got %+v", f)
	}
}

func TestQueryBounds(t *testing.T) {
	s := New()
	s.AddLayerGroup(lineGroup())

	// Box around the point feature at (lat=5, lng=5) only.
	refs := s.QueryBounds(*models.NewBounds(4.5, 4.5, 5.5, 5.5))
	if len(refs) != 1 {
		t.Fatalf("expected 1 match, got %d", len(refs))
	}
	if refs[0].Type != models.GeometryPoint || refs[0].LayerID != "point-1" {
		t.Errorf("unexpected match: %+v", refs[0])
	}

	// Box covering everything.
	refs = s.QueryBounds(*models.NewBounds(-1, -1, 10, 10))
	if len(refs) != 3 {
		t.Errorf("expected 3 matches, got %d", len(refs))
	}

	// After removing the line layer only the point remains indexed.
	s.RemoveLayer("g1", "linestring-1")
	refs = s.QueryBounds(*models.NewBounds(-1, -1, 10, 10))
	if len(refs) != 1 {
		t.Errorf("expected 1 match after removal, got %d", len(refs))
	}
}
