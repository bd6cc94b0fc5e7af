// Package store holds the import workspace state: uploaded file records,
// ingested layer groups, the current feature selection and package
// assignments. The original design used many independently-subscribed
// reactive cells; here the whole workspace is one explicit State value
// mutated only through pure transition functions dispatched under a
// single mutex, so every action is one atomic state replacement.
package store

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/geoimport/backend/internal/models"
)

// State is an immutable snapshot of the workspace. Transition functions
// copy the slices they modify; callers must never mutate a snapshot.
type State struct {
	ProjectID   string
	Files       []models.FileInfo
	Groups      []models.LayerGroup
	Selection   []models.SelectedFeature
	Assignments []models.PackageAssignment
}

// Store guards the current State. Every action reads the old state,
// computes the new one and publishes it as a single critical section.
type Store struct {
	mu    sync.RWMutex
	state State
	index *spatialIndex
	now   func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		index: newSpatialIndex(),
		now:   time.Now,
	}
}

// Snapshot returns the current state. The returned value shares backing
// arrays with the store; treat it as read-only.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// FeatureID derives the stable identity of a feature from its group,
// layer and index within the layer.
func FeatureID(groupID, layerID string, index int) string {
	return fmt.Sprintf("%s/%s/%d", groupID, layerID, index)
}

// featureIndex extracts the layer-local index from a feature ID.
func featureIndex(featureID string) (int, bool) {
	i := strings.LastIndexByte(featureID, '/')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(featureID[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetProject selects the active project context.
func (s *Store) SetProject(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	next.ProjectID = projectID
	s.state = next
}

// AddFile appends an uploaded file record.
func (s *Store) AddFile(info models.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	next.Files = append(copyFiles(s.state.Files), info)
	s.state = next
}

// UpdateFile replaces a file record's status, progress and error text.
// Progress never regresses while the file stays pending. Unknown IDs are
// a no-op.
func (s *Store) UpdateFile(fileID string, status models.FileStatus, progress float64, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := copyFiles(s.state.Files)
	for i := range files {
		if files[i].ID != fileID {
			continue
		}
		if status == models.FileStatusPending && progress < files[i].Progress && files[i].Status == models.FileStatusPending {
			progress = files[i].Progress
		}
		files[i].Status = status
		files[i].Progress = progress
		files[i].Error = errMsg
		break
	}

	next := s.state
	next.Files = files
	s.state = next
}

// ResetFile returns a record to retry-eligible pending state with zero
// progress. Used when a parse is cancelled or retried; UpdateFile alone
// cannot regress progress while a file stays pending.
func (s *Store) ResetFile(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := copyFiles(s.state.Files)
	for i := range files {
		if files[i].ID == fileID {
			files[i].Status = models.FileStatusPending
			files[i].Progress = 0
			files[i].Error = ""
			break
		}
	}

	next := s.state
	next.Files = files
	s.state = next
}

// RemoveFile drops a file record. Layer groups already produced from the
// file are untouched.
func (s *Store) RemoveFile(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files []models.FileInfo
	for _, f := range s.state.Files {
		if f.ID != fileID {
			files = append(files, f)
		}
	}

	next := s.state
	next.Files = files
	s.state = next
}

// AddLayerGroup appends a parsed group. Existing groups are never
// touched; a failed later file cannot invalidate them.
func (s *Store) AddLayerGroup(group models.LayerGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.Groups = append(copyGroups(s.state.Groups), group)
	s.state = next
	s.index.rebuild(s.state.Groups)
}

// ToggleGroupVisibility flips a group's visible flag via copy-on-write
// replacement. Unknown IDs are a no-op, not an error.
func (s *Store) ToggleGroupVisibility(groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := copyGroups(s.state.Groups)
	for i := range groups {
		if groups[i].ID == groupID {
			groups[i].Visible = !groups[i].Visible
			break
		}
	}

	next := s.state
	next.Groups = groups
	s.state = next
}

// ToggleLayerVisibility flips one layer's visible flag. Unknown IDs are
// a no-op.
func (s *Store) ToggleLayerVisibility(groupID, layerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := copyGroups(s.state.Groups)
	for i := range groups {
		if groups[i].ID != groupID {
			continue
		}
		layers := append([]models.Layer(nil), groups[i].Layers...)
		for j := range layers {
			if layers[j].ID == layerID {
				layers[j].Visible = !layers[j].Visible
				break
			}
		}
		groups[i].Layers = layers
		break
	}

	next := s.state
	next.Groups = groups
	s.state = next
}

// RemoveLayer removes a layer from its group together with any selection
// entries and assignments that reference it. A group left empty is kept;
// removing it takes an explicit RemoveGroup call.
func (s *Store) RemoveLayer(groupID, layerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := copyGroups(s.state.Groups)
	for i := range groups {
		if groups[i].ID != groupID {
			continue
		}
		var layers []models.Layer
		for _, l := range groups[i].Layers {
			if l.ID != layerID {
				layers = append(layers, l)
			}
		}
		groups[i].Layers = layers
		break
	}

	next := s.state
	next.Groups = groups
	next.Selection = dropSelection(s.state.Selection, groupID, layerID)
	next.Assignments = dropAssignments(s.state.Assignments, groupID, layerID)
	s.state = next
	s.index.rebuild(s.state.Groups)
}

// RemoveGroup removes a whole group and everything referencing it.
func (s *Store) RemoveGroup(groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var groups []models.LayerGroup
	for _, g := range s.state.Groups {
		if g.ID != groupID {
			groups = append(groups, g)
		}
	}

	next := s.state
	next.Groups = groups
	next.Selection = dropSelection(s.state.Selection, groupID, "")
	next.Assignments = dropAssignments(s.state.Assignments, groupID, "")
	s.state = next
	s.index.rebuild(s.state.Groups)
}

// SelectFeature adds a feature to the selection set. Selecting an
// already-selected ID is idempotent.
func (s *Store) SelectFeature(feature models.SelectedFeature) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sel := range s.state.Selection {
		if sel.ID == feature.ID {
			return
		}
	}

	next := s.state
	next.Selection = append(append([]models.SelectedFeature(nil), s.state.Selection...), feature)
	s.state = next
}

// DeselectFeature removes a feature from the selection set by ID.
func (s *Store) DeselectFeature(featureID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var selection []models.SelectedFeature
	for _, sel := range s.state.Selection {
		if sel.ID != featureID {
			selection = append(selection, sel)
		}
	}

	next := s.state
	next.Selection = selection
	s.state = next
}

// AssignPackage links a package to a selected line-shaped feature. An
// existing assignment for the same (group, layer, lineString) key is
// replaced, never duplicated.
func (s *Store) AssignPackage(sel models.SelectedFeature, pkg models.Package) (models.PackageAssignment, error) {
	if sel.Geometry.Type != models.GeometryLineString {
		return models.PackageAssignment{}, &NotLineStringError{FeatureID: sel.ID}
	}
	index, ok := featureIndex(sel.ID)
	if !ok {
		return models.PackageAssignment{}, &NotLineStringError{FeatureID: sel.ID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assignment := models.PackageAssignment{
		LineStringID: index,
		PackageID:    pkg.ID,
		PackageName:  pkg.Name,
		GroupID:      sel.GroupID,
		GroupName:    sel.GroupName,
		LayerID:      sel.LayerID,
		LayerName:    sel.LayerName,
		Timestamp:    s.now(),
	}

	assignments := append([]models.PackageAssignment(nil), s.state.Assignments...)
	replaced := false
	for i := range assignments {
		if assignments[i].Key() == assignment.Key() {
			assignments[i] = assignment
			replaced = true
			break
		}
	}
	if !replaced {
		assignments = append(assignments, assignment)
	}

	next := s.state
	next.Assignments = assignments
	s.state = next

	return assignment, nil
}

// ConfirmImportToMap validates the selection and produces the flat
// persistence payload. An empty selection yields *EmptySelectionError
// and leaves the state untouched.
func (s *Store) ConfirmImportToMap() (*models.SavePayload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.state.Selection) == 0 {
		return nil, &EmptySelectionError{}
	}

	return &models.SavePayload{
		ProjectID:   s.state.ProjectID,
		Assignments: append([]models.PackageAssignment(nil), s.state.Assignments...),
		LayerGroups: append([]models.LayerGroup(nil), s.state.Groups...),
	}, nil
}

func copyFiles(files []models.FileInfo) []models.FileInfo {
	return append([]models.FileInfo(nil), files...)
}

func copyGroups(groups []models.LayerGroup) []models.LayerGroup {
	return append([]models.LayerGroup(nil), groups...)
}

// dropSelection filters out entries for a group or, when layerID is
// non-empty, one specific layer.
func dropSelection(selection []models.SelectedFeature, groupID, layerID string) []models.SelectedFeature {
	var out []models.SelectedFeature
	for _, sel := range selection {
		if sel.GroupID == groupID && (layerID == "" || sel.LayerID == layerID) {
			continue
		}
		out = append(out, sel)
	}
	return out
}

func dropAssignments(assignments []models.PackageAssignment, groupID, layerID string) []models.PackageAssignment {
	var out []models.PackageAssignment
	for _, a := range assignments {
		if a.GroupID == groupID && (layerID == "" || a.LayerID == layerID) {
			continue
		}
		out = append(out, a)
	}
	return out
}
