package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/geoimport/backend/internal/models"
)

// HandleGetSelection returns the current selection set.
func (h *Handler) HandleGetSelection(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Snapshot().Selection)
}

// HandleSelectFeature adds a feature to the selection set. Selecting an
// already-selected feature is a no-op, not an error.
func (h *Handler) HandleSelectFeature(c echo.Context) error {
	var feature models.SelectedFeature
	if err := c.Bind(&feature); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid request body", err))
	}

	if feature.ID == "" || feature.GroupID == "" || feature.LayerID == "" {
		return RespondWithError(c, NewBadRequestError("id, groupId and layerId are required", nil))
	}

	h.state.SelectFeature(feature)
	return c.JSON(http.StatusOK, h.state.Snapshot().Selection)
}

// HandleDeselectFeature removes a feature from the selection set.
func (h *Handler) HandleDeselectFeature(c echo.Context) error {
	id := c.Param("id")
	h.state.DeselectFeature(id)
	return c.NoContent(http.StatusNoContent)
}

// HandleAssignPackage links a package from the directory to a selected
// line feature. Re-assigning the same feature replaces the previous link.
func (h *Handler) HandleAssignPackage(c echo.Context) error {
	var req struct {
		FeatureID string `json:"featureId"`
		PackageID string `json:"packageId"`
	}
	if err := c.Bind(&req); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid request body", err))
	}
	if req.FeatureID == "" || req.PackageID == "" {
		return RespondWithError(c, NewBadRequestError("featureId and packageId are required", nil))
	}

	pkg, ok := h.dir.Package(req.PackageID)
	if !ok {
		return RespondWithError(c, NewNotFoundError("package", req.PackageID))
	}

	var sel *models.SelectedFeature
	for _, s := range h.state.Snapshot().Selection {
		if s.ID == req.FeatureID {
			sel = &s
			break
		}
	}
	if sel == nil {
		return RespondWithError(c, NewNotFoundError("selected feature", req.FeatureID))
	}

	assignment, err := h.state.AssignPackage(*sel, pkg)
	if err != nil {
		return RespondWithError(c, FromDomainError(err))
	}

	return c.JSON(http.StatusOK, assignment)
}

// HandleGetAssignments returns all package assignments.
func (h *Handler) HandleGetAssignments(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Snapshot().Assignments)
}

// HandleToggleGroupVisibility flips the visible flag of a group.
func (h *Handler) HandleToggleGroupVisibility(c echo.Context) error {
	id := c.Param("id")
	if !h.groupExists(id) {
		return RespondWithError(c, NewNotFoundError("group", id))
	}
	h.state.ToggleGroupVisibility(id)
	return c.JSON(http.StatusOK, map[string]string{"status": "toggled"})
}

// HandleToggleLayerVisibility flips the visible flag of one layer.
func (h *Handler) HandleToggleLayerVisibility(c echo.Context) error {
	groupID := c.Param("gid")
	layerID := c.Param("lid")
	if !h.layerExists(groupID, layerID) {
		return RespondWithError(c, NewNotFoundError("layer", layerID))
	}
	h.state.ToggleLayerVisibility(groupID, layerID)
	return c.JSON(http.StatusOK, map[string]string{"status": "toggled"})
}

// HandleRemoveLayer deletes a layer along with any selection entries and
// assignments referencing it. The enclosing group stays even when empty.
func (h *Handler) HandleRemoveLayer(c echo.Context) error {
	groupID := c.Param("gid")
	layerID := c.Param("lid")
	if !h.layerExists(groupID, layerID) {
		return RespondWithError(c, NewNotFoundError("layer", layerID))
	}
	h.state.RemoveLayer(groupID, layerID)
	return c.NoContent(http.StatusNoContent)
}

// HandleRemoveGroup deletes a whole layer group.
func (h *Handler) HandleRemoveGroup(c echo.Context) error {
	id := c.Param("id")
	if !h.groupExists(id) {
		return RespondWithError(c, NewNotFoundError("group", id))
	}
	h.state.RemoveGroup(id)
	return c.NoContent(http.StatusNoContent)
}

// HandleConfirmImport builds the save payload from the current selection
// and assignments. It fails on an empty selection and changes nothing.
func (h *Handler) HandleConfirmImport(c echo.Context) error {
	payload, err := h.state.ConfirmImportToMap()
	if err != nil {
		return RespondWithError(c, FromDomainError(err))
	}
	return c.JSON(http.StatusOK, payload)
}

func (h *Handler) groupExists(id string) bool {
	for _, g := range h.state.Snapshot().Groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

func (h *Handler) layerExists(groupID, layerID string) bool {
	for _, g := range h.state.Snapshot().Groups {
		if g.ID != groupID {
			continue
		}
		for _, l := range g.Layers {
			if l.ID == layerID {
				return true
			}
		}
	}
	return false
}
