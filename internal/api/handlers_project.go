package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// HandleListProjects returns the project directory.
func (h *Handler) HandleListProjects(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dir.Projects())
}

// HandleListPackages returns the package directory.
func (h *Handler) HandleListPackages(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dir.Packages())
}

// HandlePackageUsage returns how often each package has been assigned
// across all persisted imports.
func (h *Handler) HandlePackageUsage(c echo.Context) error {
	if h.imports == nil {
		return RespondWithError(c, NewServiceUnavailableError("import persistence is not configured"))
	}
	usage, err := h.imports.ListPackageUsage(c.Request().Context())
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to query package usage", err))
	}
	return c.JSON(http.StatusOK, usage)
}

// HandleSetProject binds the workspace to a project from the directory.
func (h *Handler) HandleSetProject(c echo.Context) error {
	var req struct {
		ProjectID string `json:"projectId"`
	}
	if err := c.Bind(&req); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid request body", err))
	}
	if req.ProjectID == "" {
		return RespondWithError(c, NewValidationError("projectId"))
	}

	project, ok := h.dir.Project(req.ProjectID)
	if !ok {
		return RespondWithError(c, NewNotFoundError("project", req.ProjectID))
	}

	h.state.SetProject(project.ID)
	return c.JSON(http.StatusOK, project)
}

// HandleGetProject returns the project the workspace is bound to.
func (h *Handler) HandleGetProject(c echo.Context) error {
	projectID := h.state.Snapshot().ProjectID
	if projectID == "" {
		return c.JSON(http.StatusOK, map[string]interface{}{"projectId": nil})
	}
	project, ok := h.dir.Project(projectID)
	if !ok {
		return c.JSON(http.StatusOK, map[string]interface{}{"projectId": projectID})
	}
	return c.JSON(http.StatusOK, project)
}

// HandleSaveImport confirms the current workspace and persists the
// resulting payload under the given project.
func (h *Handler) HandleSaveImport(c echo.Context) error {
	projectID := c.Param("id")
	if _, ok := h.dir.Project(projectID); !ok {
		return RespondWithError(c, NewNotFoundError("project", projectID))
	}
	if h.imports == nil {
		return RespondWithError(c, NewServiceUnavailableError("import persistence is not configured"))
	}
	if h.state.Snapshot().ProjectID != projectID {
		return RespondWithError(c, NewConflictError("workspace is not bound to this project"))
	}

	payload, err := h.state.ConfirmImportToMap()
	if err != nil {
		return RespondWithError(c, FromDomainError(err))
	}

	record, err := h.imports.SaveImport(c.Request().Context(), payload)
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to persist import", err))
	}

	return c.JSON(http.StatusCreated, record)
}

// HandleListImports returns persisted imports for a project.
func (h *Handler) HandleListImports(c echo.Context) error {
	projectID := c.Param("id")
	if _, ok := h.dir.Project(projectID); !ok {
		return RespondWithError(c, NewNotFoundError("project", projectID))
	}
	if h.imports == nil {
		return RespondWithError(c, NewServiceUnavailableError("import persistence is not configured"))
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	summaries, err := h.imports.ListImports(c.Request().Context(), limit)
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to list imports", err))
	}

	filtered := summaries[:0]
	for _, sum := range summaries {
		if sum.ProjectID == projectID {
			filtered = append(filtered, sum)
		}
	}

	return c.JSON(http.StatusOK, filtered)
}

// HandleGetImport fetches one persisted import with its full payload.
func (h *Handler) HandleGetImport(c echo.Context) error {
	importID := c.Param("importId")
	if h.imports == nil {
		return RespondWithError(c, NewServiceUnavailableError("import persistence is not configured"))
	}

	record, err := h.imports.GetImport(c.Request().Context(), importID)
	if err != nil {
		return RespondWithError(c, NewNotFoundError("import", importID))
	}
	if record.ProjectID != c.Param("id") {
		return RespondWithError(c, NewNotFoundError("import", importID))
	}

	return c.JSON(http.StatusOK, record)
}
