package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/geoimport/backend/internal/directory"
	"github.com/geoimport/backend/internal/persist"
	"github.com/geoimport/backend/internal/session"
	"github.com/geoimport/backend/internal/storage"
	"github.com/geoimport/backend/internal/store"
	"github.com/geoimport/backend/internal/upload"
)

// Handler handles API requests.
type Handler struct {
	files    storage.Store
	sessions *session.Manager
	uploads  *upload.Manager
	state    *store.Store
	imports  *persist.ImportStore
	dir      *directory.Directory
	version  string
	log      zerolog.Logger
}

// Dependencies holds everything the handler needs.
type Dependencies struct {
	Files    storage.Store
	Sessions *session.Manager
	Uploads  *upload.Manager
	State    *store.Store
	Imports  *persist.ImportStore
	Dir      *directory.Directory
	Version  string
	Log      zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	dir := deps.Dir
	if dir == nil {
		dir = directory.Default()
	}
	return &Handler{
		files:    deps.Files,
		sessions: deps.Sessions,
		uploads:  deps.Uploads,
		state:    deps.State,
		imports:  deps.Imports,
		dir:      dir,
		version:  deps.Version,
		log:      deps.Log.With().Str("component", "api").Logger(),
	}
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleStats returns the derived counters for the current workspace.
func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Stats())
}
