package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/geoimport/backend/internal/ingest"
	"github.com/geoimport/backend/internal/models"
)

// HandleStartImport queues one or more uploaded files for parsing.
// Accepts either {"fileId": "id"} or {"fileIds": ["id1", "id2", ...]}.
// Files are parsed strictly one at a time, in request order.
func (h *Handler) HandleStartImport(c echo.Context) error {
	var req struct {
		FileID  string   `json:"fileId"`
		FileIDs []string `json:"fileIds"`
	}
	if err := c.Bind(&req); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid request body", err))
	}

	var fileIDs []string
	if len(req.FileIDs) > 0 {
		fileIDs = req.FileIDs
	} else if req.FileID != "" {
		fileIDs = []string{req.FileID}
	} else {
		return RespondWithError(c, NewBadRequestError("fileId or fileIds is required", nil))
	}

	sessions := make([]*models.ImportSession, 0, len(fileIDs))
	for _, fid := range fileIDs {
		sess, err := h.sessions.StartImport(fid)
		if err != nil {
			return RespondWithError(c, FromDomainError(err))
		}
		sessions = append(sessions, sess)
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"sessions": sessions,
	})
}

// HandleImportStatus returns the status of an import session.
func (h *Handler) HandleImportStatus(c echo.Context) error {
	id := c.Param("sessionId")
	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return RespondWithError(c, NewNotFoundError("import session", id))
	}
	return c.JSON(http.StatusOK, sess)
}

// HandleListImportSessions returns all known import sessions.
func (h *Handler) HandleListImportSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.ListSessions())
}

// HandleCancelImport cancels a queued or running import. The file record
// returns to pending so the import can be retried.
func (h *Handler) HandleCancelImport(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.sessions.Cancel(id) {
		return RespondWithError(c, NewNotFoundError("import session", id))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelling"})
}

// HandleImportProgressStream streams import progress via SSE so the client
// sees smooth transitions without polling.
func (h *Handler) HandleImportProgressStream(c echo.Context) error {
	id := c.Param("sessionId")

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	if _, ok := h.sessions.GetSession(id); !ok {
		data, _ := json.Marshal(map[string]string{"error": "session not found"})
		fmt.Fprintf(c.Response(), "data: %s\n\n", data)
		c.Response().Flush()
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	lastProgress := -1.0
	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
			sess, ok := h.sessions.GetSession(id)
			if !ok {
				data, _ := json.Marshal(map[string]string{"error": "session not found"})
				fmt.Fprintf(c.Response(), "data: %s\n\n", data)
				c.Response().Flush()
				return nil
			}

			if sess.Progress != lastProgress {
				lastProgress = sess.Progress

				data, err := json.Marshal(map[string]interface{}{
					"status":       sess.Status,
					"progress":     sess.Progress,
					"featureCount": sess.FeatureCount,
					"layerCount":   sess.LayerCount,
					"error":        sess.Error,
				})
				if err != nil {
					continue
				}

				fmt.Fprintf(c.Response(), "data: %s\n\n", data)
				c.Response().Flush()
			}

			switch sess.Status {
			case models.ImportStatusComplete, models.ImportStatusError, models.ImportStatusCancelled:
				return nil
			}
		}
	}
}

// HandleGetGroups returns all layer groups in the workspace.
func (h *Handler) HandleGetGroups(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Snapshot().Groups)
}

// HandleGetGroupsMsgpack returns all layer groups in MessagePack format.
// Large group payloads are much smaller on the wire this way.
func (h *Handler) HandleGetGroupsMsgpack(c echo.Context) error {
	groups := h.state.Snapshot().Groups

	data, err := msgpack.Marshal(map[string]interface{}{
		"groups": groups,
		"total":  len(groups),
	})
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to encode msgpack", err))
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetViewBounds returns a group's bounds padded for initial map
// framing. The pad query param is a fraction of the larger bounds span.
func (h *Handler) HandleGetViewBounds(c echo.Context) error {
	id := c.Param("id")

	pad := 0.05
	if raw := c.QueryParam("pad"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return RespondWithError(c, NewValidationError("pad"))
		}
		pad = parsed
	}

	for _, group := range h.state.Snapshot().Groups {
		if group.ID != id {
			continue
		}
		bounds := ingest.PadViewBounds(&group, pad)
		if bounds == nil {
			return RespondWithError(c, NewNotFoundError("bounds for group", id))
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"groupId": id,
			"bounds":  bounds,
		})
	}

	return RespondWithError(c, NewNotFoundError("group", id))
}

// HandleQueryFeatures returns the features whose bounds intersect the
// bbox query param, given as "minLat,minLng,maxLat,maxLng".
func (h *Handler) HandleQueryFeatures(c echo.Context) error {
	raw := c.QueryParam("bbox")
	if raw == "" {
		return RespondWithError(c, NewBadRequestError("bbox query param is required", nil))
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return RespondWithError(c, NewValidationError("bbox"))
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return RespondWithError(c, NewValidationError("bbox"))
		}
		coords[i] = v
	}

	bounds := models.NewBounds(coords[0], coords[1], coords[2], coords[3])
	refs := h.state.QueryBounds(*bounds)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"features": refs,
		"total":    len(refs),
	})
}
