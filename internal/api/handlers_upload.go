package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/geoimport/backend/internal/ingest"
	"github.com/geoimport/backend/internal/models"
	"github.com/geoimport/backend/internal/upload"
)

// HandleUploadFile accepts a file as base64 JSON and saves it to storage.
func (h *Handler) HandleUploadFile(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
		Data string `json:"data"` // Base64-encoded file content
	}
	if err := c.Bind(&req); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid JSON body", err))
	}

	if req.Name == "" || req.Data == "" {
		return RespondWithError(c, NewBadRequestError("name and data are required", nil))
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return RespondWithError(c, NewBadRequestError("invalid base64 data", err))
	}

	if err := ingest.ValidateFile(req.Name, int64(len(decoded))); err != nil {
		return RespondWithError(c, FromDomainError(err))
	}

	info, err := h.files.Save(req.Name, strings.NewReader(string(decoded)))
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to save file", err))
	}

	h.state.AddFile(*info)
	return c.JSON(http.StatusCreated, info)
}

// HandleUploadMultipart accepts a file as a multipart form upload.
func (h *Handler) HandleUploadMultipart(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return RespondWithError(c, NewBadRequestError("file form field is required", err))
	}

	if err := ingest.ValidateFile(fileHeader.Filename, fileHeader.Size); err != nil {
		return RespondWithError(c, FromDomainError(err))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to open upload", err))
	}
	defer src.Close()

	info, err := h.files.Save(fileHeader.Filename, io.LimitReader(src, ingest.MaxFileSize+1))
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to save file", err))
	}
	if info.Size > ingest.MaxFileSize {
		h.files.Delete(info.ID)
		return RespondWithError(c, NewValidationError("file size"))
	}

	h.state.AddFile(*info)
	return c.JSON(http.StatusCreated, info)
}

// HandleRecentFiles returns the most recently uploaded geographic files.
func (h *Handler) HandleRecentFiles(c echo.Context) error {
	files, err := h.files.List(50)
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to list files", err))
	}

	var geoFiles []*models.FileInfo
	for _, f := range files {
		nameLower := strings.ToLower(f.Name)
		if strings.HasSuffix(nameLower, ".kml") || strings.HasSuffix(nameLower, ".kmz") {
			geoFiles = append(geoFiles, f)
		}
	}

	if len(geoFiles) > 20 {
		geoFiles = geoFiles[:20]
	}

	return c.JSON(http.StatusOK, geoFiles)
}

// HandleGetFile returns metadata for a specific file.
func (h *Handler) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	info, err := h.files.Get(id)
	if err != nil {
		return RespondWithError(c, NewNotFoundError("file", id))
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile removes a file from storage and the workspace.
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if err := h.files.Delete(id); err != nil {
		return RespondWithError(c, NewNotFoundError("file", id))
	}
	h.state.RemoveFile(id)
	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the name of a file.
func (h *Handler) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid request body", err))
	}

	if req.Name == "" {
		return RespondWithError(c, NewValidationError("name"))
	}
	if err := ingest.ValidateFile(req.Name, 0); err != nil {
		return RespondWithError(c, FromDomainError(err))
	}

	info, err := h.files.Rename(id, req.Name)
	if err != nil {
		return RespondWithError(c, NewNotFoundError("file", id))
	}

	return c.JSON(http.StatusOK, info)
}

// HandleUploadChunk accepts a single chunk of a file as base64 JSON.
func (h *Handler) HandleUploadChunk(c echo.Context) error {
	var req struct {
		UploadID    string `json:"uploadId"`
		ChunkIndex  int    `json:"chunkIndex"`
		Data        string `json:"data"` // Base64-encoded chunk
		TotalChunks int    `json:"totalChunks"`
	}

	if err := c.Bind(&req); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid JSON body", err))
	}

	if req.UploadID == "" || req.Data == "" {
		return RespondWithError(c, NewBadRequestError("uploadId and data are required", nil))
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return RespondWithError(c, NewBadRequestError("invalid base64 data", err))
	}

	if err := h.files.SaveChunk(req.UploadID, req.ChunkIndex, strings.NewReader(string(decoded))); err != nil {
		return RespondWithError(c, NewInternalError("failed to save chunk", err))
	}

	return c.NoContent(http.StatusAccepted)
}

// HandleCompleteUpload starts async processing of uploaded chunks.
// Returns immediately with a job ID for tracking progress.
func (h *Handler) HandleCompleteUpload(c echo.Context) error {
	var req struct {
		UploadID       string `json:"uploadId"`
		Name           string `json:"name"`
		TotalChunks    int    `json:"totalChunks"`
		OriginalSize   int64  `json:"originalSize"`
		CompressedSize int64  `json:"compressedSize"`
		Encoding       string `json:"encoding"`
	}

	if err := c.Bind(&req); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid request body", err))
	}

	if req.UploadID == "" || req.Name == "" || req.TotalChunks <= 0 {
		return RespondWithError(c, NewBadRequestError("uploadId, name, and totalChunks are required", nil))
	}

	if err := ingest.ValidateFile(req.Name, req.OriginalSize); err != nil {
		return RespondWithError(c, FromDomainError(err))
	}

	job := h.uploads.StartJob(
		req.UploadID,
		req.Name,
		req.TotalChunks,
		req.OriginalSize,
		req.CompressedSize,
		req.Encoding,
	)

	h.log.Info().Str("job", job.ID).Str("fileName", req.Name).Msg("upload job started")

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

// HandleUploadJobStatus returns the state of an async upload job. When the
// job completed, the assembled file is registered in the workspace.
func (h *Handler) HandleUploadJobStatus(c echo.Context) error {
	jobID := c.Param("jobId")
	job, ok := h.uploads.GetJob(jobID)
	if !ok {
		return RespondWithError(c, NewNotFoundError("upload job", jobID))
	}

	if job.Status == upload.StatusComplete && job.FileInfo != nil {
		h.registerUploadedFile(job.FileInfo)
	}

	return c.JSON(http.StatusOK, job)
}

// HandleUploadJobStream streams upload processing progress via Server-Sent Events.
func (h *Handler) HandleUploadJobStream(c echo.Context) error {
	jobID := c.Param("jobId")

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	job, ok := h.uploads.GetJob(jobID)
	if !ok {
		data, _ := json.Marshal(map[string]string{"error": "job not found"})
		fmt.Fprintf(c.Response(), "data: %s\n\n", data)
		c.Response().Flush()
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
			job, ok = h.uploads.GetJob(jobID)
			if !ok {
				data, _ := json.Marshal(map[string]string{"error": "job not found"})
				fmt.Fprintf(c.Response(), "data: %s\n\n", data)
				c.Response().Flush()
				return nil
			}

			data, err := json.Marshal(map[string]interface{}{
				"jobId":         job.ID,
				"status":        job.Status,
				"progress":      job.Progress,
				"stage":         job.Stage,
				"stageProgress": job.StageProgress,
				"fileInfo":      job.FileInfo,
				"error":         job.Error,
			})
			if err != nil {
				continue
			}

			fmt.Fprintf(c.Response(), "data: %s\n\n", data)
			c.Response().Flush()

			if job.Status == upload.StatusComplete || job.Status == upload.StatusError {
				if job.Status == upload.StatusComplete && job.FileInfo != nil {
					h.registerUploadedFile(job.FileInfo)
				}
				return nil
			}
		}
	}
}

// registerUploadedFile adds a job's file to the workspace exactly once.
func (h *Handler) registerUploadedFile(info *models.FileInfo) {
	for _, f := range h.state.Snapshot().Files {
		if f.ID == info.ID {
			return
		}
	}
	h.state.AddFile(*info)
}
