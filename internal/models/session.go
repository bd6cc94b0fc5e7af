package models

// ImportStatus represents the status of a file import session.
type ImportStatus string

const (
	ImportStatusQueued    ImportStatus = "queued"
	ImportStatusParsing   ImportStatus = "parsing"
	ImportStatusComplete  ImportStatus = "complete"
	ImportStatusError     ImportStatus = "error"
	ImportStatusCancelled ImportStatus = "cancelled"
)

// ImportSession tracks the parse of one uploaded file. Files queued
// together are still parsed strictly sequentially, one session at a time.
type ImportSession struct {
	ID               string       `json:"id"`
	FileID           string       `json:"fileId"`
	FileName         string       `json:"fileName"`
	Status           ImportStatus `json:"status"`
	Progress         float64      `json:"progress"` // 0-100
	GroupID          string       `json:"groupId,omitempty"`
	FeatureCount     int          `json:"featureCount,omitempty"`
	LayerCount       int          `json:"layerCount,omitempty"`
	ProcessingTimeMs int64        `json:"processingTimeMs,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// NewImportSession creates a session in queued status.
func NewImportSession(id, fileID, fileName string) *ImportSession {
	return &ImportSession{
		ID:       id,
		FileID:   fileID,
		FileName: fileName,
		Status:   ImportStatusQueued,
		Progress: 0,
	}
}
