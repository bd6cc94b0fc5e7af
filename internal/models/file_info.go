package models

import "time"

// FileStatus is the lifecycle state of an uploaded file record.
// Transitions: pending -> success or pending -> error. A cancelled parse
// returns the record to pending so it stays retry-eligible.
type FileStatus string

const (
	FileStatusPending FileStatus = "pending"
	FileStatusSuccess FileStatus = "success"
	FileStatusError   FileStatus = "error"
)

// FileInfo represents metadata about an uploaded geographic file.
// Progress is 0-100 and monotonically non-decreasing while pending.
type FileInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	UploadedAt time.Time  `json:"uploadedAt"`
	Status     FileStatus `json:"status"`
	Progress   float64    `json:"progress"`
	Error      string     `json:"error,omitempty"`
}
