package models

import "time"

// Project is a record from the external project directory.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SavePayload is the flat payload handed to the persistence layer when a
// confirmed import is saved.
type SavePayload struct {
	ProjectID   string              `json:"project_id"`
	Assignments []PackageAssignment `json:"assignments"`
	LayerGroups []LayerGroup        `json:"layer_groups"`
}

// ImportRecord is a persisted, confirmed import fetched back by ID.
type ImportRecord struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"projectId"`
	CreatedAt time.Time   `json:"createdAt"`
	Payload   SavePayload `json:"payload"`
}
