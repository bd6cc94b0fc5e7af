package models

import (
	"fmt"
	"time"
)

// Package is an external work-package record resolved from the package
// directory. The core only consumes these, it never creates them.
type Package struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PackageAssignment links a package to one line-shaped feature.
// At most one assignment exists per (GroupID, LayerID, LineStringID);
// the store enforces this with a keyed upsert.
type PackageAssignment struct {
	LineStringID int       `json:"lineStringId"`
	PackageID    string    `json:"packageId"`
	PackageName  string    `json:"packageName"`
	GroupID      string    `json:"groupId"`
	GroupName    string    `json:"groupName"`
	LayerID      string    `json:"layerId"`
	LayerName    string    `json:"layerName"`
	Timestamp    time.Time `json:"timestamp"`
}

// Key returns the upsert key identifying the assigned feature.
func (a *PackageAssignment) Key() string {
	return fmt.Sprintf("%s/%s/%d", a.GroupID, a.LayerID, a.LineStringID)
}
