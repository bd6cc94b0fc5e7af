package directory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/geoimport/backend/internal/models"
)

// Directory is the read-only lookup of projects and work packages the
// import flow can target. It is loaded once at startup; the server never
// creates or edits these records.
type Directory struct {
	projects []models.Project
	packages []models.Package
}

type directoryFile struct {
	Projects []models.Project `yaml:"projects"`
	Packages []models.Package `yaml:"packages"`
}

// Load reads a directory YAML file of the form:
//
//	projects:
//	  - id: proj-1
//	    name: North District Survey
//	packages:
//	  - id: pkg-1
//	    name: Fiber Run A
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory file: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing directory file: %w", err)
	}

	return &Directory{projects: file.Projects, packages: file.Packages}, nil
}

// LoadOrDefault tries Load and falls back to Default when the file is absent.
func LoadOrDefault(path string) (*Directory, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Default returns a small built-in directory for development setups.
func Default() *Directory {
	return &Directory{
		projects: []models.Project{
			{ID: "demo-project", Name: "Demo Project"},
		},
		packages: []models.Package{
			{ID: "demo-package", Name: "Demo Package"},
		},
	}
}

// Projects returns all projects.
func (d *Directory) Projects() []models.Project {
	out := make([]models.Project, len(d.projects))
	copy(out, d.projects)
	return out
}

// Packages returns all packages.
func (d *Directory) Packages() []models.Package {
	out := make([]models.Package, len(d.packages))
	copy(out, d.packages)
	return out
}

// Project looks up a project by ID.
func (d *Directory) Project(id string) (models.Project, bool) {
	for _, p := range d.projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

// Package looks up a package by ID.
func (d *Directory) Package(id string) (models.Package, bool) {
	for _, p := range d.packages {
		if p.ID == id {
			return p, true
		}
	}
	return models.Package{}, false
}
