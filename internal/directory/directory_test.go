package directory

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
projects:
  - id: proj-1
    name: North District Survey
  - id: proj-2
    name: South Ring
packages:
  - id: pkg-1
    name: Fiber Run A
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}

	dir, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(dir.Projects()) != 2 {
		t.Errorf("expected 2 projects, got %d", len(dir.Projects()))
	}
	if len(dir.Packages()) != 1 {
		t.Errorf("expected 1 package, got %d", len(dir.Packages()))
	}

	proj, ok := dir.Project("proj-2")
	if !ok || proj.Name != "South Ring" {
		t.Errorf("Project lookup: got %+v, ok=%v", proj, ok)
	}
	if _, ok := dir.Project("missing"); ok {
		t.Error("expected missing project to not be found")
	}
	pkg, ok := dir.Package("pkg-1")
	if !ok || pkg.Name != "Fiber Run A" {
		t.Errorf("Package lookup: got %+v, ok=%v", pkg, ok)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("projects: {not a list"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir, err := LoadOrDefault("")
	if err != nil {
		t.Fatal(err)
	}
	if len(dir.Projects()) == 0 || len(dir.Packages()) == 0 {
		t.Error("default directory must not be empty")
	}

	dir, err = LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dir.Projects()) == 0 {
		t.Error("absent path must fall back to defaults")
	}
}
