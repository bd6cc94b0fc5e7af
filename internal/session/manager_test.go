package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/geoimport/backend/internal/ingest"
	"github.com/geoimport/backend/internal/models"
	"github.com/geoimport/backend/internal/store"
)

const lineStringDoc = `<?xml version="1.0" encoding="UTF-8"?>
<kml><Document>
  <Placemark><name>Segment A</name>
    <LineString><coordinates>10,20,0 11,21,0</coordinates></LineString>
  </Placemark>
</Document></kml>`

// fakeSource serves uploaded files from a temp directory.
type fakeSource struct {
	dir   string
	files map[string]*models.FileInfo
}

func newFakeSource(t *testing.T) *fakeSource {
	return &fakeSource{dir: t.TempDir(), files: make(map[string]*models.FileInfo)}
}

func (f *fakeSource) add(t *testing.T, id, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.dir, id), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	f.files[id] = &models.FileInfo{ID: id, Name: name, Size: int64(len(content)), Status: models.FileStatusPending}
}

func (f *fakeSource) Get(id string) (*models.FileInfo, error) {
	info, ok := f.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	return info, nil
}

func (f *fakeSource) GetFilePath(id string) (string, error) {
	if _, ok := f.files[id]; !ok {
		return "", fmt.Errorf("file not found: %s", id)
	}
	return filepath.Join(f.dir, id), nil
}

func newTestManager(t *testing.T, src *fakeSource) (*Manager, *store.Store) {
	st := store.New()
	for _, info := range src.files {
		st.AddFile(*info)
	}
	parser := ingest.NewParser(ingest.NewAssembler(nil))
	return NewManager(parser, src, st, zerolog.Nop()), st
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartImport_Success(t *testing.T) {
	src := newFakeSource(t)
	src.add(t, "f1", "route.kml", lineStringDoc)
	m, st := newTestManager(t, src)

	session, err := m.StartImport("f1")
	if err != nil {
		t.Fatalf("StartImport failed: %v", err)
	}

	waitFor(t, "session completion", func() bool {
		s, _ := m.GetSession(session.ID)
		return s.Status == models.ImportStatusComplete
	})

	s, _ := m.GetSession(session.ID)
	if s.FeatureCount != 1 || s.LayerCount != 1 {
		t.Errorf("unexpected session counters: %+v", s)
	}
	if s.Progress != 100 {
		t.Errorf("progress: got %v, want 100", s.Progress)
	}

	state := st.Snapshot()
	if len(state.Groups) != 1 {
		t.Fatalf("expected 1 group in store, got %d", len(state.Groups))
	}
	if state.Groups[0].Name != "route" {
		t.Errorf("group name: got %q", state.Groups[0].Name)
	}
	if state.Files[0].Status != models.FileStatusSuccess {
		t.Errorf("file status: got %s", state.Files[0].Status)
	}
}

func TestStartImport_SequentialOrdering(t *testing.T) {
	src := newFakeSource(t)
	for i := 0; i < 5; i++ {
		src.add(t, fmt.Sprintf("f%d", i), fmt.Sprintf("route_%d.kml", i), lineStringDoc)
	}
	m, st := newTestManager(t, src)

	for i := 0; i < 5; i++ {
		if _, err := m.StartImport(fmt.Sprintf("f%d", i)); err != nil {
			t.Fatalf("StartImport f%d failed: %v", i, err)
		}
	}

	waitFor(t, "all imports", func() bool {
		return len(st.Snapshot().Groups) == 5
	})

	// A single sequential worker commits groups in queue order.
	for i, g := range st.Snapshot().Groups {
		want := fmt.Sprintf("route_%d", i)
		if g.Name != want {
			t.Errorf("group %d: got %q, want %q", i, g.Name, want)
		}
	}
}

func TestStartImport_FailureIsolation(t *testing.T) {
	src := newFakeSource(t)
	src.add(t, "good1", "a.kml", lineStringDoc)
	src.add(t, "bad", "b.kml", "<kml><Document><Placemark>")
	src.add(t, "good2", "c.kml", lineStringDoc)
	m, st := newTestManager(t, src)

	var ids []string
	for _, fid := range []string{"good1", "bad", "good2"} {
		s, err := m.StartImport(fid)
		if err != nil {
			t.Fatalf("StartImport %s failed: %v", fid, err)
		}
		ids = append(ids, s.ID)
	}

	waitFor(t, "all sessions resolved", func() bool {
		for _, id := range ids {
			s, _ := m.GetSession(id)
			if s.Status != models.ImportStatusComplete && s.Status != models.ImportStatusError {
				return false
			}
		}
		return true
	})

	badSession, _ := m.GetSession(ids[1])
	if badSession.Status != models.ImportStatusError || badSession.Error == "" {
		t.Errorf("bad file session: %+v", badSession)
	}

	// The failure leaves the two good groups intact and importable.
	state := st.Snapshot()
	if len(state.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(state.Groups))
	}
	for _, f := range state.Files {
		switch f.ID {
		case "bad":
			if f.Status != models.FileStatusError || f.Error == "" {
				t.Errorf("bad file record: %+v", f)
			}
		default:
			if f.Status != models.FileStatusSuccess {
				t.Errorf("file %s: status %s", f.ID, f.Status)
			}
		}
	}
}

func TestStartImport_Validation(t *testing.T) {
	src := newFakeSource(t)
	src.add(t, "f1", "notes.txt", "not markup")
	m, _ := newTestManager(t, src)

	_, err := m.StartImport("f1")
	var verr *ingest.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ingest.ValidationError, got %v", err)
	}

	if _, err := m.StartImport("missing"); err == nil {
		t.Error("unknown file id must fail")
	}
}

func TestCancel(t *testing.T) {
	src := newFakeSource(t)
	src.add(t, "f1", "route.kml", lineStringDoc)
	m, st := newTestManager(t, src)

	if m.Cancel("unknown") {
		t.Error("cancelling an unknown session must return false")
	}

	session, err := m.StartImport("f1")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Cancel(session.ID) {
		t.Error("cancelling a known session must return true")
	}

	waitFor(t, "session resolution", func() bool {
		s, _ := m.GetSession(session.ID)
		return s.Status == models.ImportStatusCancelled || s.Status == models.ImportStatusComplete
	})

	// Whichever side of the race the cancel landed on, a cancelled file
	// record must be retry-eligible, not an error.
	s, _ := m.GetSession(session.ID)
	if s.Status == models.ImportStatusCancelled {
		if got := st.Snapshot().Files[0].Status; got != models.FileStatusPending {
			t.Errorf("cancelled file status: got %s, want pending", got)
		}
	}
}

func TestCleanupOldSessions(t *testing.T) {
	src := newFakeSource(t)
	src.add(t, "f1", "route.kml", lineStringDoc)
	m, _ := newTestManager(t, src)

	session, err := m.StartImport("f1")
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "completion", func() bool {
		s, _ := m.GetSession(session.ID)
		return s.Status == models.ImportStatusComplete
	})

	m.CleanupOldSessions(time.Hour)
	if _, ok := m.GetSession(session.ID); !ok {
		t.Error("recent session must survive cleanup")
	}

	m.CleanupOldSessions(0)
	if _, ok := m.GetSession(session.ID); ok {
		t.Error("old finished session must be cleaned up")
	}
}
