// Package session runs file imports. Queued files are parsed strictly
// sequentially by a single worker: the next file's parse does not begin
// until the current one has fully resolved. This bounds peak memory to
// one file's intermediate structures and keeps per-file progress
// reporting unambiguous.
package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/geoimport/backend/internal/ingest"
	"github.com/geoimport/backend/internal/models"
	"github.com/geoimport/backend/internal/store"
)

// SessionMaxAge is how long finished sessions are kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// queueCapacity bounds the number of imports waiting behind the worker.
const queueCapacity = 256

// FileSource is the slice of the storage layer the manager needs.
type FileSource interface {
	Get(id string) (*models.FileInfo, error)
	GetFilePath(id string) (string, error)
}

type sessionState struct {
	session     *models.ImportSession
	ctx         context.Context
	cancel      context.CancelFunc
	completedAt *time.Time
}

// Manager owns the import queue and its single worker goroutine.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
	queue    chan string // session IDs, processed in order
	parser   *ingest.Parser
	files    FileSource
	store    *store.Store
	log      zerolog.Logger
}

// NewManager creates a manager and starts its worker.
func NewManager(parser *ingest.Parser, files FileSource, st *store.Store, log zerolog.Logger) *Manager {
	m := &Manager{
		sessions: make(map[string]*sessionState),
		queue:    make(chan string, queueCapacity),
		parser:   parser,
		files:    files,
		store:    st,
		log:      log.With().Str("component", "import").Logger(),
	}
	go m.run()
	return m
}

// StartImport queues one uploaded file for parsing and returns its
// session immediately.
func (m *Manager) StartImport(fileID string) (*models.ImportSession, error) {
	info, err := m.files.Get(fileID)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", fileID)
	}
	if err := ingest.ValidateFile(info.Name, info.Size); err != nil {
		return nil, err
	}

	session := models.NewImportSession(uuid.New().String(), fileID, info.Name)
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.sessions[session.ID] = &sessionState{session: session, ctx: ctx, cancel: cancel}
	m.mu.Unlock()

	select {
	case m.queue <- session.ID:
	default:
		cancel()
		m.mu.Lock()
		delete(m.sessions, session.ID)
		m.mu.Unlock()
		return nil, fmt.Errorf("import queue full (%d pending)", queueCapacity)
	}

	m.store.ResetFile(fileID)
	return session, nil
}

// GetSession returns a session by ID.
func (m *Manager) GetSession(id string) (*models.ImportSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.session, true
}

// ListSessions returns all known sessions, newest state included.
func (m *Manager) ListSessions() []*models.ImportSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.ImportSession, 0, len(m.sessions))
	for _, state := range m.sessions {
		out = append(out, state.session)
	}
	return out
}

// Cancel requests cooperative cancellation of a session. A queued
// session is skipped when the worker reaches it; a running one unwinds
// at its next batch boundary.
func (m *Manager) Cancel(id string) bool {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	state.cancel()
	return true
}

// run is the worker loop. One session at a time, in queue order.
func (m *Manager) run() {
	for id := range m.queue {
		m.process(id)
	}
}

func (m *Manager) process(sessionID string) {
	m.mu.Lock()
	state, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	session := state.session
	ctx := state.ctx
	session.Status = models.ImportStatusParsing
	m.mu.Unlock()

	// A parse panic must not take the server down; it fails one file.
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("session", sessionID).Interface("panic", r).Msg("parse panicked")
			m.finish(sessionID, func(s *models.ImportSession) {
				s.Status = models.ImportStatusError
				s.Error = fmt.Sprintf("parse panicked: %v", r)
			})
			m.store.UpdateFile(session.FileID, models.FileStatusError, 100, "internal parse failure")
		}
	}()

	start := time.Now()
	m.log.Info().Str("session", sessionID).Str("file", session.FileName).Msg("starting parse")

	path, err := m.files.GetFilePath(session.FileID)
	if err != nil {
		m.fail(session, err)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		m.fail(session, fmt.Errorf("reading upload: %w", err))
		return
	}

	m.setProgress(session, 10)

	group, err := m.parser.ParseArchiveOrDocument(ctx, session.FileName, data,
		func(processed, total int) {
			progress := 10.0
			if total > 0 {
				progress = 10 + float64(processed)*80/float64(total)
			}
			if progress > 89.9 {
				progress = 89.9
			}
			m.setProgress(session, progress)
		})

	if err != nil {
		if ctx.Err() != nil {
			// Cancellation is not a failure: the file returns to a
			// retry-eligible state and partial output is discarded.
			m.log.Info().Str("session", sessionID).Msg("parse cancelled")
			m.finish(sessionID, func(s *models.ImportSession) {
				s.Status = models.ImportStatusCancelled
			})
			m.store.ResetFile(session.FileID)
			return
		}
		m.fail(session, err)
		return
	}

	elapsed := time.Since(start).Milliseconds()
	m.store.AddLayerGroup(*group)
	m.store.UpdateFile(session.FileID, models.FileStatusSuccess, 100, "")

	m.finish(sessionID, func(s *models.ImportSession) {
		s.Status = models.ImportStatusComplete
		s.Progress = 100
		s.GroupID = group.ID
		s.FeatureCount = group.FeatureCount()
		s.LayerCount = len(group.Layers)
		s.ProcessingTimeMs = elapsed
	})

	m.log.Info().
		Str("session", sessionID).
		Str("file", session.FileName).
		Int("features", group.FeatureCount()).
		Int("layers", len(group.Layers)).
		Int64("elapsed_ms", elapsed).
		Msg("parse complete")
}

// fail records a per-file parse failure. Previously ingested groups are
// untouched; only this file's record flips to error.
func (m *Manager) fail(session *models.ImportSession, err error) {
	m.log.Warn().Str("session", session.ID).Str("file", session.FileName).Err(err).Msg("parse failed")
	m.finish(session.ID, func(s *models.ImportSession) {
		s.Status = models.ImportStatusError
		s.Error = err.Error()
	})
	m.store.UpdateFile(session.FileID, models.FileStatusError, 100, err.Error())
}

func (m *Manager) setProgress(session *models.ImportSession, progress float64) {
	m.mu.Lock()
	if progress > session.Progress {
		session.Progress = progress
	}
	p := session.Progress
	m.mu.Unlock()
	m.store.UpdateFile(session.FileID, models.FileStatusPending, p, "")
}

func (m *Manager) finish(sessionID string, update func(*models.ImportSession)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	update(state.session)
	now := time.Now()
	state.completedAt = &now
}

// CleanupOldSessions drops finished sessions older than maxAge.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, state := range m.sessions {
		if state.completedAt != nil && state.completedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
