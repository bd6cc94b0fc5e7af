package persist

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"

	"github.com/geoimport/backend/internal/models"
)

// ImportStore persists confirmed imports in a DuckDB file so they survive
// server restarts and can be fetched back by ID.
type ImportStore struct {
	db     *sql.DB
	dbPath string
	log    zerolog.Logger
}

// NewImportStore opens (or creates) the DuckDB file at dbPath.
func NewImportStore(dbPath string, log zerolog.Logger) (*ImportStore, error) {
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS imports (
			id               VARCHAR PRIMARY KEY,
			project_id       VARCHAR NOT NULL,
			created_at       BIGINT NOT NULL,
			group_count      INTEGER NOT NULL,
			assignment_count INTEGER NOT NULL,
			payload          VARCHAR NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create imports table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS import_assignments (
			import_id      VARCHAR NOT NULL,
			package_id     VARCHAR NOT NULL,
			package_name   VARCHAR NOT NULL,
			group_id       VARCHAR NOT NULL,
			layer_id       VARCHAR NOT NULL,
			line_string_id INTEGER NOT NULL,
			assigned_at    BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create import_assignments table: %w", err)
	}

	return &ImportStore{
		db:     db,
		dbPath: dbPath,
		log:    log.With().Str("component", "persist").Logger(),
	}, nil
}

// SaveImport writes a confirmed import and returns its record.
func (s *ImportStore) SaveImport(ctx context.Context, payload *models.SavePayload) (*models.ImportRecord, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	record := &models.ImportRecord{
		ID:        uuid.New().String(),
		ProjectID: payload.ProjectID,
		CreatedAt: time.Now(),
		Payload:   *payload,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO imports (id, project_id, created_at, group_count, assignment_count, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.ProjectID, record.CreatedAt.UnixMilli(),
		len(payload.LayerGroups), len(payload.Assignments), string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to insert import: %w", err)
	}

	// Denormalized assignment rows for per-package queries
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO import_assignments
			(import_id, package_id, package_name, group_id, layer_id, line_string_id, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare assignment insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range payload.Assignments {
		if _, err := stmt.ExecContext(ctx, record.ID, a.PackageID, a.PackageName,
			a.GroupID, a.LayerID, a.LineStringID, a.Timestamp.UnixMilli()); err != nil {
			return nil, fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	s.log.Info().
		Str("importId", record.ID).
		Str("projectId", record.ProjectID).
		Int("groups", len(payload.LayerGroups)).
		Int("assignments", len(payload.Assignments)).
		Msg("import saved")

	return record, nil
}

// GetImport fetches a persisted import by ID.
func (s *ImportStore) GetImport(ctx context.Context, id string) (*models.ImportRecord, error) {
	var (
		projectID string
		createdMs int64
		raw       string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT project_id, created_at, payload FROM imports WHERE id = ?
	`, id).Scan(&projectID, &createdMs, &raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("import not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch import: %w", err)
	}

	record := &models.ImportRecord{
		ID:        id,
		ProjectID: projectID,
		CreatedAt: time.UnixMilli(createdMs),
	}
	if err := json.Unmarshal([]byte(raw), &record.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	return record, nil
}

// ImportSummary is a listing row without the full payload.
type ImportSummary struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"projectId"`
	CreatedAt       time.Time `json:"createdAt"`
	GroupCount      int       `json:"groupCount"`
	AssignmentCount int       `json:"assignmentCount"`
}

// ListImports returns the most recent imports, newest first.
func (s *ImportStore) ListImports(ctx context.Context, limit int) ([]ImportSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, created_at, group_count, assignment_count
		FROM imports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer rows.Close()

	summaries := make([]ImportSummary, 0, limit)
	for rows.Next() {
		var (
			sum       ImportSummary
			createdMs int64
		)
		if err := rows.Scan(&sum.ID, &sum.ProjectID, &createdMs, &sum.GroupCount, &sum.AssignmentCount); err != nil {
			return nil, err
		}
		sum.CreatedAt = time.UnixMilli(createdMs)
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// PackageUsage is an aggregate of how often a package was assigned.
type PackageUsage struct {
	PackageID   string `json:"packageId"`
	PackageName string `json:"packageName"`
	Count       int    `json:"count"`
}

// ListPackageUsage aggregates assignment rows across all persisted
// imports, most used first.
func (s *ImportStore) ListPackageUsage(ctx context.Context) ([]PackageUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT package_id, package_name, COUNT(*) AS n
		FROM import_assignments
		GROUP BY package_id, package_name
		ORDER BY n DESC, package_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query package usage: %w", err)
	}
	defer rows.Close()

	var usage []PackageUsage
	for rows.Next() {
		var u PackageUsage
		if err := rows.Scan(&u.PackageID, &u.PackageName, &u.Count); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// DeleteImport removes a persisted import and its assignment rows.
func (s *ImportStore) DeleteImport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM imports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete import: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("import not found: %s", id)
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM import_assignments WHERE import_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete import assignments: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *ImportStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
