package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Project is a row in the projects table: one analyzed codebase, keyed by its
// filesystem path.
type Project struct {
	ID              int64     `json:"id"`
	Path            string    `json:"path"`
	Name            string    `json:"name"`
	PrimaryLanguage string    `json:"primary_language"`
	TotalFiles      int       `json:"total_files"`
	TotalLines      int       `json:"total_lines"`
	LastAnalyzedAt  time.Time `json:"last_analyzed_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Analysis is a row in the analyses table: one analysis run over a project.
type Analysis struct {
	ID             int64     `json:"id"`
	ProjectID      int64     `json:"project_id"`
	SessionID      string    `json:"session_id"`
	Summary        string    `json:"summary"`
	FunctionsCount int       `json:"functions_count"`
	ImportsCount   int       `json:"imports_count"`
	DurationMS     int       `json:"duration_ms"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository provides typed access to the projects and analyses tables.
type Repository struct {
	conn *sql.DB
}

// NewRepository wraps an open connection. The caller keeps ownership of conn.
func NewRepository(conn *sql.DB) *Repository {
	return &Repository{conn: conn}
}

// UpsertProject inserts or refreshes the project row for p.Path and returns
// its id. Counts and language are overwritten on every analysis run;
// created_at is preserved.
func (r *Repository) UpsertProject(ctx context.Context, p Project) (int64, error) {
	if r.conn == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO projects (path, name, primary_language, total_files, total_lines, last_analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			primary_language = excluded.primary_language,
			total_files = excluded.total_files,
			total_lines = excluded.total_lines,
			last_analyzed_at = excluded.last_analyzed_at`

	if _, err := r.conn.ExecContext(ctx, query,
		p.Path, p.Name, p.PrimaryLanguage, p.TotalFiles, p.TotalLines, p.LastAnalyzedAt,
	); err != nil {
		return 0, fmt.Errorf("failed to upsert project %q: %w", p.Path, err)
	}

	var id int64
	if err := r.conn.QueryRowContext(ctx, "SELECT id FROM projects WHERE path = ?", p.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read back project id for %q: %w", p.Path, err)
	}
	return id, nil
}

// GetProjectByPath returns the project row for path, or ErrNotFound.
func (r *Repository) GetProjectByPath(ctx context.Context, path string) (Project, error) {
	query := `
		SELECT id, path, name, primary_language, total_files, total_lines,
		       COALESCE(last_analyzed_at, created_at), created_at
		FROM projects WHERE path = ?`

	var p Project
	err := r.conn.QueryRowContext(ctx, query, path).Scan(
		&p.ID, &p.Path, &p.Name, &p.PrimaryLanguage,
		&p.TotalFiles, &p.TotalLines, &p.LastAnalyzedAt, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("failed to get project %q: %w", path, err)
	}
	return p, nil
}

// ListProjects returns projects ordered by most recently analyzed.
// limit <= 0 means no limit.
func (r *Repository) ListProjects(ctx context.Context, limit int) ([]Project, error) {
	query := `
		SELECT id, path, name, primary_language, total_files, total_lines,
		       COALESCE(last_analyzed_at, created_at), created_at
		FROM projects
		ORDER BY last_analyzed_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(
			&p.ID, &p.Path, &p.Name, &p.PrimaryLanguage,
			&p.TotalFiles, &p.TotalLines, &p.LastAnalyzedAt, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// InsertAnalysis records one analysis run and returns its id.
func (r *Repository) InsertAnalysis(ctx context.Context, a Analysis) (int64, error) {
	if r.conn == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO analyses (project_id, session_id, summary, functions_count,
			imports_count, duration_ms, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.conn.ExecContext(ctx, query,
		a.ProjectID, a.SessionID, a.Summary, a.FunctionsCount,
		a.ImportsCount, a.DurationMS, a.Status, a.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis for project %d: %w", a.ProjectID, err)
	}
	return res.LastInsertId()
}

// ListAnalyses returns the most recent analysis runs for a project.
// limit <= 0 means no limit.
func (r *Repository) ListAnalyses(ctx context.Context, projectID int64, limit int) ([]Analysis, error) {
	query := `
		SELECT id, project_id, session_id, summary, functions_count,
		       imports_count, duration_ms, status, error_message, created_at
		FROM analyses
		WHERE project_id = ?
		ORDER BY created_at DESC`
	args := []any{projectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var analyses []Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(
			&a.ID, &a.ProjectID, &a.SessionID, &a.Summary, &a.FunctionsCount,
			&a.ImportsCount, &a.DurationMS, &a.Status, &a.ErrorMessage, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// DeleteAnalysesOlderThan removes analysis runs created before cutoff and
// returns the number deleted. Keeps the table bounded alongside the
// monitoring retention pass.
func (r *Repository) DeleteAnalysesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.conn.ExecContext(ctx, "DELETE FROM analyses WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old analyses: %w", err)
	}
	return res.RowsAffected()
}
