package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB migrates and opens a fresh database under t.TempDir.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	if err := MigratePath(path); err != nil {
		t.Fatalf("MigratePath: %v", err)
	}
	conn, err := OpenWithDefaults(path)
	if err != nil {
		t.Fatalf("OpenWithDefaults: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(ConnectionConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")
	if err := MigratePath(path); err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if err := MigratePath(path); err != nil {
		t.Fatalf("second migration should be a no-op: %v", err)
	}

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if dirty {
		t.Error("database reported dirty after clean migrations")
	}
	if version == 0 {
		t.Error("version = 0 after migration")
	}
}

func TestProjectUpsert(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	p := Project{
		Path:            "/srv/app",
		Name:            "app",
		PrimaryLanguage: "go",
		TotalFiles:      10,
		TotalLines:      2500,
		LastAnalyzedAt:  time.Now().UTC(),
	}
	id, err := repo.UpsertProject(ctx, p)
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	if id == 0 {
		t.Fatal("id = 0")
	}

	t.Run("update keeps identity", func(t *testing.T) {
		p.TotalFiles = 12
		again, err := repo.UpsertProject(ctx, p)
		if err != nil {
			t.Fatalf("second upsert: %v", err)
		}
		if again != id {
			t.Errorf("upsert changed id from %d to %d", id, again)
		}

		got, err := repo.GetProjectByPath(ctx, "/srv/app")
		if err != nil {
			t.Fatalf("GetProjectByPath: %v", err)
		}
		if got.TotalFiles != 12 {
			t.Errorf("TotalFiles = %d, want 12 after update", got.TotalFiles)
		}
	})

	t.Run("missing project", func(t *testing.T) {
		if _, err := repo.GetProjectByPath(ctx, "/nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestAnalysisLifecycle(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	projectID, err := repo.UpsertProject(ctx, Project{
		Path: "/srv/app", Name: "app", LastAnalyzedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err := repo.InsertAnalysis(ctx, Analysis{
			ProjectID:      projectID,
			SessionID:      "s1",
			Summary:        "looks fine",
			FunctionsCount: 40 + i,
			ImportsCount:   15,
			DurationMS:     120,
			Status:         "success",
		})
		if err != nil {
			t.Fatalf("InsertAnalysis: %v", err)
		}
	}

	t.Run("list with limit", func(t *testing.T) {
		analyses, err := repo.ListAnalyses(ctx, projectID, 2)
		if err != nil {
			t.Fatalf("ListAnalyses: %v", err)
		}
		if len(analyses) != 2 {
			t.Fatalf("got %d analyses, want 2", len(analyses))
		}
		if analyses[0].SessionID != "s1" || analyses[0].Status != "success" {
			t.Errorf("unexpected row: %+v", analyses[0])
		}
	})

	t.Run("foreign key enforced", func(t *testing.T) {
		if _, err := repo.InsertAnalysis(ctx, Analysis{ProjectID: 9999}); err == nil {
			t.Error("insert with unknown project id should fail")
		}
	})

	t.Run("cleanup respects cutoff", func(t *testing.T) {
		deleted, err := repo.DeleteAnalysesOlderThan(ctx, time.Now().UTC().Add(-time.Hour))
		if err != nil {
			t.Fatalf("DeleteAnalysesOlderThan: %v", err)
		}
		if deleted != 0 {
			t.Errorf("deleted %d fresh analyses", deleted)
		}

		deleted, err = repo.DeleteAnalysesOlderThan(ctx, time.Now().UTC().Add(time.Hour))
		if err != nil {
			t.Fatalf("DeleteAnalysesOlderThan: %v", err)
		}
		if deleted != 3 {
			t.Errorf("deleted = %d, want 3", deleted)
		}
	})
}

func TestListProjectsOrder(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, path := range []string{"/a", "/b", "/c"} {
		_, err := repo.UpsertProject(ctx, Project{
			Path:           path,
			Name:           path[1:],
			LastAnalyzedAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("UpsertProject(%s): %v", path, err)
		}
	}

	projects, err := repo.ListProjects(ctx, 0)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("got %d projects, want 3", len(projects))
	}
	if projects[0].Path != "/c" {
		t.Errorf("first project = %s, want most recently analyzed (/c)", projects[0].Path)
	}
}
