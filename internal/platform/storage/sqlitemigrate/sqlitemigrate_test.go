package sqlitemigrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyRunsMigrationsOnce(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	migrations := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
CREATE TABLE things (id TEXT PRIMARY KEY);
-- +migrate Down
DROP TABLE things;
`)},
		"0002_alter.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
ALTER TABLE things ADD COLUMN name TEXT;
`)},
	}

	if err := Apply(context.Background(), db, migrations); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Re-applying must be a no-op.
	if err := Apply(context.Background(), db, migrations); err != nil {
		t.Fatalf("re-apply: %v", err)
	}

	if _, err := db.Exec("INSERT INTO things (id, name) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("applied migrations = %d, want 2", count)
	}
}

func TestApplyToleratesExistingDDL(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE things (id TEXT PRIMARY KEY)"); err != nil {
		t.Fatalf("pre-create: %v", err)
	}
	migrations := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
	}
	if err := Apply(context.Background(), db, migrations); err != nil {
		t.Fatalf("apply over existing table: %v", err)
	}
}

func TestExtractUp(t *testing.T) {
	t.Parallel()

	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;"
	got := ExtractUp(content)
	if got != "\nCREATE TABLE a (id TEXT);\n" {
		t.Fatalf("unexpected up section: %q", got)
	}
	if ExtractUp("SELECT 1;") != "SELECT 1;" {
		t.Fatal("bare content should be returned unchanged")
	}
}
