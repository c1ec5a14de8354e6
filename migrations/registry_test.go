package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	loginbridge "github.com/goliatone/go-login-bridge"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_InvokesPerDialect(t *testing.T) {
	var calls []string
	reg, err := Register(context.Background(), func(_ context.Context, dialect string, sourceLabel string, fsys fs.FS) error {
		if fsys == nil {
			t.Fatalf("expected a filesystem for %s", dialect)
		}
		if sourceLabel != "login-bridge" {
			t.Fatalf("unexpected source label %q", sourceLabel)
		}
		calls = append(calls, dialect)
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 registration calls, got %d", len(calls))
	}
	if calls[0] != DialectPostgres || calls[1] != DialectSQLite {
		t.Fatalf("unexpected registration order %v", calls)
	}
	if len(reg.Filesystems) != 2 {
		t.Fatalf("expected registration to list both filesystems")
	}
}

func TestRegister_RequiresFunc(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected nil register function to be rejected")
	}
}

func TestAccountLinksMigration_ExistsForBothDialects(t *testing.T) {
	root := loginbridge.GetMigrationsFS()
	paths := []string{
		"data/sql/migrations/20240101000000_bridge_account_links.up.sql",
		"data/sql/migrations/sqlite/20240101000000_bridge_account_links.up.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteAccountLinksMigration_Apply(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-account-links?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := fs.Sub(loginbridge.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"20240101000000_bridge_account_links.up.sql",
	); err != nil {
		t.Fatalf("apply account links migration: %v", err)
	}

	insertStatement := `
		INSERT INTO bridge_account_links
			(id, user_id, provider_id, profile_id, profile_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(
		context.Background(),
		insertStatement,
		"link-1",
		"user-1",
		"microsoft",
		"abc123",
		"Player",
		"2026-01-01T00:00:00Z",
		"2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert account link: %v", err)
	}

	if _, err := db.ExecContext(
		context.Background(),
		insertStatement,
		"link-2",
		"user-1",
		"microsoft",
		"def456",
		"Player",
		"2026-01-02T00:00:00Z",
		"2026-01-02T00:00:00Z",
	); err == nil {
		t.Fatalf("expected user/provider uniqueness violation")
	}

	if _, err := db.ExecContext(
		context.Background(),
		insertStatement,
		"link-3",
		"user-2",
		"microsoft",
		"def456",
		"Other",
		"2026-01-02T00:00:00Z",
		"2026-01-02T00:00:00Z",
	); err != nil {
		t.Fatalf("expected different user to insert cleanly: %v", err)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
