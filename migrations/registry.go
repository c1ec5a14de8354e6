// Package migrations hands the embedded bridge schema to a host migration
// runner, one registration per SQL dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	loginbridge "github.com/goliatone/go-login-bridge"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// RegisterFunc receives one dialect's migration filesystem. The host decides
// what to do with it, typically client.RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Registration struct {
	SourceLabel string
	Filesystems []FilesystemSpec
}

// Filesystems splits the embedded migration tree into its per-dialect views.
// The postgres view is the tree root; sqlite files live under sqlite/.
func Filesystems() ([]FilesystemSpec, error) {
	root := loginbridge.GetMigrationsFS()

	base, err := fs.Sub(root, "data/sql/migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations: data/sql/migrations not found: %w", err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{
			Dialect: DialectPostgres,
			Path:    "data/sql/migrations",
			FS:      base,
		},
		{
			Dialect: DialectSQLite,
			Path:    "data/sql/migrations/sqlite",
			FS:      sqliteFS,
		},
	}

	for _, fsys := range filesystems {
		matches, globErr := fs.Glob(fsys.FS, "*.up.sql")
		if globErr != nil {
			return nil, fmt.Errorf("migrations: glob %s %s: %w", fsys.Dialect, fsys.Path, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", fsys.Dialect, fsys.Path)
		}
	}

	return filesystems, nil
}

// Register invokes registerFn once per dialect filesystem.
func Register(ctx context.Context, registerFn RegisterFunc) (Registration, error) {
	reg := Registration{SourceLabel: "login-bridge"}

	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, fsys := range reg.Filesystems {
		if fsys.FS == nil {
			return reg, fmt.Errorf("migrations: filesystem for %s is nil", fsys.Dialect)
		}
		if err := registerFn(ctx, fsys.Dialect, reg.SourceLabel, fsys.FS); err != nil {
			return reg, fmt.Errorf(
				"migrations: register %s (%s): %w",
				fsys.Dialect,
				strings.TrimSpace(fsys.Path),
				err,
			)
		}
	}

	return reg, nil
}
