package store

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/inventory/internal/logging"
)

// migrator is the backend half of a migration run.
type migrator interface {
	// applied reports whether version is recorded; it errors while the
	// schema_migrations table does not exist yet.
	applied(ctx context.Context, version string) (bool, error)
	// apply runs script and records version in one transaction.
	apply(ctx context.Context, version, script string) error
}

// migrate runs every pending *.sql file under dir in filename order.
// The version is the filename prefix before the first underscore;
// 000 creates schema_migrations and records itself.
func migrate(ctx context.Context, fsys fs.FS, dir string, m migrator) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return errors.Wrap(err, "read migrations")
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	log := logging.FromContext(ctx)
	for _, filename := range files {
		version := strings.Split(filename, "_")[0]

		exists, err := m.applied(ctx, version)
		if err != nil {
			if version != "000" {
				return errors.Wrapf(err, "schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			continue
		}

		script, err := fs.ReadFile(fsys, path.Join(dir, filename))
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}

		log.Debug("applying migration", "migration", filename, "version", version)
		if err := m.apply(ctx, version, string(script)); err != nil {
			return errors.Wrapf(err, "apply %s", filename)
		}
	}

	return nil
}
