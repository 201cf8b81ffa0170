package plugin

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/logging"
)

// Load reads and parses one manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read plugin %s", path)
	}
	return Parse(data, path)
}

// Discover loads every *.yaml and *.yml manifest in dir, in name order.
// A missing dir yields no plugins. A manifest that fails to load is
// reported as a warning and skipped; the rest still load.
func Discover(ctx context.Context, dir string) ([]core.SourcedContributor, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []error{errors.Wrapf(err, "read plugin directory %s", dir)}
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	log := logging.FromContext(ctx)
	var (
		found    []core.SourcedContributor
		warnings []error
	)
	for _, name := range names {
		m, err := Load(filepath.Join(dir, name))
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		log.Debug("plugin loaded", "platform", m.Platform, "version", m.Release, "rules", len(m.rules), "source", m.path)
		found = append(found, m)
	}
	return found, warnings
}
