package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"

	"github.com/JonMunkholm/inventory/internal/config"
	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/logging"
	"github.com/JonMunkholm/inventory/internal/plugin"
	"github.com/JonMunkholm/inventory/internal/store"
)

// App carries what every command shares. It is assembled once per
// invocation in the root command's pre-run hook.
type App struct {
	cfg        *config.Config
	configFile string

	store    store.Store
	catalog  *core.Catalog
	warnings []error

	in          io.Reader
	repairer    core.Repairer
	interactive func() bool
	now         func() time.Time
}

// Option customises an App, mainly for tests.
type Option func(*App)

// WithStore uses s instead of opening the configured backend. The caller
// keeps ownership and closes it.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithRepairer replaces the terminal prompt.
func WithRepairer(r core.Repairer) Option {
	return func(a *App) {
		a.repairer = r
		a.interactive = func() bool { return true }
	}
}

// WithInput sets the reader used for prompts and confirmations.
func WithInput(r io.Reader) Option {
	return func(a *App) { a.in = r }
}

// WithClock fixes the clock used for timestamps and artifact names.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func newApp(opts ...Option) *App {
	a := &App{
		in:  os.Stdin,
		now: time.Now,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// load reads configuration and builds the rule catalog. Plugin problems
// become warnings, never failures.
func (a *App) load(ctx context.Context, logOut io.Writer) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, logOut)

	plugins, warnings := plugin.Discover(ctx, cfg.Plugins.Dir)
	cat, catWarnings, err := core.NewCatalog(cfg.Plugins.Constraint, plugins...)
	if err != nil {
		return errors.Wrap(err, "build rule catalog")
	}
	a.catalog = cat
	a.warnings = append(warnings, catWarnings...)
	for _, w := range a.warnings {
		slog.Warn("plugin skipped", "error", w)
	}
	return nil
}

// withStore runs fn against the configured backend, or the injected one,
// and closes a backend it opened itself.
func (a *App) withStore(ctx context.Context, fn func(core.Store) error) error {
	if a.store != nil {
		return fn(a.store)
	}
	s, err := store.Open(ctx, a.cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Warn("close store", "error", err)
		}
	}()
	return fn(s)
}

func (a *App) validator() *core.Validator {
	return core.NewValidator(a.catalog)
}

func (a *App) sink() *core.FailureSink {
	return core.NewFailureSink(core.SinkConfig{
		Dir:          a.cfg.Failures.Dir,
		Format:       core.ArtifactFormat(strings.ToLower(a.cfg.Failures.Format)),
		KeepResolved: a.cfg.Failures.KeepResolved,
		Now:          a.now,
	})
}

// processor builds a RowProcessor. The repairer is attached only for
// interactive sessions; otherwise invalid rows go straight to the sink.
func (a *App) processor(s core.Store, platforms []string, nonInteractive bool, out io.Writer) *core.RowProcessor {
	if len(platforms) == 0 {
		platforms = a.cfg.Import.Platforms
	}
	baseline := a.baseline()
	a.checkPlatforms(append(slices.Clone(platforms), baseline...))

	var repairer core.Repairer
	if !nonInteractive && !a.cfg.Import.NonInteractive && a.interactive() {
		repairer = a.repairer
		if repairer == nil {
			repairer = NewPrompter(a.in, out)
		}
	}

	return core.NewRowProcessor(a.validator(), s, repairer, core.ProcessorConfig{
		Platforms:         platforms,
		Baseline:          baseline,
		MaxRepairAttempts: a.cfg.Import.MaxRepairAttempts,
		Now:               a.now,
	})
}

// baseline returns the configured baseline platforms; "none" disables them.
func (a *App) baseline() []string {
	b := a.cfg.Import.Baseline
	if len(b) == 1 && strings.EqualFold(strings.TrimSpace(b[0]), "none") {
		return nil
	}
	return b
}

// checkPlatforms warns about platforms that contribute no rules.
func (a *App) checkPlatforms(platforms []string) {
	for _, p := range platforms {
		switch {
		case a.catalog.Has(p):
		case a.catalog.Skipped(p):
			slog.Warn("platform rules skipped by version gate; only generic rules apply", "platform", p)
		default:
			slog.Warn("unknown platform; only generic rules apply", "platform", p)
		}
	}
}

// printSummary reports a finished batch and persists its failures.
func (a *App) printSummary(w io.Writer, res core.BatchResult) {
	fmt.Fprintf(w, "%s finished: %d committed, %d unchanged, %d failed (run %s)\n",
		res.Mode, res.Committed, res.Unchanged, res.Failed, res.RunID)

	if res.Failed == 0 {
		return
	}
	printViolations(w, res)

	h, err := a.sink().PersistResult(res)
	if err != nil {
		slog.Warn("failure report not written", "error", err)
		fmt.Fprintln(w, core.ArtifactWriteMessage(res.Failed, err))
		return
	}
	fmt.Fprintf(w, "failure report: %s\n", h.Path)
	fmt.Fprintf(w, "retry with: inventory retry %s\n", h.Path)
}
