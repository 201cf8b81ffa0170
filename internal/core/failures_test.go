package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

var fixedNow = time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)

func newTestSink(t *testing.T, format ArtifactFormat) *FailureSink {
	t.Helper()
	return NewFailureSink(SinkConfig{
		Dir:    t.TempDir(),
		Format: format,
		Now:    func() time.Time { return fixedNow },
	})
}

func TestPersist_UpdateArtifact(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	runner := NewBatchRunner(newTestProcessor(t, store, nil))
	if _, err := runner.Run(ctx, NewSliceSource(validRow("Hat")), ModeImport); err != nil {
		t.Fatalf("import: %v", err)
	}

	res, err := runner.Run(ctx, NewSliceSource(Row{Values: map[string]string{ColItemID: "1", ColPrice: "-5"}}), ModeUpdate)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	sink := newTestSink(t, FormatJSON)
	h, err := sink.PersistResult(res)
	if err != nil {
		t.Fatalf("PersistResult: %v", err)
	}
	if got := filepath.Base(h.Path); got != "failed_update_2024-03-01T14-05-09.json" {
		t.Errorf("artifact name = %q", got)
	}

	art, err := LoadArtifact(h)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if len(art.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(art.Entries))
	}
	e := art.Entries[0]
	if e.Error != "invalid_price" {
		t.Errorf("error = %q, want invalid_price", e.Error)
	}
	if e.Values[ColPrice] != "-5" {
		t.Errorf("price = %q, want the original -5", e.Values[ColPrice])
	}
	if len(e.Violations) == 0 || e.Violations[0].Field != ColPrice {
		t.Errorf("violations = %v", e.Violations)
	}
	if art.Mode != ModeUpdate || art.RunID != res.RunID {
		t.Errorf("mode=%q run=%q, want update and %q", art.Mode, art.RunID, res.RunID)
	}
}

func TestPersist_NothingToWrite(t *testing.T) {
	sink := newTestSink(t, FormatJSON)
	h, err := sink.Persist(nil, "import")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if h.Path != "" {
		t.Errorf("Path = %q, want no artifact", h.Path)
	}
	entries, _ := os.ReadDir(sink.Dir())
	if len(entries) != 0 {
		t.Errorf("dir has %d files, want 0", len(entries))
	}
}

func TestPersist_NameCollision(t *testing.T) {
	sink := newTestSink(t, FormatCSV)
	records := []FailedRecord{{Row: validRow(""), Error: "missing_field:title"}}

	h1, err := sink.Persist(records, "import")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	h2, err := sink.Persist(records, "import")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if h1.Path == h2.Path {
		t.Fatal("second artifact overwrote the first")
	}
	if !strings.HasSuffix(h2.Path, "_2.csv") {
		t.Errorf("second path = %q, want _2 suffix", h2.Path)
	}
}

func TestPersist_CSVLayout(t *testing.T) {
	sink := newTestSink(t, FormatCSV)
	records := []FailedRecord{
		{Row: withValue(validRow("Hat"), ColPrice, "abc"), Error: "invalid_price"},
		{Row: validRow(""), Error: "missing_field:title"},
	}

	h, err := sink.Persist(records, "import")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	data, err := os.ReadFile(h.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header plus 2", len(lines))
	}
	if lines[0] != strings.Join(Columns, ",")+",error" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",invalid_price") || !strings.HasSuffix(lines[2], ",missing_field:title") {
		t.Errorf("rows = %q", lines[1:])
	}
}

func TestPersist_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	sink := NewFailureSink(SinkConfig{Dir: filepath.Join(blocker, "failed")})

	_, err := sink.Persist([]FailedRecord{{Row: validRow("")}}, "import")
	if !errors.Is(err, ErrArtifactWrite) {
		t.Fatalf("Persist() error = %v, want ErrArtifactWrite", err)
	}
	msg := ArtifactWriteMessage(1, err)
	if !strings.HasPrefix(msg, "1 rows failed; failure report could not be written: ") {
		t.Errorf("message = %q", msg)
	}
}

func TestRetry_Converges(t *testing.T) {
	for _, format := range []ArtifactFormat{FormatJSON, FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			store := newMemStore()
			ctx := context.Background()
			runner := NewBatchRunner(newTestProcessor(t, store, nil))
			sink := newTestSink(t, format)

			src := NewSliceSource(
				validRow("Hat"),
				withValue(validRow("Scarf"), ColPrice, "abc"),
				validRow(""),
			)
			res, err := runner.Run(ctx, src, ModeImport)
			if err != nil {
				t.Fatalf("import: %v", err)
			}
			h, err := sink.PersistResult(res)
			if err != nil {
				t.Fatalf("PersistResult: %v", err)
			}

			// A retry of an unchanged artifact fails the same rows again.
			loader := NewRetryLoader()
			replay, err := loader.Load(h)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if replay.Len() != 2 || replay.Mode() != ModeImport {
				t.Fatalf("Len=%d Mode=%q, want 2 import rows", replay.Len(), replay.Mode())
			}
			res2, err := runner.Run(ctx, replay, replay.Mode())
			if err != nil {
				t.Fatalf("retry: %v", err)
			}
			left, err := sink.Reconcile(h, res2)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if left != 2 {
				t.Errorf("unresolved = %d, want 2", left)
			}
			if format == FormatJSON {
				art, _ := LoadArtifact(h)
				for _, e := range art.Entries {
					if e.Attempts != 2 {
						t.Errorf("entry %d attempts = %d, want 2", e.Row, e.Attempts)
					}
				}
			}

			// Fix one row in the artifact, as a user would.
			fixArtifact(t, h, ColPrice, "abc", "15")

			replay, _ = loader.Load(h)
			res3, _ := runner.Run(ctx, replay, replay.Mode())
			left, err = sink.Reconcile(h, res3)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if left != 1 {
				t.Fatalf("unresolved = %d, want 1", left)
			}

			fixArtifact(t, h, ColTitle, "", "Boots")

			replay, _ = loader.Load(h)
			if replay.Len() != 1 {
				t.Fatalf("replay Len = %d, want only the unresolved row", replay.Len())
			}
			res4, _ := runner.Run(ctx, replay, replay.Mode())
			left, err = sink.Reconcile(h, res4)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if left != 0 {
				t.Errorf("unresolved = %d, want 0", left)
			}
			if _, err := os.Stat(h.Path); !os.IsNotExist(err) {
				t.Errorf("artifact still exists after every entry resolved")
			}

			all, _ := store.ReadAll(ctx)
			if len(all) != 3 {
				t.Errorf("store has %d records, want 3 with no duplicates", len(all))
			}
		})
	}
}

func TestReconcile_KeepResolved(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	runner := NewBatchRunner(newTestProcessor(t, store, nil))
	sink := NewFailureSink(SinkConfig{Dir: t.TempDir(), KeepResolved: true, Now: func() time.Time { return fixedNow }})

	res, _ := runner.Run(ctx, NewSliceSource(validRow("")), ModeImport)
	h, err := sink.PersistResult(res)
	if err != nil {
		t.Fatalf("PersistResult: %v", err)
	}
	fixArtifact(t, h, ColTitle, "", "Hat")

	replay, _ := NewRetryLoader().Load(h)
	res2, _ := runner.Run(ctx, replay, replay.Mode())
	if _, err := sink.Reconcile(h, res2); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	art, err := LoadArtifact(h)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if art.Unresolved() != 0 || !art.Entries[0].Resolved {
		t.Errorf("entry not marked resolved: %+v", art.Entries[0])
	}
	replay, _ = NewRetryLoader().Load(h)
	if replay.Len() != 0 {
		t.Errorf("replay Len = %d, want 0", replay.Len())
	}
}

func TestListAndPruneArtifacts(t *testing.T) {
	dir := t.TempDir()
	old := NewFailureSink(SinkConfig{Dir: dir, Now: func() time.Time { return fixedNow }})
	records := []FailedRecord{{Row: validRow(""), Error: "missing_field:title"}}

	h1, _ := old.Persist(records, "import")
	h2, _ := old.Persist(records, "update")
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(h1.Path, past, past); err != nil {
		t.Fatal(err)
	}

	infos, err := ListArtifacts(dir)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("listed %d, want 2", len(infos))
	}
	if infos[0].Handle.Path != h1.Path {
		t.Errorf("first = %q, want the oldest", infos[0].Handle.Path)
	}
	if infos[1].Mode != ModeUpdate || infos[1].Unresolved != 1 {
		t.Errorf("second = %+v", infos[1])
	}

	removed, err := PruneArtifacts(dir, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneArtifacts: %v", err)
	}
	if len(removed) != 1 || removed[0] != h1.Path {
		t.Errorf("removed = %v, want [%s]", removed, h1.Path)
	}
	if _, err := os.Stat(h2.Path); err != nil {
		t.Errorf("recent artifact removed: %v", err)
	}
}

func TestListArtifacts_MissingDir(t *testing.T) {
	infos, err := ListArtifacts(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(infos) != 0 {
		t.Errorf("ListArtifacts() = %v, %v; want empty and no error", infos, err)
	}
}

// fixArtifact edits an unresolved entry the way a user would edit the file.
func fixArtifact(t *testing.T, h ArtifactHandle, col, from, to string) {
	t.Helper()
	art, err := LoadArtifact(h)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	for i := range art.Entries {
		e := &art.Entries[i]
		if !e.Resolved && e.Values[col] == from {
			e.Values[col] = to
			break
		}
	}
	if err := writeArtifact(h, art); err != nil {
		t.Fatalf("writeArtifact: %v", err)
	}
}
