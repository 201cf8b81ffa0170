package core

// failures.go persists abandoned rows so no work is silently lost.
//
// Artifacts are named failed_<label>_<timestamp>.<json|csv> and written
// atomically (temp file + rename), so a crash never leaves a truncated
// report. A retry does not create a new artifact: Reconcile updates the
// replayed one in place, marking committed entries resolved and refreshing
// the violations of entries that failed again. This keeps one entry per
// abandoned row no matter how many retries it takes.

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ArtifactFormat selects the artifact encoding.
type ArtifactFormat string

const (
	FormatJSON ArtifactFormat = "json"
	FormatCSV  ArtifactFormat = "csv"
)

// artifactVersion is bumped when the JSON layout changes.
const artifactVersion = 1

// timestampLayout produces names like failed_import_2024-03-01T14-05-09.json.
const timestampLayout = "2006-01-02T15-04-05"

// ErrorColumn is the category tag column appended to CSV artifacts.
const ErrorColumn = "error"

// ArtifactHandle locates a persisted artifact.
type ArtifactHandle struct {
	Path   string
	Format ArtifactFormat
}

// HandleForPath builds a handle, inferring the format from the extension.
func HandleForPath(path string) ArtifactHandle {
	f := FormatJSON
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f = FormatCSV
	}
	return ArtifactHandle{Path: path, Format: f}
}

// Artifact is the decoded content of a failure report.
type Artifact struct {
	Version   int             `json:"version"`
	Label     string          `json:"label"`
	Mode      Mode            `json:"mode"`
	RunID     string          `json:"run_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Columns   []string        `json:"columns"`
	Entries   []ArtifactEntry `json:"entries"`
}

// ArtifactEntry is one abandoned row.
type ArtifactEntry struct {
	Key        string                `json:"key"`
	Row        int                   `json:"row"`
	Values     map[string]string     `json:"values"`
	Platforms  []string              `json:"platforms,omitempty"`
	Attributes map[string]Attributes `json:"attributes,omitempty"`
	Error      string                `json:"error"`
	Reason     string                `json:"reason,omitempty"`
	Violations []Violation           `json:"violations"`
	Attempts   int                   `json:"attempts"`
	Resolved   bool                  `json:"resolved"`
}

// Unresolved returns the number of entries still awaiting a retry.
func (a *Artifact) Unresolved() int {
	n := 0
	for _, e := range a.Entries {
		if !e.Resolved {
			n++
		}
	}
	return n
}

// SinkConfig holds the immutable settings of a FailureSink.
type SinkConfig struct {
	Dir          string
	Format       ArtifactFormat
	KeepResolved bool             // Keep fully resolved artifacts instead of deleting them
	Now          func() time.Time // Clock for artifact names
}

// FailureSink writes and reconciles failure artifacts.
type FailureSink struct {
	cfg SinkConfig
}

// NewFailureSink creates a sink.
func NewFailureSink(cfg SinkConfig) *FailureSink {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &FailureSink{cfg: cfg}
}

// Dir returns the artifact directory.
func (s *FailureSink) Dir() string {
	return s.cfg.Dir
}

// Persist writes records, in the order given, to a new artifact tagged
// with label. Errors match ErrArtifactWrite and are non-fatal to callers.
func (s *FailureSink) Persist(records []FailedRecord, label string) (ArtifactHandle, error) {
	mode, ok := ParseMode(label)
	if !ok {
		mode = ModeImport
	}
	return s.persist(records, label, mode, "")
}

// PersistResult writes the abandoned rows of a batch run.
func (s *FailureSink) PersistResult(res BatchResult) (ArtifactHandle, error) {
	return s.persist(res.Abandoned, string(res.Mode), res.Mode, res.RunID)
}

func (s *FailureSink) persist(records []FailedRecord, label string, mode Mode, runID string) (ArtifactHandle, error) {
	if len(records) == 0 {
		return ArtifactHandle{}, nil
	}

	now := s.cfg.Now()
	art := &Artifact{
		Version:   artifactVersion,
		Label:     label,
		Mode:      mode,
		RunID:     runID,
		CreatedAt: now.UTC(),
		Columns:   Columns,
	}
	for _, r := range records {
		key := r.Row.Key
		if key == "" {
			key = RowKey(r.Row)
		}
		art.Entries = append(art.Entries, ArtifactEntry{
			Key:        key,
			Row:        r.Row.Index,
			Values:     r.Row.Values,
			Platforms:  r.Row.Platforms,
			Attributes: r.Row.Attributes,
			Error:      r.Error,
			Reason:     r.Reason,
			Violations: r.Violations,
			Attempts:   1,
		})
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return ArtifactHandle{}, artifactError(err, "create "+s.cfg.Dir)
	}

	path, err := s.uniquePath(label, now)
	if err != nil {
		return ArtifactHandle{}, err
	}
	h := ArtifactHandle{Path: path, Format: s.cfg.Format}
	if err := writeArtifact(h, art); err != nil {
		return ArtifactHandle{}, err
	}
	return h, nil
}

// uniquePath returns the artifact name for now, suffixed on collision.
func (s *FailureSink) uniquePath(label string, now time.Time) (string, error) {
	base := fmt.Sprintf("failed_%s_%s", label, now.Format(timestampLayout))
	ext := "." + string(s.cfg.Format)

	for n := 1; n < 1000; n++ {
		name := base + ext
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(s.cfg.Dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", errors.Wrapf(ErrArtifactWrite, "no free artifact name for %s", base)
}

// Reconcile folds a retry run back into the artifact it replayed.
// Committed entries are marked resolved; entries that failed again get
// fresh violations and an incremented attempt count. When nothing is left
// unresolved the artifact is removed unless KeepResolved is set.
// Returns the number of unresolved entries.
func (s *FailureSink) Reconcile(h ArtifactHandle, res BatchResult) (int, error) {
	art, err := LoadArtifact(h)
	if err != nil {
		return 0, err
	}

	reports := make(map[string]RowReport, len(res.Rows))
	for _, r := range res.Rows {
		reports[r.Key] = r
	}
	failed := make(map[string]FailedRecord, len(res.Abandoned))
	for _, f := range res.Abandoned {
		failed[f.Row.Key] = f
	}

	for i := range art.Entries {
		e := &art.Entries[i]
		if e.Resolved {
			continue
		}
		rep, ok := reports[e.Key]
		if !ok {
			continue
		}
		switch rep.State {
		case StateCommitted:
			e.Resolved = true
		case StateAbandoned:
			e.Attempts++
			if f, ok := failed[e.Key]; ok {
				e.Error = f.Error
				e.Reason = f.Reason
				e.Violations = renumber(f.Violations, e.Row)
				e.Values = f.Row.Values
			}
		}
	}

	unresolved := art.Unresolved()
	if unresolved == 0 && !s.cfg.KeepResolved {
		if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
			return 0, artifactError(err, "remove "+h.Path)
		}
		return 0, nil
	}

	if err := writeArtifact(h, art); err != nil {
		return unresolved, err
	}
	return unresolved, nil
}

// renumber points violations back at the row's original position.
func renumber(vs []Violation, row int) []Violation {
	out := make([]Violation, len(vs))
	for i, v := range vs {
		v.Row = row
		out[i] = v
	}
	return out
}

// LoadArtifact decodes an artifact from disk.
func LoadArtifact(h ArtifactHandle) (*Artifact, error) {
	f, err := os.Open(h.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open artifact %s", h.Path)
	}
	defer f.Close()

	if h.Format == FormatCSV {
		return decodeCSVArtifact(f, h.Path)
	}

	var art Artifact
	if err := json.NewDecoder(f).Decode(&art); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "decode artifact %s", h.Path),
			"failure reports are JSON files written by import or update")
	}
	if art.Mode == "" {
		art.Mode = modeFromName(h.Path)
	}
	for i := range art.Entries {
		if art.Entries[i].Key == "" {
			art.Entries[i].Key = RowKey(Row{Index: art.Entries[i].Row, Values: art.Entries[i].Values})
		}
	}
	return &art, nil
}

func decodeCSVArtifact(f *os.File, path string) (*Artifact, error) {
	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Columns) + 1
	all, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "decode artifact %s", path)
	}
	if len(all) == 0 {
		return nil, errors.Newf("artifact %s is empty", path)
	}

	art := &Artifact{
		Version: artifactVersion,
		Label:   string(modeFromName(path)),
		Mode:    modeFromName(path),
		Columns: Columns,
	}
	if info, err := f.Stat(); err == nil {
		art.CreatedAt = info.ModTime().UTC()
	}
	for i, rec := range all[1:] {
		values := make(map[string]string, len(Columns))
		for j, c := range Columns {
			values[c] = rec[j]
		}
		row := Row{Index: i + 1, Values: values}
		art.Entries = append(art.Entries, ArtifactEntry{
			Key:      RowKey(row),
			Row:      row.Index,
			Values:   values,
			Error:    rec[len(Columns)],
			Attempts: 1,
		})
	}
	return art, nil
}

// writeArtifact encodes art and replaces h.Path atomically.
func writeArtifact(h ArtifactHandle, art *Artifact) error {
	dir := filepath.Dir(h.Path)
	tmp, err := os.CreateTemp(dir, ".failed-*.tmp")
	if err != nil {
		return artifactError(err, "create temp file in "+dir)
	}
	defer os.Remove(tmp.Name())

	if h.Format == FormatCSV {
		w := csv.NewWriter(tmp)
		header := append(append([]string{}, Columns...), ErrorColumn)
		_ = w.Write(header)
		for _, e := range art.Entries {
			if e.Resolved {
				continue
			}
			row := Row{Values: e.Values}
			_ = w.Write(append(row.Cells(), e.Error))
		}
		w.Flush()
		err = w.Error()
	} else {
		enc := json.NewEncoder(tmp)
		enc.SetIndent("", "  ")
		err = enc.Encode(art)
	}
	if err != nil {
		tmp.Close()
		return artifactError(err, "encode "+h.Path)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return artifactError(err, "sync "+h.Path)
	}
	if err := tmp.Close(); err != nil {
		return artifactError(err, "close "+h.Path)
	}
	if err := os.Rename(tmp.Name(), h.Path); err != nil {
		return artifactError(err, "rename "+h.Path)
	}
	return nil
}

func artifactError(err error, op string) error {
	return errors.Mark(errors.Wrap(err, op), ErrArtifactWrite)
}

// modeFromName infers the mode from failed_<mode>_<ts> file names.
func modeFromName(path string) Mode {
	name := filepath.Base(path)
	if strings.HasPrefix(name, "failed_update_") {
		return ModeUpdate
	}
	return ModeImport
}

// ArtifactInfo summarises an artifact for listing.
type ArtifactInfo struct {
	Handle     ArtifactHandle
	Mode       Mode
	ModTime    time.Time
	Entries    int
	Unresolved int
}

// ListArtifacts returns the artifacts in dir, oldest first.
func ListArtifacts(dir string) ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}

	var out []ArtifactInfo
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, "failed_") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".csv" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		h := HandleForPath(filepath.Join(dir, name))
		ai := ArtifactInfo{Handle: h, Mode: modeFromName(name), ModTime: info.ModTime()}
		if art, err := LoadArtifact(h); err == nil {
			ai.Mode = art.Mode
			ai.Entries = len(art.Entries)
			ai.Unresolved = art.Unresolved()
		}
		out = append(out, ai)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ModTime.Before(out[j].ModTime)
	})
	return out, nil
}

// PruneArtifacts deletes artifacts in dir last modified before cutoff.
// Retention is an explicit operator action; the sink never prunes.
func PruneArtifacts(dir string, cutoff time.Time) ([]string, error) {
	infos, err := ListArtifacts(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, ai := range infos {
		if !ai.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(ai.Handle.Path); err != nil {
			return removed, errors.Wrapf(err, "remove %s", ai.Handle.Path)
		}
		removed = append(removed, ai.Handle.Path)
	}
	return removed, nil
}

// ArtifactWriteMessage is the user-facing report when Persist fails.
func ArtifactWriteMessage(failed int, err error) string {
	return fmt.Sprintf("%d rows failed; failure report could not be written: %s", failed, errors.UnwrapAll(err).Error())
}
