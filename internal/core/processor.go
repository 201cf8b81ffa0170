package core

// processor.go drives one row through the commit state machine:
//
//	Pending -> Validating -> Valid -> Committed
//	                      -> Invalid -> AwaitingRepair -> Validating (again)
//	                                 -> Abandoned (update mode, declined repair)
//
// Resolving an item_id against the store is part of Validating; a lookup
// failure moves the row straight to Abandoned. Commit failures in Valid
// also end in Abandoned. Every transition is appended to RowOutcome.Trace.

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/inventory/internal/logging"
)

// DefaultMaxRepairAttempts bounds rejected partial repair responses.
const DefaultMaxRepairAttempts = 3

var (
	errRepairDeclined = errors.New("repair declined")
	errMissingID      = errors.New("item_id is required for updates")
)

// RowState is a state of the per-row machine.
type RowState int

const (
	StatePending RowState = iota
	StateValidating
	StateValid
	StateInvalid
	StateAwaitingRepair
	StateCommitted
	StateAbandoned
)

func (s RowState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateAwaitingRepair:
		return "awaiting_repair"
	case StateCommitted:
		return "committed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s RowState) Terminal() bool {
	return s == StateCommitted || s == StateAbandoned
}

// RepairRequest asks the caller to correct every violated field of a row.
type RepairRequest struct {
	Row        Row                   // Original row as read from the source
	Values     map[string]string     // Current candidate values
	Attributes map[string]Attributes // Current platform attributes
	Violations []Violation
	Fields     []string // Fields that must all be corrected
	Attempt    int      // 1-based attempt within this repair session
	Notice     string   // Why a previous response was rejected
}

// RepairResponse carries corrected values keyed by field.
type RepairResponse struct {
	Corrected map[string]string
	Decline   bool
}

// Repairer is the synchronous repair boundary. Implementations block until
// the caller answers.
type Repairer interface {
	Repair(ctx context.Context, req RepairRequest) (RepairResponse, error)
}

// RepairFunc adapts a function to Repairer.
type RepairFunc func(ctx context.Context, req RepairRequest) (RepairResponse, error)

func (f RepairFunc) Repair(ctx context.Context, req RepairRequest) (RepairResponse, error) {
	return f(ctx, req)
}

// ProcessorConfig holds the immutable settings of a RowProcessor.
type ProcessorConfig struct {
	Platforms         []string         // Platforms for new rows that carry none
	Baseline          []string         // Platforms whose rules always apply without being stored
	MaxRepairAttempts int              // Rejected partial responses before abandoning
	Now               func() time.Time // Clock for LastModified
}

// RowOutcome is the terminal result of processing one row.
type RowOutcome struct {
	Row        Row
	State      RowState
	ID         int64
	Unchanged  bool
	Violations []Violation
	Err        error
	Trace      []RowState
}

func (o *RowOutcome) enter(ctx context.Context, s RowState) {
	from := o.State
	o.State = s
	o.Trace = append(o.Trace, s)
	if len(o.Trace) > 1 {
		logging.FromContext(ctx).Debug("row transition",
			"row", o.Row.Index,
			"from", from.String(),
			"to", s.String(),
		)
	}
}

// Report returns the BatchResult view of the outcome.
func (o RowOutcome) Report() RowReport {
	r := RowReport{
		Row:        o.Row.Index,
		Key:        o.Row.Key,
		State:      o.State,
		ID:         o.ID,
		Unchanged:  o.Unchanged,
		Violations: o.Violations,
	}
	if o.Err != nil {
		r.Reason = o.Err.Error()
	}
	return r
}

// Failed returns the artifact entry for an abandoned row.
func (o RowOutcome) Failed() FailedRecord {
	f := FailedRecord{
		Row:        o.Row,
		Violations: o.Violations,
		Error:      errorTag(o.Violations, o.Err),
	}
	if o.Err != nil {
		f.Reason = o.Err.Error()
	}
	return f
}

// RowProcessor runs the per-row state machine.
type RowProcessor struct {
	validator *Validator
	store     Store
	repairer  Repairer
	cfg       ProcessorConfig
}

// NewRowProcessor creates a processor. repairer may be nil, in which case
// invalid rows are abandoned in every mode.
func NewRowProcessor(v *Validator, store Store, repairer Repairer, cfg ProcessorConfig) *RowProcessor {
	if cfg.MaxRepairAttempts <= 0 {
		cfg.MaxRepairAttempts = DefaultMaxRepairAttempts
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RowProcessor{
		validator: v,
		store:     store,
		repairer:  repairer,
		cfg:       cfg,
	}
}

// Process drives row to a terminal state. It never returns an error: every
// failure is contained in the outcome.
func (p *RowProcessor) Process(ctx context.Context, row Row, mode Mode) RowOutcome {
	out := RowOutcome{Row: row}
	out.enter(ctx, StatePending)
	out.enter(ctx, StateValidating)

	draft, existing, err := p.prepare(ctx, row, mode)
	if err != nil {
		out.Err = err
		out.enter(ctx, StateAbandoned)
		return out
	}

	for {
		out.Violations = p.validator.Validate(draft, p.rulePlatforms(draft))
		if len(out.Violations) == 0 {
			out.enter(ctx, StateValid)
			p.commit(ctx, &out, draft, existing)
			return out
		}

		out.enter(ctx, StateInvalid)
		if mode != ModeImport || p.repairer == nil {
			out.enter(ctx, StateAbandoned)
			return out
		}

		out.enter(ctx, StateAwaitingRepair)
		if err := p.awaitRepair(ctx, row, &draft, out.Violations); err != nil {
			out.Err = err
			out.enter(ctx, StateAbandoned)
			return out
		}
		out.enter(ctx, StateValidating)
	}
}

// prepare builds the candidate draft. Rows naming an item_id are merged
// over the stored record: non-empty cells replace stored values.
func (p *RowProcessor) prepare(ctx context.Context, row Row, mode Mode) (Draft, *Record, error) {
	rawID := CleanCell(row.Values[ColItemID])

	if rawID == "" {
		if mode == ModeUpdate {
			return Draft{}, nil, errMissingID
		}
		d := draftFromRow(row)
		d.Platforms = p.platformsFor(row, nil)
		return d, nil, nil
	}

	id, ok := ParseID(rawID)
	if !ok {
		// Reported by the item_id rule.
		d := draftFromRow(row)
		d.Platforms = p.platformsFor(row, nil)
		return d, nil, nil
	}

	existing, err := p.store.Get(ctx, id)
	if err != nil {
		return Draft{}, nil, persistenceError(err, fmt.Sprintf("load item %d", id))
	}

	d := existing.Draft()
	d.Row = row.Index
	for _, c := range Columns {
		if v := row.Values[c]; strings.TrimSpace(v) != "" {
			d.Values[c] = v
		}
	}
	mergeAttributes(&d, row.Attributes)
	d.Platforms = p.platformsFor(row, &existing)
	return d, &existing, nil
}

// platformsFor picks the row's platforms, then the stored record's, then
// the configured batch platforms. A stored record with no platforms keeps
// none.
func (p *RowProcessor) platformsFor(row Row, existing *Record) []string {
	if len(row.Platforms) > 0 {
		return dedupe(row.Platforms)
	}
	if existing != nil {
		return dedupe(existing.Platforms)
	}
	return dedupe(p.cfg.Platforms)
}

// rulePlatforms is the draft's platforms followed by the baseline ones it
// does not already name.
func (p *RowProcessor) rulePlatforms(d Draft) []string {
	if len(p.cfg.Baseline) == 0 {
		return d.Platforms
	}
	return dedupe(append(slices.Clone(d.Platforms), p.cfg.Baseline...))
}

// awaitRepair runs one repair session. Responses must correct every
// violated field; partial responses are rejected without re-validation.
func (p *RowProcessor) awaitRepair(ctx context.Context, row Row, d *Draft, violations []Violation) error {
	fields := ViolatedFields(violations)
	req := RepairRequest{
		Row:        row,
		Values:     d.Clone().Values,
		Attributes: d.Clone().Attributes,
		Violations: violations,
		Fields:     fields,
	}

	for attempt := 1; ; attempt++ {
		req.Attempt = attempt
		resp, err := p.repairer.Repair(ctx, req)
		if err != nil {
			return errors.Wrap(errors.Mark(err, errRepairDeclined), "repair")
		}
		if resp.Decline {
			return errRepairDeclined
		}

		var missing []string
		for _, f := range fields {
			if _, ok := resp.Corrected[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) == 0 {
			applyCorrections(d, violations, resp.Corrected)
			return nil
		}

		logging.FromContext(ctx).Debug("partial repair rejected",
			"row", row.Index,
			"missing", missing,
			"attempt", attempt,
		)
		if attempt >= p.cfg.MaxRepairAttempts {
			return errors.Wrapf(errRepairDeclined, "incomplete repair after %d attempts", attempt)
		}
		req.Notice = "all violated fields must be corrected; missing: " + strings.Join(missing, ", ")
	}
}

// commit hands a valid draft to the store.
func (p *RowProcessor) commit(ctx context.Context, out *RowOutcome, d Draft, existing *Record) {
	rec, err := BuildRecord(d)
	if err != nil {
		out.Err = errors.Mark(err, ErrPersistence)
		out.enter(ctx, StateAbandoned)
		return
	}
	rec.LastModified = p.cfg.Now().UTC()

	if existing != nil {
		rec.ID = existing.ID
		out.ID = existing.ID
		if rec.Equal(*existing) {
			out.Unchanged = true
			out.enter(ctx, StateCommitted)
			return
		}
		if err := p.store.Update(ctx, existing.ID, rec); err != nil {
			out.Err = persistenceError(err, fmt.Sprintf("update item %d", existing.ID))
			out.enter(ctx, StateAbandoned)
			return
		}
		out.enter(ctx, StateCommitted)
		return
	}

	id, err := p.store.Insert(ctx, rec)
	if err != nil {
		out.Err = persistenceError(err, "insert item")
		out.enter(ctx, StateAbandoned)
		return
	}
	out.ID = id
	out.enter(ctx, StateCommitted)
}

// draftFromRow copies every column, present or empty, plus extra values.
func draftFromRow(row Row) Draft {
	d := Draft{
		Row:    row.Index,
		Values: make(map[string]string, len(Columns)),
	}
	for _, c := range Columns {
		d.Values[c] = row.Values[c]
	}
	mergeAttributes(&d, row.Attributes)
	return d
}

func mergeAttributes(d *Draft, attrs map[string]Attributes) {
	for platform, a := range attrs {
		for k, v := range a {
			d.Set(platform, k, v)
		}
	}
}

// applyCorrections routes each corrected field to the column, or to the
// attribute payload of every platform whose rule reported it.
func applyCorrections(d *Draft, violations []Violation, corrected map[string]string) {
	for field, value := range corrected {
		if IsColumn(field) {
			d.Set("", field, value)
			continue
		}
		applied := false
		for _, v := range violations {
			if v.Field != field {
				continue
			}
			d.Set(v.Platform, field, value)
			applied = true
		}
		if !applied {
			d.Set("", field, value)
		}
	}
}
