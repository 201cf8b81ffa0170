// Package core provides the inventory ingestion pipeline: rule catalog,
// validation, the per-row state machine, batch runs, failure capture and
// retry, plus the field projection and filtering used by read commands.
// This package has no CLI dependencies and can be used by any frontend.
package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the storage collaborator consumed by the pipeline.
// Satisfied by the sqlite, postgres and memory stores.
type Store interface {
	Insert(ctx context.Context, rec Record) (int64, error)
	Update(ctx context.Context, id int64, rec Record) error
	ReadAll(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Delete(ctx context.Context, id int64) error
}

// Canonical row-source columns, in file order.
const (
	ColItemID      = "item_id"
	ColTitle       = "title"
	ColDescription = "description"
	ColPrice       = "price"
	ColQuantity    = "quantity"
	ColUPC         = "upc"
	ColCategory    = "category"
	ColCondition   = "condition"
	ColBrand       = "brand"
)

// Columns is the fixed header of import and update files.
var Columns = []string{
	ColItemID, ColTitle, ColDescription, ColPrice, ColQuantity,
	ColUPC, ColCategory, ColCondition, ColBrand,
}

// IsColumn reports whether name is one of the row-source columns.
func IsColumn(name string) bool {
	return slices.Contains(Columns, name)
}

// Condition is the physical condition of an item.
type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionUsed      Condition = "used"
	ConditionDeadstock Condition = "deadstock"
	ConditionOther     Condition = "other"
)

// Conditions lists the accepted condition values.
var Conditions = []string{
	string(ConditionNew), string(ConditionUsed), string(ConditionDeadstock), string(ConditionOther),
}

// Status is the listing lifecycle of a record.
type Status string

const (
	StatusActive Status = "active"
	StatusSold   Status = "sold"
	StatusDraft  Status = "draft"
)

// Statuses lists the accepted status values.
var Statuses = []string{string(StatusActive), string(StatusSold), string(StatusDraft)}

// Attributes is an opaque per-platform payload (e.g. stockx size).
type Attributes map[string]string

// Record is one committed inventory item.
type Record struct {
	ID           int64
	Title        string
	Description  string
	Price        decimal.Decimal
	Quantity     int
	UPC          string
	Category     string
	Condition    Condition
	Brand        string
	Platforms    []string
	Attributes   map[string]Attributes
	Status       Status
	LastModified time.Time
}

// Equal reports whether two records carry the same data.
// LastModified is ignored.
func (r Record) Equal(o Record) bool {
	if r.ID != o.ID || r.Title != o.Title || r.Description != o.Description ||
		!r.Price.Equal(o.Price) || r.Quantity != o.Quantity || r.UPC != o.UPC ||
		r.Category != o.Category || r.Condition != o.Condition || r.Brand != o.Brand ||
		r.Status != o.Status {
		return false
	}
	if !slices.Equal(r.Platforms, o.Platforms) {
		return false
	}
	if len(r.Attributes) != len(o.Attributes) {
		return false
	}
	for k, a := range r.Attributes {
		if !maps.Equal(a, o.Attributes[k]) {
			return false
		}
	}
	return true
}

// Values returns the record in row-source form keyed by column.
func (r Record) Values() map[string]string {
	v := make(map[string]string, len(Columns))
	if r.ID != 0 {
		v[ColItemID] = FormatID(r.ID)
	} else {
		v[ColItemID] = ""
	}
	v[ColTitle] = r.Title
	v[ColDescription] = r.Description
	v[ColPrice] = FormatPrice(r.Price)
	v[ColQuantity] = FormatQuantity(r.Quantity)
	v[ColUPC] = r.UPC
	v[ColCategory] = r.Category
	v[ColCondition] = string(r.Condition)
	v[ColBrand] = r.Brand
	return v
}

// Draft returns a mutable candidate seeded from the committed record.
func (r Record) Draft() Draft {
	d := Draft{
		Values:     r.Values(),
		Platforms:  slices.Clone(r.Platforms),
		Attributes: cloneAttributes(r.Attributes),
		Status:     r.Status,
	}
	return d
}

// Draft is an uncommitted candidate record. Values hold raw strings keyed by
// column so unparseable input can still be validated and reported.
type Draft struct {
	Row        int
	Values     map[string]string
	Platforms  []string
	Attributes map[string]Attributes
	Status     Status
}

// Lookup resolves a field for a platform's rules: columns first, then the
// platform attribute payload. ok is false when the field is absent.
func (d Draft) Lookup(platform, field string) (string, bool) {
	if v, ok := d.Values[field]; ok {
		return v, true
	}
	if attrs, ok := d.Attributes[platform]; ok {
		v, ok := attrs[field]
		return v, ok
	}
	return "", false
}

// Set stores a corrected value, routing non-column fields to the
// attribute payload of platform.
func (d *Draft) Set(platform, field, value string) {
	if IsColumn(field) || platform == "" || platform == GenericPlatform {
		if d.Values == nil {
			d.Values = make(map[string]string)
		}
		d.Values[field] = value
		return
	}
	if d.Attributes == nil {
		d.Attributes = make(map[string]Attributes)
	}
	if d.Attributes[platform] == nil {
		d.Attributes[platform] = make(Attributes)
	}
	d.Attributes[platform][field] = value
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	return Draft{
		Row:        d.Row,
		Values:     maps.Clone(d.Values),
		Platforms:  slices.Clone(d.Platforms),
		Attributes: cloneAttributes(d.Attributes),
		Status:     d.Status,
	}
}

// Row is one candidate row as read from a row source.
type Row struct {
	Index      int                   // 1-based position in the source
	Values     map[string]string     // Raw cell values keyed by column
	Platforms  []string              // Platform flags carried by the row (artifact replay)
	Attributes map[string]Attributes // Platform attributes carried by the row
	Key        string                // Stable fingerprint, see RowKey
}

// Cells returns the row values in Columns order.
func (r Row) Cells() []string {
	cells := make([]string, len(Columns))
	for i, c := range Columns {
		cells[i] = r.Values[c]
	}
	return cells
}

// Mode selects the batch flow.
type Mode string

const (
	ModeImport Mode = "import"
	ModeUpdate Mode = "update"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeImport:
		return ModeImport, true
	case ModeUpdate:
		return ModeUpdate, true
	}
	return "", false
}

// Violation is a single rule failure.
type Violation struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Row      int    `json:"row"`
	Value    string `json:"value"`
	Code     string `json:"code,omitempty"`
	Platform string `json:"platform,omitempty"`
}

func (v Violation) Error() string {
	if v.Field != "" {
		return v.Field + ": " + v.Message
	}
	return v.Message
}

// FailedRecord is a row that could not be committed in the current run.
type FailedRecord struct {
	Row        Row
	Violations []Violation
	Error      string // Category tag, e.g. invalid_price
	Reason     string // Non-validation cause (persistence, declined repair)
}

// RowReport is the outcome of one processed row.
type RowReport struct {
	Row        int
	Key        string
	State      RowState
	ID         int64
	Unchanged  bool
	Violations []Violation
	Reason     string
}

// BatchResult is the accumulated outcome of one batch run.
type BatchResult struct {
	RunID     string
	Mode      Mode
	Committed int
	Unchanged int
	Failed    int
	Rows      []RowReport
	Abandoned []FailedRecord
	Duration  time.Duration
}

// Total returns the number of rows processed.
func (b BatchResult) Total() int {
	return len(b.Rows)
}

// Violations returns the violations grouped by row, in row order.
func (b BatchResult) Violations() map[int][]Violation {
	out := make(map[int][]Violation)
	for _, r := range b.Rows {
		if len(r.Violations) > 0 {
			out[r.Row] = r.Violations
		}
	}
	return out
}

func cloneAttributes(in map[string]Attributes) map[string]Attributes {
	if in == nil {
		return nil
	}
	out := make(map[string]Attributes, len(in))
	for k, v := range in {
		out[k] = maps.Clone(v)
	}
	return out
}
