package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldKind tells the filter compiler how to compare a field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumeric
	KindEnum
	KindList
)

func (k FieldKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindEnum:
		return "enum"
	case KindList:
		return "list"
	default:
		return "text"
	}
}

// Field is a canonical record field with its accessors.
type Field struct {
	Name     string
	Shortcut string
	Kind     FieldKind
	Text     func(Record) string          // Display value
	Number   func(Record) decimal.Decimal // Set for KindNumeric
	List     func(Record) []string        // Set for KindList
}

// DefaultFields are displayed when no -f selection is given.
var DefaultFields = []string{
	ColItemID, ColTitle, ColPrice, ColQuantity, ColCategory, ColCondition, ColBrand,
}

// builtinFields lists every projectable field in display order.
var builtinFields = []Field{
	{
		Name: ColItemID, Shortcut: "id", Kind: KindNumeric,
		Text:   func(r Record) string { return FormatID(r.ID) },
		Number: func(r Record) decimal.Decimal { return decimal.NewFromInt(r.ID) },
	},
	{Name: ColTitle, Shortcut: "t", Kind: KindText, Text: func(r Record) string { return r.Title }},
	{Name: ColDescription, Shortcut: "d", Kind: KindText, Text: func(r Record) string { return r.Description }},
	{
		Name: ColPrice, Shortcut: "p", Kind: KindNumeric,
		Text:   func(r Record) string { return FormatPrice(r.Price) },
		Number: func(r Record) decimal.Decimal { return r.Price },
	},
	{
		Name: ColQuantity, Shortcut: "q", Kind: KindNumeric,
		Text:   func(r Record) string { return FormatQuantity(r.Quantity) },
		Number: func(r Record) decimal.Decimal { return decimal.NewFromInt(int64(r.Quantity)) },
	},
	{Name: ColUPC, Shortcut: "u", Kind: KindText, Text: func(r Record) string { return r.UPC }},
	{Name: ColCategory, Shortcut: "cat", Kind: KindText, Text: func(r Record) string { return r.Category }},
	{Name: ColCondition, Shortcut: "c", Kind: KindEnum, Text: func(r Record) string { return string(r.Condition) }},
	{Name: ColBrand, Shortcut: "b", Kind: KindText, Text: func(r Record) string { return r.Brand }},
	{Name: "status", Shortcut: "s", Kind: KindEnum, Text: func(r Record) string { return string(r.Status) }},
	{
		Name: "platforms", Shortcut: "pl", Kind: KindList,
		Text: func(r Record) string { return strings.Join(r.Platforms, ",") },
		List: func(r Record) []string { return r.Platforms },
	},
	{
		Name: "last_updated", Shortcut: "lu", Kind: KindText,
		Text: func(r Record) string {
			if r.LastModified.IsZero() {
				return ""
			}
			return r.LastModified.UTC().Format(time.RFC3339)
		},
	},
}

// FieldProjector resolves field tokens to canonical fields.
type FieldProjector struct {
	fields  []Field
	byToken map[string]int
}

// NewFieldProjector creates a projector over the built-in fields.
func NewFieldProjector() *FieldProjector {
	p := &FieldProjector{
		fields:  builtinFields,
		byToken: make(map[string]int, len(builtinFields)*2),
	}
	for i, f := range p.fields {
		p.byToken[f.Name] = i
		p.byToken[f.Shortcut] = i
	}
	return p
}

// Resolve returns the field for a full name or shortcut.
// Matching is exact after lowercasing; there is no prefix matching.
func (p *FieldProjector) Resolve(token string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(token))
	i, ok := p.byToken[key]
	if !ok {
		return Field{}, &UnknownFieldError{Token: token}
	}
	return p.fields[i], nil
}

// Project resolves a list of tokens. Comma-separated tokens are split.
// An empty list yields DefaultFields.
func (p *FieldProjector) Project(tokens []string) ([]Field, error) {
	var parts []string
	for _, t := range tokens {
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) == 0 {
		parts = DefaultFields
	}

	fields := make([]Field, 0, len(parts))
	for _, t := range parts {
		f, err := p.Resolve(t)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Fields returns every known field in display order.
func (p *FieldProjector) Fields() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Header returns the names of fields.
func Header(fields []Field) []string {
	h := make([]string, len(fields))
	for i, f := range fields {
		h[i] = f.Name
	}
	return h
}

// ProjectRecord renders a record as the given fields.
func ProjectRecord(r Record, fields []Field) []string {
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = f.Text(r)
	}
	return row
}
