package core

// filter.go compiles filter expressions into record predicates.
//
// Each constraint targets one field and is one of:
//   - range:    price 10-50 (inclusive, either end may be open: 10- or -50)
//   - equality: category clothing
//   - set:      condition new,used
//
// Constraints combine with AND. An empty expression matches every record.

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"github.com/shopspring/decimal"
)

// FilterOperator is the comparison a constraint compiles to.
type FilterOperator string

const (
	OpEquals FilterOperator = "eq"
	OpRange  FilterOperator = "range"
	OpIn     FilterOperator = "in"
)

// Constraint is one field/value pair as typed by the user.
type Constraint struct {
	Field string
	Value string
}

// FilterExpr is a list of constraints combined with AND.
type FilterExpr []Constraint

// String renders the expression in the form ParseFilterExpr accepts.
func (e FilterExpr) String() string {
	parts := make([]string, len(e))
	for i, c := range e {
		parts[i] = c.Field + ":" + shellquote.Join(c.Value)
	}
	return strings.Join(parts, " ")
}

// ParseFilterExpr parses "price: 10-50 category:clothing brand='Levi Strauss'".
// Pairs are field:value or field=value; whitespace after the separator is
// allowed and values may be shell-quoted.
func ParseFilterExpr(s string) (FilterExpr, error) {
	tokens, err := shellquote.Split(s)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse filter %q", s), ErrInvalidFilter)
	}

	var expr FilterExpr
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		sep := strings.IndexAny(tok, ":=")
		if sep <= 0 {
			return nil, errors.Wrapf(ErrInvalidFilter, "expected field:value, got %q", tok)
		}
		field, value := tok[:sep], tok[sep+1:]
		if value == "" {
			if i+1 >= len(tokens) {
				return nil, errors.Wrapf(ErrInvalidFilter, "missing value for %q", field)
			}
			i++
			value = tokens[i]
		}
		expr = append(expr, Constraint{Field: field, Value: strings.TrimSuffix(value, ",")})
	}
	return expr, nil
}

// FilterPredicate is a compiled filter. It is owned by the query that
// built it and never persisted.
type FilterPredicate struct {
	source string
	tests  []func(Record) bool
}

// Match reports whether r satisfies every constraint.
func (p FilterPredicate) Match(r Record) bool {
	for _, t := range p.tests {
		if !t(r) {
			return false
		}
	}
	return true
}

// Apply returns the matching records in input order.
func (p FilterPredicate) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if p.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// String returns the source expression.
func (p FilterPredicate) String() string {
	return p.source
}

// PredicateEvaluator compiles filter expressions against a field projector.
type PredicateEvaluator struct {
	fields *FieldProjector
}

// NewPredicateEvaluator creates an evaluator.
func NewPredicateEvaluator(fields *FieldProjector) *PredicateEvaluator {
	return &PredicateEvaluator{fields: fields}
}

// Compile turns expr into a predicate. Unknown fields fail with
// ErrUnknownField; malformed values fail with ErrInvalidFilter.
func (e *PredicateEvaluator) Compile(expr FilterExpr) (FilterPredicate, error) {
	pred := FilterPredicate{source: expr.String()}

	for _, c := range expr {
		f, err := e.fields.Resolve(c.Field)
		if err != nil {
			return FilterPredicate{}, err
		}
		test, err := compileConstraint(f, strings.TrimSpace(c.Value))
		if err != nil {
			return FilterPredicate{}, err
		}
		pred.tests = append(pred.tests, test)
	}

	return pred, nil
}

// classify picks the operator for a raw value.
func classify(f Field, value string) FilterOperator {
	if strings.Contains(value, ",") {
		return OpIn
	}
	if f.Kind == KindNumeric && strings.Contains(value, "-") {
		return OpRange
	}
	return OpEquals
}

func compileConstraint(f Field, value string) (func(Record) bool, error) {
	if value == "" {
		return nil, errors.Wrapf(ErrInvalidFilter, "empty value for %s", f.Name)
	}

	op := classify(f, value)
	switch f.Kind {
	case KindNumeric:
		return compileNumeric(f, op, value)
	case KindList:
		set := splitSet(value, true)
		return func(r Record) bool {
			for _, v := range f.List(r) {
				if slices.Contains(set, strings.ToLower(v)) {
					return true
				}
			}
			return false
		}, nil
	case KindEnum:
		set := splitSet(value, true)
		return func(r Record) bool {
			return slices.Contains(set, strings.ToLower(f.Text(r)))
		}, nil
	default:
		set := splitSet(value, false)
		return func(r Record) bool {
			return slices.Contains(set, f.Text(r))
		}, nil
	}
}

func compileNumeric(f Field, op FilterOperator, value string) (func(Record) bool, error) {
	switch op {
	case OpRange:
		lo, hi, err := parseRange(value)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", f.Name)
		}
		return func(r Record) bool {
			n := f.Number(r)
			if lo != nil && n.LessThan(*lo) {
				return false
			}
			if hi != nil && n.GreaterThan(*hi) {
				return false
			}
			return true
		}, nil

	default:
		var set []decimal.Decimal
		for _, s := range splitSet(value, false) {
			d, ok := ParsePrice(s)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidFilter, "%s: %q is not a number", f.Name, s)
			}
			set = append(set, d)
		}
		return func(r Record) bool {
			n := f.Number(r)
			for _, d := range set {
				if n.Equal(d) {
					return true
				}
			}
			return false
		}, nil
	}
}

// parseRange parses "lo-hi", "lo-" or "-hi". Both ends are inclusive.
func parseRange(value string) (*decimal.Decimal, *decimal.Decimal, error) {
	loRaw, hiRaw, _ := strings.Cut(value, "-")
	loRaw, hiRaw = strings.TrimSpace(loRaw), strings.TrimSpace(hiRaw)
	if loRaw == "" && hiRaw == "" {
		return nil, nil, errors.Wrapf(ErrInvalidFilter, "range %q has no bounds", value)
	}

	var lo, hi *decimal.Decimal
	if loRaw != "" {
		d, ok := ParsePrice(loRaw)
		if !ok {
			return nil, nil, errors.Wrapf(ErrInvalidFilter, "invalid lower bound %q", loRaw)
		}
		lo = &d
	}
	if hiRaw != "" {
		d, ok := ParsePrice(hiRaw)
		if !ok {
			return nil, nil, errors.Wrapf(ErrInvalidFilter, "invalid upper bound %q", hiRaw)
		}
		hi = &d
	}
	if lo != nil && hi != nil && lo.GreaterThan(*hi) {
		return nil, nil, errors.Wrapf(ErrInvalidFilter, "range %q is empty", value)
	}
	return lo, hi, nil
}

func splitSet(value string, lower bool) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if lower {
			s = strings.ToLower(s)
		}
		out = append(out, s)
	}
	return out
}
