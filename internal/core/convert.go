package core

// convert.go turns raw cell strings into typed record values.
//
// Marketplace exports are messy:
//   - Currency symbols and thousands separators in prices
//   - Accounting format for negatives: (12.50)
//   - Excel formula prefixes (="value")
//   - Mixed-case enum values
//
// Parse* functions return ok=false for empty or invalid input so the
// validator can report the problem instead of failing the row.

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// numericRegex validates a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// integerRegex validates a plain integer after cleanup.
var integerRegex = regexp.MustCompile(`^[+-]?\d+$`)

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(s)
}

// cleanNumber strips currency symbols and separators and resolves
// accounting-format negatives.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative && s != "" {
		s = "-" + s
	}
	return s
}

// ParsePrice converts a price cell to a decimal.
func ParsePrice(s string) (decimal.Decimal, bool) {
	s = cleanNumber(s)
	if s == "" || !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseQuantity converts a quantity cell to an int.
// Accepts "3" and "3.0" but not "3.5".
func ParseQuantity(s string) (int, bool) {
	s = cleanNumber(s)
	if s == "" {
		return 0, false
	}
	if integerRegex.MatchString(s) {
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	d, ok := ParsePrice(s)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

// ParseID converts an item_id cell to a positive id.
func ParseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !integerRegex.MatchString(s) {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// NormalizeCondition maps a condition cell to its canonical value.
func NormalizeCondition(s string) (Condition, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Conditions {
		if s == c {
			return Condition(c), true
		}
	}
	return "", false
}

// NormalizeStatus maps a status string to its canonical value.
func NormalizeStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range Statuses {
		if s == st {
			return Status(st), true
		}
	}
	return "", false
}

// FormatPrice renders a price with two decimal places.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatQuantity renders a quantity.
func FormatQuantity(n int) string {
	return strconv.Itoa(n)
}

// FormatID renders a record id.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// BuildRecord converts a validated draft into a record.
// Callers validate first; an error here means a rule set let a value
// through that cannot be stored.
func BuildRecord(d Draft) (Record, error) {
	rec := Record{
		Title:       CleanCell(d.Values[ColTitle]),
		Description: CleanCell(d.Values[ColDescription]),
		UPC:         CleanCell(d.Values[ColUPC]),
		Category:    CleanCell(d.Values[ColCategory]),
		Brand:       CleanCell(d.Values[ColBrand]),
		Platforms:   dedupe(d.Platforms),
		Attributes:  cloneAttributes(d.Attributes),
		Status:      d.Status,
	}

	if raw := CleanCell(d.Values[ColItemID]); raw != "" {
		id, ok := ParseID(raw)
		if !ok {
			return Record{}, errors.Newf("invalid item_id %q", raw)
		}
		rec.ID = id
	}

	price, ok := ParsePrice(d.Values[ColPrice])
	if !ok {
		return Record{}, errors.Newf("invalid price %q", d.Values[ColPrice])
	}
	rec.Price = price

	qty, ok := ParseQuantity(d.Values[ColQuantity])
	if !ok {
		return Record{}, errors.Newf("invalid quantity %q", d.Values[ColQuantity])
	}
	rec.Quantity = qty

	cond, ok := NormalizeCondition(d.Values[ColCondition])
	if !ok {
		return Record{}, errors.Newf("invalid condition %q", d.Values[ColCondition])
	}
	rec.Condition = cond

	if rec.Status == "" {
		rec.Status = StatusActive
	}

	return rec, nil
}

// dedupe drops repeated and empty entries, keeping first occurrences.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
