package core

// checks.go provides constructors for the common rule shapes. Every check
// except Required passes on an empty value so that an optional field is
// only judged when present, and numeric bounds pass on unparseable input
// because the matching format rule already reports it.

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Required fails on an empty value.
func Required(field, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Code:    "missing_field:" + field,
		Check: func(v string) bool {
			return CleanCell(v) != ""
		},
	}
}

// MaxLength limits the value to n characters.
func MaxLength(field string, n int, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			return utf8.RuneCountInString(CleanCell(v)) <= n
		},
	}
}

// MinLength requires at least n characters when present.
func MinLength(field string, n int, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			v = CleanCell(v)
			return v == "" || utf8.RuneCountInString(v) >= n
		},
	}
}

// Digits requires only digits with one of the given lengths.
func Digits(field string, lengths []int, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			v = CleanCell(v)
			if v == "" {
				return true
			}
			for _, r := range v {
				if r < '0' || r > '9' {
					return false
				}
			}
			if len(lengths) == 0 {
				return true
			}
			for _, n := range lengths {
				if len(v) == n {
					return true
				}
			}
			return false
		},
	}
}

// OneOf requires a case-insensitive match against values.
func OneOf(field string, values []string, message string) Rule {
	allowed := make([]string, len(values))
	copy(allowed, values)
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			v = CleanCell(v)
			if v == "" {
				return true
			}
			for _, a := range allowed {
				if strings.EqualFold(a, v) {
					return true
				}
			}
			return false
		},
	}
}

// Pattern requires the value to match re.
func Pattern(field string, re *regexp.Regexp, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			v = CleanCell(v)
			return v == "" || re.MatchString(v)
		},
	}
}

// Decimal requires a parseable decimal number.
func Decimal(field, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			if CleanCell(v) == "" {
				return true
			}
			_, ok := ParsePrice(v)
			return ok
		},
	}
}

// DecimalMin requires value >= lo.
func DecimalMin(field string, lo decimal.Decimal, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			d, ok := ParsePrice(v)
			return !ok || d.GreaterThanOrEqual(lo)
		},
	}
}

// DecimalMax requires value <= hi.
func DecimalMax(field string, hi decimal.Decimal, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			d, ok := ParsePrice(v)
			return !ok || d.LessThanOrEqual(hi)
		},
	}
}

// DecimalPlaces allows at most places digits after the decimal point.
// Trailing zeros do not count.
func DecimalPlaces(field string, places int32, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			d, ok := ParsePrice(v)
			return !ok || d.Equal(d.Truncate(places))
		},
	}
}

// Integer requires a whole number.
func Integer(field, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			if CleanCell(v) == "" {
				return true
			}
			_, ok := ParseQuantity(v)
			return ok
		},
	}
}

// IntMin requires value >= lo.
func IntMin(field string, lo int, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			n, ok := ParseQuantity(v)
			return !ok || n >= lo
		},
	}
}

// IntMax requires value <= hi.
func IntMax(field string, hi int, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			n, ok := ParseQuantity(v)
			return !ok || n <= hi
		},
	}
}

// PositiveID requires a positive integer id when present.
func PositiveID(field, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			v = CleanCell(v)
			if v == "" {
				return true
			}
			_, ok := ParseID(v)
			return ok
		},
	}
}

// WithCode overrides the category tag of a rule.
func (r Rule) WithCode(code string) Rule {
	r.Code = code
	return r
}
