// Package plugin loads marketplace rule sets from YAML manifests.
//
// A manifest names a platform, declares a semver version and lists rules
// built from the core check constructors:
//
//	name: StockX listing rules
//	platform: stockx
//	label: StockX
//	version: 0.3.0
//	rules:
//	  - field: title
//	    check: max_length
//	    value: 80
//	    message: "Exceeds {platform}'s 80-character limit"
//	  - field: size
//	    check: required
//
// Manifests are offered to the catalog as contributions; the catalog
// decides whether their version is compatible.
package plugin

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/inventory/internal/core"
)

// Check kinds accepted in a manifest.
const (
	CheckRequired  = "required"
	CheckMaxLength = "max_length"
	CheckMinLength = "min_length"
	CheckDigits    = "digits"
	CheckOneOf     = "one_of"
	CheckPattern   = "pattern"
	CheckDecimal   = "decimal"
	CheckMin       = "min"
	CheckMax       = "max"
	CheckInteger   = "integer"
)

// Checks lists the accepted check kinds in documentation order.
var Checks = []string{
	CheckRequired, CheckMaxLength, CheckMinLength, CheckDigits, CheckOneOf,
	CheckPattern, CheckDecimal, CheckMin, CheckMax, CheckInteger,
}

// Manifest is one plugin file. It satisfies core.SourcedContributor.
type Manifest struct {
	Name     string     `yaml:"name"`
	Platform string     `yaml:"platform"`
	Label    string     `yaml:"label"`
	Release  string     `yaml:"version"`
	Specs    []RuleSpec `yaml:"rules"`

	path  string
	rules []core.Rule
}

// RuleSpec is one declarative rule.
type RuleSpec struct {
	Field   string   `yaml:"field"`
	Check   string   `yaml:"check"`
	Value   string   `yaml:"value"`   // limit, bound or pattern
	Lengths []int    `yaml:"lengths"` // digits
	Values  []string `yaml:"values"`  // one_of
	Message string   `yaml:"message"`
	Code    string   `yaml:"code"`
}

var _ core.SourcedContributor = (*Manifest)(nil)

func (m *Manifest) PlatformName() string { return m.Platform }
func (m *Manifest) Version() string      { return m.Release }
func (m *Manifest) Rules() []core.Rule   { return m.rules }
func (m *Manifest) Source() string       { return m.path }
func (m *Manifest) DisplayName() string  { return m.Label }

// Parse decodes and compiles a manifest. path is recorded as its source.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	m.path = path
	m.Platform = strings.ToLower(strings.TrimSpace(m.Platform))

	if m.Platform == "" {
		return nil, errors.Newf("%s: platform is required", path)
	}
	if m.Release == "" {
		return nil, errors.Newf("%s: version is required", path)
	}
	if len(m.Specs) == 0 {
		return nil, errors.Newf("%s: no rules", path)
	}

	for i, spec := range m.Specs {
		rule, err := spec.compile()
		if err != nil {
			return nil, errors.WithHintf(
				errors.Wrapf(err, "%s: rule %d (%s)", path, i+1, spec.Field),
				"supported checks: %s", strings.Join(Checks, ", "))
		}
		m.rules = append(m.rules, rule)
	}
	return &m, nil
}

func (s RuleSpec) compile() (core.Rule, error) {
	field := strings.ToLower(strings.TrimSpace(s.Field))
	if field == "" {
		return core.Rule{}, errors.New("field is required")
	}

	check := strings.ToLower(strings.TrimSpace(s.Check))
	var rule core.Rule
	switch check {
	case CheckRequired:
		rule = core.Required(field, or(s.Message, "{field} is required"))

	case CheckMaxLength, CheckMinLength:
		n, err := strconv.Atoi(s.Value)
		if err != nil || n <= 0 {
			return core.Rule{}, errors.Newf("%s needs a positive integer value, got %q", s.Check, s.Value)
		}
		if check == CheckMaxLength {
			rule = core.MaxLength(field, n, or(s.Message, "Exceeds {platform}'s "+s.Value+"-character limit"))
		} else {
			rule = core.MinLength(field, n, or(s.Message, "{field} must be at least "+s.Value+" characters"))
		}

	case CheckDigits:
		for _, n := range s.Lengths {
			if n <= 0 {
				return core.Rule{}, errors.Newf("digits lengths must be positive, got %d", n)
			}
		}
		rule = core.Digits(field, s.Lengths, or(s.Message, "{field} must contain only digits"))

	case CheckOneOf:
		if len(s.Values) == 0 {
			return core.Rule{}, errors.New("one_of needs values")
		}
		rule = core.OneOf(field, s.Values, or(s.Message, "{field} must be one of: "+strings.Join(s.Values, ", ")))

	case CheckPattern:
		re, err := regexp.Compile(s.Value)
		if err != nil {
			return core.Rule{}, errors.Wrap(err, "pattern")
		}
		rule = core.Pattern(field, re, or(s.Message, "{field} has an invalid format"))

	case CheckDecimal:
		rule = core.Decimal(field, or(s.Message, "Invalid {field} value"))

	case CheckMin, CheckMax:
		bound, err := decimal.NewFromString(s.Value)
		if err != nil {
			return core.Rule{}, errors.Newf("%s needs a numeric value, got %q", s.Check, s.Value)
		}
		if check == CheckMin {
			rule = core.DecimalMin(field, bound, or(s.Message, "{field} must be at least "+s.Value))
		} else {
			rule = core.DecimalMax(field, bound, or(s.Message, "{field} must be at most "+s.Value))
		}

	case CheckInteger:
		rule = core.Integer(field, or(s.Message, "Invalid {field} value"))

	default:
		return core.Rule{}, errors.Newf("unknown check %q", s.Check)
	}

	if s.Code != "" {
		rule = rule.WithCode(s.Code)
	}
	return rule, nil
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}
