package core

// validation.go evaluates drafts against the rule catalog.
//
// Evaluation order is fixed so violation lists are reproducible:
//  1. Generic rules, in declaration order
//  2. Each platform the draft declares, in declaration order
//
// Every applicable rule runs; nothing short-circuits. A rule on a field the
// draft does not carry reports "missing field" once per platform and field.

import (
	"strings"
)

// MissingFieldMessage is reported when a rule references an absent field.
const MissingFieldMessage = "missing field"

// Validator checks drafts against an immutable catalog.
type Validator struct {
	catalog *Catalog
}

// NewValidator creates a validator over catalog.
func NewValidator(catalog *Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// Catalog returns the catalog the validator reads.
func (v *Validator) Catalog() *Catalog {
	return v.catalog
}

// Validate returns every violation of d against the generic rules and the
// rules of platforms. An empty result means d is committable.
func (v *Validator) Validate(d Draft, platforms []string) []Violation {
	var violations []Violation

	for _, platform := range activePlatforms(platforms) {
		missing := make(map[string]bool)

		for _, rule := range v.catalog.RulesFor(platform) {
			value, ok := d.Lookup(platform, rule.Field)
			if !ok {
				if missing[rule.Field] {
					continue
				}
				missing[rule.Field] = true
				violations = append(violations, Violation{
					Field:    rule.Field,
					Message:  MissingFieldMessage,
					Row:      d.Row,
					Code:     "missing_field:" + rule.Field,
					Platform: platform,
				})
				continue
			}

			if rule.Check(value) {
				continue
			}

			violations = append(violations, Violation{
				Field:    rule.Field,
				Message:  v.render(rule, platform, value),
				Row:      d.Row,
				Value:    value,
				Code:     ruleCode(rule),
				Platform: platform,
			})
		}
	}

	return violations
}

// Valid reports whether d passes every applicable rule.
func (v *Validator) Valid(d Draft, platforms []string) bool {
	return len(v.Validate(d, platforms)) == 0
}

// render fills the message template of a rule.
func (v *Validator) render(rule Rule, platform, value string) string {
	if !strings.Contains(rule.Message, "{") {
		return rule.Message
	}
	r := strings.NewReplacer(
		"{field}", rule.Field,
		"{value}", value,
		"{platform}", v.catalog.Label(platform),
	)
	return r.Replace(rule.Message)
}

// activePlatforms returns generic followed by the declared platforms,
// lowercased and without repeats.
func activePlatforms(declared []string) []string {
	out := []string{GenericPlatform}
	seen := map[string]bool{GenericPlatform: true}
	for _, p := range declared {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func ruleCode(r Rule) string {
	if r.Code != "" {
		return r.Code
	}
	return "invalid_" + r.Field
}

// ViolatedFields returns the distinct fields of violations in order.
func ViolatedFields(violations []Violation) []string {
	var fields []string
	seen := make(map[string]bool)
	for _, v := range violations {
		if seen[v.Field] {
			continue
		}
		seen[v.Field] = true
		fields = append(fields, v.Field)
	}
	return fields
}
