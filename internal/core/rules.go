package core

// rules.go defines validation rules and the immutable catalog they live in.
//
// A catalog is assembled once at startup from the generic rule set, the
// built-in platform rule sets and any plugin contributions that pass the
// host version constraint. After Build it is read-only and shared by the
// validator and read commands.

import (
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// GenericPlatform names the rule set applied to every record.
const GenericPlatform = "generic"

// Rule is a pure check over one field, scoped to a platform.
type Rule struct {
	Platform string
	Field    string
	Check    func(value string) bool // true means the value passes
	Message  string                  // Template: {field}, {value}, {platform}
	Code     string                  // Category tag, defaults to invalid_<field>
}

// RuleContributor is implemented by anything that supplies rules for a
// platform: built-in rule sets and plugin manifests.
type RuleContributor interface {
	PlatformName() string
	Version() string
	Rules() []Rule
}

// RuleSet is a static RuleContributor.
type RuleSet struct {
	Platform string
	Label    string // Display name used in messages, e.g. "eBay"
	Release  string
	Set      []Rule
}

func (r RuleSet) PlatformName() string { return r.Platform }
func (r RuleSet) Version() string      { return r.Release }
func (r RuleSet) Rules() []Rule        { return r.Set }

// Contribution describes one rule set offered to the catalog.
type Contribution struct {
	Platform string
	Version  string
	Source   string // "builtin" or the manifest path
	Rules    int
	Skipped  bool
	Reason   string
}

// Catalog is the immutable rule catalog.
type Catalog struct {
	rules         map[string][]Rule
	labels        map[string]string
	order         []string
	contributions []Contribution
}

// RulesFor returns the rules of a platform in declaration order.
// Unknown or skipped platforms have no rules.
func (c *Catalog) RulesFor(platform string) []Rule {
	return c.rules[strings.ToLower(platform)]
}

// Platforms returns the platforms with active rules, excluding the
// generic set, in registration order.
func (c *Catalog) Platforms() []string {
	out := make([]string, 0, len(c.order))
	for _, p := range c.order {
		if p != GenericPlatform {
			out = append(out, p)
		}
	}
	return out
}

// Label returns the display name of a platform.
func (c *Catalog) Label(platform string) string {
	if l, ok := c.labels[platform]; ok && l != "" {
		return l
	}
	return platform
}

// Has reports whether a platform has active rules.
func (c *Catalog) Has(platform string) bool {
	_, ok := c.rules[strings.ToLower(platform)]
	return ok
}

// Skipped reports whether contributions for a platform were rejected.
func (c *Catalog) Skipped(platform string) bool {
	platform = strings.ToLower(platform)
	for _, ct := range c.contributions {
		if ct.Platform == platform && ct.Skipped {
			return true
		}
	}
	return false
}

// Contributions returns every offered contribution, accepted or not.
func (c *Catalog) Contributions() []Contribution {
	return slices.Clone(c.contributions)
}

// RuleCount returns the number of active rules.
func (c *Catalog) RuleCount() int {
	n := 0
	for _, r := range c.rules {
		n += len(r)
	}
	return n
}

// CatalogBuilder assembles a Catalog. Not safe for concurrent use.
type CatalogBuilder struct {
	constraint *semver.Constraints
	cat        *Catalog
	err        error
}

// NewCatalogBuilder creates a builder. constraint is the semver range a
// plugin version must satisfy, e.g. ">= 0.3.0"; empty accepts any version.
func NewCatalogBuilder(constraint string) (*CatalogBuilder, error) {
	b := &CatalogBuilder{
		cat: &Catalog{
			rules:  make(map[string][]Rule),
			labels: make(map[string]string),
		},
	}
	if strings.TrimSpace(constraint) != "" {
		c, err := semver.NewConstraint(constraint)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid plugin constraint %q", constraint)
		}
		b.constraint = c
	}
	return b, nil
}

// AddBuiltin registers a rule set compiled into the host. Built-ins are
// not version gated.
func (b *CatalogBuilder) AddBuiltin(rs RuleSet) {
	b.add(rs, "builtin")
	if rs.Label != "" {
		b.cat.labels[strings.ToLower(rs.Platform)] = rs.Label
	}
}

// Contribute offers a plugin rule set. Incompatible versions are recorded
// as skipped and an error wrapping ErrIncompatiblePlugin is returned so the
// caller can warn; the catalog stays usable.
func (b *CatalogBuilder) Contribute(c RuleContributor, source string) error {
	platform := strings.ToLower(strings.TrimSpace(c.PlatformName()))
	if platform == "" || platform == GenericPlatform {
		return b.skip(c, source, "plugin must declare a platform name")
	}

	v, err := semver.NewVersion(c.Version())
	if err != nil {
		return b.skip(c, source, "invalid version "+c.Version())
	}
	if b.constraint != nil && !b.constraint.Check(v) {
		return b.skip(c, source, "version "+v.String()+" does not satisfy "+b.constraint.String())
	}

	b.add(c, source)
	if l, ok := c.(interface{ DisplayName() string }); ok && l.DisplayName() != "" {
		if _, exists := b.cat.labels[platform]; !exists {
			b.cat.labels[platform] = l.DisplayName()
		}
	}
	return nil
}

// Build returns the finished catalog. The builder must not be used after.
func (b *CatalogBuilder) Build() (*Catalog, error) {
	if b.err != nil {
		return nil, b.err
	}
	cat := b.cat
	b.cat = nil
	return cat, nil
}

func (b *CatalogBuilder) add(c RuleContributor, source string) {
	platform := strings.ToLower(strings.TrimSpace(c.PlatformName()))
	rules := c.Rules()

	for i, r := range rules {
		if r.Field == "" || r.Check == nil {
			b.err = errors.Newf("platform %s: rule %d has no field or check", platform, i)
			return
		}
	}

	if _, exists := b.cat.rules[platform]; !exists {
		b.cat.order = append(b.cat.order, platform)
	}
	for _, r := range rules {
		r.Platform = platform
		b.cat.rules[platform] = append(b.cat.rules[platform], r)
	}

	b.cat.contributions = append(b.cat.contributions, Contribution{
		Platform: platform,
		Version:  c.Version(),
		Source:   source,
		Rules:    len(rules),
	})
}

func (b *CatalogBuilder) skip(c RuleContributor, source, reason string) error {
	platform := strings.ToLower(strings.TrimSpace(c.PlatformName()))
	b.cat.contributions = append(b.cat.contributions, Contribution{
		Platform: platform,
		Version:  c.Version(),
		Source:   source,
		Rules:    len(c.Rules()),
		Skipped:  true,
		Reason:   reason,
	})
	return errors.Wrapf(ErrIncompatiblePlugin, "%s (%s): %s", platform, source, reason)
}
