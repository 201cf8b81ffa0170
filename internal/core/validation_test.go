package core

import (
	"strings"
	"testing"
)

func draftOf(r Row) Draft {
	return draftFromRow(r)
}

func TestValidate_ValidDraft(t *testing.T) {
	v := NewValidator(testCatalog(t))

	got := v.Validate(draftOf(validRow("Denim jacket")), []string{"ebay"})
	if len(got) != 0 {
		t.Errorf("Validate() = %v, want no violations", got)
	}
}

func TestValidate_TitleLimit(t *testing.T) {
	v := NewValidator(testCatalog(t))
	d := draftOf(validRow(strings.Repeat("x", 90)))
	d.Row = 1

	got := v.Validate(d, []string{"ebay"})
	if len(got) != 1 {
		t.Fatalf("got %d violations, want 1: %v", len(got), got)
	}
	if got[0].Field != ColTitle {
		t.Errorf("Field = %q, want %q", got[0].Field, ColTitle)
	}
	if !strings.Contains(got[0].Message, "80-character") {
		t.Errorf("Message = %q, want it to mention the 80-character limit", got[0].Message)
	}
	if !strings.Contains(got[0].Message, "eBay") {
		t.Errorf("Message = %q, want the platform label", got[0].Message)
	}
	if got[0].Row != 1 {
		t.Errorf("Row = %d, want 1", got[0].Row)
	}
	if got[0].Platform != "ebay" {
		t.Errorf("Platform = %q, want ebay", got[0].Platform)
	}

	// Without the platform the generic rules accept the same title.
	if got := v.Validate(d, nil); len(got) != 0 {
		t.Errorf("generic-only Validate() = %v, want none", got)
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	v := NewValidator(testCatalog(t))
	r := validRow("")
	r = withValue(r, ColPrice, "abc")
	r = withValue(r, ColQuantity, "-1")
	r = withValue(r, ColCondition, "mint")

	got := v.Validate(draftOf(r), nil)

	wantFields := []string{ColTitle, ColPrice, ColQuantity, ColCondition}
	fields := ViolatedFields(got)
	if strings.Join(fields, ",") != strings.Join(wantFields, ",") {
		t.Errorf("violated fields = %v, want %v", fields, wantFields)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	v := NewValidator(testCatalog(t))
	r := withValue(validRow(strings.Repeat("y", 95)), ColUPC, "12ab")
	d := draftOf(r)

	first := v.Validate(d, []string{"poshmark", "ebay"})
	for i := 0; i < 5; i++ {
		again := v.Validate(d, []string{"poshmark", "ebay"})
		if len(again) != len(first) {
			t.Fatalf("run %d: %d violations, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Errorf("run %d: violation %d = %v, want %v", i, j, again[j], first[j])
			}
		}
	}

	// Declared order: poshmark before ebay.
	var platforms []string
	for _, vi := range first {
		if len(platforms) == 0 || platforms[len(platforms)-1] != vi.Platform {
			platforms = append(platforms, vi.Platform)
		}
	}
	if strings.Join(platforms, ",") != "poshmark,ebay" {
		t.Errorf("platform order = %v, want [poshmark ebay]", platforms)
	}
}

func TestValidate_MissingAttribute(t *testing.T) {
	v := NewValidator(testCatalog(t))
	d := draftOf(validRow("Sneakers"))

	got := v.Validate(d, []string{"poshmark"})
	if len(got) != 1 {
		t.Fatalf("got %d violations, want 1: %v", len(got), got)
	}
	if got[0].Message != MissingFieldMessage {
		t.Errorf("Message = %q, want %q", got[0].Message, MissingFieldMessage)
	}
	if got[0].Code != "missing_field:size" {
		t.Errorf("Code = %q, want missing_field:size", got[0].Code)
	}

	d.Set("poshmark", "size", "10")
	if got := v.Validate(d, []string{"poshmark"}); len(got) != 0 {
		t.Errorf("with size: %v, want none", got)
	}
}

func TestValidate_UnknownPlatformHasNoRules(t *testing.T) {
	v := NewValidator(testCatalog(t))
	d := draftOf(validRow(strings.Repeat("z", 120)))

	if got := v.Validate(d, []string{"depop"}); len(got) != 0 {
		t.Errorf("Validate() = %v, want none for a platform without rules", got)
	}
}

func TestRuleCodes(t *testing.T) {
	v := NewValidator(testCatalog(t))

	tests := []struct {
		name     string
		column   string
		value    string
		wantCode string
	}{
		{"negative price", ColPrice, "-5", "invalid_price"},
		{"unparseable price", ColPrice, "ten", "invalid_price"},
		{"sub-cent price", ColPrice, "12.345", "invalid_price"},
		{"empty price", ColPrice, "", "missing_field:price"},
		{"fractional quantity", ColQuantity, "1.5", "invalid_quantity"},
		{"bad condition", ColCondition, "mint", "invalid_condition"},
		{"bad item id", ColItemID, "abc", "invalid_item_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(draftOf(withValue(validRow("Hat"), tt.column, tt.value)), nil)
			if len(got) == 0 {
				t.Fatal("got no violations")
			}
			if got[0].Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got[0].Code, tt.wantCode)
			}
		})
	}
}

func TestCatalogBuilder_VersionGate(t *testing.T) {
	b, err := NewCatalogBuilder(">= 0.3.0")
	if err != nil {
		t.Fatalf("NewCatalogBuilder: %v", err)
	}
	b.AddBuiltin(RuleSet{Platform: GenericPlatform, Set: []Rule{Required(ColTitle, "Title cannot be empty")}})

	old := RuleSet{Platform: "stockx", Release: "0.2.0", Set: []Rule{Required("size", "Size is required")}}
	err = b.Contribute(old, "plugins/stockx.yaml")
	if err == nil {
		t.Fatal("Contribute(0.2.0) = nil, want incompatible plugin error")
	}
	if !strings.Contains(err.Error(), "stockx") {
		t.Errorf("error = %q, want it to name the platform", err)
	}

	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cat.Has("stockx") {
		t.Error("catalog has stockx rules, want them skipped")
	}
	if !cat.Skipped("stockx") {
		t.Error("Skipped(stockx) = false, want true")
	}
	if n := len(cat.RulesFor("stockx")); n != 0 {
		t.Errorf("RulesFor(stockx) = %d rules, want 0", n)
	}

	// Records flagged for stockx see the generic rules only.
	v := NewValidator(cat)
	if got := v.Validate(draftOf(validRow("Jordan 1")), []string{"stockx"}); len(got) != 0 {
		t.Errorf("Validate() = %v, want none", got)
	}
	if got := v.Validate(draftOf(validRow("")), []string{"stockx"}); len(got) != 1 {
		t.Errorf("Validate(empty title) = %v, want the generic violation only", got)
	}
}

func TestCatalogBuilder_AcceptsCompatible(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		version    string
		wantErr    bool
	}{
		{"satisfies", ">= 0.3.0", "0.3.0", false},
		{"newer", ">= 0.3.0", "1.2.0", false},
		{"too old", ">= 0.3.0", "0.2.9", true},
		{"no constraint", "", "0.0.1", false},
		{"invalid version", ">= 0.3.0", "latest", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewCatalogBuilder(tt.constraint)
			if err != nil {
				t.Fatalf("NewCatalogBuilder: %v", err)
			}
			err = b.Contribute(RuleSet{Platform: "stockx", Release: tt.version, Set: []Rule{Required("size", "x")}}, "test")
			if (err != nil) != tt.wantErr {
				t.Errorf("Contribute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCatalogBuilder_InvalidConstraint(t *testing.T) {
	if _, err := NewCatalogBuilder("not a range"); err == nil {
		t.Error("NewCatalogBuilder() = nil error, want error")
	}
}

func TestRegistry(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	Register(RuleSet{Platform: "Mercari", Set: []Rule{MaxLength(ColTitle, 80, "too long")}})
	Register(RuleSet{Platform: GenericPlatform, Set: []Rule{Required(ColTitle, "required")}})
	Register(RuleSet{Platform: "ebay"})

	got := Builtins()
	var names []string
	for _, rs := range got {
		names = append(names, rs.Platform)
	}
	if strings.Join(names, ",") != "generic,ebay,mercari" {
		t.Errorf("Builtins() = %v, want [generic ebay mercari]", names)
	}

	rs, ok := Lookup("MERCARI")
	if !ok {
		t.Fatal("Lookup(MERCARI) not found")
	}
	if rs.Set[0].Platform != "mercari" {
		t.Errorf("rule platform = %q, want mercari", rs.Set[0].Platform)
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register(RuleSet{Platform: "ebay"})
}

func TestDecimalPlaces(t *testing.T) {
	rule := DecimalPlaces(ColPrice, 2, "too precise")

	tests := []struct {
		value string
		want  bool
	}{
		{"12", true},
		{"12.5", true},
		{"12.50", true},
		{"12.500", true},
		{"$1,299.99", true},
		{"12.345", false},
		{"0.001", false},
		{"", true},
		{"abc", true},
	}
	for _, tt := range tests {
		if got := rule.Check(tt.value); got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
