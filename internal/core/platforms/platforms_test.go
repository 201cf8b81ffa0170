package platforms_test

import (
	"strings"
	"testing"

	"github.com/JonMunkholm/inventory/internal/core"
	_ "github.com/JonMunkholm/inventory/internal/core/platforms"
)

func newValidator(t *testing.T) *core.Validator {
	t.Helper()
	cat, warnings, err := core.NewCatalog(">= 0.3.0")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	return core.NewValidator(cat)
}

func draft(values map[string]string) core.Draft {
	d := core.Draft{Values: map[string]string{
		core.ColItemID:      "",
		core.ColTitle:       "Levi's 501 jeans",
		core.ColDescription: "",
		core.ColPrice:       "45.00",
		core.ColQuantity:    "1",
		core.ColUPC:         "",
		core.ColCategory:    "clothing",
		core.ColCondition:   "used",
		core.ColBrand:       "Levi's",
	}}
	for k, v := range values {
		d.Values[k] = v
	}
	return d
}

func TestBuiltinPlatforms(t *testing.T) {
	v := newValidator(t)
	got := v.Catalog().Platforms()
	want := []string{"ebay", "mercari", "poshmark"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Platforms() = %v, want %v", got, want)
	}
	if v.Catalog().Has("stockx") {
		t.Error("stockx is built in, want it to come from a plugin")
	}
}

func TestPlatformRules(t *testing.T) {
	long := strings.Repeat("a", 81)

	tests := []struct {
		name      string
		values    map[string]string
		platforms []string
		wantField string
		wantMsg   string
	}{
		{"generic valid", nil, nil, "", ""},
		{"ebay title", map[string]string{core.ColTitle: long}, []string{"ebay"}, core.ColTitle, "Exceeds eBay's 80-character limit"},
		{"mercari title", map[string]string{core.ColTitle: long}, []string{"mercari"}, core.ColTitle, "Exceeds Mercari's 80-character limit"},
		{"ebay upc", map[string]string{core.ColUPC: "12345"}, []string{"ebay"}, core.ColUPC, "UPC must be 12 or 13 digits"},
		{"ebay upc valid", map[string]string{core.ColUPC: "0123456789012"}, []string{"ebay"}, "", ""},
		{"mercari description", map[string]string{core.ColDescription: strings.Repeat("d", 1001)}, []string{"mercari"}, core.ColDescription, ""},
		{"poshmark size", nil, []string{"poshmark"}, "size", core.MissingFieldMessage},
		{"negative price", map[string]string{core.ColPrice: "-5"}, nil, core.ColPrice, "Price must be non-negative"},
		{"price too high", map[string]string{core.ColPrice: "1000000"}, nil, core.ColPrice, "Price exceeds maximum allowed value"},
		{"brand too long", map[string]string{core.ColBrand: strings.Repeat("b", 101)}, nil, core.ColBrand, ""},
		{"deadstock accepted", map[string]string{core.ColCondition: "Deadstock"}, nil, "", ""},
		{"title at limit", map[string]string{core.ColTitle: strings.Repeat("a", 80)}, []string{"ebay", "mercari", "poshmark"}, "size", ""},
	}

	v := newValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(draft(tt.values), tt.platforms)
			if tt.wantField == "" {
				if len(got) != 0 {
					t.Errorf("Validate() = %v, want none", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("Validate() = %v, want exactly one violation", got)
			}
			if got[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", got[0].Field, tt.wantField)
			}
			if tt.wantMsg != "" && got[0].Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got[0].Message, tt.wantMsg)
			}
		})
	}
}
