package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// ParsePrice Tests
// ----------------------------------------------------------------------------

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue string
	}{
		// Valid: plain numbers
		{name: "integer", input: "123", wantValid: true, wantValue: "123"},
		{name: "zero", input: "0", wantValid: true, wantValue: "0"},
		{name: "decimal", input: "19.99", wantValid: true, wantValue: "19.99"},
		{name: "leading decimal point", input: ".99", wantValid: true, wantValue: "0.99"},
		{name: "trailing decimal point", input: "99.", wantValid: true, wantValue: "99"},
		{name: "negative", input: "-5", wantValid: true, wantValue: "-5"},

		// Valid: marketplace formatting
		{name: "dollar sign", input: "$25.00", wantValid: true, wantValue: "25"},
		{name: "euro sign", input: "€10", wantValid: true, wantValue: "10"},
		{name: "thousands separator", input: "$1,250.50", wantValid: true, wantValue: "1250.5"},
		{name: "accounting negative", input: "(12.50)", wantValid: true, wantValue: "-12.5"},
		{name: "surrounding whitespace", input: "  7.5 ", wantValid: true, wantValue: "7.5"},

		// Invalid
		{name: "empty", input: "", wantValid: false},
		{name: "text", input: "ten", wantValid: false},
		{name: "mixed", input: "12abc", wantValid: false},
		{name: "two points", input: "1.2.3", wantValid: false},
		{name: "symbol only", input: "$", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParsePrice(%q) ok = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if ok && !got.Equal(decimal.RequireFromString(tt.wantValue)) {
				t.Errorf("ParsePrice(%q) = %s, want %s", tt.input, got, tt.wantValue)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseQuantity Tests
// ----------------------------------------------------------------------------

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input     string
		wantValid bool
		want      int
	}{
		{"3", true, 3},
		{"0", true, 0},
		{"3.0", true, 3},
		{"1,000", true, 1000},
		{"-2", true, -2},
		{"3.5", false, 0},
		{"", false, 0},
		{"three", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseQuantity(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParseQuantity(%q) ok = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if got != tt.want {
				t.Errorf("ParseQuantity(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"1", 1, true},
		{" 42 ", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"1.0", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseID(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseID(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  hello  ", "hello"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{"", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeCondition(t *testing.T) {
	tests := []struct {
		input string
		want  Condition
		ok    bool
	}{
		{"new", ConditionNew, true},
		{" USED ", ConditionUsed, true},
		{"Deadstock", ConditionDeadstock, true},
		{"other", ConditionOther, true},
		{"mint", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeCondition(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeCondition(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

// ----------------------------------------------------------------------------
// BuildRecord Tests
// ----------------------------------------------------------------------------

func TestBuildRecord(t *testing.T) {
	d := draftFromRow(withValue(validRow("  Denim jacket "), ColPrice, "$1,250.5"))
	d.Platforms = []string{"eBay", "ebay", "", "Mercari"}

	rec, err := BuildRecord(d)
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if rec.Title != "Denim jacket" {
		t.Errorf("Title = %q", rec.Title)
	}
	if FormatPrice(rec.Price) != "1250.50" {
		t.Errorf("Price = %s, want 1250.50", FormatPrice(rec.Price))
	}
	if rec.Status != StatusActive {
		t.Errorf("Status = %q, want active", rec.Status)
	}
	if len(rec.Platforms) != 2 || rec.Platforms[0] != "ebay" || rec.Platforms[1] != "mercari" {
		t.Errorf("Platforms = %v, want [ebay mercari]", rec.Platforms)
	}
}

func TestBuildRecord_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  string
	}{
		{"price", ColPrice, "abc"},
		{"quantity", ColQuantity, "1.5"},
		{"condition", ColCondition, "mint"},
		{"item id", ColItemID, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildRecord(draftFromRow(withValue(validRow("Hat"), tt.column, tt.value))); err == nil {
				t.Error("BuildRecord() = nil error, want error")
			}
		})
	}
}

func TestRecordValues_RoundTrip(t *testing.T) {
	rec := Record{
		ID: 7, Title: "Hat", Price: decimal.RequireFromString("12.5"), Quantity: 3,
		Category: "hats", Condition: ConditionUsed, Status: StatusActive,
	}
	back, err := BuildRecord(rec.Draft())
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if !back.Equal(rec) {
		t.Errorf("BuildRecord(Draft()) = %+v, want %+v", back, rec)
	}
}
