package core

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// memStore is a minimal Store for pipeline tests.
type memStore struct {
	mu        sync.Mutex
	next      int64
	records   map[int64]Record
	inserts   int
	updates   int
	failWrite error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[int64]Record)}
}

func (m *memStore) Insert(_ context.Context, rec Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return 0, m.failWrite
	}
	m.next++
	rec.ID = m.next
	m.records[rec.ID] = rec
	m.inserts++
	return rec.ID, nil
}

func (m *memStore) Update(_ context.Context, id int64, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	if _, ok := m.records[id]; !ok {
		return ErrRecordNotFound
	}
	rec.ID = id
	m.records[id] = rec
	m.updates++
	return nil
}

func (m *memStore) ReadAll(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return r, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

// testCatalog builds a small catalog shaped like the built-in one.
func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	b, err := NewCatalogBuilder(">= 0.3.0")
	if err != nil {
		t.Fatalf("NewCatalogBuilder: %v", err)
	}
	b.AddBuiltin(RuleSet{
		Platform: GenericPlatform,
		Set: []Rule{
			PositiveID(ColItemID, "Invalid item ID"),
			Required(ColTitle, "Title cannot be empty"),
			Required(ColPrice, "Price is required"),
			Decimal(ColPrice, "Invalid price value"),
			DecimalMin(ColPrice, decimal.Zero, "Price must be non-negative"),
			DecimalPlaces(ColPrice, 2, "Price must have at most 2 decimal places"),
			Required(ColQuantity, "Quantity is required"),
			Integer(ColQuantity, "Invalid quantity value"),
			IntMin(ColQuantity, 0, "Quantity must be non-negative"),
			Required(ColCategory, "Category cannot be empty"),
			Required(ColCondition, "Condition is required"),
			OneOf(ColCondition, Conditions, "Condition must be one of the accepted values"),
		},
	})
	b.AddBuiltin(RuleSet{
		Platform: "ebay",
		Label:    "eBay",
		Set: []Rule{
			MaxLength(ColTitle, 80, "Exceeds {platform}'s 80-character limit"),
			Digits(ColUPC, []int{12, 13}, "UPC must be 12 or 13 digits"),
		},
	})
	b.AddBuiltin(RuleSet{
		Platform: "poshmark",
		Label:    "Poshmark",
		Set: []Rule{
			MaxLength(ColTitle, 80, "Exceeds {platform}'s 80-character limit"),
			Required("size", "Size is required for {platform}"),
		},
	})
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cat
}

// validRow returns a row that passes the generic rules.
func validRow(title string) Row {
	return Row{Values: map[string]string{
		ColItemID:      "",
		ColTitle:       title,
		ColDescription: "",
		ColPrice:       "19.99",
		ColQuantity:    "2",
		ColUPC:         "",
		ColCategory:    "clothing",
		ColCondition:   "new",
		ColBrand:       "Levi",
	}}
}

func withValue(r Row, col, value string) Row {
	values := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	values[col] = value
	r.Values = values
	return r
}

func newTestProcessor(t *testing.T, store Store, repairer Repairer, platforms ...string) *RowProcessor {
	t.Helper()
	return NewRowProcessor(NewValidator(testCatalog(t)), store, repairer, ProcessorConfig{
		Platforms: platforms,
	})
}
