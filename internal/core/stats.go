package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PriceBuckets are the upper bounds of the cumulative price ranges.
var PriceBuckets = []int64{10, 25, 50, 100, 250}

// GroupStats summarises the records sharing one value of a field.
type GroupStats struct {
	Key          string          `json:"key"`
	Count        int             `json:"count"`
	TotalValue   decimal.Decimal `json:"total_value"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// PriceRange counts records priced below Below (cumulative), or at and
// above the last bucket when Below is zero.
type PriceRange struct {
	Label string `json:"label"`
	Below int64  `json:"below,omitempty"`
	Count int    `json:"count"`
}

// InventoryStats is the result of ComputeStats.
type InventoryStats struct {
	TotalItems   int             `json:"total_items"`
	TotalValue   decimal.Decimal `json:"total_value"`
	AveragePrice decimal.Decimal `json:"average_price"`
	Categories   []GroupStats    `json:"categories"`
	Conditions   []GroupStats    `json:"conditions"`
	Brands       []GroupStats    `json:"brands"`
	PriceRanges  []PriceRange    `json:"price_ranges"`
}

// ComputeStats aggregates records. Value is price times quantity.
func ComputeStats(records []Record) InventoryStats {
	s := InventoryStats{
		TotalItems:   len(records),
		TotalValue:   decimal.Zero,
		AveragePrice: decimal.Zero,
	}

	priceSum := decimal.Zero
	for _, r := range records {
		s.TotalValue = s.TotalValue.Add(r.Price.Mul(decimal.NewFromInt(int64(r.Quantity))))
		priceSum = priceSum.Add(r.Price)
	}
	if len(records) > 0 {
		s.AveragePrice = priceSum.Div(decimal.NewFromInt(int64(len(records)))).Round(2)
	}

	s.Categories = groupBy(records, func(r Record) string { return r.Category })
	s.Conditions = groupBy(records, func(r Record) string { return string(r.Condition) })
	s.Brands = groupBy(records, func(r Record) string { return r.Brand })

	for _, b := range PriceBuckets {
		limit := decimal.NewFromInt(b)
		n := 0
		for _, r := range records {
			if r.Price.LessThan(limit) {
				n++
			}
		}
		s.PriceRanges = append(s.PriceRanges, PriceRange{
			Label: "under $" + limit.String(),
			Below: b,
			Count: n,
		})
	}
	top := decimal.NewFromInt(PriceBuckets[len(PriceBuckets)-1])
	over := 0
	for _, r := range records {
		if r.Price.GreaterThanOrEqual(top) {
			over++
		}
	}
	s.PriceRanges = append(s.PriceRanges, PriceRange{Label: "$" + top.String() + " and over", Count: over})

	return s
}

// groupBy aggregates by key, largest groups first, ties by key.
// Records with an empty key are grouped under "(none)".
func groupBy(records []Record, key func(Record) string) []GroupStats {
	idx := make(map[string]int)
	var groups []GroupStats
	prices := make(map[string]decimal.Decimal)

	for _, r := range records {
		k := key(r)
		if k == "" {
			k = "(none)"
		}
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, GroupStats{Key: k, TotalValue: decimal.Zero})
		}
		groups[i].Count++
		groups[i].TotalValue = groups[i].TotalValue.Add(r.Price.Mul(decimal.NewFromInt(int64(r.Quantity))))
		prices[k] = prices[k].Add(r.Price)
	}

	for i := range groups {
		groups[i].AveragePrice = prices[groups[i].Key].Div(decimal.NewFromInt(int64(groups[i].Count))).Round(2)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}
