package platforms

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/inventory/internal/core"
)

// Bounds applied to every record regardless of platform.
var (
	MaxPrice    = decimal.RequireFromString("999999.99")
	MaxQuantity = 999999
	MaxBrand    = 100
)

func init() {
	core.Register(core.RuleSet{
		Platform: core.GenericPlatform,
		Label:    "Generic",
		Set: []core.Rule{
			core.PositiveID(core.ColItemID, "Invalid item ID"),
			core.Required(core.ColTitle, "Title cannot be empty"),
			core.Required(core.ColPrice, "Price is required"),
			core.Decimal(core.ColPrice, "Invalid price value"),
			core.DecimalMin(core.ColPrice, decimal.Zero, "Price must be non-negative"),
			core.DecimalMax(core.ColPrice, MaxPrice, "Price exceeds maximum allowed value"),
			core.DecimalPlaces(core.ColPrice, 2, "Price must have at most 2 decimal places"),
			core.Required(core.ColQuantity, "Quantity is required"),
			core.Integer(core.ColQuantity, "Invalid quantity value"),
			core.IntMin(core.ColQuantity, 0, "Quantity must be non-negative"),
			core.IntMax(core.ColQuantity, MaxQuantity, "Quantity exceeds maximum allowed value"),
			core.Required(core.ColCategory, "Category cannot be empty"),
			core.Required(core.ColCondition, "Condition is required"),
			core.OneOf(core.ColCondition, core.Conditions,
				"Condition must be one of: "+strings.Join(core.Conditions, ", ")),
			core.MaxLength(core.ColBrand, MaxBrand, "Brand exceeds 100 characters"),
		},
	})
}
