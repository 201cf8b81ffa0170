package platforms

import "github.com/JonMunkholm/inventory/internal/core"

func init() {
	core.Register(core.RuleSet{
		Platform: "ebay",
		Label:    "eBay",
		Set: []core.Rule{
			core.MaxLength(core.ColTitle, TitleLimit, "Exceeds {platform}'s 80-character limit"),
			core.Digits(core.ColUPC, []int{12, 13}, "UPC must be 12 or 13 digits"),
		},
	})
}
