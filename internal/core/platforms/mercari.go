package platforms

import "github.com/JonMunkholm/inventory/internal/core"

// mercariDescriptionLimit is Mercari's item description limit.
const mercariDescriptionLimit = 1000

func init() {
	core.Register(core.RuleSet{
		Platform: "mercari",
		Label:    "Mercari",
		Set: []core.Rule{
			core.MaxLength(core.ColTitle, TitleLimit, "Exceeds {platform}'s 80-character limit"),
			core.MaxLength(core.ColDescription, mercariDescriptionLimit,
				"Exceeds {platform}'s 1000-character description limit"),
		},
	})
}
