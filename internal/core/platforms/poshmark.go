package platforms

import "github.com/JonMunkholm/inventory/internal/core"

func init() {
	core.Register(core.RuleSet{
		Platform: "poshmark",
		Label:    "Poshmark",
		Set: []core.Rule{
			core.MaxLength(core.ColTitle, TitleLimit, "Exceeds {platform}'s 80-character limit"),
			core.Required("size", "Size is required for {platform}"),
		},
	})
}
