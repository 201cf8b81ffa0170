// Package platforms registers the built-in marketplace rule sets with the
// core registry. Import this package to ensure all rule sets are registered.
package platforms

// Each file uses init() to register one platform.

// TitleLimit is the listing title limit shared by the supported marketplaces.
const TitleLimit = 80
