package model

import "strings"

// TierNames holds the display names of the five difficulty tiers,
// indexed by tier.
var TierNames = [TierCount]string{"Basic", "Advanced", "Expert", "Master", "Re:Master"}

// difficultyTokens maps user-facing difficulty tokens to tier indices.
// Both the CJK color shorthand and the English tier names are accepted.
var difficultyTokens = map[string]int{
	"绿":        0,
	"黄":        1,
	"红":        2,
	"紫":        3,
	"白":        4,
	"basic":    0,
	"advanced": 1,
	"expert":   2,
	"master":   3,
	"remaster": 4,
}

// ParseDifficulty maps a difficulty token to a tier index.
// Returns false for tokens that do not name a known tier.
func ParseDifficulty(token string) (int, bool) {
	tier, ok := difficultyTokens[strings.ToLower(strings.TrimSpace(token))]
	return tier, ok
}
