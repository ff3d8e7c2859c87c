package model

import "fmt"

// Tier is a named subscription level with a fixed daily generation quota.
type Tier string

const (
	TierFree       Tier = "free"
	TierCreator    Tier = "creator"
	TierBusiness   Tier = "business"
	TierEnterprise Tier = "enterprise"
)

// UnlimitedDaily marks a tier with no daily cap.
const UnlimitedDaily = -1

// TierInfo describes one subscription level. Prices are monthly, in
// cents. The Stripe price reference for paid tiers comes from
// configuration, not from this table.
type TierInfo struct {
	DailyLimit        int
	DisplayName       string
	MonthlyPriceCents int64
}

// tierTable is the immutable process-wide tier configuration. Exactly
// four entries; free has no Stripe price.
var tierTable = map[Tier]TierInfo{
	TierFree:       {DailyLimit: 3, DisplayName: "Free", MonthlyPriceCents: 0},
	TierCreator:    {DailyLimit: 5, DisplayName: "Creator Pro", MonthlyPriceCents: 799},
	TierBusiness:   {DailyLimit: 10, DisplayName: "Business Elite", MonthlyPriceCents: 1299},
	TierEnterprise: {DailyLimit: UnlimitedDaily, DisplayName: "Enterprise", MonthlyPriceCents: 3799},
}

// ParseTier validates a tier value from a request or persisted record.
func ParseTier(s string) (Tier, error) {
	if _, ok := tierTable[Tier(s)]; ok {
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Info returns the configuration for t, falling back to the free tier
// for the zero value so a user created before tier assignment still
// gets a usable quota.
func (t Tier) Info() TierInfo {
	if info, ok := tierTable[t]; ok {
		return info
	}
	return tierTable[TierFree]
}

// Unlimited reports whether t has no daily generation cap.
func (t Tier) Unlimited() bool {
	return t.Info().DailyLimit == UnlimitedDaily
}

// Tiers returns the full tier table for pricing displays.
func Tiers() map[Tier]TierInfo {
	out := make(map[Tier]TierInfo, len(tierTable))
	for k, v := range tierTable {
		out[k] = v
	}
	return out
}
