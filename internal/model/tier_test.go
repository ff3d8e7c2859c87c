package model

import "testing"

func TestTierTable(t *testing.T) {
	cases := []struct {
		tier  Tier
		limit int
		name  string
		cents int64
	}{
		{TierFree, 3, "Free", 0},
		{TierCreator, 5, "Creator Pro", 799},
		{TierBusiness, 10, "Business Elite", 1299},
		{TierEnterprise, UnlimitedDaily, "Enterprise", 3799},
	}
	for _, tc := range cases {
		t.Run(string(tc.tier), func(t *testing.T) {
			info := tc.tier.Info()
			if info.DailyLimit != tc.limit || info.DisplayName != tc.name || info.MonthlyPriceCents != tc.cents {
				t.Fatalf("%s info = %+v", tc.tier, info)
			}
		})
	}
	if !TierEnterprise.Unlimited() {
		t.Fatalf("enterprise should be unlimited")
	}
	if TierFree.Unlimited() {
		t.Fatalf("free should not be unlimited")
	}
}

func TestParseTierRejectsUnknown(t *testing.T) {
	if _, err := ParseTier("platinum"); err == nil {
		t.Fatalf("ParseTier should reject unknown tier")
	}
	if got, err := ParseTier("creator"); err != nil || got != TierCreator {
		t.Fatalf("ParseTier(creator) = (%v,%v)", got, err)
	}
}

func TestZeroTierFallsBackToFree(t *testing.T) {
	var t0 Tier
	if t0.Info().DailyLimit != 3 {
		t.Fatalf("zero tier limit = %d, want free limit 3", t0.Info().DailyLimit)
	}
}

func TestParseMemoryKind(t *testing.T) {
	for _, k := range []string{"user_query", "content_generation", "content_copy", "conversation"} {
		if _, err := ParseMemoryKind(k); err != nil {
			t.Fatalf("ParseMemoryKind(%q) error = %v", k, err)
		}
	}
	if _, err := ParseMemoryKind("telepathy"); err == nil {
		t.Fatalf("ParseMemoryKind should reject unknown kind")
	}
}
