package rating

import "fmt"

// Tier is one rung of the RP ladder. MaxRP < 0 means unbounded.
type Tier struct {
	Name    string `json:"name"`
	MinRP   int    `json:"min_rp"`
	MaxRP   int    `json:"max_rp"`
	Color   string `json:"color"`
	BGColor string `json:"bg_color"`
}

// 티어 사다리 (낮은 RP부터)
var tiers = []Tier{
	{"5급", 0, 899, "#6b7280", "#f3f4f6"},
	{"4급", 900, 999, "#3b82f6", "#eff6ff"},
	{"3급", 1000, 1099, "#06b6d4", "#ecfeff"},
	{"2급", 1100, 1199, "#10b981", "#ecfdf5"},
	{"1급", 1200, 1299, "#22c55e", "#f0fdf4"},
	{"1단", 1300, 1399, "#84cc16", "#f7fee7"},
	{"2단", 1400, 1499, "#eab308", "#fefce8"},
	{"3단", 1500, 1599, "#f59e0b", "#fffbeb"},
	{"낭인", 1600, 1699, "#8b5cf6", "#f5f3ff"},
	{"달인", 1700, 1799, "#a855f7", "#faf5ff"},
	{"명인", 1800, 1899, "#ec4899", "#fdf2f8"},
	{"지존", 1900, 1999, "#f43f5e", "#fff1f2"},
	{"패왕", 2000, 2099, "#ef4444", "#fef2f2"},
	{"투신", 2100, 2199, "#dc2626", "#fef2f2"},
	{"무신", 2200, -1, "#b91c1c", "#1f1f1f"},
}

// GetTier returns the ladder rung for an RP value. Values below the ladder
// floor fall into the lowest tier.
func GetTier(rp int) Tier {
	for _, t := range tiers {
		if t.MaxRP < 0 {
			if rp >= t.MinRP {
				return t
			}
		} else if rp >= t.MinRP && rp <= t.MaxRP {
			return t
		}
	}
	return tiers[0]
}

// AllTiers returns a copy of the ladder, lowest tier first.
func AllTiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierRangeDisplay renders an RP window as a tier span for the queue UI,
// e.g. rp=1050, delta=100 -> "4급 ~ 2급".
func TierRangeDisplay(rp, delta int) string {
	lo := rp - delta
	if lo < 0 {
		lo = 0
	}
	minTier := GetTier(lo)
	maxTier := GetTier(rp + delta)
	if minTier.Name == maxTier.Name {
		return minTier.Name
	}
	return fmt.Sprintf("%s ~ %s", minTier.Name, maxTier.Name)
}
