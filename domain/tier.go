package domain

// Tier is the loyalty level derived from a balance.
type Tier struct {
	Name       string  `json:"tier"`
	NextTierAt int64   `json:"next_tier_at"`
	Progress   float64 `json:"progress"`
}

const (
	TierBronze = "Bronze"
	TierSilver = "Silver"
	TierGold   = "Gold"

	silverThreshold = 2000
	goldThreshold   = 5000
	goldCeiling     = 10000
)

// TierFor maps points to a tier. Progress is a percentage towards the next tier.
func TierFor(points int64) Tier {
	switch {
	case points >= goldThreshold:
		return Tier{Name: TierGold, NextTierAt: goldCeiling, Progress: 100}
	case points >= silverThreshold:
		return Tier{
			Name:       TierSilver,
			NextTierAt: goldThreshold,
			Progress:   float64(points-silverThreshold) / float64(goldThreshold-silverThreshold) * 100,
		}
	default:
		if points < 0 {
			points = 0
		}
		return Tier{
			Name:       TierBronze,
			NextTierAt: silverThreshold,
			Progress:   float64(points) / float64(silverThreshold) * 100,
		}
	}
}
