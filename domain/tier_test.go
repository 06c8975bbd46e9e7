package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		points   int64
		name     string
		next     int64
		progress float64
	}{
		{0, TierBronze, 2000, 0},
		{1000, TierBronze, 2000, 50},
		{1999, TierBronze, 2000, 99.95},
		{2000, TierSilver, 5000, 0},
		{3500, TierSilver, 5000, 50},
		{5000, TierGold, 10000, 100},
		{42000, TierGold, 10000, 100},
		{-10, TierBronze, 2000, 0},
	}

	for _, tc := range cases {
		got := TierFor(tc.points)
		assert.Equal(t, tc.name, got.Name, "points=%d", tc.points)
		assert.Equal(t, tc.next, got.NextTierAt, "points=%d", tc.points)
		assert.InDelta(t, tc.progress, got.Progress, 0.001, "points=%d", tc.points)
	}
}

func TestInactiveRewardMatchesNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrRewardInactive, ErrRewardNotFound)
	assert.NotErrorIs(t, ErrRewardNotFound, ErrRewardInactive)
}

func TestProfileHidesPasswordHash(t *testing.T) {
	u := User{ID: "1", Email: "a@x.com", PasswordHash: "secret", LoyaltyPoints: 2500}
	p := u.Profile()
	assert.Equal(t, TierSilver, p.Tier)
	assert.Equal(t, "a@x.com", p.Email)
}
