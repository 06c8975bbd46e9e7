package domain

import (
	"time"
)

// User is the persisted credential record. The JSON keys are the on-disk format
// of the blockRewardsUsers entry, so renaming them breaks existing stores.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	PasswordHash  string    `json:"hashedPassword"`
	CreatedAt     time.Time `json:"createdAt"`
	WalletAddress string    `json:"walletAddress"`
	LoyaltyPoints int64     `json:"loyaltyPoints"`
	ExternalRef   string    `json:"ipfsCid"`
	IsRegistered  bool      `json:"isRegistered"`
	ReferralCode  string    `json:"referralCode"`
	ReferredBy    string    `json:"referredBy"`
}

// UserProfile is what leaves the service boundary: no password hash.
type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	CreatedAt     time.Time `json:"created_at"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	LoyaltyPoints int64     `json:"loyalty_points"`
	ExternalRef   string    `json:"ipfs_cid,omitempty"`
	IsRegistered  bool      `json:"is_registered"`
	ReferralCode  string    `json:"referral_code"`
	Tier          string    `json:"tier"`
}

// MirrorProfile is the subset of a user uploaded to the external mirror.
type MirrorProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	CreatedAt     time.Time `json:"createdAt"`
	LoyaltyPoints int64     `json:"loyaltyPoints"`
}

func (u User) Profile() UserProfile {
	return UserProfile{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		CreatedAt:     u.CreatedAt,
		WalletAddress: u.WalletAddress,
		LoyaltyPoints: u.LoyaltyPoints,
		ExternalRef:   u.ExternalRef,
		IsRegistered:  u.IsRegistered,
		ReferralCode:  u.ReferralCode,
		Tier:          TierFor(u.LoyaltyPoints).Name,
	}
}

func (u User) Mirror() MirrorProfile {
	return MirrorProfile{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		CreatedAt:     u.CreatedAt,
		LoyaltyPoints: u.LoyaltyPoints,
	}
}
