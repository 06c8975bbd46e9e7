package ledger

import (
	"blockRewards/domain"
	"context"
)

// UserStore contract interface
type UserStore interface {
	Get(email string) (domain.User, error)
	Update(ctx context.Context, email string, fn func(u *domain.User) error) (domain.User, error)
	UpdateMany(ctx context.Context, emails []string, fn func(users []*domain.User) error) ([]domain.User, error)
	FindByReferralCode(code string) (domain.User, error)
}

// KVStore contract interface
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// MirrorRepository contract interface
type MirrorRepository interface {
	Upload(ctx context.Context, v interface{}) (string, error)
}

// ChainAdapter is the narrow view of the on-chain LoyaltyProgram. Mutating
// calls return once the adapter has a receipt or gives up waiting for one;
// how long that takes is the adapter's business. Every transaction is sent
// from Account, which is therefore the only customer the contract sees.
type ChainAdapter interface {
	Ready(ctx context.Context) error
	Account() string
	RegisterCustomer(ctx context.Context) (domain.ChainReceipt, error)
	RedeemReward(ctx context.Context, rewardID int64) (domain.ChainReceipt, error)
	AddReward(ctx context.Context, name, description string, cost, stock int64) (domain.ChainReceipt, error)
	BalanceOf(ctx context.Context, address string) (int64, error)
	RewardCatalog(ctx context.Context, rewardID int64) (domain.Reward, error)
}

// Backend is one way of executing ledger mutations. Both variants produce
// the same transaction shape.
type Backend interface {
	Mode() string
	Register(ctx context.Context, email string) (domain.RegisterResult, error)
	Redeem(ctx context.Context, email string, rewardID int64) (domain.Transaction, error)
	AddReward(ctx context.Context, name, description string, cost, stock int64) (domain.Reward, error)
	SyncBalance(ctx context.Context, email string) (domain.User, error)
}

type Options struct {
	WelcomeBonus  int64
	ReferralBonus int64
	// CatalogScan is how many on-chain reward ids are probed at startup.
	CatalogScan int
	// SeedCatalog is written when the persisted catalog is empty.
	SeedCatalog []domain.Reward
}

const (
	DefaultWelcomeBonus  = 50
	DefaultReferralBonus = 200
	DefaultCatalogScan   = 9
)

func (o Options) withDefaults() Options {
	if o.WelcomeBonus == 0 {
		o.WelcomeBonus = DefaultWelcomeBonus
	}
	if o.ReferralBonus == 0 {
		o.ReferralBonus = DefaultReferralBonus
	}
	if o.CatalogScan <= 0 {
		o.CatalogScan = DefaultCatalogScan
	}
	return o
}
