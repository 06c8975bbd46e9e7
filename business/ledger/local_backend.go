package ledger

import (
	"blockRewards/domain"
	"context"
)

// LocalBackend runs every operation against local state only (demo mode).
type LocalBackend struct {
	book *book
}

func (b *LocalBackend) Mode() string {
	return domain.ModeDemo
}

func (b *LocalBackend) Register(ctx context.Context, email string) (domain.RegisterResult, error) {
	b.book.mu.Lock()
	defer b.book.mu.Unlock()

	_, already, err := b.book.checkRegister(email)
	if err != nil {
		return domain.RegisterResult{}, err
	}
	if already {
		return domain.RegisterResult{AlreadyRegistered: true}, nil
	}

	return b.book.applyRegister(ctx, email, domain.ModeDemo, "")
}

func (b *LocalBackend) Redeem(ctx context.Context, email string, rewardID int64) (domain.Transaction, error) {
	b.book.mu.Lock()
	defer b.book.mu.Unlock()

	_, idx, err := b.book.checkRedeem(email, rewardID)
	if err != nil {
		return domain.Transaction{}, err
	}

	return b.book.applyRedeem(ctx, email, idx, domain.ModeDemo, "")
}

func (b *LocalBackend) AddReward(ctx context.Context, name, description string, cost, stock int64) (domain.Reward, error) {
	if err := validateReward(name, cost, stock); err != nil {
		return domain.Reward{}, err
	}

	b.book.mu.Lock()
	defer b.book.mu.Unlock()

	return b.book.addReward(ctx, name, description, cost, stock)
}

// SyncBalance has nothing to reconcile against in demo mode.
func (b *LocalBackend) SyncBalance(ctx context.Context, email string) (domain.User, error) {
	return b.book.users.Get(email)
}
