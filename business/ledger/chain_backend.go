package ledger

import (
	"blockRewards/domain"
	"blockRewards/pkg/logger"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
)

// ChainBackend submits each mutation to the chain first and mirrors it
// locally only once the adapter reports the transaction confirmed.
type ChainBackend struct {
	book  *book
	chain ChainAdapter
}

func (b *ChainBackend) Mode() string {
	return domain.ModeChain
}

func (b *ChainBackend) Register(ctx context.Context, email string) (domain.RegisterResult, error) {
	b.book.mu.Lock()
	defer b.book.mu.Unlock()

	user, already, err := b.book.checkRegister(email)
	if err != nil {
		return domain.RegisterResult{}, err
	}
	if already {
		return domain.RegisterResult{AlreadyRegistered: true}, nil
	}
	if err := b.checkSigner(user); err != nil {
		return domain.RegisterResult{}, err
	}

	receipt, err := b.chain.RegisterCustomer(ctx)
	if err := confirmed(receipt, err); err != nil {
		logger.Error("Chain registration not applied", "email", email, "tx", receipt.TxHash, "error", err)
		return domain.RegisterResult{}, err
	}

	return b.book.applyRegister(context.WithoutCancel(ctx), email, domain.ModeChain, receipt.TxHash)
}

func (b *ChainBackend) Redeem(ctx context.Context, email string, rewardID int64) (domain.Transaction, error) {
	b.book.mu.Lock()
	defer b.book.mu.Unlock()

	user, idx, err := b.book.checkRedeem(email, rewardID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := b.checkSigner(user); err != nil {
		return domain.Transaction{}, err
	}

	receipt, err := b.chain.RedeemReward(ctx, rewardID)
	if err := confirmed(receipt, err); err != nil {
		logger.Error("Chain redemption not applied", "email", email, "reward_id", rewardID, "tx", receipt.TxHash, "error", err)
		return domain.Transaction{}, err
	}

	return b.book.applyRedeem(context.WithoutCancel(ctx), email, idx, domain.ModeChain, receipt.TxHash)
}

func (b *ChainBackend) AddReward(ctx context.Context, name, description string, cost, stock int64) (domain.Reward, error) {
	if err := validateReward(name, cost, stock); err != nil {
		return domain.Reward{}, err
	}

	b.book.mu.Lock()
	defer b.book.mu.Unlock()

	receipt, err := b.chain.AddReward(ctx, name, description, cost, stock)
	if err := confirmed(receipt, err); err != nil {
		logger.Error("Chain reward creation not applied", "name", name, "tx", receipt.TxHash, "error", err)
		return domain.Reward{}, err
	}

	return b.book.addReward(context.WithoutCancel(ctx), name, description, cost, stock)
}

// SyncBalance replaces the local balance with the token balance of the
// user's wallet. Only the signing wallet holds tokens earned through this
// ledger, so any other user keeps their local balance.
func (b *ChainBackend) SyncBalance(ctx context.Context, email string) (domain.User, error) {
	b.book.mu.Lock()
	defer b.book.mu.Unlock()

	user, err := b.book.users.Get(email)
	if err != nil {
		return domain.User{}, err
	}

	if !b.isSigner(user.WalletAddress) {
		return user, nil
	}

	points, err := b.chain.BalanceOf(ctx, user.WalletAddress)
	if err != nil {
		logger.Warn("Failed to read chain balance, using local balance", "email", email, "error", err)
		return user, nil
	}

	return b.book.setBalance(ctx, email, points)
}

// checkSigner rejects users whose wallet is not the account the adapter
// signs with: the contract would credit and register the wrong address.
func (b *ChainBackend) checkSigner(user domain.User) error {
	if user.WalletAddress == "" {
		return fmt.Errorf("%w: connect wallet %s before using the loyalty program", domain.ErrValidation, b.chain.Account())
	}
	if !b.isSigner(user.WalletAddress) {
		return fmt.Errorf("%w: wallet %s is not the chain account %s", domain.ErrValidation, user.WalletAddress, b.chain.Account())
	}
	return nil
}

func (b *ChainBackend) isSigner(address string) bool {
	return address != "" && strings.EqualFold(address, b.chain.Account())
}

// SyncCatalog probes reward ids 1..scan concurrently and replaces the local
// catalog with whatever the contract returns. Ids that fail or come back
// without a name are skipped. An empty result leaves the local catalog alone.
func (b *ChainBackend) SyncCatalog(ctx context.Context, scan int) error {
	p := pool.NewWithResults[domain.Reward]().WithMaxGoroutines(4)
	for id := int64(1); id <= int64(scan); id++ {
		p.Go(func() domain.Reward {
			reward, err := b.chain.RewardCatalog(ctx, id)
			if err != nil {
				logger.Debug("Reward not readable from chain", "reward_id", id, "error", err)
				return domain.Reward{}
			}
			reward.ID = id
			return reward
		})
	}

	var rewards []domain.Reward
	for _, r := range p.Wait() {
		if r.Name != "" {
			rewards = append(rewards, r)
		}
	}

	if len(rewards) == 0 {
		return nil
	}

	sort.Slice(rewards, func(i, j int) bool { return rewards[i].ID < rewards[j].ID })

	b.book.mu.Lock()
	defer b.book.mu.Unlock()

	if err := b.book.saveCatalog(ctx, rewards); err != nil {
		return err
	}

	logger.Info("Reward catalog synced from chain", "count", len(rewards))
	return nil
}

// confirmed turns an adapter result into nil only for a confirmed receipt.
// Cancellation counts as abandonment: nothing was applied, nothing to undo.
func confirmed(receipt domain.ChainReceipt, err error) error {
	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", domain.ErrChainTxAbandoned, err)
		}
		if errors.Is(err, domain.ErrChainTxAbandoned) ||
			errors.Is(err, domain.ErrChainTxFailed) ||
			errors.Is(err, domain.ErrExternalServiceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrChainTxFailed, err)
	case receipt.Status == domain.ChainTxConfirmed:
		return nil
	case receipt.Status == domain.ChainTxFailed:
		return fmt.Errorf("%w: tx %s reverted", domain.ErrChainTxFailed, receipt.TxHash)
	default:
		return fmt.Errorf("%w: tx %s is %s", domain.ErrChainTxUnconfirmed, receipt.TxHash, receipt.Status)
	}
}
