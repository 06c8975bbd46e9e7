package ledger

import (
	"blockRewards/domain"
	"blockRewards/pkg/logger"
	"blockRewards/pkg/metrics"
	"blockRewards/pkg/snowflake"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// book holds the state both backends mutate: user balances (through the
// credential store), the reward catalog and the per-user transaction logs.
// Callers hold mu for the whole operation, chain round trips included.
type book struct {
	mu      sync.Mutex
	users   UserStore
	kv      KVStore
	mirror  MirrorRepository
	opts    Options
	catalog []domain.Reward
	logs    map[string][]domain.Transaction
	now     func() time.Time
}

func newBook(users UserStore, kv KVStore, mirror MirrorRepository, opts Options) *book {
	return &book{
		users:  users,
		kv:     kv,
		mirror: mirror,
		opts:   opts,
		logs:   make(map[string][]domain.Transaction),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// loadCatalog reads the persisted catalog; missing or corrupt data is empty.
func (b *book) loadCatalog(ctx context.Context) {
	b.catalog = nil

	raw, err := b.kv.Get(ctx, domain.KeyCatalog)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			logger.Warn("Failed to read reward catalog, starting empty", "error", err)
		}
		return
	}

	var rewards []domain.Reward
	if err := json.Unmarshal(raw, &rewards); err != nil {
		logger.Warn("Corrupt reward catalog, starting empty", "error", err)
		return
	}

	sort.Slice(rewards, func(i, j int) bool { return rewards[i].ID < rewards[j].ID })
	b.catalog = rewards
}

func (b *book) saveCatalog(ctx context.Context, rewards []domain.Reward) error {
	payload, err := json.Marshal(rewards)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := b.kv.Put(ctx, domain.KeyCatalog, payload); err != nil {
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	b.catalog = rewards
	return nil
}

func (b *book) rewards() []domain.Reward {
	out := make([]domain.Reward, len(b.catalog))
	copy(out, b.catalog)
	return out
}

func (b *book) rewardIndex(id int64) int {
	for i, r := range b.catalog {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (b *book) nextRewardID() int64 {
	var max int64
	for _, r := range b.catalog {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}

func validateReward(name string, cost, stock int64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: reward name is required", domain.ErrValidation)
	}
	if cost < 0 {
		return fmt.Errorf("%w: cost cannot be negative", domain.ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", domain.ErrValidation)
	}
	return nil
}

func (b *book) addReward(ctx context.Context, name, description string, cost, stock int64) (domain.Reward, error) {
	reward := domain.Reward{
		ID:          b.nextRewardID(),
		Name:        name,
		Description: description,
		Cost:        cost,
		Stock:       stock,
		IsActive:    true,
	}

	next := append(b.rewards(), reward)
	if err := b.saveCatalog(ctx, next); err != nil {
		return domain.Reward{}, err
	}

	return reward, nil
}

// checkRegister reports whether the user already holds the welcome bonus.
func (b *book) checkRegister(email string) (domain.User, bool, error) {
	user, err := b.users.Get(email)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, user.IsRegistered, nil
}

func (b *book) applyRegister(ctx context.Context, email, mode, txRef string) (domain.RegisterResult, error) {
	user, err := b.users.Update(ctx, email, func(u *domain.User) error {
		u.IsRegistered = true
		u.LoyaltyPoints += b.opts.WelcomeBonus
		return nil
	})
	if err != nil {
		return domain.RegisterResult{}, err
	}

	tx := b.record(ctx, user, "Welcome Bonus", b.opts.WelcomeBonus, domain.CategoryEarned, mode, txRef)
	b.refreshMirror(ctx, user)

	return domain.RegisterResult{
		BonusPoints: b.opts.WelcomeBonus,
		Transaction: &tx,
	}, nil
}

// checkRedeem runs every redemption precondition without mutating anything.
func (b *book) checkRedeem(email string, rewardID int64) (domain.User, int, error) {
	user, err := b.users.Get(email)
	if err != nil {
		return domain.User{}, -1, err
	}

	if !user.IsRegistered {
		return domain.User{}, -1, domain.ErrNotRegistered
	}

	idx := b.rewardIndex(rewardID)
	if idx < 0 {
		return domain.User{}, -1, fmt.Errorf("%w: id %d", domain.ErrRewardNotFound, rewardID)
	}

	reward := b.catalog[idx]
	if !reward.IsActive {
		return domain.User{}, -1, domain.ErrRewardInactive
	}

	if reward.Stock <= 0 {
		return domain.User{}, -1, fmt.Errorf("%w: %s", domain.ErrOutOfStock, reward.Name)
	}

	if user.LoyaltyPoints < reward.Cost {
		return domain.User{}, -1, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientPoints, user.LoyaltyPoints, reward.Cost)
	}

	return user, idx, nil
}

// applyRedeem writes the catalog first, then the user. A failed user write
// restores the previous catalog so neither side moves alone.
func (b *book) applyRedeem(ctx context.Context, email string, idx int, mode, txRef string) (domain.Transaction, error) {
	previous := b.rewards()
	next := b.rewards()
	reward := next[idx]
	reward.Stock--
	next[idx] = reward

	if err := b.saveCatalog(ctx, next); err != nil {
		return domain.Transaction{}, err
	}

	user, err := b.users.Update(ctx, email, func(u *domain.User) error {
		if u.LoyaltyPoints < reward.Cost {
			return fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientPoints, u.LoyaltyPoints, reward.Cost)
		}
		u.LoyaltyPoints -= reward.Cost
		return nil
	})
	if err != nil {
		if rbErr := b.saveCatalog(ctx, previous); rbErr != nil {
			logger.Error("Failed to restore catalog after user write failure", "error", rbErr)
			b.catalog = previous
		}
		return domain.Transaction{}, err
	}

	tx := b.record(ctx, user, "Redeemed "+reward.Name, -reward.Cost, domain.CategorySpent, mode, txRef)
	b.refreshMirror(ctx, user)

	return tx, nil
}

// adjust moves a balance by delta. Underflow is rejected before anything is written.
func (b *book) adjust(ctx context.Context, email string, delta int64, description string, mode string) (domain.Transaction, error) {
	if delta == 0 {
		return domain.Transaction{}, fmt.Errorf("%w: amount must not be zero", domain.ErrValidation)
	}

	user, err := b.users.Update(ctx, email, func(u *domain.User) error {
		if u.LoyaltyPoints+delta < 0 {
			return fmt.Errorf("%w: have %d, change %d", domain.ErrInsufficientPoints, u.LoyaltyPoints, delta)
		}
		u.LoyaltyPoints += delta
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	category := domain.CategoryEarned
	if delta < 0 {
		category = domain.CategorySpent
	}
	if description == "" {
		description = "Points adjustment"
	}

	tx := b.record(ctx, user, description, delta, category, mode, "")
	b.refreshMirror(ctx, user)

	return tx, nil
}

func (b *book) applyReferral(ctx context.Context, email, code, mode string) ([]domain.Transaction, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: referral code is required", domain.ErrValidation)
	}

	current, err := b.users.Get(email)
	if err != nil {
		return nil, err
	}
	if !current.IsRegistered {
		return nil, domain.ErrNotRegistered
	}
	if current.ReferredBy != "" {
		return nil, domain.ErrAlreadyReferred
	}

	found, err := b.users.FindByReferralCode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown referral code", domain.ErrNotFound)
	}

	if found.Email == email {
		return nil, fmt.Errorf("%w: cannot refer yourself", domain.ErrValidation)
	}

	bonus := b.opts.ReferralBonus
	updated, err := b.users.UpdateMany(ctx, []string{email, found.Email}, func(users []*domain.User) error {
		referee, referrer := users[0], users[1]
		referee.ReferredBy = referrer.ID
		referee.LoyaltyPoints += bonus
		referrer.LoyaltyPoints += bonus
		return nil
	})
	if err != nil {
		return nil, err
	}
	referee, referrer := updated[0], updated[1]

	txs := []domain.Transaction{
		b.record(ctx, referee, "Referral Bonus", bonus, domain.CategoryReferral, mode, ""),
		b.record(ctx, referrer, "Referral Bonus: "+referee.FirstName, bonus, domain.CategoryReferral, mode, ""),
	}
	b.refreshMirror(ctx, referee)
	b.refreshMirror(ctx, referrer)

	return txs, nil
}

// setBalance mirrors an externally observed balance without a log entry.
func (b *book) setBalance(ctx context.Context, email string, points int64) (domain.User, error) {
	if points < 0 {
		points = 0
	}
	return b.users.Update(ctx, email, func(u *domain.User) error {
		u.LoyaltyPoints = points
		return nil
	})
}

// record appends to the user's log. The balance is already committed at this
// point, so a failed log write is reported but not returned; Audit shows the drift.
func (b *book) record(ctx context.Context, user domain.User, description string, delta int64, category domain.TransactionCategory, mode, txRef string) domain.Transaction {
	tx := domain.Transaction{
		ID:          snowflake.GenID(),
		UserID:      user.ID,
		Description: description,
		Timestamp:   b.now(),
		PointsDelta: delta,
		Category:    category,
		TxReference: txRef,
		Mode:        mode,
	}

	if delta < 0 {
		metrics.PointsMoved.WithLabelValues(string(category)).Add(float64(-delta))
	} else {
		metrics.PointsMoved.WithLabelValues(string(category)).Add(float64(delta))
	}

	entries, err := b.transactions(ctx, user.ID)
	if err != nil {
		logger.Error("Failed to load transaction log", "user_id", user.ID, "error", err)
		return tx
	}

	next := append(append([]domain.Transaction(nil), entries...), tx)
	payload, err := json.Marshal(next)
	if err != nil {
		logger.Error("Failed to marshal transaction log", "user_id", user.ID, "error", err)
		return tx
	}

	if err := b.kv.Put(ctx, domain.TransactionsKey(user.ID), payload); err != nil {
		logger.Error("Failed to persist transaction log", "user_id", user.ID, "error", err)
		return tx
	}

	b.logs[user.ID] = next
	return tx
}

// transactions returns the log oldest first, loading it on first use.
func (b *book) transactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	if entries, ok := b.logs[userID]; ok {
		return entries, nil
	}

	raw, err := b.kv.Get(ctx, domain.TransactionsKey(userID))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			b.logs[userID] = nil
			return nil, nil
		}
		return nil, err
	}

	var entries []domain.Transaction
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Warn("Corrupt transaction log, treating as empty", "user_id", userID, "error", err)
		entries = nil
	}

	b.logs[userID] = entries
	return entries, nil
}

// refreshMirror re-uploads a mirrored profile after a balance change. Users
// without an existing mirror are skipped; failures are only logged.
func (b *book) refreshMirror(ctx context.Context, user domain.User) {
	if b.mirror == nil || user.ExternalRef == "" {
		return
	}

	cid, err := b.mirror.Upload(ctx, user.Mirror())
	if err != nil {
		metrics.MirrorFailures.Inc()
		logger.Warn("Failed to update mirrored profile", "email", user.Email, "error", err)
		return
	}

	if cid == user.ExternalRef {
		return
	}

	_, err = b.users.Update(ctx, user.Email, func(u *domain.User) error {
		u.ExternalRef = cid
		return nil
	})
	if err != nil {
		logger.Warn("Failed to store new mirror reference", "email", user.Email, "error", err)
	}
}
