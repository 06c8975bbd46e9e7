package ledger

import (
	"blockRewards/domain"
	"blockRewards/pkg/logger"
	"blockRewards/pkg/metrics"
	"context"
	"errors"
	"fmt"
	"time"
)

type ledgerService struct {
	book    *book
	backend Backend
}

// NewLedgerService loads the catalog and picks the backend once: ChainBackend
// when chain is non-nil and answers Ready, LocalBackend otherwise.
func NewLedgerService(
	ctx context.Context,
	users UserStore,
	kv KVStore,
	mirror MirrorRepository,
	chain ChainAdapter,
	opts Options,
) (*ledgerService, error) {
	opts = opts.withDefaults()
	b := newBook(users, kv, mirror, opts)
	b.loadCatalog(ctx)

	if len(b.catalog) == 0 && len(opts.SeedCatalog) > 0 {
		if err := b.saveCatalog(ctx, opts.SeedCatalog); err != nil {
			logger.Error("Failed to seed reward catalog", "error", err)
			return nil, err
		}
		logger.Info("Reward catalog seeded", "count", len(opts.SeedCatalog))
	}

	s := &ledgerService{book: b}

	if chain == nil {
		s.backend = &LocalBackend{book: b}
		logger.Info("Ledger running in demo mode", "reason", "no chain configured")
		return s, nil
	}

	if err := chain.Ready(ctx); err != nil {
		s.backend = &LocalBackend{book: b}
		logger.Warn("Chain unavailable, ledger running in demo mode", "error", err)
		return s, nil
	}

	cb := &ChainBackend{book: b, chain: chain}
	if err := cb.SyncCatalog(ctx, opts.CatalogScan); err != nil {
		logger.Warn("Failed to sync reward catalog from chain", "error", err)
	}
	s.backend = cb
	logger.Info("Ledger running against chain")

	return s, nil
}

func (s *ledgerService) Mode() string {
	return s.backend.Mode()
}

func (s *ledgerService) observe(op string, start time.Time, err error) {
	result := "success"
	switch {
	case IsChainFailure(err):
		result = "chain_failure"
	case err != nil:
		result = "failure"
	}
	mode := s.backend.Mode()
	metrics.LedgerOperations.WithLabelValues(op, mode, result).Inc()
	metrics.LedgerOperationLatency.WithLabelValues(op, mode).Observe(time.Since(start).Seconds())
}

func (s *ledgerService) Register(ctx context.Context, email string) (res domain.RegisterResult, err error) {
	start := time.Now()
	defer func() { s.observe("register", start, err) }()

	res, err = s.backend.Register(ctx, email)
	if err != nil {
		logger.Error("Failed to register customer", "email", email, "error", err)
		return domain.RegisterResult{}, err
	}

	if res.AlreadyRegistered {
		logger.Info("Customer already registered, no bonus granted", "email", email)
	} else {
		logger.Info("Customer registered", "email", email, "bonus", res.BonusPoints)
	}

	return res, nil
}

func (s *ledgerService) Redeem(ctx context.Context, email string, rewardID int64) (tx domain.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe("redeem", start, err) }()

	tx, err = s.backend.Redeem(ctx, email, rewardID)
	if err != nil {
		logger.Error("Failed to redeem reward", "email", email, "reward_id", rewardID, "error", err)
		return domain.Transaction{}, err
	}

	logger.Info("Reward redeemed", "email", email, "reward_id", rewardID, "points", tx.PointsDelta)
	return tx, nil
}

func (s *ledgerService) AddReward(ctx context.Context, name, description string, cost, stock int64) (reward domain.Reward, err error) {
	start := time.Now()
	defer func() { s.observe("add_reward", start, err) }()

	reward, err = s.backend.AddReward(ctx, name, description, cost, stock)
	if err != nil {
		logger.Error("Failed to add reward", "name", name, "error", err)
		return domain.Reward{}, err
	}

	logger.Info("Reward added", "reward_id", reward.ID, "name", reward.Name)
	return reward, nil
}

// CreditPoints adds amount to the balance; a negative amount takes points away.
func (s *ledgerService) CreditPoints(ctx context.Context, email string, amount int64, description string) (tx domain.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe("credit", start, err) }()

	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	tx, err = s.book.adjust(ctx, email, amount, description, s.backend.Mode())
	if err != nil {
		logger.Error("Failed to credit points", "email", email, "amount", amount, "error", err)
		return domain.Transaction{}, err
	}

	return tx, nil
}

// DebitPoints subtracts amount from the balance; a negative amount gives points back.
func (s *ledgerService) DebitPoints(ctx context.Context, email string, amount int64, description string) (tx domain.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe("debit", start, err) }()

	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	tx, err = s.book.adjust(ctx, email, -amount, description, s.backend.Mode())
	if err != nil {
		logger.Error("Failed to debit points", "email", email, "amount", amount, "error", err)
		return domain.Transaction{}, err
	}

	return tx, nil
}

func (s *ledgerService) ApplyReferral(ctx context.Context, email, referralCode string) (txs []domain.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe("referral", start, err) }()

	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	txs, err = s.book.applyReferral(ctx, email, referralCode, s.backend.Mode())
	if err != nil {
		logger.Error("Failed to apply referral", "email", email, "error", err)
		return nil, err
	}

	return txs, nil
}

func (s *ledgerService) Rewards(ctx context.Context) ([]domain.Reward, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	return s.book.rewards(), nil
}

// Transactions returns the user's log newest first, optionally filtered by category.
func (s *ledgerService) Transactions(ctx context.Context, email string, category domain.TransactionCategory) ([]domain.Transaction, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
	}

	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	user, err := s.book.users.Get(email)
	if err != nil {
		return nil, err
	}

	entries, err := s.book.transactions(ctx, user.ID)
	if err != nil {
		logger.Error("Failed to load transactions", "email", email, "error", err)
		return nil, err
	}

	out := make([]domain.Transaction, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if category == "" || entries[i].Category == category {
			out = append(out, entries[i])
		}
	}

	return out, nil
}

func (s *ledgerService) Balance(ctx context.Context, email string) (domain.BalanceView, error) {
	user, err := s.backend.SyncBalance(ctx, email)
	if err != nil {
		logger.Error("Failed to get balance", "email", email, "error", err)
		return domain.BalanceView{}, err
	}

	return domain.BalanceView{
		Points: user.LoyaltyPoints,
		Tier:   domain.TierFor(user.LoyaltyPoints),
	}, nil
}

// Audit compares the balance with the sum of the log. It never writes.
func (s *ledgerService) Audit(ctx context.Context, email string) (domain.AuditReport, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	user, err := s.book.users.Get(email)
	if err != nil {
		return domain.AuditReport{}, err
	}

	entries, err := s.book.transactions(ctx, user.ID)
	if err != nil {
		return domain.AuditReport{}, err
	}

	var sum int64
	for _, e := range entries {
		sum += e.PointsDelta
	}

	report := domain.AuditReport{
		UserID:  user.ID,
		Balance: user.LoyaltyPoints,
		LogSum:  sum,
		Drift:   user.LoyaltyPoints - sum,
		Entries: len(entries),
	}

	if report.Drift != 0 {
		logger.Warn("Balance and transaction log disagree", "email", email, "drift", report.Drift)
	}

	return report, nil
}

// IsChainFailure reports whether err came from the chain adapter rather than
// a ledger precondition.
func IsChainFailure(err error) bool {
	return errors.Is(err, domain.ErrChainTxFailed) ||
		errors.Is(err, domain.ErrChainTxAbandoned) ||
		errors.Is(err, domain.ErrChainTxUnconfirmed) ||
		errors.Is(err, domain.ErrExternalServiceUnavailable)
}
