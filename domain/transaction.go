package domain

import "time"

type TransactionCategory string

const (
	CategoryEarned   TransactionCategory = "earned"
	CategorySpent    TransactionCategory = "spent"
	CategoryReferral TransactionCategory = "referral"
)

func (c TransactionCategory) Valid() bool {
	switch c {
	case CategoryEarned, CategorySpent, CategoryReferral:
		return true
	}
	return false
}

const (
	ModeDemo  = "demo"
	ModeChain = "chain"
)

// Transaction is a log entry. It is never the source of truth for a balance.
type Transaction struct {
	ID          int64               `json:"id"`
	UserID      string              `json:"user_id"`
	Description string              `json:"description"`
	Timestamp   time.Time           `json:"timestamp"`
	PointsDelta int64               `json:"points_delta"`
	Category    TransactionCategory `json:"category"`
	TxReference string              `json:"tx_reference,omitempty"`
	Mode        string              `json:"mode"`
}

type (
	RegisterResult struct {
		BonusPoints       int64        `json:"bonus_points"`
		AlreadyRegistered bool         `json:"already_registered"`
		Transaction       *Transaction `json:"transaction,omitempty"`
	}

	BalanceView struct {
		Points int64 `json:"points"`
		Tier
	}

	AuditReport struct {
		UserID  string `json:"user_id"`
		Balance int64  `json:"balance"`
		LogSum  int64  `json:"log_sum"`
		Drift   int64  `json:"drift"`
		Entries int    `json:"entries"`
	}

	SignupConfirmation struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
)
