package domain

import "time"

// CREATE TABLE public.kv_entries (
//     kv_key     TEXT PRIMARY KEY,
//     value      BYTEA NOT NULL,
//     updated_at TIMESTAMPTZ DEFAULT NOW()
// );

type KVEntry struct {
	Key       string    `gorm:"column:kv_key;primaryKey;type:text"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// Fixed keys of the durable store.
const (
	KeyUsers              = "blockRewardsUsers"
	KeyCatalog            = "blockRewardsCatalog"
	KeyTransactionsPrefix = "blockRewardsTransactions:"
)

func TransactionsKey(userID string) string {
	return KeyTransactionsPrefix + userID
}
