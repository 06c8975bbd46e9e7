package domain

type ChainTxStatus string

const (
	ChainTxSubmitted ChainTxStatus = "submitted"
	ChainTxConfirmed ChainTxStatus = "confirmed"
	ChainTxFailed    ChainTxStatus = "failed"
)

// ChainReceipt is what the chain adapter observed for one transaction.
// Only ChainTxConfirmed allows local state to change.
type ChainReceipt struct {
	TxHash string        `json:"tx_hash"`
	Status ChainTxStatus `json:"status"`
}
