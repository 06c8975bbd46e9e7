package main

import (
	"blockRewards/business/ledger"
	"blockRewards/domain"
	"blockRewards/pkg/config"
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChain struct {
	catalogReads atomic.Int32
}

func (c *stubChain) Ready(context.Context) error { return nil }

func (c *stubChain) Account() string { return "0x00000000000000000000000000000000000000Aa" }

func (c *stubChain) RegisterCustomer(context.Context) (domain.ChainReceipt, error) {
	return domain.ChainReceipt{Status: domain.ChainTxConfirmed}, nil
}

func (c *stubChain) RedeemReward(context.Context, int64) (domain.ChainReceipt, error) {
	return domain.ChainReceipt{Status: domain.ChainTxConfirmed}, nil
}

func (c *stubChain) AddReward(context.Context, string, string, int64, int64) (domain.ChainReceipt, error) {
	return domain.ChainReceipt{Status: domain.ChainTxConfirmed}, nil
}

func (c *stubChain) BalanceOf(context.Context, string) (int64, error) { return 0, nil }

func (c *stubChain) RewardCatalog(_ context.Context, id int64) (domain.Reward, error) {
	c.catalogReads.Add(1)
	return domain.Reward{ID: id, Name: "Chain reward", Cost: 1, Stock: 1, IsActive: true}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{
			Driver:      config.StorageLevelDB,
			LevelDBPath: filepath.Join(t.TempDir(), "db"),
		},
		Chain: config.ChainConfig{
			RPCURL:         "http://127.0.0.1:8545",
			ProgramAddress: "0x00000000000000000000000000000000000000Cc",
			PrivateKey:     "01",
			CatalogScan:    2,
		},
	}
}

func stubDialChain(t *testing.T) (*stubChain, *int) {
	t.Helper()
	chain := &stubChain{}
	dials := 0
	previous := dialChain
	dialChain = func(*config.Config) (ledger.ChainAdapter, error) {
		dials++
		return chain, nil
	}
	t.Cleanup(func() { dialChain = previous })
	return chain, &dials
}

func TestAuditApplicationNeverTouchesChain(t *testing.T) {
	chain, dials := stubDialChain(t)

	app, err := newApplication(context.Background(), testConfig(t), false)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, domain.ModeDemo, app.ledger.Mode())
	assert.Zero(t, *dials)
	assert.Zero(t, chain.catalogReads.Load())

	rewards, err := app.ledger.Rewards(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rewards)
}

func TestServeApplicationUsesChain(t *testing.T) {
	chain, dials := stubDialChain(t)

	app, err := newApplication(context.Background(), testConfig(t), true)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, domain.ModeChain, app.ledger.Mode())
	assert.Equal(t, 1, *dials)
	assert.Equal(t, int32(2), chain.catalogReads.Load())

	rewards, err := app.ledger.Rewards(context.Background())
	require.NoError(t, err)
	assert.Len(t, rewards, 2)
}
