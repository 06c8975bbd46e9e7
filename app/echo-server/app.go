package main

import (
	"blockRewards/business/credential"
	"blockRewards/business/ledger"
	"blockRewards/business/user"
	"blockRewards/internal/repository/chain"
	"blockRewards/internal/repository/ipfs"
	leveldbRepo "blockRewards/internal/repository/leveldb"
	psqlRepo "blockRewards/internal/repository/postgres"
	redisRepo "blockRewards/internal/repository/redis"
	"blockRewards/internal/rest"
	"blockRewards/pkg/config"
	"blockRewards/pkg/database"
	"blockRewards/pkg/database/redis"
	"blockRewards/pkg/logger"
	"context"
	"fmt"
)

type kvBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// application is everything both commands need: storage, the credential
// store and the ledger with its backend already selected.
type application struct {
	cfg    *config.Config
	kv     kvBackend
	store  *credential.Store
	mirror user.MirrorRepository
	ledger rest.LedgerService
}

// newApplication wires storage and the ledger. withChain false keeps the
// ledger in demo mode so nothing is read from or written to the chain.
func newApplication(ctx context.Context, cfg *config.Config, withChain bool) (*application, error) {
	kv, err := openKV(cfg)
	if err != nil {
		return nil, err
	}

	store := credential.NewStore(kv)
	store.Load(ctx)

	app := &application{cfg: cfg, kv: kv, store: store}

	if cfg.Pinata.Enabled() {
		app.mirror = ipfs.NewPinataRepository(ipfs.PinataConfig{
			BaseURL:       cfg.Pinata.BaseURL,
			GatewayURL:    cfg.Pinata.GatewayURL,
			APIKey:        cfg.Pinata.APIKey,
			SecretAPIKey:  cfg.Pinata.SecretAPIKey,
			EncryptionKey: cfg.Pinata.EncryptionKey,
			Timeout:       cfg.Pinata.Timeout,
		})
		logger.Info("Profile mirror enabled", "gateway", cfg.Pinata.GatewayURL)
	}

	var chainAdapter ledger.ChainAdapter
	if withChain && cfg.Chain.Enabled() {
		adapter, err := dialChain(cfg)
		if err != nil {
			logger.Warn("Chain adapter not available", "error", err)
		} else {
			chainAdapter = adapter
		}
	}

	opts := ledger.Options{
		WelcomeBonus:  cfg.Ledger.WelcomeBonus,
		ReferralBonus: cfg.Ledger.ReferralBonus,
		CatalogScan:   cfg.Chain.CatalogScan,
	}
	if cfg.Ledger.CatalogFile != "" {
		seed, err := ledger.LoadCatalogFile(cfg.Ledger.CatalogFile)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("load catalog seed: %w", err)
		}
		opts.SeedCatalog = seed
	}

	svc, err := ledger.NewLedgerService(ctx, store, kv, app.mirror, chainAdapter, opts)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	app.ledger = svc

	return app, nil
}

func (a *application) Close() {
	if err := a.kv.Close(); err != nil {
		logger.Error("Failed to close storage", "error", err)
	}
}

func openKV(cfg *config.Config) (kvBackend, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := database.InitPostgres(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("Database connected successfully", "driver", cfg.Storage.Driver)
		return psqlRepo.NewKVRepository(db), nil

	case config.StorageRedis:
		client, err := redis.NewRedisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("Redis connected successfully")
		return redisRepo.NewKVRepository(client, cfg.Redis.KeyPrefix), nil

	default:
		db, err := database.OpenLevelDB(cfg.Storage.LevelDBPath)
		if err != nil {
			return nil, fmt.Errorf("open leveldb: %w", err)
		}
		logger.Info("LevelDB opened", "path", cfg.Storage.LevelDBPath)
		return leveldbRepo.NewKVRepository(db), nil
	}
}

var dialChain = func(cfg *config.Config) (ledger.ChainAdapter, error) {
	repo, err := openChain(cfg)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func openChain(cfg *config.Config) (*chain.EVMRepository, error) {
	client, err := chain.DialEVMClient(cfg.Chain.RPCURL)
	if err != nil {
		return nil, err
	}

	return chain.NewEVMRepository(client, chain.Config{
		ProgramAddress: cfg.Chain.ProgramAddress,
		TokenAddress:   cfg.Chain.TokenAddress,
		PrivateKey:     cfg.Chain.PrivateKey,
		ConfirmTimeout: cfg.Chain.ConfirmTimeout,
		PollInterval:   cfg.Chain.PollInterval,
	})
}
