package chain

import (
	"blockRewards/domain"
	"blockRewards/pkg/logger"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
)

const programABIJSON = `[
	{"type":"function","name":"registerCustomer","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"redeemReward","inputs":[{"name":"rewardId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"addReward","inputs":[
		{"name":"name","type":"string"},
		{"name":"description","type":"string"},
		{"name":"cost","type":"uint256"},
		{"name":"stock","type":"uint256"}
	],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"rewards","inputs":[{"name":"","type":"uint256"}],"outputs":[
		{"name":"name","type":"string"},
		{"name":"description","type":"string"},
		{"name":"cost","type":"uint256"},
		{"name":"stock","type":"uint256"},
		{"name":"isActive","type":"bool"}
	],"stateMutability":"view"}
]`

const tokenABIJSON = `[
	{"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
]`

var (
	programABI = mustParseABI(programABIJSON)
	tokenABI   = mustParseABI(tokenABIJSON)

	weiPerPoint = big.NewInt(params.Ether)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid contract abi: %v", err))
	}
	return parsed
}

// EVMClient defines the subset of the Ethereum RPC used by the adapter.
type EVMClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DialEVMClient initialises an EVM RPC client for the provided endpoint.
func DialEVMClient(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("evm endpoint required")
	}
	return ethclient.Dial(trimmed)
}

type Config struct {
	ProgramAddress string
	TokenAddress   string
	PrivateKey     string
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// EVMRepository drives the LoyaltyProgram contract with a single operator key.
type EVMRepository struct {
	client  EVMClient
	program common.Address
	token   common.Address
	key     *ecdsa.PrivateKey
	from    common.Address
	cfg     Config
}

func NewEVMRepository(client EVMClient, cfg Config) (*EVMRepository, error) {
	if client == nil {
		return nil, errors.New("evm client required")
	}
	if !common.IsHexAddress(cfg.ProgramAddress) {
		return nil, fmt.Errorf("invalid program address %q", cfg.ProgramAddress)
	}
	if cfg.TokenAddress != "" && !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}

	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid operator key: %w", err)
	}

	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	r := &EVMRepository{
		client:  client,
		program: common.HexToAddress(cfg.ProgramAddress),
		key:     key,
		from:    ethcrypto.PubkeyToAddress(key.PublicKey),
		cfg:     cfg,
	}
	if cfg.TokenAddress != "" {
		r.token = common.HexToAddress(cfg.TokenAddress)
	}

	return r, nil
}

// Account is the operator address every transaction is signed with.
func (r *EVMRepository) Account() string {
	return r.from.Hex()
}

// Ready checks that the node answers and the program address holds code.
func (r *EVMRepository) Ready(ctx context.Context) error {
	if _, err := r.client.ChainID(ctx); err != nil {
		return fmt.Errorf("%w: chain id: %v", domain.ErrExternalServiceUnavailable, err)
	}

	code, err := r.client.CodeAt(ctx, r.program, nil)
	if err != nil {
		return fmt.Errorf("%w: code at %s: %v", domain.ErrExternalServiceUnavailable, r.program.Hex(), err)
	}
	if len(code) == 0 {
		return fmt.Errorf("no contract deployed at %s", r.program.Hex())
	}

	return nil
}

func (r *EVMRepository) RegisterCustomer(ctx context.Context) (domain.ChainReceipt, error) {
	return r.transact(ctx, "registerCustomer")
}

func (r *EVMRepository) RedeemReward(ctx context.Context, rewardID int64) (domain.ChainReceipt, error) {
	return r.transact(ctx, "redeemReward", big.NewInt(rewardID))
}

func (r *EVMRepository) AddReward(ctx context.Context, name, description string, cost, stock int64) (domain.ChainReceipt, error) {
	return r.transact(ctx, "addReward", name, description, pointsToWei(cost), big.NewInt(stock))
}

// BalanceOf reads the token balance of address in whole points.
func (r *EVMRepository) BalanceOf(ctx context.Context, address string) (int64, error) {
	if (r.token == common.Address{}) {
		return 0, errors.New("token address not configured")
	}
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("%w: invalid wallet address", domain.ErrValidation)
	}

	out, err := r.call(ctx, r.token, tokenABI, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return 0, err
	}

	wei, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected balanceOf result %T", out[0])
	}

	return weiToPoints(wei), nil
}

// RewardCatalog reads one entry of the contract's rewards mapping. Unused ids
// come back with an empty name.
func (r *EVMRepository) RewardCatalog(ctx context.Context, rewardID int64) (domain.Reward, error) {
	out, err := r.call(ctx, r.program, programABI, "rewards", big.NewInt(rewardID))
	if err != nil {
		return domain.Reward{}, err
	}
	if len(out) != 5 {
		return domain.Reward{}, fmt.Errorf("unexpected rewards result length %d", len(out))
	}

	name, _ := out[0].(string)
	description, _ := out[1].(string)
	cost, _ := out[2].(*big.Int)
	stock, _ := out[3].(*big.Int)
	active, _ := out[4].(bool)

	reward := domain.Reward{
		ID:          rewardID,
		Name:        name,
		Description: description,
		IsActive:    active,
	}
	if cost != nil {
		reward.Cost = weiToPoints(cost)
	}
	if stock != nil && stock.IsInt64() {
		reward.Stock = stock.Int64()
	}

	return reward, nil
}

func (r *EVMRepository) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	raw, err := r.client.CallContract(ctx, ethereum.CallMsg{From: r.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: call %s: %v", domain.ErrExternalServiceUnavailable, method, err)
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}

	return out, nil
}

// transact signs and sends one program call, then waits for its receipt.
// A call the node rejects during gas estimation is reported as failed
// without ever being broadcast.
func (r *EVMRepository) transact(ctx context.Context, method string, args ...interface{}) (domain.ChainReceipt, error) {
	data, err := programABI.Pack(method, args...)
	if err != nil {
		return domain.ChainReceipt{}, fmt.Errorf("%w: pack %s: %v", domain.ErrValidation, method, err)
	}

	chainID, err := r.client.ChainID(ctx)
	if err != nil {
		return domain.ChainReceipt{}, fmt.Errorf("%w: chain id: %v", domain.ErrExternalServiceUnavailable, err)
	}

	nonce, err := r.client.PendingNonceAt(ctx, r.from)
	if err != nil {
		return domain.ChainReceipt{}, fmt.Errorf("%w: nonce: %v", domain.ErrExternalServiceUnavailable, err)
	}

	gasPrice, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return domain.ChainReceipt{}, fmt.Errorf("%w: gas price: %v", domain.ErrExternalServiceUnavailable, err)
	}

	gas, err := r.client.EstimateGas(ctx, ethereum.CallMsg{From: r.from, To: &r.program, Data: data})
	if err != nil {
		return domain.ChainReceipt{Status: domain.ChainTxFailed}, fmt.Errorf("%w: %s rejected: %v", domain.ErrChainTxFailed, method, err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &r.program,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), r.key)
	if err != nil {
		return domain.ChainReceipt{}, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := r.client.SendTransaction(ctx, signed); err != nil {
		return domain.ChainReceipt{}, fmt.Errorf("%w: send %s: %v", domain.ErrChainTxFailed, method, err)
	}

	logger.Info("Chain transaction submitted", "method", method, "tx", signed.Hash().Hex(), "nonce", nonce)

	return r.waitReceipt(ctx, signed.Hash())
}

// waitReceipt polls until the receipt shows up or ConfirmTimeout passes. On
// timeout the receipt is still "submitted" and the caller decides what that means.
func (r *EVMRepository) waitReceipt(ctx context.Context, hash common.Hash) (domain.ChainReceipt, error) {
	pending := domain.ChainReceipt{TxHash: hash.Hex(), Status: domain.ChainTxSubmitted}

	deadline := time.NewTimer(r.cfg.ConfirmTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := r.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == gethtypes.ReceiptStatusSuccessful {
				return domain.ChainReceipt{TxHash: hash.Hex(), Status: domain.ChainTxConfirmed}, nil
			}
			return domain.ChainReceipt{TxHash: hash.Hex(), Status: domain.ChainTxFailed}, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			logger.Debug("Receipt lookup failed, retrying", "tx", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return pending, ctx.Err()
		case <-deadline.C:
			logger.Warn("Chain transaction not confirmed in time", "tx", hash.Hex(), "timeout", r.cfg.ConfirmTimeout)
			return pending, nil
		case <-ticker.C:
		}
	}
}

func weiToPoints(wei *big.Int) int64 {
	points := new(big.Int).Quo(wei, weiPerPoint)
	if !points.IsInt64() {
		return 0
	}
	return points.Int64()
}

func pointsToWei(points int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(points), weiPerPoint)
}
