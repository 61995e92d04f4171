// Package client issues JSON-RPC calls against a single ledger endpoint.
// It owns retry/backoff for read-type calls, gas estimation with a safety
// margin, call simulation with revert classification, and receipt polling.
package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"deploywizard/config"
)

// Backend is the subset of the node API the client needs. *ethclient.Client
// satisfies it; tests substitute a fake node.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Call describes a prepared call: a deployment when To is nil, a contract
// call otherwise.
type Call struct {
	From  common.Address
	To    *common.Address
	Value *big.Int
	Data  []byte
}

func (c Call) msg() ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  c.From,
		To:    c.To,
		Value: c.Value,
		Data:  c.Data,
	}
}

// FeeData carries the fee quote for the next transaction.
type FeeData struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Client wraps a Backend for one network endpoint.
type Client struct {
	backend      Backend
	network      config.Network
	log          zerolog.Logger
	retry        retryPolicy
	pollInterval time.Duration
	closer       func()
}

// Dial connects to the network's RPC endpoint.
func Dial(network config.Network, log zerolog.Logger) (*Client, error) {
	ec, err := ethclient.Dial(network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s at %s: %w", network.Name, network.RPCURL, err)
	}
	c := New(ec, network, log)
	c.closer = ec.Close
	return c, nil
}

// New builds a client over an existing backend.
func New(backend Backend, network config.Network, log zerolog.Logger) *Client {
	return &Client{
		backend:      backend,
		network:      network,
		log:          log.With().Str("network", network.Name).Logger(),
		retry:        defaultRetryPolicy,
		pollInterval: 2 * time.Second,
	}
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Network returns the endpoint this client talks to.
func (c *Client) Network() config.Network {
	return c.network
}

// Balance returns the account balance in the native currency's base unit.
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.withRetry(ctx, "eth_getBalance", func() error {
		var err error
		balance, err = c.backend.BalanceAt(ctx, account, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for %s: %w", account.Hex(), err)
	}
	return balance, nil
}

// Nonce returns the next nonce for the account, including pending txs.
func (c *Client) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	err := c.withRetry(ctx, "eth_getTransactionCount", func() error {
		var err error
		nonce, err = c.backend.PendingNonceAt(ctx, account)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce for %s: %w", account.Hex(), err)
	}
	return nonce, nil
}

// Code returns the deployed code at an address. Empty code means a plain
// account.
func (c *Client) Code(ctx context.Context, account common.Address) ([]byte, error) {
	var code []byte
	err := c.withRetry(ctx, "eth_getCode", func() error {
		var err error
		code, err = c.backend.CodeAt(ctx, account, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", account.Hex(), err)
	}
	return code, nil
}

// IsContract reports whether the address holds deployed code.
func (c *Client) IsContract(ctx context.Context, account common.Address) (bool, error) {
	code, err := c.Code(ctx, account)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// FeeData fetches the current fee quote. EIP-1559 fields are populated when
// the chain has a base fee; GasPrice is always set as a legacy fallback.
func (c *Client) FeeData(ctx context.Context) (*FeeData, error) {
	var gasPrice *big.Int
	err := c.withRetry(ctx, "eth_gasPrice", func() error {
		var err error
		gasPrice, err = c.backend.SuggestGasPrice(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	fees := &FeeData{GasPrice: gasPrice}

	var head *types.Header
	err = c.withRetry(ctx, "eth_getBlockByNumber", func() error {
		var err error
		head, err = c.backend.HeaderByNumber(ctx, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chain head: %w", err)
	}
	if head.BaseFee == nil {
		return fees, nil
	}

	var tip *big.Int
	err = c.withRetry(ctx, "eth_maxPriorityFeePerGas", func() error {
		var err error
		tip, err = c.backend.SuggestGasTipCap(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get priority fee: %w", err)
	}

	// Double the base fee so the cap survives moderate congestion.
	fees.MaxPriorityFeePerGas = tip
	fees.MaxFeePerGas = new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
	return fees, nil
}

// SendSignedTransaction submits a signed transaction and returns its hash.
// Submissions are never retried; a duplicate send could double-spend the
// nonce window.
func (c *Client) SendSignedTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.log.Debug().Str("tx", tx.Hash().Hex()).Msg("transaction submitted")
	return tx.Hash(), nil
}
