package deploy

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploywizard/artifact"
	"deploywizard/client"
	"deploywizard/config"
	"deploywizard/records"
	"deploywizard/wallet"
)

// scriptedNode is a fake node with success defaults; tests override
// individual behaviors per scenario.
type scriptedNode struct {
	mu sync.Mutex

	balance      *big.Int
	callErr      error
	estimateErr  error
	receiptFound bool
	txStatus     uint64

	sentTxs []*gethtypes.Transaction
}

func newScriptedNode() *scriptedNode {
	return &scriptedNode{
		balance:      new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18)),
		receiptFound: true,
		txStatus:     gethtypes.ReceiptStatusSuccessful,
	}
}

func (n *scriptedNode) sent() []*gethtypes.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*gethtypes.Transaction{}, n.sentTxs...)
}

func (n *scriptedNode) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return new(big.Int).Set(n.balance), nil
}

func (n *scriptedNode) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (n *scriptedNode) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (n *scriptedNode) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1000), nil
}

func (n *scriptedNode) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(10), nil
}

func (n *scriptedNode) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{BaseFee: big.NewInt(500)}, nil
}

func (n *scriptedNode) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if n.estimateErr != nil {
		return 0, n.estimateErr
	}
	return 100000, nil
}

func (n *scriptedNode) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if n.callErr != nil {
		return nil, n.callErr
	}
	return nil, nil
}

func (n *scriptedNode) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sentTxs = append(n.sentTxs, tx)
	return nil
}

func (n *scriptedNode) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	if !n.receiptFound {
		return nil, ethereum.NotFound
	}
	return &gethtypes.Receipt{
		Status:            n.txStatus,
		TxHash:            txHash,
		ContractAddress:   common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		BlockNumber:       big.NewInt(42),
		GasUsed:           90000,
		EffectiveGasPrice: big.NewInt(510),
	}, nil
}

func (n *scriptedNode) BlockNumber(ctx context.Context) (uint64, error) {
	return 42, nil
}

const counterABI = `[{"type":"constructor","inputs":[{"name":"initialValue","type":"uint256"}]}]`

func testArtifact(t *testing.T) *artifact.Artifact {
	t.Helper()
	art, err := artifact.Parse("Counter", "0x6080604052600a600b", []byte(counterABI))
	require.NoError(t, err)
	return art
}

func testPipeline(t *testing.T, node *scriptedNode, opts Options) (*Pipeline, *records.Store) {
	t.Helper()
	cred, err := wallet.Generate("pw", wallet.SchemeAESGCM, "testnet")
	require.NoError(t, err)

	cl := client.New(node, config.CustomNetwork("testnet", "http://127.0.0.1:8545", 31337), zerolog.Nop())
	store := records.NewStore(t.TempDir())

	if opts.Passphrase == "" {
		opts.Passphrase = "pw"
	}
	if opts.ReceiptTimeout == 0 {
		opts.ReceiptTimeout = time.Second
	}
	opts.Logger = zerolog.Nop()
	return NewPipeline(cl, cred, store, opts), store
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var perr *Error
	require.ErrorAs(t, err, &perr)
	return perr.Kind
}

func TestRunRecordsSuccessfulDeployment(t *testing.T) {
	node := newScriptedNode()
	pipeline, store := testPipeline(t, node, Options{})

	record, err := pipeline.Run(context.Background(), testArtifact(t), nil)
	require.NoError(t, err)
	assert.Equal(t, StateRecorded, pipeline.State())

	assert.Equal(t, "Counter", record.ContractName)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", record.Address)
	assert.Equal(t, uint64(42), record.BlockNumber)
	assert.Equal(t, uint64(90000), record.GasUsed)
	assert.Equal(t, "testnet", record.Network)
	require.Len(t, record.ConstructorArgs, 1)
	assert.Equal(t, "initialValue", record.ConstructorArgs[0].Name)
	assert.Equal(t, "1", record.ConstructorArgs[0].Value)

	// 90000 gas at effective price 510.
	assert.Equal(t, "45900000", record.Cost)

	assert.True(t, store.Exists("Counter", "testnet"))
	persisted, err := store.Load("Counter", "testnet")
	require.NoError(t, err)
	assert.Equal(t, record.Address, persisted.Address)

	// One transaction, estimated gas plus the safety margin, pending nonce.
	sent := node.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(110000), sent[0].Gas())
	assert.Equal(t, uint64(7), sent[0].Nonce())
}

func TestRunSimulationRevertStopsBeforeSubmission(t *testing.T) {
	node := newScriptedNode()
	node.callErr = errors.New("execution reverted: constructor requires nonzero value")
	pipeline, store := testPipeline(t, node, Options{})

	_, err := pipeline.Run(context.Background(), testArtifact(t), nil)
	require.Error(t, err)
	assert.Equal(t, KindSimulationRevert, kindOf(t, err))
	assert.Contains(t, err.Error(), "constructor requires nonzero value")
	assert.Equal(t, StateAborted, pipeline.State())

	assert.Empty(t, node.sent())
	assert.False(t, store.Exists("Counter", "testnet"))
}

func TestRunDeclinedConfirmation(t *testing.T) {
	node := newScriptedNode()
	pipeline, store := testPipeline(t, node, Options{
		Confirm: func(CostSummary) bool { return false },
	})

	_, err := pipeline.Run(context.Background(), testArtifact(t), nil)
	require.Error(t, err)
	assert.Equal(t, KindUserDeclined, kindOf(t, err))
	assert.Empty(t, node.sent())
	assert.False(t, store.Exists("Counter", "testnet"))
}

func TestRunInsufficientFunds(t *testing.T) {
	node := newScriptedNode()
	node.balance = big.NewInt(100) // far below estimated cost
	pipeline, store := testPipeline(t, node, Options{})

	for i := 0; i < 2; i++ {
		_, err := pipeline.Run(context.Background(), testArtifact(t), nil)
		require.Error(t, err)
		assert.Equal(t, KindInsufficientFunds, kindOf(t, err))
	}
	assert.Empty(t, node.sent())
	assert.False(t, store.Exists("Counter", "testnet"))
}

func TestRunConfirmationTimeout(t *testing.T) {
	node := newScriptedNode()
	node.receiptFound = false
	pipeline, store := testPipeline(t, node, Options{ReceiptTimeout: 30 * time.Millisecond})

	_, err := pipeline.Run(context.Background(), testArtifact(t), nil)
	require.Error(t, err)
	assert.Equal(t, KindConfirmationTimeout, kindOf(t, err))
	assert.ErrorIs(t, err, client.ErrConfirmationTimeout)

	// The transaction went out; only the receipt is missing.
	assert.Len(t, node.sent(), 1)
	assert.False(t, store.Exists("Counter", "testnet"))
}

func TestRunOnChainRevertIsNotRecorded(t *testing.T) {
	node := newScriptedNode()
	node.txStatus = gethtypes.ReceiptStatusFailed
	pipeline, store := testPipeline(t, node, Options{})

	_, err := pipeline.Run(context.Background(), testArtifact(t), nil)
	require.Error(t, err)
	assert.Equal(t, KindTransactionReverted, kindOf(t, err))
	assert.Equal(t, StateSettledReverted, pipeline.State())
	assert.False(t, store.Exists("Counter", "testnet"))
}

func TestRunWrongPassphrase(t *testing.T) {
	node := newScriptedNode()
	pipeline, store := testPipeline(t, node, Options{Passphrase: "wrong"})

	_, err := pipeline.Run(context.Background(), testArtifact(t), nil)
	require.Error(t, err)
	assert.Equal(t, KindCredentialUnreadable, kindOf(t, err))
	assert.ErrorIs(t, err, wallet.ErrUnreadable)
	assert.Empty(t, node.sent())
	assert.False(t, store.Exists("Counter", "testnet"))
}

func TestRunUnresolvableArguments(t *testing.T) {
	node := newScriptedNode()
	pipeline, _ := testPipeline(t, node, Options{})

	art, err := artifact.Parse("Airdrop", "0x6080",
		[]byte(`[{"type":"constructor","inputs":[{"name":"merkleRoot","type":"bytes32"}]}]`))
	require.NoError(t, err)

	_, rerr := pipeline.Run(context.Background(), art, nil)
	require.Error(t, rerr)
	assert.Equal(t, KindArgumentResolution, kindOf(t, rerr))
	assert.Empty(t, node.sent())
}

func TestRunSourceCompilerFailure(t *testing.T) {
	node := newScriptedNode()
	pipeline, _ := testPipeline(t, node, Options{})

	failing := func(sourcePath string) (*artifact.Artifact, error) {
		return nil, errors.New("solc: expected ';'")
	}
	_, err := pipeline.RunSource(context.Background(), "Broken.sol", failing, nil)
	require.Error(t, err)
	assert.Equal(t, KindCompilation, kindOf(t, err))
	assert.Empty(t, node.sent())
}

func TestRunSourceDeploysCompiledArtifact(t *testing.T) {
	node := newScriptedNode()
	pipeline, store := testPipeline(t, node, Options{})

	compile := func(sourcePath string) (*artifact.Artifact, error) {
		return testArtifact(t), nil
	}
	record, err := pipeline.RunSource(context.Background(), "Counter.sol", compile, nil)
	require.NoError(t, err)
	assert.Equal(t, "Counter", record.ContractName)
	assert.True(t, store.Exists("Counter", "testnet"))
}
