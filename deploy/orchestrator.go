// Package deploy sequences a deployment: resolve constructor arguments,
// simulate, confirm, submit, await the receipt, and record the outcome.
//
// A pipeline run is single-flow against one endpoint. Runs are not
// coordinated across credentials: two concurrent runs signing with the
// same account may read the same starting nonce and race. Serialize
// deployments per credential.
package deploy

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/antithesishq/antithesis-sdk-go/assert"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"deploywizard/artifact"
	"deploywizard/client"
	"deploywizard/records"
	"deploywizard/wallet"
)

// State names the pipeline's position. Aborted is reachable from any
// non-terminal state.
type State int

const (
	StateIdle State = iota
	StateArgsResolved
	StateSimulated
	StateConfirmed
	StateSubmitted
	StateAwaitingReceipt
	StateSettledSuccess
	StateSettledReverted
	StateRecorded
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArgsResolved:
		return "args-resolved"
	case StateSimulated:
		return "simulated"
	case StateConfirmed:
		return "confirmed"
	case StateSubmitted:
		return "submitted"
	case StateAwaitingReceipt:
		return "awaiting-receipt"
	case StateSettledSuccess:
		return "settled-success"
	case StateSettledReverted:
		return "settled-reverted"
	case StateRecorded:
		return "recorded"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// CostSummary is presented for acknowledgement before funds are spent.
type CostSummary struct {
	ContractName  string
	GasEstimate   uint64
	MaxFeePerGas  *big.Int
	EstimatedCost *big.Int
	Value         *big.Int
	Symbol        string
	Args          []ResolvedArg
}

// ConfirmFunc accepts or declines the simulated cost. Declining aborts the
// run as a user cancellation, not a failure.
type ConfirmFunc func(summary CostSummary) bool

// AutoConfirm accepts every cost summary.
func AutoConfirm(CostSummary) bool { return true }

// Options tune one pipeline run.
type Options struct {
	Passphrase     string
	Confirm        ConfirmFunc
	Value          *big.Int
	ReceiptTimeout time.Duration
	Confirmations  uint64
	Logger         zerolog.Logger
}

// Pipeline drives deployments for one credential against one endpoint.
type Pipeline struct {
	client *client.Client
	cred   *wallet.Credential
	store  *records.Store
	opts   Options
	state  State
	log    zerolog.Logger
}

// NewPipeline wires a pipeline. The record store may be shared across runs;
// the pipeline itself is single-use-at-a-time.
func NewPipeline(cl *client.Client, cred *wallet.Credential, store *records.Store, opts Options) *Pipeline {
	if opts.Confirm == nil {
		opts.Confirm = AutoConfirm
	}
	if opts.Value == nil {
		opts.Value = big.NewInt(0)
	}
	if opts.ReceiptTimeout == 0 {
		opts.ReceiptTimeout = 90 * time.Second
	}
	if opts.Confirmations == 0 {
		opts.Confirmations = 1
	}
	return &Pipeline{
		client: cl,
		cred:   cred,
		store:  store,
		opts:   opts,
		state:  StateIdle,
		log:    opts.Logger.With().Str("component", "pipeline").Logger(),
	}
}

// State returns the pipeline's current position.
func (p *Pipeline) State() State {
	return p.state
}

// RunSource compiles a source file through the given compiler and deploys
// the resulting artifact. Compiler failures surface before the pipeline
// touches the network.
func (p *Pipeline) RunSource(ctx context.Context, sourcePath string, compile artifact.Compiler, userArgs []string) (*records.DeploymentRecord, error) {
	art, err := compile(sourcePath)
	if err != nil {
		return nil, failf(KindCompilation, StateIdle, err, "cannot compile %s", sourcePath)
	}
	return p.Run(ctx, art, userArgs)
}

// Run deploys the artifact and returns its deployment record. On failure
// the returned error is a *Error carrying the kind and the state reached;
// no record is written unless the receipt reported success.
func (p *Pipeline) Run(ctx context.Context, art *artifact.Artifact, userArgs []string) (*records.DeploymentRecord, error) {
	network := p.client.Network()
	p.state = StateIdle
	deployer := p.cred.Address

	// Idle -> ArgsResolved
	args, err := Resolve(art.ConstructorInputs(), userArgs, art.Name, deployer)
	if err != nil {
		return nil, p.abort(failf(KindArgumentResolution, StateIdle, err, "cannot resolve constructor arguments for %s", art.Name))
	}
	p.state = StateArgsResolved
	for _, arg := range args {
		p.log.Debug().Str("name", arg.Name).Str("type", arg.Type.String()).
			Str("value", arg.Display).Str("source", string(arg.Source)).Msg("constructor argument")
	}

	values := make([]interface{}, len(args))
	for i, arg := range args {
		values[i] = arg.Value
	}
	data, err := art.DeployData(values...)
	if err != nil {
		return nil, p.abort(failf(KindArgumentResolution, StateArgsResolved, err, "cannot encode deployment data for %s", art.Name))
	}

	// ArgsResolved -> Simulated
	call := client.Call{From: deployer, Value: p.opts.Value, Data: data}
	outcome, err := p.client.SimulateCall(ctx, call)
	if err != nil {
		return nil, p.abort(failf(KindNetworkTransient, StateArgsResolved, err, "simulation did not complete"))
	}
	switch outcome.Status {
	case client.OutcomeRevert:
		return nil, p.abort(failf(KindSimulationRevert, StateArgsResolved, nil, "deployment would revert: %s", outcome.RevertReason))
	case client.OutcomeEstimationFailure:
		return nil, p.abort(failf(KindSimulationRevert, StateArgsResolved, nil, "gas estimation failed: %s", outcome.Failure))
	}
	p.state = StateSimulated
	p.log.Info().Uint64("gas", outcome.GasEstimate).Msg("simulation succeeded")

	// Funds check before anything is spent.
	fees, err := p.client.FeeData(ctx)
	if err != nil {
		return nil, p.abort(failf(KindNetworkTransient, StateSimulated, err, "cannot fetch fee data"))
	}
	feePerGas := fees.MaxFeePerGas
	if feePerGas == nil {
		feePerGas = fees.GasPrice
	}
	cost := new(big.Int).Mul(feePerGas, new(big.Int).SetUint64(outcome.GasEstimate))
	total := new(big.Int).Add(cost, p.opts.Value)

	balance, err := p.client.Balance(ctx, deployer)
	if err != nil {
		return nil, p.abort(failf(KindNetworkTransient, StateSimulated, err, "cannot fetch balance"))
	}
	if balance.Cmp(total) < 0 {
		return nil, p.abort(failf(KindInsufficientFunds, StateSimulated, nil,
			"balance %s below estimated cost %s %s", balance, total, network.Symbol))
	}

	// Simulated -> Confirmed
	accepted := p.opts.Confirm(CostSummary{
		ContractName:  art.Name,
		GasEstimate:   outcome.GasEstimate,
		MaxFeePerGas:  feePerGas,
		EstimatedCost: total,
		Value:         p.opts.Value,
		Symbol:        network.Symbol,
		Args:          args,
	})
	if !accepted {
		return nil, p.abort(failf(KindUserDeclined, StateSimulated, nil, "deployment cancelled before submission"))
	}
	p.state = StateConfirmed

	// Confirmed -> Submitted
	nonce, err := p.client.Nonce(ctx, deployer)
	if err != nil {
		return nil, p.abort(failf(KindNetworkTransient, StateConfirmed, err, "cannot fetch nonce"))
	}
	tx := client.NewTransaction(network.ChainIDBig(), nonce, outcome.GasEstimate, fees, nil, p.opts.Value, data)
	signed, err := p.cred.SignTx(p.opts.Passphrase, tx, network.ChainIDBig())
	if err != nil {
		if errors.Is(err, wallet.ErrUnreadable) {
			return nil, p.abort(failf(KindCredentialUnreadable, StateConfirmed, err, "cannot unlock credential for %s", deployer.Hex()))
		}
		return nil, p.abort(failf(KindCredentialUnreadable, StateConfirmed, err, "signing failed"))
	}

	txHash, err := p.client.SendSignedTransaction(ctx, signed)
	if err != nil {
		return nil, p.abort(failf(KindNetworkTransient, StateConfirmed, err, "submission failed"))
	}
	p.state = StateSubmitted
	p.log.Info().Str("tx", txHash.Hex()).Msg("transaction submitted")

	// Submitted -> AwaitingReceipt -> Settled
	p.state = StateAwaitingReceipt
	receipt, err := p.client.WaitForReceipt(ctx, txHash, p.opts.Confirmations, p.opts.ReceiptTimeout)
	if err != nil {
		if errors.Is(err, client.ErrConfirmationTimeout) {
			return nil, p.abort(failf(KindConfirmationTimeout, StateAwaitingReceipt, err,
				"no receipt for %s within %s; the transaction may still land", txHash.Hex(), p.opts.ReceiptTimeout))
		}
		return nil, p.abort(failf(KindNetworkTransient, StateAwaitingReceipt, err, "receipt wait failed"))
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		p.state = StateSettledReverted
		reason := p.client.RevertReasonFor(ctx, call, receipt.BlockNumber)
		return nil, failf(KindTransactionReverted, StateSettledReverted, nil,
			"transaction %s reverted: %s", txHash.Hex(), reason)
	}
	p.state = StateSettledSuccess

	// Settled(Success) -> Recorded
	assert.Always(receipt.Status == gethtypes.ReceiptStatusSuccessful,
		"deployment_recorded_only_on_success",
		map[string]any{
			"contract": art.Name,
			"network":  network.Name,
			"txHash":   txHash.Hex(),
			"status":   receipt.Status,
		})

	record := buildRecord(art, args, receipt, network.Name, deployer.Hex(), p.opts.Value)
	if err := p.store.Save(record); err != nil {
		return nil, fmt.Errorf("contract deployed at %s but the record could not be written: %w", record.Address, err)
	}
	p.state = StateRecorded
	p.log.Info().Str("contract", art.Name).Str("address", record.Address).Msg("deployment recorded")

	return record, nil
}

func (p *Pipeline) abort(err *Error) *Error {
	p.state = StateAborted
	p.log.Warn().Str("kind", err.Kind.String()).Str("at", err.State.String()).Msg(err.Message)
	return err
}

func buildRecord(art *artifact.Artifact, args []ResolvedArg, receipt *gethtypes.Receipt, network, deployer string, value *big.Int) *records.DeploymentRecord {
	cost := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	cost.Add(cost, value)

	recordedArgs := make([]records.ConstructorArg, len(args))
	for i, arg := range args {
		recordedArgs[i] = records.ConstructorArg{
			Name:   arg.Name,
			Type:   arg.Type.String(),
			Value:  arg.Display,
			Source: string(arg.Source),
		}
	}

	return &records.DeploymentRecord{
		ContractName:    art.Name,
		Address:         receipt.ContractAddress.Hex(),
		TransactionHash: receipt.TxHash.Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
		GasUsed:         receipt.GasUsed,
		Cost:            cost.String(),
		Network:         network,
		DeployerAddress: deployer,
		DeployedAt:      time.Now().UTC(),
		ConstructorArgs: recordedArgs,
		ABI:             art.RawABI,
		Bytecode:        "0x" + hex.EncodeToString(art.Bytecode),
	}
}
