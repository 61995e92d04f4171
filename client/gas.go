package client

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/rpc"
)

// gasMarginDenominator sets the safety margin added to raw node estimates:
// raw/10, i.e. 10%, absorbing estimation variance between simulation and
// inclusion.
const gasMarginDenominator = 10

// OutcomeStatus classifies a simulation result.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeRevert
	OutcomeEstimationFailure
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeRevert:
		return "revert"
	case OutcomeEstimationFailure:
		return "estimation failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// SimulationOutcome is the result of dry-running a call against current
// state. It is transient: produced and consumed within one pipeline run.
type SimulationOutcome struct {
	Status       OutcomeStatus
	GasEstimate  uint64
	ReturnData   []byte
	RevertReason string
	Failure      string
}

// Success reports whether the dry run completed without reverting.
func (o *SimulationOutcome) Success() bool {
	return o.Status == OutcomeSuccess
}

// EstimateGas asks the node for a gas estimate and adds the safety margin.
// The returned value is always >= the raw node estimate.
func (c *Client) EstimateGas(ctx context.Context, call Call) (uint64, error) {
	var raw uint64
	err := c.withRetry(ctx, "eth_estimateGas", func() error {
		var err error
		raw, err = c.backend.EstimateGas(ctx, call.msg())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return raw + raw/gasMarginDenominator, nil
}

// SimulateCall dry-runs the call against pending state and classifies the
// outcome. Transport failures after retries are returned as errors; node
// verdicts (revert, estimation failure) are outcomes, not errors.
func (c *Client) SimulateCall(ctx context.Context, call Call) (*SimulationOutcome, error) {
	var ret []byte
	err := c.withRetry(ctx, "eth_call", func() error {
		var err error
		ret, err = c.backend.CallContract(ctx, call.msg(), nil)
		return err
	})
	if err != nil {
		if reason, ok := revertReasonFromError(err); ok {
			c.log.Debug().Str("reason", reason).Msg("simulation reverted")
			return &SimulationOutcome{Status: OutcomeRevert, RevertReason: reason}, nil
		}
		if isTransient(err) {
			return nil, fmt.Errorf("simulation failed: %w", err)
		}
		return &SimulationOutcome{Status: OutcomeEstimationFailure, Failure: err.Error()}, nil
	}

	gas, err := c.EstimateGas(ctx, call)
	if err != nil {
		if reason, ok := revertReasonFromError(err); ok {
			return &SimulationOutcome{Status: OutcomeRevert, RevertReason: reason}, nil
		}
		if isTransient(err) {
			return nil, err
		}
		return &SimulationOutcome{Status: OutcomeEstimationFailure, Failure: err.Error()}, nil
	}

	return &SimulationOutcome{
		Status:      OutcomeSuccess,
		GasEstimate: gas,
		ReturnData:  ret,
	}, nil
}

// revertReasonFromError digs a human-readable revert reason out of an RPC
// error. Nodes attach the ABI-encoded Error(string) payload as error data;
// when decoding fails the raw message decides whether this was a revert at
// all.
func revertReasonFromError(err error) (string, bool) {
	var de rpc.DataError
	if ok := asDataError(err, &de); ok {
		if data := errorDataBytes(de.ErrorData()); data != nil {
			if reason, uerr := abi.UnpackRevert(data); uerr == nil {
				return reason, true
			}
		}
	}
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "revert") {
		// Some nodes inline the reason: "execution reverted: <reason>".
		if idx := strings.Index(msg, "execution reverted:"); idx >= 0 {
			reason := strings.TrimSpace(msg[idx+len("execution reverted:"):])
			if reason != "" {
				return reason, true
			}
		}
		return "unknown revert reason", true
	}
	return "", false
}

func asDataError(err error, target *rpc.DataError) bool {
	for err != nil {
		if de, ok := err.(rpc.DataError); ok {
			*target = de
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func errorDataBytes(data interface{}) []byte {
	s, ok := data.(string)
	if !ok {
		return nil
	}
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return raw
}
