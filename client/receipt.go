package client

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrConfirmationTimeout signals that no receipt was observed within the
// wait window. The transaction may still land later; callers must treat
// this as an ambiguous outcome, not a hard failure.
var ErrConfirmationTimeout = errors.New("confirmation timed out, transaction may still land")

// WaitForReceipt polls for the transaction receipt until it is observed and
// `confirmations` blocks have elapsed past it, or until timeout, in which
// case ErrConfirmationTimeout is returned.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash, confirmations uint64, timeout time.Duration) (*types.Receipt, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var receipt *types.Receipt
	for {
		if receipt == nil {
			r, err := c.backend.TransactionReceipt(ctx, txHash)
			switch {
			case err == nil:
				receipt = r
			case errors.Is(err, ethereum.NotFound):
				// Still pending.
			default:
				c.log.Warn().Err(err).Str("tx", txHash.Hex()).Msg("receipt query failed, still polling")
			}
		}

		if receipt != nil {
			confirmed, err := c.isConfirmed(ctx, receipt, confirmations)
			if err != nil {
				c.log.Warn().Err(err).Msg("confirmation check failed, still polling")
			} else if confirmed {
				return receipt, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrConfirmationTimeout
		case <-ticker.C:
		}
	}
}

func (c *Client) isConfirmed(ctx context.Context, receipt *types.Receipt, confirmations uint64) (bool, error) {
	if confirmations <= 1 {
		return true, nil
	}
	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return false, err
	}
	return head >= receipt.BlockNumber.Uint64()+confirmations-1, nil
}

// RevertReasonFor re-derives the revert reason of a settled-but-failed
// transaction by re-issuing the original call as a simulation at the
// receipt's block. Decoding failures report "unknown revert reason" rather
// than a hard error.
func (c *Client) RevertReasonFor(ctx context.Context, call Call, blockNumber *big.Int) string {
	_, err := c.backend.CallContract(ctx, call.msg(), blockNumber)
	if err == nil {
		return "unknown revert reason"
	}
	reason, ok := revertReasonFromError(err)
	if !ok {
		return "unknown revert reason"
	}
	return reason
}
