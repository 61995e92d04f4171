package client

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// NewTransaction assembles an unsigned transaction from a fee quote. A nil
// To means contract creation. Chains with a base fee get a dynamic-fee
// transaction; everything else falls back to legacy pricing.
func NewTransaction(chainID *big.Int, nonce, gas uint64, fees *FeeData, to *common.Address, value *big.Int, data []byte) *types.Transaction {
	if fees.MaxFeePerGas != nil {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: fees.MaxPriorityFeePerGas,
			GasFeeCap: fees.MaxFeePerGas,
			Gas:       gas,
			To:        to,
			Value:     value,
			Data:      data,
		})
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: fees.GasPrice,
		Gas:      gas,
		To:       to,
		Value:    value,
		Data:     data,
	})
}
