package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/urfave/cli/v2"

	"deploywizard/client"
	"deploywizard/deploy"
	"deploywizard/records"
)

// boundContract is a deployed contract loaded back from its record.
type boundContract struct {
	record  *records.DeploymentRecord
	address common.Address
	abi     abi.ABI
}

func loadContract(name string) (*boundContract, error) {
	record, err := recordStore().Load(name, network.Name)
	if err != nil {
		return nil, fmt.Errorf("no deployment record for %s on %s: %w", name, network.Name, err)
	}
	parsed, err := abi.JSON(strings.NewReader(string(record.ABI)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse recorded ABI for %s: %w", name, err)
	}
	return &boundContract{
		record:  record,
		address: common.HexToAddress(record.Address),
		abi:     parsed,
	}, nil
}

// packMethod encodes a method call from textual arguments.
func (b *boundContract) packMethod(methodName string, args []string) ([]byte, *abi.Method, error) {
	method, ok := b.abi.Methods[methodName]
	if !ok {
		return nil, nil, fmt.Errorf("method %s not in the recorded ABI", methodName)
	}
	if len(args) != len(method.Inputs) {
		return nil, nil, fmt.Errorf("method %s takes %d argument(s), got %d", methodName, len(method.Inputs), len(args))
	}

	values := make([]interface{}, len(args))
	for i, input := range method.Inputs {
		value, err := deploy.ConvertArgument(args[i], input.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("argument %d (%s %s): %w", i, input.Type.String(), input.Name, err)
		}
		values[i] = value
	}

	data, err := b.abi.Pack(methodName, values...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode call to %s: %w", methodName, err)
	}
	return data, &method, nil
}

var ContractCmd = &cli.Command{
	Name:  "contract",
	Usage: "Interact with deployed contracts",
	Subcommands: []*cli.Command{
		{
			Name:      "call",
			Usage:     "Read contract state (no transaction)",
			ArgsUsage: "<contract> <method> [args...]",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					return fmt.Errorf("expected at least 2 arguments: <contract> <method>")
				}

				contract, err := loadContract(c.Args().Get(0))
				if err != nil {
					return err
				}
				data, method, err := contract.packMethod(c.Args().Get(1), c.Args().Slice()[2:])
				if err != nil {
					return err
				}

				ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
				defer cancel()
				call := client.Call{To: &contract.address, Data: data}
				outcome, err := cl.SimulateCall(ctx, call)
				if err != nil {
					return err
				}
				if !outcome.Success() {
					if outcome.Status == client.OutcomeRevert {
						return fmt.Errorf("call reverted: %s", outcome.RevertReason)
					}
					return fmt.Errorf("call failed: %s", outcome.Failure)
				}

				results, err := method.Outputs.Unpack(outcome.ReturnData)
				if err != nil {
					return fmt.Errorf("failed to decode return data: %w", err)
				}
				for i, result := range results {
					label := method.Outputs[i].Name
					if label == "" {
						label = fmt.Sprintf("out%d", i)
					}
					fmt.Printf("%s: %v\n", label, result)
				}
				return nil
			},
		},
		{
			Name:      "send",
			Usage:     "Submit a state-changing contract transaction",
			ArgsUsage: "<contract> <method> [args...]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "value",
					Value: "0",
					Usage: "Native currency to send with the call, in base units",
				},
				&cli.BoolFlag{
					Name:  "yes",
					Usage: "Skip the cost confirmation prompt",
				},
				passphraseFlag,
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					return fmt.Errorf("expected at least 2 arguments: <contract> <method>")
				}
				pass, err := requirePassphrase(c)
				if err != nil {
					return err
				}
				value, ok := new(big.Int).SetString(c.String("value"), 10)
				if !ok || value.Sign() < 0 {
					return fmt.Errorf("invalid value: %s", c.String("value"))
				}

				cred, err := loadCredential()
				if err != nil {
					return err
				}
				contract, err := loadContract(c.Args().Get(0))
				if err != nil {
					return err
				}
				methodName := c.Args().Get(1)
				data, _, err := contract.packMethod(methodName, c.Args().Slice()[2:])
				if err != nil {
					return err
				}

				ctx := context.Background()
				call := client.Call{From: cred.Address, To: &contract.address, Value: value, Data: data}
				outcome, err := cl.SimulateCall(ctx, call)
				if err != nil {
					return err
				}
				if !outcome.Success() {
					if outcome.Status == client.OutcomeRevert {
						return fmt.Errorf("%s would revert: %s", methodName, outcome.RevertReason)
					}
					return fmt.Errorf("%s simulation failed: %s", methodName, outcome.Failure)
				}

				fees, err := cl.FeeData(ctx)
				if err != nil {
					return err
				}
				feePerGas := fees.MaxFeePerGas
				if feePerGas == nil {
					feePerGas = fees.GasPrice
				}
				cost := new(big.Int).Mul(feePerGas, new(big.Int).SetUint64(outcome.GasEstimate))
				cost.Add(cost, value)
				if !c.Bool("yes") {
					fmt.Printf("Calling %s.%s, gas estimate %d, cost up to %s %s\n",
						contract.record.ContractName, methodName, outcome.GasEstimate,
						formatUnits(cost, network.Decimals), network.Symbol)
					if !promptYesNo("Proceed") {
						fmt.Println("Aborted")
						return nil
					}
				}

				nonce, err := cl.Nonce(ctx, cred.Address)
				if err != nil {
					return err
				}
				tx := client.NewTransaction(network.ChainIDBig(), nonce, outcome.GasEstimate, fees, &contract.address, value, data)
				signed, err := cred.SignTx(pass, tx, network.ChainIDBig())
				if err != nil {
					return err
				}
				txHash, err := cl.SendSignedTransaction(ctx, signed)
				if err != nil {
					return err
				}
				fmt.Printf("Submitted: %s\n", txHash.Hex())

				receipt, err := cl.WaitForReceipt(ctx, txHash, cfg.Confirmations, cfg.ReceiptTimeout)
				if err != nil {
					return err
				}
				if receipt.Status != gethtypes.ReceiptStatusSuccessful {
					reason := cl.RevertReasonFor(ctx, call, receipt.BlockNumber)
					return fmt.Errorf("transaction %s reverted: %s", txHash.Hex(), reason)
				}
				fmt.Printf("Confirmed in block %d, gas used %d\n", receipt.BlockNumber.Uint64(), receipt.GasUsed)
				return nil
			},
		},
	},
}
