package cmd

import (
	"bufio"
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"deploywizard/artifact"
	"deploywizard/deploy"
	"deploywizard/records"
)

var DeployCmd = &cli.Command{
	Name:      "deploy",
	Usage:     "Deploy a contract",
	ArgsUsage: "[constructor args...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "Solidity source file to compile and deploy",
		},
		&cli.StringFlag{
			Name:  "bin",
			Usage: "Compiled bytecode file (hex)",
		},
		&cli.StringFlag{
			Name:  "abi",
			Usage: "ABI JSON file (required with --bin)",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Contract name (defaults to the source or bin file name)",
		},
		&cli.StringFlag{
			Name:  "value",
			Value: "0",
			Usage: "Native currency to send with the deployment, in base units",
		},
		&cli.BoolFlag{
			Name:  "yes",
			Usage: "Skip the cost confirmation prompt",
		},
		passphraseFlag,
	},
	Action: func(c *cli.Context) error {
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

		confirm := promptDeploy
		if c.Bool("yes") {
			confirm = deploy.AutoConfirm
		}
		pipeline := deploy.NewPipeline(cl, cred, recordStore(), deploy.Options{
			Passphrase:     pass,
			Confirm:        confirm,
			Value:          value,
			ReceiptTimeout: cfg.ReceiptTimeout,
			Confirmations:  cfg.Confirmations,
			Logger:         log,
		})

		ctx := context.Background()
		userArgs := c.Args().Slice()

		var record *records.DeploymentRecord
		switch {
		case c.String("source") != "":
			record, err = pipeline.RunSource(ctx, c.String("source"), artifact.Compile, userArgs)
		case c.String("bin") != "":
			if c.String("abi") == "" {
				return fmt.Errorf("--abi is required with --bin")
			}
			art, loadErr := artifact.Load(c.String("name"), c.String("bin"), c.String("abi"))
			if loadErr != nil {
				return loadErr
			}
			record, err = pipeline.Run(ctx, art, userArgs)
		default:
			return fmt.Errorf("provide --source or --bin/--abi")
		}
		if err != nil {
			return err
		}

		fmt.Printf("\nDeployed %s\n", record.ContractName)
		fmt.Printf("  Address:  %s\n", record.Address)
		fmt.Printf("  Tx:       %s\n", record.TransactionHash)
		fmt.Printf("  Block:    %d\n", record.BlockNumber)
		fmt.Printf("  Gas used: %d\n", record.GasUsed)
		fmt.Printf("  Cost:     %s %s\n", formatUnits(mustBig(record.Cost), network.Decimals), network.Symbol)
		if url := network.ExplorerTxURL(record.TransactionHash); url != "" {
			fmt.Printf("  Explorer: %s\n", url)
		}
		return nil
	},
}

// promptDeploy prints the simulated cost and reads a yes/no answer.
func promptDeploy(summary deploy.CostSummary) bool {
	fmt.Printf("\nDeploying %s with constructor arguments:\n", summary.ContractName)
	for _, arg := range summary.Args {
		fmt.Printf("  %-12s %-10s %s (%s)\n", arg.Name, arg.Type.String(), arg.Display, arg.Source)
	}
	fmt.Printf("Gas estimate:   %d\n", summary.GasEstimate)
	fmt.Printf("Max fee/gas:    %s\n", summary.MaxFeePerGas)
	fmt.Printf("Estimated cost: %s %s\n", formatUnits(summary.EstimatedCost, network.Decimals), summary.Symbol)
	if summary.Value.Sign() > 0 {
		fmt.Printf("Value:          %s %s\n", formatUnits(summary.Value, network.Decimals), summary.Symbol)
	}
	return promptYesNo("Proceed")
}

func promptYesNo(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
