package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"deploywizard/client"
	"deploywizard/config"
	"deploywizard/records"
	"deploywizard/wallet"
)

var (
	cfg     *config.Config
	network config.Network
	cl      *client.Client
	log     zerolog.Logger
)

// NewApp creates the CLI app
func NewApp() *cli.App {
	app := &cli.App{
		Name:  "deploywizard",
		Usage: "Smart contract deployment and transaction simulation tool for EVM networks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "network",
				Value:   "localhost",
				Usage:   "Target network: " + strings.Join(config.NetworkNames(), ", "),
				EnvVars: []string{"DEPLOYWIZARD_NETWORK"},
			},
			&cli.StringFlag{
				Name:    "rpc",
				Usage:   "RPC URL override (env: DEPLOYWIZARD_RPC)",
				EnvVars: []string{"DEPLOYWIZARD_RPC"},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Usage:   "Chain id for a custom --rpc endpoint",
				EnvVars: []string{"DEPLOYWIZARD_CHAIN_ID"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Verbose output (env: VERBOSE)",
				EnvVars: []string{"VERBOSE"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg = config.Load()

			if c.IsSet("verbose") {
				cfg.Verbose = c.Bool("verbose")
			}
			log = cfg.Logger()

			var err error
			if c.IsSet("rpc") && c.IsSet("chain-id") {
				network = config.CustomNetwork(c.String("network"), c.String("rpc"), c.Uint64("chain-id"))
			} else {
				network, err = config.LookupNetwork(c.String("network"))
				if err != nil {
					return err
				}
				if c.IsSet("rpc") {
					network.RPCURL = c.String("rpc")
				}
			}

			cl, err = client.Dial(network, log)
			if err != nil {
				return fmt.Errorf("failed to connect to %s node: %w", network.Name, err)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if cl != nil {
				cl.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			WalletCmd,
			DeployCmd,
			ContractCmd,
			RecordsCmd,
			NetworksCmd,
		},
	}
	return app
}

func walletStore() *wallet.Store {
	return wallet.NewStore(cfg.Workspace)
}

func recordStore() *records.Store {
	return records.NewStore(cfg.Workspace)
}

// loadCredential loads the stored credential; the error tells the user how
// to create one.
func loadCredential() (*wallet.Credential, error) {
	cred, err := walletStore().Load()
	if err != nil {
		return nil, fmt.Errorf("no usable credential (run 'deploywizard wallet create' first): %w", err)
	}
	return cred, nil
}

var NetworksCmd = &cli.Command{
	Name:  "networks",
	Usage: "List built-in networks",
	Action: func(c *cli.Context) error {
		for _, name := range config.NetworkNames() {
			n, err := config.LookupNetwork(name)
			if err != nil {
				return err
			}
			marker := " "
			if n.Name == network.Name {
				marker = "*"
			}
			fmt.Printf("%s %-14s chain-id=%-10d %s\n", marker, n.Name, n.ChainID, n.RPCURL)
		}
		return nil
	},
}

func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
