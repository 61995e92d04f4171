package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

var RecordsCmd = &cli.Command{
	Name:  "records",
	Usage: "Inspect deployment records",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List recorded deployments",
			Action: func(c *cli.Context) error {
				recs, err := recordStore().List()
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Println("No deployments recorded")
					return nil
				}
				for _, r := range recs {
					fmt.Printf("%-24s %-14s %s  (block %d, %s)\n",
						r.ContractName, r.Network, r.Address, r.BlockNumber,
						r.DeployedAt.Format("2006-01-02 15:04"))
				}
				return nil
			},
		},
		{
			Name:      "show",
			Usage:     "Show one deployment record as JSON",
			ArgsUsage: "<contract>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return fmt.Errorf("expected 1 argument: <contract>")
				}
				record, err := recordStore().Load(c.Args().Get(0), network.Name)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(record, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			},
		},
	},
}
