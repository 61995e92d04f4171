package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/urfave/cli/v2"

	"deploywizard/wallet"
)

func parseScheme(s string) (wallet.Scheme, error) {
	switch s {
	case "keystore":
		return wallet.SchemeKeystore, nil
	case "aesgcm":
		return wallet.SchemeAESGCM, nil
	default:
		return "", fmt.Errorf("invalid scheme: %s (use keystore or aesgcm)", s)
	}
}

func requirePassphrase(c *cli.Context) (string, error) {
	pass := c.String("passphrase")
	if pass == "" {
		return "", fmt.Errorf("--passphrase is required (or set DEPLOYWIZARD_PASSPHRASE)")
	}
	return pass, nil
}

var schemeFlag = &cli.StringFlag{
	Name:  "scheme",
	Value: "keystore",
	Usage: "Key encryption scheme: keystore or aesgcm",
}

var passphraseFlag = &cli.StringFlag{
	Name:    "passphrase",
	Usage:   "Passphrase protecting the stored key",
	EnvVars: []string{"DEPLOYWIZARD_PASSPHRASE"},
}

var WalletCmd = &cli.Command{
	Name:  "wallet",
	Usage: "Deployment credential operations",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Generate a new deployment key",
			Flags: []cli.Flag{
				schemeFlag,
				passphraseFlag,
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Replace an existing credential",
				},
			},
			Action: func(c *cli.Context) error {
				pass, err := requirePassphrase(c)
				if err != nil {
					return err
				}
				scheme, err := parseScheme(c.String("scheme"))
				if err != nil {
					return err
				}

				store := walletStore()
				if store.Exists() && !c.Bool("force") {
					return fmt.Errorf("a credential already exists; use --force to replace it")
				}

				cred, err := wallet.Generate(pass, scheme, network.Name)
				if err != nil {
					return fmt.Errorf("failed to create wallet: %w", err)
				}
				if err := store.Save(cred); err != nil {
					return err
				}

				fmt.Printf("Address: %s\n", cred.Address.Hex())
				fmt.Printf("Scheme:  %s\n", cred.Scheme)
				fmt.Println("Fund this address before deploying.")
				return nil
			},
		},
		{
			Name:  "import",
			Usage: "Import a key from a private key or mnemonic phrase",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "private-key",
					Usage: "Hex-encoded private key (with or without 0x)",
				},
				&cli.StringFlag{
					Name:  "mnemonic",
					Usage: "BIP-39 mnemonic phrase (first account at m/44'/60'/0'/0/0)",
				},
				schemeFlag,
				passphraseFlag,
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Replace an existing credential",
				},
			},
			Action: func(c *cli.Context) error {
				pass, err := requirePassphrase(c)
				if err != nil {
					return err
				}
				scheme, err := parseScheme(c.String("scheme"))
				if err != nil {
					return err
				}

				privateKey := c.String("private-key")
				mnemonic := c.String("mnemonic")
				if (privateKey == "") == (mnemonic == "") {
					return fmt.Errorf("provide exactly one of --private-key or --mnemonic")
				}

				store := walletStore()
				if store.Exists() && !c.Bool("force") {
					return fmt.Errorf("a credential already exists; use --force to replace it")
				}

				var cred *wallet.Credential
				if privateKey != "" {
					cred, err = wallet.ImportPrivateKey(privateKey, pass, scheme, network.Name)
				} else {
					cred, err = wallet.ImportMnemonic(mnemonic, pass, scheme, network.Name)
				}
				if err != nil {
					return fmt.Errorf("failed to import key: %w", err)
				}
				if err := store.Save(cred); err != nil {
					return err
				}

				fmt.Printf("Imported address: %s\n", cred.Address.Hex())
				fmt.Printf("Scheme:           %s\n", cred.Scheme)
				return nil
			},
		},
		{
			Name:  "show",
			Usage: "Show the stored credential and its balance",
			Action: func(c *cli.Context) error {
				cred, err := loadCredential()
				if err != nil {
					return err
				}

				fmt.Printf("Address: %s\n", cred.Address.Hex())
				fmt.Printf("Scheme:  %s\n", cred.Scheme)
				fmt.Printf("Created: %s\n", cred.CreatedAt.Format("2006-01-02 15:04:05 MST"))

				ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
				defer cancel()
				balance, err := cl.Balance(ctx, cred.Address)
				if err != nil {
					fmt.Printf("Balance: unavailable (%v)\n", err)
					return nil
				}
				fmt.Printf("Balance: %s %s\n", formatUnits(balance, network.Decimals), network.Symbol)
				return nil
			},
		},
		{
			Name:  "delete",
			Usage: "Delete the stored credential",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "yes",
					Usage: "Skip the confirmation prompt",
				},
			},
			Action: func(c *cli.Context) error {
				store := walletStore()
				if !store.Exists() {
					fmt.Println("No credential stored")
					return nil
				}
				if !c.Bool("yes") && !promptYesNo("Delete the stored credential? The key is unrecoverable without a backup") {
					fmt.Println("Aborted")
					return nil
				}
				if err := store.Delete(); err != nil {
					return err
				}
				fmt.Println("Credential deleted")
				return nil
			},
		},
	},
}

// formatUnits renders a base-unit amount as a decimal string, trimming
// trailing zeros from the fractional part.
func formatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, divisor, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	fracStr := fmt.Sprintf("%0*s", decimals, frac.String())
	for len(fracStr) > 1 && fracStr[len(fracStr)-1] == '0' {
		fracStr = fracStr[:len(fracStr)-1]
	}
	return whole.String() + "." + fracStr
}
