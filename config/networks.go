package config

import (
	"fmt"
	"math/big"
	"strings"
)

// Network describes one ledger endpoint. A Network is selected once per
// session and passed explicitly to every component that needs it; there is
// no implicit "current network".
type Network struct {
	Name        string `json:"name"`
	ChainID     uint64 `json:"chain_id"`
	RPCURL      string `json:"rpc_url"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}

// ChainIDBig returns the chain id as a big.Int for transaction signing.
func (n Network) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(n.ChainID)
}

// ExplorerTxURL returns a block explorer link for a transaction hash, or
// an empty string when the network has no explorer configured.
func (n Network) ExplorerTxURL(txHash string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return strings.TrimSuffix(n.ExplorerURL, "/") + "/tx/" + txHash
}

var builtinNetworks = []Network{
	{
		Name:     "localhost",
		ChainID:  31337,
		RPCURL:   "http://127.0.0.1:8545",
		Symbol:   "ETH",
		Decimals: 18,
	},
	{
		Name:        "sepolia",
		ChainID:     11155111,
		RPCURL:      "https://rpc.sepolia.org",
		Symbol:      "ETH",
		Decimals:    18,
		ExplorerURL: "https://sepolia.etherscan.io",
	},
	{
		Name:        "holesky",
		ChainID:     17000,
		RPCURL:      "https://ethereum-holesky-rpc.publicnode.com",
		Symbol:      "ETH",
		Decimals:    18,
		ExplorerURL: "https://holesky.etherscan.io",
	},
	{
		Name:        "polygon-amoy",
		ChainID:     80002,
		RPCURL:      "https://rpc-amoy.polygon.technology",
		Symbol:      "POL",
		Decimals:    18,
		ExplorerURL: "https://amoy.polygonscan.com",
	},
}

// LookupNetwork resolves a built-in network by name.
func LookupNetwork(name string) (Network, error) {
	for _, n := range builtinNetworks {
		if strings.EqualFold(n.Name, name) {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("unknown network %q (built-in: %s)", name, strings.Join(NetworkNames(), ", "))
}

// NetworkNames lists the built-in network names.
func NetworkNames() []string {
	names := make([]string, 0, len(builtinNetworks))
	for _, n := range builtinNetworks {
		names = append(names, n.Name)
	}
	return names
}

// CustomNetwork builds a Network from an explicit RPC URL and chain id,
// for endpoints not in the built-in table.
func CustomNetwork(name, rpcURL string, chainID uint64) Network {
	if name == "" {
		name = fmt.Sprintf("chain-%d", chainID)
	}
	return Network{
		Name:     name,
		ChainID:  chainID,
		RPCURL:   rpcURL,
		Symbol:   "ETH",
		Decimals: 18,
	}
}
