// Package artifact models compiled contract artifacts: bytecode plus a
// typed interface descriptor. Artifacts are produced by an external
// compiler and treated as opaque inputs by the deployment pipeline.
package artifact

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact is a compiled contract ready for deployment.
type Artifact struct {
	Name     string
	Bytecode []byte
	ABI      abi.ABI
	RawABI   json.RawMessage
}

// ConstructorInputs returns the typed constructor parameter list.
func (a *Artifact) ConstructorInputs() abi.Arguments {
	return a.ABI.Constructor.Inputs
}

// DeployData encodes the deployment payload: bytecode followed by the
// ABI-packed constructor arguments.
func (a *Artifact) DeployData(args ...interface{}) ([]byte, error) {
	packed, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constructor arguments: %w", err)
	}
	return append(append([]byte{}, a.Bytecode...), packed...), nil
}

// Parse builds an Artifact from hex bytecode and an ABI JSON descriptor.
func Parse(name, bytecodeHex string, rawABI []byte) (*Artifact, error) {
	bytecodeHex = strings.TrimSpace(bytecodeHex)
	bytecodeHex = strings.TrimPrefix(bytecodeHex, "0x")
	bytecode, err := hex.DecodeString(bytecodeHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bytecode for %s: %w", name, err)
	}
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has empty bytecode", name)
	}

	parsed, err := abi.JSON(strings.NewReader(string(rawABI)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI for %s: %w", name, err)
	}

	return &Artifact{
		Name:     name,
		Bytecode: bytecode,
		ABI:      parsed,
		RawABI:   append(json.RawMessage{}, rawABI...),
	}, nil
}

// Load reads an artifact from a .bin file (hex bytecode) and an ABI JSON
// file. The artifact name defaults to the bin file's base name.
func Load(name, binPath, abiPath string) (*Artifact, error) {
	if name == "" {
		base := filepath.Base(binPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	bytecodeHex, err := os.ReadFile(binPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bytecode file: %w", err)
	}
	rawABI, err := os.ReadFile(abiPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ABI file: %w", err)
	}

	return Parse(name, string(bytecodeHex), rawABI)
}
