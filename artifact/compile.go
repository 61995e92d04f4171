package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CompilationError is surfaced before the deployment pipeline starts; a
// failed compile never reaches the network.
type CompilationError struct {
	Source string
	Output string
	Err    error
}

func (e *CompilationError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("compilation of %s failed: %v\n%s", e.Source, e.Err, e.Output)
	}
	return fmt.Sprintf("compilation of %s failed: %v", e.Source, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// Compiler resolves a source path to a compiled artifact. The pipeline
// treats it as a black box; Compile is the default solc-backed one.
type Compiler func(sourcePath string) (*Artifact, error)

// Compile builds a Solidity source with solc and returns the artifact for
// the contract matching the file's base name, falling back to the only
// contract when there is exactly one.
func Compile(sourcePath string) (*Artifact, error) {
	if _, err := exec.LookPath("solc"); err != nil {
		return nil, &CompilationError{Source: sourcePath, Err: fmt.Errorf("solc not found in PATH: %w", err)}
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, &CompilationError{Source: sourcePath, Err: fmt.Errorf("source file not found: %w", err)}
	}

	cmd := exec.Command("solc", "--combined-json", "abi,bin", "--metadata-hash", "none", sourcePath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &CompilationError{Source: sourcePath, Output: string(output), Err: err}
	}

	var combined struct {
		Contracts map[string]struct {
			ABI json.RawMessage `json:"abi"`
			Bin string          `json:"bin"`
		} `json:"contracts"`
	}
	if err := json.Unmarshal(output, &combined); err != nil {
		return nil, &CompilationError{Source: sourcePath, Err: fmt.Errorf("unexpected solc output: %w", err)}
	}
	if len(combined.Contracts) == 0 {
		return nil, &CompilationError{Source: sourcePath, Err: fmt.Errorf("no contracts in solc output")}
	}

	// solc keys entries as "<path>:<ContractName>".
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	for key, c := range combined.Contracts {
		name := key
		if idx := strings.LastIndex(key, ":"); idx >= 0 {
			name = key[idx+1:]
		}
		if strings.EqualFold(name, base) || len(combined.Contracts) == 1 {
			art, err := Parse(name, c.Bin, c.ABI)
			if err != nil {
				return nil, &CompilationError{Source: sourcePath, Err: err}
			}
			return art, nil
		}
	}

	return nil, &CompilationError{Source: sourcePath, Err: fmt.Errorf("contract %s not found in solc output", base)}
}
