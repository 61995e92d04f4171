package deploy

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Source records where a resolved argument value came from.
type Source string

const (
	SourceUser     Source = "user-supplied"
	SourceDefault  Source = "auto-default"
	SourceDeployer Source = "deployer-address"
)

// ResolvedArg is one constructor parameter with its final value. Built
// fresh per deployment attempt, never persisted on its own.
type ResolvedArg struct {
	Name    string
	Type    abi.Type
	Value   interface{}
	Display string
	Source  Source
}

// defaultSupply is the fixed large constant used for supply-like numeric
// parameters: one million whole tokens at 18 decimals.
var defaultSupply, _ = new(big.Int).SetString("1000000000000000000000000", 10)

// defaultRule maps a (name pattern, type class) pair to a default value.
// The table is ordered; the first matching rule wins. Resolution is a
// best-effort convenience: a resolved value may still make the subsequent
// simulation fail, which the pipeline handles.
type defaultRule struct {
	name    string // substring of the lower-cased parameter name, "" = any
	matches func(abi.Type) bool
	value   func(artifactName string, t abi.Type, deployer common.Address) (interface{}, Source)
}

var defaultRules = []defaultRule{
	{
		name:    "name",
		matches: isString,
		value: func(artifactName string, _ abi.Type, _ common.Address) (interface{}, Source) {
			return artifactName, SourceDefault
		},
	},
	{
		name:    "symbol",
		matches: isString,
		value: func(artifactName string, _ abi.Type, _ common.Address) (interface{}, Source) {
			return abbreviate(artifactName), SourceDefault
		},
	},
	{
		name:    "decimal",
		matches: isInteger,
		value: func(_ string, t abi.Type, _ common.Address) (interface{}, Source) {
			return castInteger(t, big.NewInt(18)), SourceDefault
		},
	},
	{
		name:    "supply",
		matches: isInteger,
		value: func(_ string, t abi.Type, _ common.Address) (interface{}, Source) {
			return castInteger(t, defaultSupply), SourceDefault
		},
	},
	{
		matches: isAddress,
		value: func(_ string, _ abi.Type, deployer common.Address) (interface{}, Source) {
			return deployer, SourceDeployer
		},
	},
	{
		matches: isBool,
		value: func(_ string, _ abi.Type, _ common.Address) (interface{}, Source) {
			return true, SourceDefault
		},
	},
	{
		matches: isInteger,
		value: func(_ string, t abi.Type, _ common.Address) (interface{}, Source) {
			return castInteger(t, big.NewInt(1)), SourceDefault
		},
	},
	{
		matches: isString,
		value: func(artifactName string, _ abi.Type, _ common.Address) (interface{}, Source) {
			return artifactName, SourceDefault
		},
	},
}

// Resolve fills the constructor parameter list. User-supplied values are
// taken positionally and used verbatim; any remaining parameters get
// deterministic, type-driven defaults. Parameters with no applicable rule
// make resolution fail.
func Resolve(inputs abi.Arguments, userArgs []string, artifactName string, deployer common.Address) ([]ResolvedArg, error) {
	if len(userArgs) > len(inputs) {
		return nil, fmt.Errorf("constructor takes %d argument(s), got %d", len(inputs), len(userArgs))
	}

	resolved := make([]ResolvedArg, 0, len(inputs))
	for i, input := range inputs {
		arg := ResolvedArg{Name: input.Name, Type: input.Type}

		if i < len(userArgs) {
			value, err := ConvertArgument(userArgs[i], input.Type)
			if err != nil {
				return nil, fmt.Errorf("argument %d (%s %s): %w", i, input.Type.String(), input.Name, err)
			}
			arg.Value = value
			arg.Source = SourceUser
		} else {
			rule, ok := matchRule(input.Name, input.Type)
			if !ok {
				return nil, fmt.Errorf("argument %d (%s %s): required and no default for this type", i, input.Type.String(), input.Name)
			}
			arg.Value, arg.Source = rule.value(artifactName, input.Type, deployer)
		}

		arg.Display = displayValue(arg.Value)
		resolved = append(resolved, arg)
	}
	return resolved, nil
}

func matchRule(paramName string, t abi.Type) (defaultRule, bool) {
	lower := strings.ToLower(paramName)
	for _, rule := range defaultRules {
		if rule.name != "" && !strings.Contains(lower, rule.name) {
			continue
		}
		if rule.matches(t) {
			return rule, true
		}
	}
	return defaultRule{}, false
}

// abbreviate derives a ticker-style symbol: the first five characters of
// the artifact name, upper-cased.
func abbreviate(name string) string {
	if len(name) > 5 {
		name = name[:5]
	}
	return strings.ToUpper(name)
}

func isString(t abi.Type) bool {
	return t.T == abi.StringTy
}

func isInteger(t abi.Type) bool {
	return t.T == abi.UintTy || t.T == abi.IntTy
}

func isAddress(t abi.Type) bool {
	return t.T == abi.AddressTy
}

func isBool(t abi.Type) bool {
	return t.T == abi.BoolTy
}

// castInteger shapes a big.Int into the Go value the ABI encoder expects
// for the parameter's declared width.
func castInteger(t abi.Type, v *big.Int) interface{} {
	if t.T == abi.IntTy {
		switch t.Size {
		case 8:
			return int8(v.Int64())
		case 16:
			return int16(v.Int64())
		case 32:
			return int32(v.Int64())
		case 64:
			return v.Int64()
		default:
			return new(big.Int).Set(v)
		}
	}
	switch t.Size {
	case 8:
		return uint8(v.Uint64())
	case 16:
		return uint16(v.Uint64())
	case 32:
		return uint32(v.Uint64())
	case 64:
		return v.Uint64()
	default:
		return new(big.Int).Set(v)
	}
}

// ConvertArgument parses a textual value into the Go representation the ABI
// encoder expects for the parameter type.
func ConvertArgument(value string, t abi.Type) (interface{}, error) {
	value = strings.TrimSpace(value)
	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("invalid address value: %s", value)
		}
		return common.HexToAddress(value), nil
	case abi.UintTy, abi.IntTy:
		parsed, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer value: %s", value)
		}
		return castInteger(t, parsed), nil
	case abi.BoolTy:
		switch strings.ToLower(value) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return nil, fmt.Errorf("invalid bool value: %s", value)
		}
	case abi.StringTy:
		return value, nil
	case abi.BytesTy:
		decoded, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid bytes value: %s", value)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("unsupported argument type: %s", t.String())
	}
}

func displayValue(v interface{}) string {
	switch val := v.(type) {
	case common.Address:
		return val.Hex()
	case *big.Int:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
