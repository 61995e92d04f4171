package deploy

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDeployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func constructorInputs(t *testing.T, signature string) abi.Arguments {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(`[{"type":"constructor","inputs":` + signature + `}]`))
	require.NoError(t, err)
	return parsed.Constructor.Inputs
}

var tokenInputs = `[
	{"name":"name","type":"string"},
	{"name":"symbol","type":"string"},
	{"name":"decimals","type":"uint8"},
	{"name":"initialSupply","type":"uint256"}
]`

func TestResolveTokenStyleDefaults(t *testing.T) {
	inputs := constructorInputs(t, tokenInputs)

	args, err := Resolve(inputs, nil, "GovernanceToken", testDeployer)
	require.NoError(t, err)
	require.Len(t, args, 4)

	assert.Equal(t, "GovernanceToken", args[0].Value)
	assert.Equal(t, "GOVER", args[1].Value)
	assert.Equal(t, uint8(18), args[2].Value)
	assert.Equal(t, defaultSupply, args[3].Value)
	for _, arg := range args {
		assert.Equal(t, SourceDefault, arg.Source)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	inputs := constructorInputs(t, tokenInputs)

	first, err := Resolve(inputs, nil, "MyToken", testDeployer)
	require.NoError(t, err)
	second, err := Resolve(inputs, nil, "MyToken", testDeployer)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolvePositionalFill(t *testing.T) {
	inputs := constructorInputs(t, tokenInputs)

	args, err := Resolve(inputs, []string{"Wrapped Ether", "WETH"}, "MyToken", testDeployer)
	require.NoError(t, err)
	require.Len(t, args, 4)

	assert.Equal(t, "Wrapped Ether", args[0].Value)
	assert.Equal(t, SourceUser, args[0].Source)
	assert.Equal(t, "WETH", args[1].Value)
	assert.Equal(t, SourceUser, args[1].Source)
	assert.Equal(t, uint8(18), args[2].Value)
	assert.Equal(t, SourceDefault, args[2].Source)
	assert.Equal(t, SourceDefault, args[3].Source)
}

func TestResolveRejectsExtraArgs(t *testing.T) {
	inputs := constructorInputs(t, `[{"name":"owner","type":"address"}]`)

	_, err := Resolve(inputs, []string{testDeployer.Hex(), "extra"}, "Vault", testDeployer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 1 argument(s), got 2")
}

func TestResolveAddressDefaultsToDeployer(t *testing.T) {
	inputs := constructorInputs(t, `[{"name":"owner","type":"address"}]`)

	args, err := Resolve(inputs, nil, "Vault", testDeployer)
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, testDeployer, args[0].Value)
	assert.Equal(t, SourceDeployer, args[0].Source)
}

func TestResolveFallbackDefaults(t *testing.T) {
	inputs := constructorInputs(t, `[
		{"name":"enabled","type":"bool"},
		{"name":"threshold","type":"uint256"},
		{"name":"label","type":"string"}
	]`)

	args, err := Resolve(inputs, nil, "Registry", testDeployer)
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.Equal(t, true, args[0].Value)
	assert.Equal(t, big.NewInt(1), args[1].Value)
	assert.Equal(t, "Registry", args[2].Value)
}

func TestResolveFailsWithoutApplicableRule(t *testing.T) {
	inputs := constructorInputs(t, `[{"name":"merkleRoot","type":"bytes32"}]`)

	_, err := Resolve(inputs, nil, "Airdrop", testDeployer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default")
}

func TestResolveInvalidUserArg(t *testing.T) {
	inputs := constructorInputs(t, `[{"name":"owner","type":"address"}]`)

	_, err := Resolve(inputs, []string{"not-an-address"}, "Vault", testDeployer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestConvertArgument(t *testing.T) {
	mustType := func(s string) abi.Type {
		typ, err := abi.NewType(s, "", nil)
		require.NoError(t, err)
		return typ
	}

	tests := []struct {
		name    string
		input   string
		typ     abi.Type
		want    interface{}
		wantErr bool
	}{
		{"address", testDeployer.Hex(), mustType("address"), testDeployer, false},
		{"uint8", "42", mustType("uint8"), uint8(42), false},
		{"uint64", "42", mustType("uint64"), uint64(42), false},
		{"uint256", "42", mustType("uint256"), big.NewInt(42), false},
		{"int32", "-7", mustType("int32"), int32(-7), false},
		{"bool true", "true", mustType("bool"), true, false},
		{"bool numeric", "0", mustType("bool"), false, false},
		{"string", "hello", mustType("string"), "hello", false},
		{"bytes", "0xdeadbeef", mustType("bytes"), []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"bad address", "0x123", mustType("address"), nil, true},
		{"bad integer", "twelve", mustType("uint256"), nil, true},
		{"bad bool", "maybe", mustType("bool"), nil, true},
		{"bad bytes", "0xzz", mustType("bytes"), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertArgument(tt.input, tt.typ)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "GOVER", abbreviate("GovernanceToken"))
	assert.Equal(t, "BAT", abbreviate("Bat"))
	assert.Equal(t, "TOKEN", abbreviate("token"))
}
