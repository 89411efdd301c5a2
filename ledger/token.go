package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Token describes the community's ledger asset.
type Token struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
	ChainID  uint64
}

// Issuing and burning rights on the token contract are granted through
// AccessControl roles.
var (
	RoleMinter = gethcrypto.Keccak256Hash([]byte("MINTER_ROLE"))
	RoleBurner = gethcrypto.Keccak256Hash([]byte("BURNER_ROLE"))
)

const tokenABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"mint","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"burnFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"hasRole","type":"function","stateMutability":"view","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

const cardRegistryABIJSON = `[
	{"name":"getCardAddress","type":"function","stateMutability":"view","inputs":[{"name":"hashedSerial","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

var (
	tokenABI        = mustParseABI(tokenABIJSON)
	cardRegistryABI = mustParseABI(cardRegistryABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("ledger: parse abi: %v", err))
	}
	return parsed
}
