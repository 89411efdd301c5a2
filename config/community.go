package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/CommonsHub/token-bot/ledger"
	"github.com/CommonsHub/token-bot/notify"
)

// Community is the community-wide configuration: the ledger asset, the card
// registry that links hashed member identities to accounts, the explorer used
// for links, and the attestation relays.
type Community struct {
	Token        ledger.Token
	CardRegistry common.Address
	Explorer     notify.Explorer
	Relays       []string
}

type communityFile struct {
	Token struct {
		Address  string `toml:"address"`
		Decimals uint8  `toml:"decimals"`
		Symbol   string `toml:"symbol"`
		ChainID  uint64 `toml:"chain_id"`
	} `toml:"token"`
	Registry struct {
		CardAddress string `toml:"card_address"`
	} `toml:"registry"`
	Explorer struct {
		URL string `toml:"url"`
	} `toml:"explorer"`
	Relay struct {
		URLs []string `toml:"urls"`
	} `toml:"relay"`
}

// LoadCommunity reads and validates the community TOML file.
func LoadCommunity(path string) (Community, error) {
	var file communityFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return Community{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if !common.IsHexAddress(file.Token.Address) {
		return Community{}, fmt.Errorf("config: token address %q is not a valid address", file.Token.Address)
	}
	if file.Token.Symbol == "" {
		return Community{}, fmt.Errorf("config: token symbol required")
	}
	if file.Token.ChainID == 0 {
		return Community{}, fmt.Errorf("config: token chain_id required")
	}
	if !common.IsHexAddress(file.Registry.CardAddress) {
		return Community{}, fmt.Errorf("config: registry card_address %q is not a valid address", file.Registry.CardAddress)
	}
	if file.Explorer.URL == "" {
		return Community{}, fmt.Errorf("config: explorer url required")
	}

	return Community{
		Token: ledger.Token{
			Address:  common.HexToAddress(file.Token.Address),
			Decimals: file.Token.Decimals,
			Symbol:   file.Token.Symbol,
			ChainID:  file.Token.ChainID,
		},
		CardRegistry: common.HexToAddress(file.Registry.CardAddress),
		Explorer:     notify.Explorer{BaseURL: file.Explorer.URL},
		Relays:       append([]string(nil), file.Relay.URLs...),
	}, nil
}
