package notify

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Explorer renders links into the community's block explorer.
type Explorer struct {
	BaseURL string
}

// TxURL returns the explorer page for a transaction hash.
func (e Explorer) TxURL(txHash string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/tx/" + txHash
}

// AddressURL returns the explorer page for an account.
func (e Explorer) AddressURL(address common.Address) string {
	return strings.TrimRight(e.BaseURL, "/") + "/address/" + address.Hex()
}

func mention(userID string) string {
	return "<@" + userID + ">"
}
