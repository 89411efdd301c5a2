package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrNoAccount is returned when a member has not linked a ledger account yet.
// Callers treat this as an expected steady state, not a failure.
var ErrNoAccount = errors.New("ledger: no linked account")

// CardHash derives the one-way identifier that links a chat member to their
// ledger account. The registry only ever sees this hash, never the raw
// platform identity.
func CardHash(memberID string) common.Hash {
	return gethcrypto.Keccak256Hash([]byte(memberID))
}

// Resolver maps hashed member identities to ledger account addresses through
// the community's card registry contract.
type Resolver struct {
	client   Client
	registry common.Address
}

// NewResolver constructs a resolver against the given card registry.
func NewResolver(client Client, registry common.Address) *Resolver {
	return &Resolver{client: client, registry: registry}
}

// Resolve looks up the ledger account for a platform member. It returns
// ErrNoAccount when the registry holds no entry for the member's hash.
func (r *Resolver) Resolve(ctx context.Context, memberID string) (common.Address, error) {
	if r == nil || r.client == nil {
		return common.Address{}, fmt.Errorf("ledger: resolver not initialised")
	}
	hash := CardHash(memberID)
	data, err := cardRegistryABI.Pack("getCardAddress", [32]byte(hash))
	if err != nil {
		return common.Address{}, fmt.Errorf("ledger: pack card lookup: %w", err)
	}
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.registry, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("ledger: card lookup: %w", err)
	}
	results, err := cardRegistryABI.Unpack("getCardAddress", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("ledger: unpack card lookup: %w", err)
	}
	if len(results) != 1 {
		return common.Address{}, fmt.Errorf("ledger: unexpected card lookup result")
	}
	address, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("ledger: unexpected card lookup type %T", results[0])
	}
	if address == (common.Address{}) {
		return common.Address{}, ErrNoAccount
	}
	return address, nil
}
