package notify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"nhooyr.io/websocket"

	botcrypto "github.com/CommonsHub/token-bot/crypto"
)

// recordKind is the event kind used for attested metadata records.
const recordKind = 1111

// publisherKeyHRP is the human-readable prefix for the bech32-encoded
// publishing identity.
const publisherKeyHRP = "apub"

// Record is one attested note referencing a transaction or account on the
// public ledger.
type Record struct {
	URI     string
	Content string
	Tags    [][]string
}

// TxURI builds the canonical reference for a transaction.
func TxURI(chainID uint64, txHash string) string {
	return fmt.Sprintf("ethereum:%d:tx:%s", chainID, strings.ToLower(txHash))
}

// AddressURI builds the canonical reference for an account.
func AddressURI(chainID uint64, address common.Address) string {
	return fmt.Sprintf("ethereum:%d:address:%s", chainID, strings.ToLower(address.Hex()))
}

func kindFromURI(uri string) string {
	chain := "ethereum"
	if strings.HasPrefix(uri, "bitcoin") {
		chain = "bitcoin"
	}
	if strings.Contains(uri, ":tx:") {
		return chain + ":tx"
	}
	return chain + ":address"
}

// relayEvent is the wire form published to the attestation relays.
type relayEvent struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Publisher signs attestation records with the process's publishing identity
// and fans them out to a set of websocket relays. Delivery succeeds when any
// one relay acknowledges the event.
type Publisher struct {
	key     *botcrypto.PrivateKey
	relays  []string
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// DefaultRelays are used when the community config names none.
var DefaultRelays = []string{
	"wss://relay.commonshub.brussels",
	"wss://relay.citizenwallet.xyz",
}

// NewPublisher constructs a relay publisher. Callers that have no publishing
// key configured should not construct one at all; a nil *Publisher simply
// disables the public-ledger sink.
func NewPublisher(key *botcrypto.PrivateKey, relays []string, logger *slog.Logger) (*Publisher, error) {
	if key == nil {
		return nil, fmt.Errorf("notify: publishing key required")
	}
	if len(relays) == 0 {
		relays = DefaultRelays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		key:     key,
		relays:  append([]string(nil), relays...),
		logger:  logger,
		timeout: 10 * time.Second,
		now:     time.Now,
	}, nil
}

// PublicKey returns the bech32-encoded publishing identity, suitable for
// sharing with relay operators.
func (p *Publisher) PublicKey() (string, error) {
	compressed := p.key.PubKey().CompressedBytes()
	conv, err := bech32.ConvertBits(compressed[1:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("notify: convert key bits: %w", err)
	}
	encoded, err := bech32.Encode(publisherKeyHRP, conv)
	if err != nil {
		return "", fmt.Errorf("notify: encode key: %w", err)
	}
	return encoded, nil
}

// Publish signs and delivers one record. The first relay acknowledgement
// wins; the error aggregates every relay failure when none succeeds.
func (p *Publisher) Publish(ctx context.Context, rec Record) error {
	event, err := p.buildEvent(rec)
	if err != nil {
		return err
	}
	frame, err := json.Marshal([]any{"EVENT", event})
	if err != nil {
		return fmt.Errorf("notify: encode event frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		relay string
		err   error
	}
	results := make(chan result, len(p.relays))
	for _, relay := range p.relays {
		go func(relay string) {
			results <- result{relay: relay, err: p.publishTo(ctx, relay, frame, event.ID)}
		}(relay)
	}

	var failures []string
	for range p.relays {
		res := <-results
		if res.err == nil {
			cancel()
			return nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", res.relay, res.err))
	}
	return fmt.Errorf("notify: all relays failed: %s", strings.Join(failures, "; "))
}

func (p *Publisher) buildEvent(rec Record) (relayEvent, error) {
	uri := strings.ToLower(strings.TrimSpace(rec.URI))
	if uri == "" {
		return relayEvent{}, fmt.Errorf("notify: record uri required")
	}
	tags := [][]string{{"i", uri}, {"k", kindFromURI(uri)}}
	tags = append(tags, rec.Tags...)

	compressed := p.key.PubKey().CompressedBytes()
	pubkey := hex.EncodeToString(compressed[1:])
	createdAt := p.now().Unix()

	canonical, err := json.Marshal([]any{0, pubkey, createdAt, recordKind, tags, rec.Content})
	if err != nil {
		return relayEvent{}, fmt.Errorf("notify: serialise event: %w", err)
	}
	id := gethcrypto.Keccak256(canonical)
	sig, err := gethcrypto.Sign(id, p.key.PrivateKey)
	if err != nil {
		return relayEvent{}, fmt.Errorf("notify: sign event: %w", err)
	}

	return relayEvent{
		ID:        hex.EncodeToString(id),
		PubKey:    pubkey,
		CreatedAt: createdAt,
		Kind:      recordKind,
		Tags:      tags,
		Content:   rec.Content,
		Sig:       hex.EncodeToString(sig),
	}, nil
}

func (p *Publisher) publishTo(ctx context.Context, relay string, frame []byte, eventID string) error {
	conn, _, err := websocket.Dial(ctx, relay, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("read ack: %w", err)
	}
	var ack []json.RawMessage
	if err := json.Unmarshal(data, &ack); err != nil || len(ack) < 3 {
		return fmt.Errorf("malformed ack")
	}
	var verb, id string
	var accepted bool
	if err := json.Unmarshal(ack[0], &verb); err != nil || verb != "OK" {
		return fmt.Errorf("unexpected ack verb")
	}
	if err := json.Unmarshal(ack[1], &id); err != nil || id != eventID {
		return fmt.Errorf("ack for unexpected event")
	}
	if err := json.Unmarshal(ack[2], &accepted); err != nil || !accepted {
		return fmt.Errorf("relay rejected event")
	}
	return nil
}
