// Package notify fans reconciliation and command outcomes out to the
// affected member, the operations channel, and the public attestation
// relays. Delivery is best effort: one sink failing never blocks another,
// and no sink failure ever changes the ledger outcome already recorded.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/CommonsHub/token-bot/ledger"
	"github.com/CommonsHub/token-bot/observability"
	"github.com/CommonsHub/token-bot/platform"
)

// Event describes one completed ledger operation for delivery.
type Event struct {
	Kind        ledger.OperationKind
	RunID       string
	RoleName    string
	MemberID    string
	MemberName  string
	Account     common.Address
	Amount      ledger.Amount
	PrevBalance ledger.Amount
	NewBalance  ledger.Amount
	Symbol      string
	ChainID     uint64
	TxHash      string
	Memo        string
	// InitiatorID is set for operator-invoked commands and empty for
	// scheduled runs.
	InitiatorID string
}

func (e Event) verb() string {
	if e.Kind == ledger.OpMint {
		return "minted"
	}
	return "burned"
}

func (e Event) preposition() string {
	if e.Kind == ledger.OpMint {
		return "to"
	}
	return "from"
}

// Sink is one independent notification destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt Event) error
}

// Fanout delivers an event to every sink concurrently, capturing per-sink
// failures for logging and metrics only.
type Fanout struct {
	sinks   []Sink
	logger  *slog.Logger
	metrics *observability.ReconcilerMetrics
}

// NewFanout assembles a fanout over the given sinks. Nil sinks are skipped so
// callers can pass optional sinks unconditionally.
func NewFanout(logger *slog.Logger, metrics *observability.ReconcilerMetrics, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	active := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}
	return &Fanout{sinks: active, logger: logger, metrics: metrics}
}

// Notify delivers the event to every sink. It blocks until all sinks have
// finished and never returns an error.
func (f *Fanout) Notify(ctx context.Context, evt Event) {
	var wg sync.WaitGroup
	for _, sink := range f.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			if err := s.Deliver(ctx, evt); err != nil {
				f.logger.Warn("notification sink failed",
					"sink", s.Name(),
					"member", evt.MemberID,
					"run", evt.RunID,
					"error", err,
				)
				f.metrics.RecordSinkFailure(s.Name())
			}
		}(sink)
	}
	wg.Wait()
}

// DirectMessageSink tells the affected member what happened to their account.
type DirectMessageSink struct {
	Client   platform.Client
	Explorer Explorer
}

func (s *DirectMessageSink) Name() string { return "dm" }

// Deliver sends the DM. Members without a platform identity on the event are
// skipped silently.
func (s *DirectMessageSink) Deliver(ctx context.Context, evt Event) error {
	if evt.MemberID == "" {
		return nil
	}
	var text string
	if evt.InitiatorID != "" {
		text = fmt.Sprintf("%s %s **%s %s** %s your account ([tx](%s))",
			mention(evt.InitiatorID), evt.verb(), evt.Amount.String(), evt.Symbol,
			evt.preposition(), s.Explorer.TxURL(evt.TxHash))
	} else {
		text = fmt.Sprintf("**%s %s** was %s %s your account for the **%s** role ([tx](%s))",
			evt.Amount.String(), evt.Symbol, evt.verb(), evt.preposition(),
			evt.RoleName, s.Explorer.TxURL(evt.TxHash))
	}
	if memo := strings.TrimSpace(evt.Memo); memo != "" {
		text += "\n*" + memo + "*"
	}
	return s.Client.SendDirectMessage(ctx, evt.MemberID, text)
}

// AuditSink posts a human-readable summary to the operations channel.
type AuditSink struct {
	Client    platform.Client
	ChannelID string
	Explorer  Explorer
}

func (s *AuditSink) Name() string { return "audit" }

func (s *AuditSink) Deliver(ctx context.Context, evt Event) error {
	if s.ChannelID == "" {
		return fmt.Errorf("notify: audit channel not configured")
	}
	who := evt.MemberName
	if who == "" {
		who = evt.MemberID
	}
	text := fmt.Sprintf("✅ %s **%s %s** %s %s (balance: %s → %s) · [tx](%s) · [account](%s)",
		capitalize(evt.verb()), evt.Amount.String(), evt.Symbol,
		evt.preposition(), who,
		evt.PrevBalance.String(), evt.NewBalance.String(),
		s.Explorer.TxURL(evt.TxHash), s.Explorer.AddressURL(evt.Account))
	if evt.RoleName != "" {
		text += " · role: " + evt.RoleName
	}
	if memo := strings.TrimSpace(evt.Memo); memo != "" {
		text += " — " + memo
	}
	return s.Client.PostMessage(ctx, s.ChannelID, text)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type recordPublisher interface {
	Publish(ctx context.Context, rec Record) error
}

// PublisherSink records the operation on the public attestation relays.
type PublisherSink struct {
	Publisher recordPublisher
}

func (s *PublisherSink) Name() string { return "publisher" }

func (s *PublisherSink) Deliver(ctx context.Context, evt Event) error {
	if s.Publisher == nil {
		return nil
	}
	content := strings.TrimSpace(evt.Memo)
	if content == "" {
		content = fmt.Sprintf("%s %s %s for the %s role", evt.verb(), evt.Amount.String(), evt.Symbol, evt.RoleName)
	}
	tags := [][]string{}
	if evt.RoleName != "" {
		tags = append(tags, []string{"role", evt.RoleName})
	}
	if evt.Account != (common.Address{}) {
		// A second reference tag so the record resolves to the account
		// as well as the transaction.
		tags = append(tags, []string{"i", AddressURI(evt.ChainID, evt.Account)})
	}
	return s.Publisher.Publish(ctx, Record{
		URI:     TxURI(evt.ChainID, evt.TxHash),
		Content: content,
		Tags:    tags,
	})
}
