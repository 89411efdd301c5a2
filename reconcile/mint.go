package reconcile

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/CommonsHub/token-bot/ledger"
	"github.com/CommonsHub/token-bot/notify"
	"github.com/CommonsHub/token-bot/platform"
)

// IssuanceDispatcher drives the mint path. Minting is never gated on the
// member's balance; the pre-read exists only so the notification can show the
// new balance.
type IssuanceDispatcher struct {
	ledger  Ledger
	fanout  notifier
	logger  *slog.Logger
	metrics *Metrics
}

// NewIssuanceDispatcher wires the mint path.
func NewIssuanceDispatcher(l Ledger, fanout notifier, logger *slog.Logger, metrics *Metrics) *IssuanceDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssuanceDispatcher{ledger: l, fanout: fanout, logger: logger, metrics: metrics}
}

// Dispatch applies one mint policy cycle to one member.
func (d *IssuanceDispatcher) Dispatch(ctx context.Context, runID string, policy RolePolicy, action MintAction, member platform.Member, account common.Address) MemberResult {
	balance, err := d.ledger.Balance(ctx, account)
	if err != nil {
		// Display-only read; the mint proceeds regardless.
		d.logger.Warn("balance read failed before mint",
			"run", runID, "role", policy.Name, "member", member.ID, "error", err)
		balance = ledger.Amount{}
	}

	outcome := d.ledger.Execute(ctx, ledger.OpMint, account, action.Amount)
	if !outcome.Success {
		d.metrics.RecordOperation(string(ledger.OpMint), failureLabel(outcome))
		return ResultFailed
	}
	d.metrics.RecordOperation(string(ledger.OpMint), "ok")

	token := d.ledger.Token()
	d.fanout.Notify(ctx, notify.Event{
		Kind:        ledger.OpMint,
		RunID:       runID,
		RoleName:    policy.Name,
		MemberID:    member.ID,
		MemberName:  member.DisplayName,
		Account:     account,
		Amount:      action.Amount,
		PrevBalance: balance,
		NewBalance:  balance.Add(action.Amount),
		Symbol:      token.Symbol,
		ChainID:     token.ChainID,
		TxHash:      outcome.TxHash,
	})
	return ResultMinted
}
