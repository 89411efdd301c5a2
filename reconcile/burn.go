package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/CommonsHub/token-bot/ledger"
	"github.com/CommonsHub/token-bot/notify"
	"github.com/CommonsHub/token-bot/platform"
)

// MemberResult summarises what happened to one member in one cycle.
type MemberResult string

const (
	ResultBurned  MemberResult = "burned"
	ResultMinted  MemberResult = "minted"
	ResultRevoked MemberResult = "revoked"
	ResultSkipped MemberResult = "skipped"
	ResultFailed  MemberResult = "failed"
)

// Ledger is the executor surface the engine needs.
type Ledger interface {
	Balance(ctx context.Context, account common.Address) (ledger.Amount, error)
	Execute(ctx context.Context, kind ledger.OperationKind, account common.Address, amount ledger.Amount) ledger.Outcome
	Token() ledger.Token
}

type revoker interface {
	Revoke(ctx context.Context, member platform.Member, roleID string) GuardResult
}

type notifier interface {
	Notify(ctx context.Context, evt notify.Event)
}

// BalanceReconciler drives the burn path: read the member's fresh balance,
// decide between burning and revoking, execute, and fan the outcome out.
// Balance is always read from the ledger itself, never inferred from prior
// notifications, so announced and actual balances cannot drift apart after a
// partial failure.
type BalanceReconciler struct {
	ledger  Ledger
	guard   revoker
	fanout  notifier
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewBalanceReconciler wires the burn path.
func NewBalanceReconciler(l Ledger, guard revoker, fanout notifier, logger *slog.Logger, metrics *Metrics) *BalanceReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceReconciler{
		ledger:  l,
		guard:   guard,
		fanout:  fanout,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (r *BalanceReconciler) WithClock(clock func() time.Time) *BalanceReconciler {
	r.now = clock
	return r
}

// Reconcile applies one burn policy cycle to one member.
func (r *BalanceReconciler) Reconcile(ctx context.Context, runID string, policy RolePolicy, action BurnAction, member platform.Member, account common.Address) MemberResult {
	balance, err := r.ledger.Balance(ctx, account)
	if err != nil {
		r.logger.Error("balance read failed",
			"run", runID, "role", policy.Name, "member", member.ID, "error", err)
		r.metrics.RecordSkip("balance_read_failed")
		return ResultFailed
	}

	if balance.Cmp(action.Amount) < 0 {
		age := r.now().Sub(member.JoinedAt)
		if age <= action.GracePeriod {
			// Under-funded but still inside the grace window; the policy
			// tolerates new members who have not topped up yet.
			r.logger.Debug("member within grace period",
				"run", runID, "role", policy.Name, "member", member.ID,
				"balance", balance.String(), "joined", member.JoinedAt)
			r.metrics.RecordSkip("grace_period")
			return ResultSkipped
		}
		result := r.guard.Revoke(ctx, member, policy.RoleID)
		if result.Removed {
			return ResultRevoked
		}
		return ResultSkipped
	}

	newBalance := balance.Sub(action.Amount)
	outcome := r.ledger.Execute(ctx, ledger.OpBurn, account, action.Amount)
	if !outcome.Success {
		// A failed burn is not insufficient funds: no revocation fallback.
		r.metrics.RecordOperation(string(ledger.OpBurn), failureLabel(outcome))
		return ResultFailed
	}
	r.metrics.RecordOperation(string(ledger.OpBurn), "ok")

	token := r.ledger.Token()
	r.fanout.Notify(ctx, notify.Event{
		Kind:        ledger.OpBurn,
		RunID:       runID,
		RoleName:    policy.Name,
		MemberID:    member.ID,
		MemberName:  member.DisplayName,
		Account:     account,
		Amount:      action.Amount,
		PrevBalance: balance,
		NewBalance:  newBalance,
		Symbol:      token.Symbol,
		ChainID:     token.ChainID,
		TxHash:      outcome.TxHash,
	})
	return ResultBurned
}

func failureLabel(outcome ledger.Outcome) string {
	if outcome.ErrorClass != ledger.ClassNone {
		return string(outcome.ErrorClass)
	}
	return "failed"
}
