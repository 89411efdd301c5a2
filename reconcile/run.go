package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/CommonsHub/token-bot/ledger"
	"github.com/CommonsHub/token-bot/platform"
)

type accountResolver interface {
	Resolve(ctx context.Context, memberID string) (common.Address, error)
}

type memberSource interface {
	MembersWithRole(ctx context.Context, roleID string) ([]platform.Member, error)
}

type burnHandler interface {
	Reconcile(ctx context.Context, runID string, policy RolePolicy, action BurnAction, member platform.Member, account common.Address) MemberResult
}

type mintHandler interface {
	Dispatch(ctx context.Context, runID string, policy RolePolicy, action MintAction, member platform.Member, account common.Address) MemberResult
}

// Runner is the top-level driver: once per day it walks every configured
// role, applies the schedule gate, and routes each member to the burn or
// mint path. Roles run on independent goroutines; everything they share is
// immutable for the duration of the run.
type Runner struct {
	policies  []RolePolicy
	members   memberSource
	resolver  accountResolver
	burner    burnHandler
	minter    mintHandler
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
	mintDelay time.Duration
}

// RunnerOption customises the runner.
type RunnerOption func(*Runner)

// WithRunnerClock overrides the time source.
func WithRunnerClock(clock func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = clock }
}

// WithMintDelay overrides the minimum delay between successive mint
// operations within one role.
func WithMintDelay(delay time.Duration) RunnerOption {
	return func(r *Runner) { r.mintDelay = delay }
}

// NewRunner assembles the reconciliation driver.
func NewRunner(policies []RolePolicy, members memberSource, resolver accountResolver, burner burnHandler, minter mintHandler, logger *slog.Logger, metrics *Metrics, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		policies:  policies,
		members:   members,
		resolver:  resolver,
		burner:    burner,
		minter:    minter,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		mintDelay: time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunSummary tallies what one reconciliation run did.
type RunSummary struct {
	RunID       string
	Date        time.Time
	RolesDue    int
	MembersSeen int
	Minted      int
	Burned      int
	Revoked     int
	Skipped     int
	Failed      int
}

// Run executes one full reconciliation cycle. Per-member and per-role
// failures never abort sibling work; the run always walks to the end.
func (r *Runner) Run(ctx context.Context) RunSummary {
	start := r.now()
	summary := RunSummary{
		RunID: uuid.NewString(),
		Date:  start,
	}
	r.logger.Info("reconciliation run starting",
		"run", summary.RunID, "date", start.Format("2006-01-02"), "policies", len(r.policies))

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, policy := range r.policies {
		if !Fires(policy.Frequency, start) {
			r.logger.Debug("cadence not due", "run", summary.RunID, "role", policy.Name, "frequency", string(policy.Frequency))
			continue
		}
		summary.RolesDue++
		wg.Add(1)
		go func(policy RolePolicy) {
			defer wg.Done()
			r.runRole(ctx, summary.RunID, policy, &mu, &summary)
		}(policy)
	}
	wg.Wait()

	elapsed := r.now().Sub(start)
	r.metrics.ObserveRunDuration(elapsed)
	r.logger.Info("reconciliation run complete",
		"run", summary.RunID,
		"roles_due", summary.RolesDue,
		"members", summary.MembersSeen,
		"minted", summary.Minted,
		"burned", summary.Burned,
		"revoked", summary.Revoked,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"elapsed", elapsed,
	)
	return summary
}

func (r *Runner) runRole(ctx context.Context, runID string, policy RolePolicy, mu *sync.Mutex, summary *RunSummary) {
	members, err := r.members.MembersWithRole(ctx, policy.RoleID)
	if err != nil {
		r.logger.Error("member fetch failed", "run", runID, "role", policy.Name, "error", err)
		return
	}

	// Mint-heavy roles are throttled so the downstream notification
	// deliveries stay inside the platform's rate limits. Burn roles are
	// typically far smaller and run unthrottled.
	var limiter *rate.Limiter
	if _, isMint := policy.Action.(MintAction); isMint && r.mintDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(r.mintDelay), 1)
	}

	for _, member := range members {
		mu.Lock()
		summary.MembersSeen++
		mu.Unlock()

		result := r.runMember(ctx, runID, policy, member, limiter)
		mu.Lock()
		switch result {
		case ResultMinted:
			summary.Minted++
		case ResultBurned:
			summary.Burned++
		case ResultRevoked:
			summary.Revoked++
		case ResultFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
		mu.Unlock()
	}
}

func (r *Runner) runMember(ctx context.Context, runID string, policy RolePolicy, member platform.Member, limiter *rate.Limiter) MemberResult {
	if policy.Ignores(member.ID) {
		r.logger.Debug("member exempt", "run", runID, "role", policy.Name, "member", member.ID)
		r.metrics.RecordSkip("ignored")
		return ResultSkipped
	}

	account, err := r.resolver.Resolve(ctx, member.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNoAccount) {
			// Expected for members who have not activated an account yet.
			r.logger.Debug("no linked account", "run", runID, "role", policy.Name, "member", member.ID)
			r.metrics.RecordSkip("no_account")
			return ResultSkipped
		}
		r.logger.Error("account resolution failed",
			"run", runID, "role", policy.Name, "member", member.ID, "error", err)
		r.metrics.RecordSkip("resolve_failed")
		return ResultFailed
	}

	switch action := policy.Action.(type) {
	case BurnAction:
		return r.burner.Reconcile(ctx, runID, policy, action, member, account)
	case MintAction:
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				r.logger.Error("mint throttle interrupted", "run", runID, "role", policy.Name, "error", err)
				return ResultFailed
			}
		}
		return r.minter.Dispatch(ctx, runID, policy, action, member, account)
	}
	r.logger.Error("policy carries no action", "run", runID, "role", policy.Name)
	return ResultFailed
}
