package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	botcrypto "github.com/CommonsHub/token-bot/crypto"
)

// OperationKind identifies a balance-changing ledger operation.
type OperationKind string

const (
	OpMint OperationKind = "mint"
	OpBurn OperationKind = "burn"
)

// ErrorClass partitions submission failures for operator alerting. The
// classification is diagnostic only and never drives automatic remediation.
type ErrorClass string

const (
	ClassNone              ErrorClass = ""
	ClassMissingCapability ErrorClass = "missing-capability"
	ClassOther             ErrorClass = "other"
)

// Outcome captures the result of a single mint or burn. It is ephemeral:
// produced per operation, consumed by the notification fanout, never stored.
type Outcome struct {
	Success    bool
	TxHash     string
	ErrorClass ErrorClass
	Err        error
}

// Executor submits mint and burn instructions against the community token.
// In dry-run mode it simulates every mutation and returns synthetic outcomes
// so the whole pipeline can be exercised without moving value.
type Executor struct {
	client       Client
	token        Token
	key          *botcrypto.PrivateKey
	operator     common.Address
	dryRun       bool
	pollInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// ExecutorOption customises the executor.
type ExecutorOption func(*Executor)

// WithDryRun toggles simulation mode.
func WithDryRun(enabled bool) ExecutorOption {
	return func(e *Executor) { e.dryRun = enabled }
}

// WithPollInterval configures the receipt polling cadence.
func WithPollInterval(interval time.Duration) ExecutorOption {
	return func(e *Executor) { e.pollInterval = interval }
}

// WithLogger supplies a structured logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithClock sets the function used to derive timestamps.
func WithClock(clock func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = clock }
}

// NewExecutor constructs an executor signing with the supplied operating key.
func NewExecutor(client Client, token Token, key *botcrypto.PrivateKey, opts ...ExecutorOption) (*Executor, error) {
	if client == nil {
		return nil, fmt.Errorf("ledger: client required")
	}
	if key == nil {
		return nil, fmt.Errorf("ledger: operating key required")
	}
	if token.ChainID == 0 {
		return nil, fmt.Errorf("ledger: token chain id required")
	}
	exec := &Executor{
		client:       client,
		token:        token,
		key:          key,
		operator:     key.Address(),
		pollInterval: 2 * time.Second,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(exec)
	}
	if exec.pollInterval <= 0 {
		exec.pollInterval = 2 * time.Second
	}
	if exec.logger == nil {
		exec.logger = slog.Default()
	}
	return exec, nil
}

// Operator returns the address of the operating account.
func (e *Executor) Operator() common.Address {
	return e.operator
}

// Token returns the asset this executor operates on.
func (e *Executor) Token() Token {
	return e.token
}

// DryRun reports whether the executor is simulating mutations.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Balance reads the current token balance of an account in human units.
func (e *Executor) Balance(ctx context.Context, account common.Address) (Amount, error) {
	data, err := tokenABI.Pack("balanceOf", account)
	if err != nil {
		return Amount{}, fmt.Errorf("ledger: pack balance read: %w", err)
	}
	out, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.token.Address, Data: data}, nil)
	if err != nil {
		return Amount{}, fmt.Errorf("ledger: balance read: %w", err)
	}
	results, err := tokenABI.Unpack("balanceOf", out)
	if err != nil {
		return Amount{}, fmt.Errorf("ledger: unpack balance: %w", err)
	}
	if len(results) != 1 {
		return Amount{}, fmt.Errorf("ledger: unexpected balance result")
	}
	raw, ok := results[0].(*big.Int)
	if !ok {
		return Amount{}, fmt.Errorf("ledger: unexpected balance type %T", results[0])
	}
	return AmountFromBaseUnits(raw, e.token.Decimals), nil
}

// Execute submits a mint or burn of the given human-unit amount against the
// target account. The amount is converted to base units here and nowhere else.
func (e *Executor) Execute(ctx context.Context, kind OperationKind, account common.Address, amount Amount) Outcome {
	if kind != OpMint && kind != OpBurn {
		return Outcome{Err: fmt.Errorf("ledger: unknown operation %q", kind)}
	}
	if amount.IsZero() {
		return Outcome{Err: fmt.Errorf("ledger: amount must be non-zero")}
	}
	if amount.Sign() < 0 {
		return Outcome{Err: fmt.Errorf("ledger: amount must be positive")}
	}
	base, err := amount.BaseUnits(e.token.Decimals)
	if err != nil {
		return Outcome{Err: err}
	}

	if e.dryRun {
		hash := e.syntheticHash(kind, account, base)
		e.logger.Info("dry run: skipping ledger mutation",
			"op", string(kind),
			"account", account.Hex(),
			"amount", amount.String(),
			"symbol", e.token.Symbol,
			"tx", hash,
		)
		return Outcome{Success: true, TxHash: hash}
	}

	txHash, err := e.submit(ctx, kind, account, base)
	if err != nil {
		class := e.classifyFailure(ctx, kind)
		e.logger.Error("ledger operation failed",
			"op", string(kind),
			"account", account.Hex(),
			"amount", amount.String(),
			"class", string(class),
			"error", err,
		)
		return Outcome{Err: err, ErrorClass: class}
	}
	return Outcome{Success: true, TxHash: txHash}
}

func (e *Executor) submit(ctx context.Context, kind OperationKind, account common.Address, base *big.Int) (string, error) {
	var data []byte
	var err error
	switch kind {
	case OpMint:
		data, err = tokenABI.Pack("mint", account, base)
	case OpBurn:
		data, err = tokenABI.Pack("burnFrom", account, base)
	}
	if err != nil {
		return "", fmt.Errorf("ledger: pack %s: %w", kind, err)
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.operator)
	if err != nil {
		return "", fmt.Errorf("ledger: fetch nonce: %w", err)
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("ledger: suggest gas price: %w", err)
	}
	gasLimit, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: e.operator,
		To:   &e.token.Address,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("ledger: estimate gas: %w", err)
	}

	signer := gethtypes.LatestSignerForChainID(new(big.Int).SetUint64(e.token.ChainID))
	tx, err := gethtypes.SignNewTx(e.key.PrivateKey, signer, &gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &e.token.Address,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		return "", fmt.Errorf("ledger: sign transaction: %w", err)
	}
	if err := e.client.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("ledger: submit transaction: %w", err)
	}
	if err := e.waitMined(ctx, tx.Hash()); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

func (e *Executor) waitMined(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := e.client.TransactionReceipt(ctx, hash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("ledger: fetch receipt: %w", err)
		}
		if receipt != nil {
			if receipt.Status != gethtypes.ReceiptStatusSuccessful {
				return fmt.Errorf("ledger: transaction %s reverted", hash.Hex())
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ledger: confirmation wait: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// classifyFailure performs a read-only capability check after a failed
// submission so operators can tell permission problems apart from transient
// ones. It never mutates anything.
func (e *Executor) classifyFailure(ctx context.Context, kind OperationKind) ErrorClass {
	role := RoleMinter
	if kind == OpBurn {
		role = RoleBurner
	}
	data, err := tokenABI.Pack("hasRole", [32]byte(role), e.operator)
	if err != nil {
		return ClassOther
	}
	out, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.token.Address, Data: data}, nil)
	if err != nil {
		return ClassOther
	}
	results, err := tokenABI.Unpack("hasRole", out)
	if err != nil || len(results) != 1 {
		return ClassOther
	}
	has, ok := results[0].(bool)
	if !ok {
		return ClassOther
	}
	if !has {
		return ClassMissingCapability
	}
	return ClassOther
}

func (e *Executor) syntheticHash(kind OperationKind, account common.Address, base *big.Int) string {
	seed := fmt.Sprintf("dry-run:%s:%s:%s:%d", kind, account.Hex(), base.String(), e.now().UnixNano())
	return gethcrypto.Keccak256Hash([]byte(seed)).Hex()
}
