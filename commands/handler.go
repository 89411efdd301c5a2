package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/CommonsHub/token-bot/ledger"
	"github.com/CommonsHub/token-bot/notify"
)

const (
	defaultAPIBase = "https://discord.com/api/v10"
	commandTimeout = 2 * time.Minute
	progressWidth  = 4
)

// ledgerAPI is the slice of the ledger executor the commands need.
type ledgerAPI interface {
	Balance(ctx context.Context, account common.Address) (ledger.Amount, error)
	Execute(ctx context.Context, kind ledger.OperationKind, account common.Address, amount ledger.Amount) ledger.Outcome
	Token() ledger.Token
}

type accountResolver interface {
	Resolve(ctx context.Context, memberID string) (common.Address, error)
}

type notifier interface {
	Notify(ctx context.Context, evt notify.Event)
}

// Handler routes slash-command invocations to ledger operations.
type Handler struct {
	ledger   ledgerAPI
	resolver accountResolver
	fanout   notifier
	explorer notify.Explorer
	logger   *slog.Logger

	apiBase    string
	httpClient *http.Client
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithAPIBase overrides the platform API base URL. Tests point this at a
// local server.
func WithAPIBase(base string) HandlerOption {
	return func(h *Handler) { h.apiBase = base }
}

// WithHTTPClient overrides the followup HTTP client.
func WithHTTPClient(client *http.Client) HandlerOption {
	return func(h *Handler) { h.httpClient = client }
}

// NewHandler wires a command handler over the ledger executor, the account
// resolver and the notification fanout.
func NewHandler(api ledgerAPI, resolver accountResolver, fanout notifier, explorer notify.Explorer, logger *slog.Logger, opts ...HandlerOption) (*Handler, error) {
	if api == nil {
		return nil, fmt.Errorf("commands: ledger executor is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("commands: account resolver is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		ledger:     api,
		resolver:   resolver,
		fanout:     fanout,
		explorer:   explorer,
		logger:     logger,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// dispatch runs after the deferred acknowledgement has been written. The
// final reply always lands through an @original edit.
func (h *Handler) dispatch(interaction Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if interaction.Data == nil {
		h.edit(ctx, interaction, "Unknown command.")
		return
	}
	initiator := ""
	if interaction.Member != nil {
		initiator = interaction.Member.User.ID
	}
	h.logger.Info("command received",
		"command", interaction.Data.Name,
		"initiator", initiator,
	)

	var reply string
	switch interaction.Data.Name {
	case "balance":
		reply = h.balance(ctx, interaction)
	case "address":
		reply = h.address(ctx, interaction)
	case "transactions":
		reply = h.transactions(ctx, interaction)
	case "mint":
		reply = h.operate(ctx, interaction, ledger.OpMint, initiator)
	case "burn":
		reply = h.operate(ctx, interaction, ledger.OpBurn, initiator)
	default:
		reply = fmt.Sprintf("Unknown command `%s`.", interaction.Data.Name)
	}
	h.edit(ctx, interaction, reply)
}

func (h *Handler) balance(ctx context.Context, interaction Interaction) string {
	userID, reply := h.targetUser(interaction)
	if reply != "" {
		return reply
	}
	account, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		return "Could not find an account for that member!"
	}
	balance, err := h.ledger.Balance(ctx, account)
	if err != nil {
		h.logger.Error("balance read failed", "member", userID, "error", err)
		return "Failed to read the balance, try again later."
	}
	token := h.ledger.Token()
	return fmt.Sprintf("💰 %s has **%s %s** ([account](%s))",
		mentionUser(userID), balance, token.Symbol, h.explorer.AddressURL(account))
}

func (h *Handler) address(ctx context.Context, interaction Interaction) string {
	userID, reply := h.targetUser(interaction)
	if reply != "" {
		return reply
	}
	account, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		return "Could not find an account for that member!"
	}
	return fmt.Sprintf("🪪 %s's account is `%s` ([explorer](%s))",
		mentionUser(userID), account.Hex(), h.explorer.AddressURL(account))
}

func (h *Handler) transactions(ctx context.Context, interaction Interaction) string {
	userID, reply := h.targetUser(interaction)
	if reply != "" {
		return reply
	}
	account, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		return "Could not find an account for that member!"
	}
	return fmt.Sprintf("📜 Transactions for %s: %s",
		mentionUser(userID), h.explorer.AddressURL(account))
}

// operate performs a mint or burn on behalf of an operator, reporting
// progress through interim edits so long ledger waits stay visible.
func (h *Handler) operate(ctx context.Context, interaction Interaction, kind ledger.OperationKind, initiator string) string {
	userID, reply := h.targetUser(interaction)
	if reply != "" {
		return reply
	}
	amount, reply := h.amountOption(interaction)
	if reply != "" {
		return reply
	}
	memo := ""
	if opt, ok := interaction.Data.option("message"); ok {
		memo = opt.StringValue()
	}

	h.edit(ctx, interaction, progressLine(1, "Looking up the account"))
	account, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		return "Could not find an account to send to!"
	}

	h.edit(ctx, interaction, progressLine(2, "Reading the current balance"))
	prev, err := h.ledger.Balance(ctx, account)
	if err != nil {
		h.logger.Warn("balance read before command failed", "member", userID, "error", err)
		prev = ledger.Amount{}
	}

	h.edit(ctx, interaction, progressLine(3, "Submitting the transaction"))
	outcome := h.ledger.Execute(ctx, kind, account, amount)
	token := h.ledger.Token()
	if !outcome.Success {
		h.logger.Error("command operation failed",
			"kind", kind,
			"member", userID,
			"class", outcome.ErrorClass,
			"error", outcome.Err,
		)
		if outcome.ErrorClass == ledger.ClassMissingCapability {
			return fmt.Sprintf("❌ Failed to %s: the bot account is missing the required token permission.", kind)
		}
		return fmt.Sprintf("❌ Failed to %s **%s %s**, try again later.", kind, amount, token.Symbol)
	}

	next := prev.Add(amount)
	if kind == ledger.OpBurn {
		next = prev.Sub(amount)
	}
	if h.fanout != nil {
		h.fanout.Notify(ctx, notify.Event{
			Kind:        kind,
			MemberID:    userID,
			Account:     account,
			Amount:      amount,
			PrevBalance: prev,
			NewBalance:  next,
			Symbol:      token.Symbol,
			ChainID:     token.ChainID,
			TxHash:      outcome.TxHash,
			Memo:        memo,
			InitiatorID: initiator,
		})
	}
	verb := "Minted"
	direction := "to"
	if kind == ledger.OpBurn {
		verb = "Burned"
		direction = "from"
	}
	return fmt.Sprintf("✅ %s **%s %s** %s %s ([tx](%s))",
		verb, amount, token.Symbol, direction, mentionUser(userID), h.explorer.TxURL(outcome.TxHash))
}

// targetUser extracts the user option. A non-empty reply means validation
// failed and the reply should be sent back verbatim.
func (h *Handler) targetUser(interaction Interaction) (userID, reply string) {
	opt, ok := interaction.Data.option("user")
	if !ok || opt.StringValue() == "" {
		return "", "Missing the user argument."
	}
	return opt.StringValue(), ""
}

func (h *Handler) amountOption(interaction Interaction) (ledger.Amount, string) {
	opt, ok := interaction.Data.option("amount")
	if !ok {
		return ledger.Amount{}, "Missing the amount argument."
	}
	raw, err := opt.NumberValue()
	if err != nil {
		return ledger.Amount{}, "The amount must be a number."
	}
	amount, err := ledger.ParseAmount(raw)
	if err != nil || amount.Sign() <= 0 {
		return ledger.Amount{}, "The amount must be a positive number."
	}
	return amount, ""
}

// edit replaces the deferred reply via the @original webhook.
func (h *Handler) edit(ctx context.Context, interaction Interaction, content string) {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return
	}
	url := fmt.Sprintf("%s/webhooks/%s/%s/messages/@original",
		h.apiBase, interaction.ApplicationID, interaction.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn("interaction edit failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.logger.Warn("interaction edit rejected", "status", resp.StatusCode)
	}
}

func mentionUser(userID string) string {
	return "<@" + userID + ">"
}
