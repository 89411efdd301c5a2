// Package commands implements the operator-facing slash commands over the
// chat platform's signed interaction webhooks. Every command is thin glue
// over the same ledger primitives the reconciliation engine uses.
package commands

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Interaction types and response codes from the platform's interactions API.
const (
	interactionPing    = 1
	interactionCommand = 2

	responsePong            = 1
	responseMessage         = 4
	responseDeferredMessage = 5
	messageFlagEphemeral    = 64
)

// Interaction is the decoded webhook payload, reduced to the fields the bot
// uses.
type Interaction struct {
	ID            string             `json:"id"`
	ApplicationID string             `json:"application_id"`
	Type          int                `json:"type"`
	Token         string             `json:"token"`
	Data          *CommandData       `json:"data"`
	Member        *InteractionMember `json:"member"`
}

// InteractionMember identifies the operator who invoked the command.
type InteractionMember struct {
	User InteractionUser `json:"user"`
}

type InteractionUser struct {
	ID string `json:"id"`
}

// CommandData carries the invoked command name and its options.
type CommandData struct {
	Name    string          `json:"name"`
	Options []CommandOption `json:"options"`
}

// CommandOption is one named argument. Values arrive as raw JSON because the
// platform types them per option kind.
type CommandOption struct {
	Name  string          `json:"name"`
	Type  int             `json:"type"`
	Value json.RawMessage `json:"value"`
}

// StringValue decodes the option as a string.
func (o CommandOption) StringValue() string {
	var s string
	if err := json.Unmarshal(o.Value, &s); err != nil {
		return ""
	}
	return s
}

// NumberValue decodes the option as a number, rendered back to an exact
// decimal string.
func (o CommandOption) NumberValue() (string, error) {
	var f float64
	if err := json.Unmarshal(o.Value, &f); err != nil {
		return "", fmt.Errorf("commands: option %s is not a number", o.Name)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func (d *CommandData) option(name string) (CommandOption, bool) {
	if d == nil {
		return CommandOption{}, false
	}
	for _, opt := range d.Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return CommandOption{}, false
}

type interactionResponse struct {
	Type int           `json:"type"`
	Data *responseData `json:"data,omitempty"`
}

type responseData struct {
	Content string `json:"content,omitempty"`
	Flags   int    `json:"flags,omitempty"`
}

// ParsePublicKey decodes the hex-encoded ed25519 key the platform signs
// interaction webhooks with.
func ParsePublicKey(raw string) (ed25519.PublicKey, error) {
	decoded, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("commands: decode public key: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("commands: public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}

// HTTPHandler returns the webhook endpoint. Signature verification happens
// before anything is decoded; a bad signature is a 401 with no further
// processing, as the platform requires.
func (h *Handler) HTTPHandler(publicKey ed25519.PublicKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "read failure", http.StatusBadRequest)
			return
		}
		signature := r.Header.Get("X-Signature-Ed25519")
		timestamp := r.Header.Get("X-Signature-Timestamp")
		if !verifySignature(publicKey, timestamp, body, signature) {
			http.Error(w, "invalid request signature", http.StatusUnauthorized)
			return
		}

		var interaction Interaction
		if err := json.Unmarshal(body, &interaction); err != nil {
			http.Error(w, "malformed interaction", http.StatusBadRequest)
			return
		}

		switch interaction.Type {
		case interactionPing:
			writeJSON(w, interactionResponse{Type: responsePong})
		case interactionCommand:
			// Acknowledge immediately; the ledger work continues in the
			// background and lands via followup edits.
			writeJSON(w, interactionResponse{
				Type: responseDeferredMessage,
				Data: &responseData{Flags: messageFlagEphemeral},
			})
			go h.dispatch(interaction)
		default:
			http.Error(w, "unsupported interaction type", http.StatusBadRequest)
		}
	}
}

func verifySignature(publicKey ed25519.PublicKey, timestamp string, body []byte, signatureHex string) bool {
	if len(publicKey) != ed25519.PublicKeySize || timestamp == "" || signatureHex == "" {
		return false
	}
	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}
	message := append([]byte(timestamp), body...)
	return ed25519.Verify(publicKey, message, signature)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
