package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"gopkg.in/yaml.v3"
)

// Amount is a token quantity in human decimal units. Amounts stay in human
// units everywhere in the bot; conversion to integer base units happens once,
// at the executor boundary, using the token's configured decimals.
type Amount struct {
	rat *big.Rat
}

func ratPow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ParseAmount parses a non-negative decimal string such as "3" or "12.50".
func ParseAmount(raw string) (Amount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Amount{}, fmt.Errorf("ledger: empty amount")
	}
	intPart := trimmed
	fracPart := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		intPart = trimmed[:idx]
		fracPart = trimmed[idx+1:]
	}
	if intPart == "" || !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return Amount{}, fmt.Errorf("ledger: invalid decimal amount %q", raw)
	}
	num, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return Amount{}, fmt.Errorf("ledger: invalid decimal amount %q", raw)
	}
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(len(fracPart))), nil)
	return Amount{rat: new(big.Rat).SetFrac(num, den)}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// AmountFromBaseUnits converts an integer balance read from the ledger into
// human units.
func AmountFromBaseUnits(v *big.Int, decimals uint8) Amount {
	if v == nil {
		v = big.NewInt(0)
	}
	return Amount{rat: new(big.Rat).SetFrac(new(big.Int).Set(v), ratPow10(decimals))}
}

// BaseUnits scales the amount by 10^decimals and returns the exact integer
// result. Amounts with more fractional digits than the token supports are
// rejected rather than rounded.
func (a Amount) BaseUnits(decimals uint8) (*big.Int, error) {
	r := a.value()
	if r.Sign() < 0 {
		return nil, fmt.Errorf("ledger: amount must not be negative")
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(ratPow10(decimals)))
	if !scaled.IsInt() {
		return nil, fmt.Errorf("ledger: amount %s exceeds token precision of %d decimals", a.String(), decimals)
	}
	return new(big.Int).Set(scaled.Num()), nil
}

func (a Amount) value() *big.Rat {
	if a.rat == nil {
		return new(big.Rat)
	}
	return a.rat
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{rat: new(big.Rat).Add(a.value(), b.value())}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{rat: new(big.Rat).Sub(a.value(), b.value())}
}

// Cmp compares two amounts, returning -1, 0 or 1.
func (a Amount) Cmp(b Amount) int {
	return a.value().Cmp(b.value())
}

// Sign reports the sign of the amount.
func (a Amount) Sign() int {
	return a.value().Sign()
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

// String renders the amount as a plain decimal with trailing zeros trimmed.
func (a Amount) String() string {
	s := a.value().FloatString(18)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// UnmarshalYAML accepts both bare numbers and quoted decimal strings so policy
// files can write amounts naturally.
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("ledger: amount must be a scalar")
	}
	if strings.TrimSpace(value.Value) == "" {
		*a = Amount{}
		return nil
	}
	parsed, err := ParseAmount(value.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
