package app

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/openspace/core/telegram/prompt"
)

// User-facing validation messages.
const (
	ErrTextDays    = "Please enter a whole number of days within the allowed range."
	ErrTextAmount  = "Please enter a valid token amount not exceeding your balance."
	ErrTextAddress = "That does not look like a TON wallet address."
)

var errAmountSyntax = errors.New("invalid amount")

// Amount is a token quantity in the token's smallest units.
type Amount struct {
	Units    uint64
	Decimals int
}

// ParseUnits converts a decimal string such as "12.5" or "12,5" to units.
// More fractional digits than decimals is an error, not a rounding.
func ParseUnits(s string, decimals int) (Amount, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Amount{}, errAmountSyntax
	}
	whole, frac, _ := strings.Cut(s, ".")
	if (whole == "" && frac == "") || len(frac) > decimals {
		return Amount{}, errAmountSyntax
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", decimals-len(frac))
	units, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return Amount{}, errAmountSyntax
	}
	return Amount{Units: units, Decimals: decimals}, nil
}

// AmountFromFloat converts a configured float to units, rounding to the
// nearest unit.
func AmountFromFloat(v float64, decimals int) Amount {
	if v <= 0 {
		return Amount{Decimals: decimals}
	}
	return Amount{Units: uint64(math.Round(v * math.Pow10(decimals))), Decimals: decimals}
}

// String renders the amount without trailing fractional zeros.
func (a Amount) String() string {
	s := strconv.FormatUint(a.Units, 10)
	if a.Decimals == 0 {
		return s
	}
	if len(s) <= a.Decimals {
		s = strings.Repeat("0", a.Decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-a.Decimals], strings.TrimRight(s[len(s)-a.Decimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ParseDays accepts an integer in [minDays, maxDays].
func ParseDays(input string, minDays, maxDays int) prompt.Result[int] {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < minDays || n > maxDays {
		return prompt.Invalid[int](ErrTextDays)
	}
	return prompt.Valid(n)
}

// Unbounded is an upper bound no amount exceeds.
func Unbounded(decimals int) Amount {
	return Amount{Units: math.MaxUint64, Decimals: decimals}
}

// ParseAmount accepts a positive amount within [minimum, maximum].
func ParseAmount(input string, decimals int, minimum, maximum Amount) prompt.Result[Amount] {
	a, err := ParseUnits(input, decimals)
	if err != nil || a.Units == 0 || a.Units < minimum.Units || a.Units > maximum.Units {
		return prompt.Invalid[Amount](ErrTextAmount)
	}
	return prompt.Valid(a)
}

// ParseAddress accepts a raw ("0:<64 hex>") or user-friendly (48 base64
// characters, either alphabet) TON address.
func ParseAddress(input string) prompt.Result[string] {
	s := strings.TrimSpace(input)
	if validAddress(s) {
		return prompt.Valid(s)
	}
	return prompt.Invalid[string](ErrTextAddress)
}

func validAddress(s string) bool {
	if wc, hash, ok := strings.Cut(s, ":"); ok {
		if _, err := strconv.ParseInt(wc, 10, 32); err != nil {
			return false
		}
		b, err := hex.DecodeString(hash)
		return err == nil && len(b) == 32
	}
	if len(s) != 48 {
		return false
	}
	enc := base64.URLEncoding
	if strings.ContainsAny(s, "+/") {
		enc = base64.StdEncoding
	}
	b, err := enc.DecodeString(s)
	return err == nil && len(b) == 36
}
