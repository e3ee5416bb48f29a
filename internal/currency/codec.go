// Package currency converts between user-entered amount strings and integer
// minor units (hundredths).
package currency

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for any text that does not evaluate to an
// amount.
var ErrInvalidAmount = errors.New("invalid amount")

// allowed is the full alphabet accepted after normalization.
const allowed = "0123456789.+-*/()"

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Codec parses and formats amounts with configurable separators.
type Codec struct {
	DecimalSeparator   string
	ThousandsSeparator string
	MinusSign          string
}

// DefaultCodec uses "," for decimals, a space for thousands and "-" for
// negative values.
func DefaultCodec() Codec {
	return Codec{DecimalSeparator: ",", ThousandsSeparator: " ", MinusSign: "-"}
}

// Parse evaluates text as an arithmetic expression over decimal literals
// ("10+5,5", "(3*1 200)/4") and returns the result truncated to minor units.
func (c Codec) Parse(text string) (int64, error) {
	s := c.normalize(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	for _, r := range s {
		if !strings.ContainsRune(allowed, r) {
			return 0, fmt.Errorf("%w: unexpected character %q in %q", ErrInvalidAmount, r, text)
		}
	}

	v, err := evaluate(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, text, err)
	}

	minor := v.Truncate(2).Shift(2)
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, text)
	}
	return minor.IntPart(), nil
}

// Format renders minor units as "-1 234,56".
func (c Codec) Format(minor int64) string {
	neg := minor < 0
	u := uint64(minor)
	if neg {
		u = ^u + 1
	}

	f := money.NewFormatter(0, "", c.ThousandsSeparator, "", "1")
	s := f.Format(int64(u/100)) + c.DecimalSeparator + fmt.Sprintf("%02d", u%100)
	if neg {
		s = c.minus() + s
	}
	return s
}

func (c Codec) minus() string {
	if c.MinusSign == "" {
		return "-"
	}
	return c.MinusSign
}

// normalize strips whitespace and thousands separators and maps the
// configured decimal separator and minus sign to "." and "-".
func (c Codec) normalize(text string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	if m := c.minus(); m != "-" {
		s = strings.ReplaceAll(s, m, "-")
	}
	if ts := strings.TrimSpace(c.ThousandsSeparator); ts != "" && ts != c.DecimalSeparator {
		s = strings.ReplaceAll(s, ts, "")
	}
	if ds := c.DecimalSeparator; ds != "" && ds != "." {
		s = strings.ReplaceAll(s, ds, ".")
	}
	return s
}
