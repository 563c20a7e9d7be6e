// Package money implements fixed-point currency amounts stored as integer minor units.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// MinorUnits is the number of minor units (cents) in one major unit.
const MinorUnits = 100

var ErrInvalidAmount = errors.New("invalid money amount")

// Cents is an amount of money in minor units. It serializes as a decimal string ("75.00").
type Cents int64

// FromMajor builds an amount from whole major units.
func FromMajor(units int64) Cents {
	return Cents(units * MinorUnits)
}

// Parse reads a decimal string with at most two fractional digits.
// Accepted forms: "75", "75.5", "75.50", "-3.25".
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && frac == "") || len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	if w > (1<<63-1-f)/MinorUnits {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}

	v := w*MinorUnits + f
	if neg {
		v = -v
	}
	return Cents(v), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String formats the amount with exactly two fractional digits.
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/MinorUnits, v%MinorUnits)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a decimal string or a JSON integer of minor units.
// Binary floats are rejected so amounts never pass through float64.
func (c *Cents) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := Parse(s)
		if err != nil {
			return err
		}
		*c = v
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	*c = Cents(n)
	return nil
}

// ForDuration prices d at the given hourly rate, rounding half-up to the minor unit.
// Whole hours are multiplied exactly; the sub-hour remainder is computed with big integers
// so rate × nanoseconds cannot overflow.
func ForDuration(hourlyRate Cents, d time.Duration) Cents {
	if d <= 0 || hourlyRate == 0 {
		return 0
	}

	hours := int64(d / time.Hour)
	rem := int64(d % time.Hour)
	total := int64(hourlyRate) * hours

	if rem > 0 {
		num := new(big.Int).Mul(big.NewInt(int64(hourlyRate)), big.NewInt(rem))
		hour := big.NewInt(int64(time.Hour))
		q, r := new(big.Int).QuoRem(num, hour, new(big.Int))
		// half-up away from zero: compare 2|r| with the divisor
		r.Abs(r).Lsh(r, 1)
		if r.Cmp(hour) >= 0 {
			if num.Sign() < 0 {
				q.Sub(q, big.NewInt(1))
			} else {
				q.Add(q, big.NewInt(1))
			}
		}
		total += q.Int64()
	}

	return Cents(total)
}
