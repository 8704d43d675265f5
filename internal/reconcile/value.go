package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// NotApplicable JSON and spreadsheet rendering of a missing side.
const NotApplicable = "N/A"

// Value an amount on one side of a comparison; Valid is false when the side has no entry.
type Value struct {
	Amount decimal.Decimal
	Valid  bool
}

// Some wraps a present amount.
func Some(d decimal.Decimal) Value { return Value{Amount: d, Valid: true} }

// None the side has no entry.
func None() Value { return Value{} }

func (v Value) String() string {
	if !v.Valid {
		return NotApplicable
	}
	return v.Amount.String()
}

// MarshalJSON renders a number, or "N/A" when missing.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return json.Marshal(NotApplicable)
	}
	return []byte(v.Amount.String()), nil
}

// UnmarshalJSON accepts numbers, numeric strings, null and "N/A".
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = None()
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" || s == NotApplicable {
			*v = None()
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", s, err)
		}
		*v = Some(d)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", b, err)
	}
	*v = Some(d)
	return nil
}
