package money

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Minor is a monetary amount in minor units (cents, satoshi, etc.) of some
// currency. It is a signed 64-bit integer in code and in the database, and a
// decimal string on the wire so JSON clients never lose precision.
type Minor int64

// FromInt64 creates a Minor from an int64.
func FromInt64(v int64) Minor {
	return Minor(v)
}

// Parse parses a decimal string into a Minor.
func Parse(s string) (Minor, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid minor amount %q: %w", s, err)
	}
	return Minor(v), nil
}

// Int64 returns the amount as an int64.
func (m Minor) Int64() int64 {
	return int64(m)
}

// IsPositive returns true if the amount is greater than zero.
func (m Minor) IsPositive() bool {
	return m > 0
}

// Abs returns the absolute value of the amount. As with two's-complement
// integers generally, MinInt64 has no positive counterpart and is returned
// unchanged.
func (m Minor) Abs() Minor {
	if m < 0 {
		return -m
	}
	return m
}

// String returns the amount as a decimal string.
func (m Minor) String() string {
	return strconv.FormatInt(int64(m), 10)
}

// MarshalJSON implements json.Marshaler. Amounts are serialized as decimal
// strings to preserve 64-bit precision across JSON clients.
func (m Minor) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON implements json.Unmarshaler.
// Supports: "123" and 123.
func (m *Minor) UnmarshalJSON(data []byte) error {
	// Try string form first (the API's canonical encoding)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := Parse(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}

	// Fall back to a bare JSON number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		v, err := Parse(n.String())
		if err != nil {
			return err
		}
		*m = v
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into a minor amount", string(data))
}
