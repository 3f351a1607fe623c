// Package types provides common types used across FundMe.
package types

import (
	"database/sql/driver"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimal places between wei and ether.
const EtherDecimals = 18

var weiPerEther = decimal.New(1, EtherDecimals)

// Amount is a quantity of the chain's smallest unit (wei).
// All arithmetic is integer-only. The zero value is 0 wei.
//
// Examples:
//   - WeiInt64(1) = 1 wei
//   - MustEther("0.5") = 500000000000000000 wei
//
//nolint:recvcheck // Value receivers for arithmetic, pointer receivers for UnmarshalText/Scan.
type Amount struct {
	v *big.Int
}

// Wei wraps a copy of v. A nil v is zero.
func Wei(v *big.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount{v: new(big.Int).Set(v)}
}

// WeiInt64 creates an Amount from an int64 wei value.
func WeiInt64(n int64) Amount { return Amount{v: big.NewInt(n)} }

// ZeroAmount returns 0 wei.
func ZeroAmount() Amount { return Amount{} }

// ParseWei parses a base-10 integer wei string.
func ParseWei(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("types: invalid wei amount %q", s)
	}
	return Amount{v: v}, nil
}

// ParseEther parses a decimal ether string such as "0.5".
// More than 18 fractional digits is an error.
func ParseEther(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("types: invalid ether amount %q: %w", s, err)
	}
	w := d.Mul(weiPerEther)
	if !w.Equal(w.Truncate(0)) {
		return Amount{}, fmt.Errorf("types: ether amount %q has more than %d decimals", s, EtherDecimals)
	}
	return Amount{v: w.BigInt()}, nil
}

// MustEther is like ParseEther but panics on error. Use for constants and tests.
func MustEther(s string) Amount {
	a, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Big returns a copy of the underlying wei value.
func (a Amount) Big() *big.Int { return new(big.Int).Set(a.int()) }

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	return Amount{v: new(big.Int).Add(a.int(), other.int())}
}

// Sub returns a - other. The result may be negative.
func (a Amount) Sub(other Amount) Amount {
	return Amount{v: new(big.Int).Sub(a.int(), other.int())}
}

// Cmp compares a and other and returns -1, 0 or +1.
func (a Amount) Cmp(other Amount) int { return a.int().Cmp(other.int()) }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.int().Sign() == 0 }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.int().Sign() > 0 }

// IsNegative reports whether the amount is less than zero.
func (a Amount) IsNegative() bool { return a.int().Sign() < 0 }

// Equal reports whether both amounts hold the same wei value.
func (a Amount) Equal(other Amount) bool { return a.Cmp(other) == 0 }

// Ether returns the amount expressed in ether.
func (a Amount) Ether() decimal.Decimal {
	return decimal.NewFromBigInt(a.int(), -EtherDecimals)
}

// FormatEther returns the ether value without trailing zeros, e.g. "0.5".
func (a Amount) FormatEther() string { return a.Ether().String() }

// String returns the base-10 wei value.
func (a Amount) String() string { return a.int().String() }

// MarshalText implements encoding.TextMarshaler using the wei string.
func (a Amount) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Amount{}
		return nil
	}
	parsed, err := ParseWei(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Amounts are stored as decimal strings
// because wei values overflow 64-bit integer columns.
func (a Amount) Value() (driver.Value, error) { return a.String(), nil }

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		*a = WeiInt64(v)
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}

// Sum adds all values.
func Sum(values ...Amount) Amount {
	total := new(big.Int)
	for _, v := range values {
		total.Add(total, v.int())
	}
	return Amount{v: total}
}
