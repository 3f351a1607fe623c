package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an account (owner or contributor).
type Address = common.Address

// ParseAddress parses a 0x-prefixed hex account address.
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return Address{}, fmt.Errorf("types: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// MustAddress is like ParseAddress but panics on error.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZeroAddress reports whether a is the all-zero address.
func IsZeroAddress(a Address) bool { return a == (Address{}) }
