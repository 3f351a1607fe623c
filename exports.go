package fundme

import "github.com/xraph/fundme/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Re-export Amount and Address constructors
var (
	Wei         = types.Wei
	WeiInt64    = types.WeiInt64
	ParseEther  = types.ParseEther
	MustEther   = types.MustEther
	ParseAddr   = types.ParseAddress
	MustAddress = types.MustAddress
)
