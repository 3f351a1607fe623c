package fundme

import "github.com/xraph/fundme/id"

// ID is the primary identifier type for all FundMe entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
