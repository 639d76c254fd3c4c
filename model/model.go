package model

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// Int64ToBigInt converts an int64 value to a *big.Int.
// Monetary amounts are handled as big integers in minor units throughout the core.
func Int64ToBigInt(value int64) *big.Int {
	return big.NewInt(value)
}

// ApplyPrecision converts a float amount to its precise minor-unit representation
// using the request's precision multiplier. A zero precision defaults to 1.
// The multiplication goes through decimal arithmetic so amounts like 1.15 with
// precision 100 land on exactly 115 rather than a truncated float product.
func ApplyPrecision(request *AllocationRequest) int64 {
	if request.Precision == 0 {
		request.Precision = 1
	}
	return decimal.NewFromFloat(request.Amount).Mul(decimal.NewFromFloat(request.Precision)).Round(0).IntPart()
}
