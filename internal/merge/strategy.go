// Package merge implements the field-merge engine that combines a caller's
// source object with provider-derived data according to a named strategy.
//
// Target shapes are explicit ordered field declarations. The engine never
// inspects caller structs at runtime; callers and enrichers exchange field
// maps (map[string]interface{}) keyed by the declared field names.
package merge

import (
	"strings"

	"enrichment-engine/internal/common/errors"
)

// Strategy names the field-merge policy applied to a request.
type Strategy string

const (
	// StrategyEnhance keeps non-empty source values and fills gaps from the provider
	StrategyEnhance Strategy = "ENHANCE"
	// StrategyMerge prefers non-empty provider values over source values
	StrategyMerge Strategy = "MERGE"
	// StrategyReplace discards the source entirely in favor of provider values
	StrategyReplace Strategy = "REPLACE"
	// StrategyRaw returns the provider's raw payload unchanged, bypassing mapping and merge
	StrategyRaw Strategy = "RAW"
)

// ParseStrategy converts a string to a Strategy, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToUpper(s)) {
	case StrategyEnhance:
		return StrategyEnhance, nil
	case StrategyMerge:
		return StrategyMerge, nil
	case StrategyReplace:
		return StrategyReplace, nil
	case StrategyRaw:
		return StrategyRaw, nil
	}
	return "", errors.ValidationError("unknown merge strategy: " + s)
}

// Valid reports whether the strategy is one of the four known policies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyEnhance, StrategyMerge, StrategyReplace, StrategyRaw:
		return true
	}
	return false
}
