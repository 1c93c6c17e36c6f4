package merge

import (
	"reflect"

	"enrichment-engine/internal/common/errors"
)

// Apply combines source and provider field maps according to the strategy,
// considering only the fields declared on the target shape. The function is
// pure: the same three inputs always produce an equal result, in shape
// declaration order, and neither input map is mutated.
//
// StrategyRaw is not a field-level operation; the orchestrator short-circuits
// it via Raw before mapping. Passing it here is a strategy error.
func Apply(strategy Strategy, source, provider map[string]interface{}, shape Shape) (map[string]interface{}, error) {
	switch strategy {
	case StrategyEnhance, StrategyMerge, StrategyReplace:
	case StrategyRaw:
		return nil, errors.StrategyError("raw strategy bypasses field merge")
	default:
		return nil, errors.StrategyError("unknown merge strategy: " + string(strategy))
	}

	result := make(map[string]interface{}, shape.Len())

	for _, field := range shape.fields {
		sv := source[field.Name]
		pv := provider[field.Name]

		if strategy != StrategyReplace {
			if err := checkKind(field.Name, sv, field.Kind); err != nil {
				return nil, err
			}
		}
		if err := checkKind(field.Name, pv, field.Kind); err != nil {
			return nil, err
		}

		var chosen interface{}
		switch strategy {
		case StrategyEnhance:
			if !IsEmpty(sv) {
				chosen = sv
			} else {
				chosen = pv
			}
		case StrategyMerge:
			if !IsEmpty(pv) {
				chosen = pv
			} else {
				chosen = sv
			}
		case StrategyReplace:
			chosen = pv
		}

		if chosen != nil {
			result[field.Name] = chosen
		}
	}

	return result, nil
}

// Raw implements the RAW strategy: the provider's pre-mapping payload is
// returned unchanged, identity-preserved.
func Raw(providerPayload interface{}) interface{} {
	return providerPayload
}

// EnrichedFields counts the target-shape fields whose merged value is
// non-empty and differs from the source value. Used for the response's
// fields-enriched accounting.
func EnrichedFields(source, merged map[string]interface{}, shape Shape) int {
	count := 0
	for _, field := range shape.fields {
		mv, ok := merged[field.Name]
		if !ok || IsEmpty(mv) {
			continue
		}
		if !reflect.DeepEqual(mv, source[field.Name]) {
			count++
		}
	}
	return count
}
