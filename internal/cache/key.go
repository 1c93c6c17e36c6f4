// Package cache memoizes provider responses at the provider-fetch boundary,
// keyed deterministically by (type, tenant, parameters) with a TTL.
package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Key computes the deterministic cache key for a logical request. Parameter
// entries are canonicalized by sorted key, so insertion order never changes
// the key.
func Key(enrichmentType, tenantID string, params map[string]interface{}) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(enrichmentType)
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(tenantID)

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, _ = digest.WriteString("\x00")
		_, _ = digest.WriteString(name)
		_, _ = digest.WriteString("=")
		_, _ = digest.WriteString(canonicalValue(params[name]))
	}

	return "enrich:" + enrichmentType + ":" + strconv.FormatUint(digest.Sum64(), 16)
}

// canonicalValue renders a parameter value deterministically. encoding/json
// sorts map keys, which keeps nested maps stable.
func canonicalValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
