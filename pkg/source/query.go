package source

import (
	"context"
	"maps"
	"net/url"
	"strings"

	"github.com/dmitrymomot/rollout/pkg/feature"
)

// QueryPrefix marks flag parameters in a query string.
const QueryPrefix = "ff_"

// Query extracts ff_<name>=<value> parameters. The last value wins for
// repeated parameters.
func Query(values url.Values) Provider {
	parsed := QueryValues(values)
	return ProviderFunc(feature.SourceQuery, func(context.Context) (map[string]string, error) {
		return maps.Clone(parsed), nil
	})
}

// QueryValues returns the flag parameters of values without the prefix.
func QueryValues(values url.Values) map[string]string {
	out := make(map[string]string)
	for key, vs := range values {
		name, ok := strings.CutPrefix(key, QueryPrefix)
		if !ok || name == "" || len(vs) == 0 {
			continue
		}
		out[name] = vs[len(vs)-1]
	}
	return out
}

// ParseQuery parses a raw query string such as "ff_legacyMode=true&x=1".
// A malformed string yields whatever pairs could be parsed.
func ParseQuery(raw string) map[string]string {
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return QueryValues(values)
}
