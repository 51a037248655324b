package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached OData response.
type Key struct {
	// URL is the full request URL including query options.
	URL string
}

// String generates a deterministic cache key string.
// Format: odata:host/path:query1=val1:query2=val2
//
// Example:
//
//	odata:example.org/api/data/v9.2/contacts:$select=fullname:$top=10
func (k Key) String() string {
	parts := []string{"odata"}

	u, err := url.Parse(k.URL)
	if err != nil {
		// Unparseable URL, fall back to the raw string
		return "odata:" + k.URL
	}

	endpoint := u.Host + strings.TrimSuffix(u.Path, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	query := u.Query()
	if len(query) > 0 {
		queryKeys := make([]string, 0, len(query))
		for key := range query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
