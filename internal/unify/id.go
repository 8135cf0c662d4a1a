package unify

import (
	"fmt"
	"sort"
	"strings"
)

// LayerPrefix derives the short tag prepended to every source row id of a
// dataset. First four runes, lowercased; shorter names are used whole.
func LayerPrefix(dataset string) string {
	r := []rune(strings.ToLower(dataset))
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r)
}

// PoiID builds the canonical identifier for one source row. Uniqueness
// across datasets holds as long as no two dataset names share a prefix,
// which CheckPrefixCollisions verifies at configuration time.
func PoiID(dataset, sourceID string) string {
	return LayerPrefix(dataset) + "-" + sourceID
}

// CheckPrefixCollisions rejects any pair of dataset names whose derived
// prefixes coincide. Run once per configuration, not per row.
func CheckPrefixCollisions(datasets []string) error {
	names := append([]string(nil), datasets...)
	sort.Strings(names)

	seen := map[string]string{}
	for _, name := range names {
		p := LayerPrefix(name)
		if other, ok := seen[p]; ok && other != name {
			return fmt.Errorf("datasets %q and %q both map to poi_id prefix %q", other, name, p)
		}
		seen[p] = name
	}
	return nil
}
