package permission

import "sort"

// Union returns the sorted, de-duplicated union of the given slug lists.
// The result is never nil.
func Union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, l := range lists {
		for _, s := range l {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Missing returns the elements of want absent from have, sorted and de-duplicated.
// An empty result means want ⊆ have.
func Missing(have, want []string) []string {
	index := make(map[string]struct{}, len(have))
	for _, h := range have {
		index[h] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := index[w]; !ok {
			missing = append(missing, w)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return Union(missing)
}

// Dedupe drops repeated slugs keeping the first occurrence order.
func Dedupe(slugs []string) []string {
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
