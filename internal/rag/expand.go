package rag

import "strings"

// ExpandQuery appends up to two synonyms for terms already present in
// a short query. Queries of 3+ words are assumed to carry specific
// intent and are returned unchanged.
func ExpandQuery(query string) string {
	words := strings.Fields(query)
	if len(words) >= 3 {
		return query
	}

	lower := strings.ToLower(query)
	present := map[string]bool{}
	for _, w := range words {
		present[normalize(w)] = true
	}

	var additions []string
	for term, syns := range synonyms {
		if !strings.Contains(lower, term) {
			continue
		}
		for _, syn := range syns {
			if present[normalize(syn)] {
				continue
			}
			additions = append(additions, syn)
			present[normalize(syn)] = true
			if len(additions) >= 2 {
				break
			}
		}
		if len(additions) >= 2 {
			break
		}
	}

	if len(additions) == 0 {
		return query
	}
	return query + " " + strings.Join(additions, " ")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
