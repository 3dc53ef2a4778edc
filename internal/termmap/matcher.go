package termmap

import "strings"

// Match returns the subset of the term map whose source terms occur in the
// content. Matching is case-sensitive substring containment, which is right
// for proper nouns in CJK and Latin scripts alike.
func Match(tm TermMap, content string) TermMap {
	matched := make(TermMap)
	for source, target := range tm {
		if strings.Contains(content, source) {
			matched[source] = target
		}
	}
	return matched
}

// Appears reports whether a single term occurs in the content. Convenience
// for callers filtering structured entries rather than plain term pairs.
func Appears(term, content string) bool {
	return term != "" && strings.Contains(content, term)
}
