package termmap

// TermMap maps original-language terms (glossary entries, character names)
// to their translations.
type TermMap map[string]string
