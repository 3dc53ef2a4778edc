package library

import (
	"github.com/MimeLyc/novel-chapter-translator/internal/termmap"
)

// TranslationContext carries everything prompt construction needs for one
// work: metadata, glossary, characters and the author's free-text guide.
type TranslationContext struct {
	Work       Work
	Glossary   []GlossaryEntry
	Characters []CharacterEntry

	SourceLanguage string
	TargetLanguage string
}

// FilterForContent drops glossary and character entries whose source term
// does not appear in the given content, to keep prompts small. Protagonist
// and antagonist characters are always kept; everything else must earn its
// place by actually occurring in the text.
func (c TranslationContext) FilterForContent(content string) TranslationContext {
	ret := c
	ret.Glossary = filterGlossary(c.Glossary, content)
	ret.Characters = filterCharacters(c.Characters, content)
	return ret
}

func filterGlossary(entries []GlossaryEntry, content string) []GlossaryEntry {
	if len(entries) == 0 {
		return nil
	}

	tm := make(termmap.TermMap, len(entries))
	for _, e := range entries {
		tm[e.Original] = e.Translated
	}
	matched := termmap.Match(tm, content)

	ret := make([]GlossaryEntry, 0, len(matched))
	for _, e := range entries {
		if _, ok := matched[e.Original]; ok {
			ret = append(ret, e)
		}
	}
	return ret
}

func filterCharacters(entries []CharacterEntry, content string) []CharacterEntry {
	if len(entries) == 0 {
		return nil
	}

	ret := make([]CharacterEntry, 0, len(entries))
	for _, e := range entries {
		if e.MainRole() || termmap.Appears(e.NameOriginal, content) {
			ret = append(ret, e)
		}
	}
	return ret
}
