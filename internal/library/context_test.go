package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterForContentGlossary(t *testing.T) {
	tc := TranslationContext{
		Glossary: []GlossaryEntry{
			{Original: "마법사", Translated: "mage"},
			{Original: "용", Translated: "dragon"},
		},
	}

	filtered := tc.FilterForContent("그 마법사는 조용히 걸었다")
	require.Len(t, filtered.Glossary, 1)
	assert.Equal(t, "마법사", filtered.Glossary[0].Original)
}

func TestFilterForContentCharacters(t *testing.T) {
	tc := TranslationContext{
		Characters: []CharacterEntry{
			{NameOriginal: "김철수", Role: "protagonist"},
			{NameOriginal: "박영희", Role: "support"},
			{NameOriginal: "이민준", Role: "support"},
		},
	}

	filtered := tc.FilterForContent("박영희가 문을 열었다")
	require.Len(t, filtered.Characters, 2)
	// The protagonist is always kept, the mentioned support character earns
	// its place, the absent one is dropped.
	assert.Equal(t, "김철수", filtered.Characters[0].NameOriginal)
	assert.Equal(t, "박영희", filtered.Characters[1].NameOriginal)
}

func TestFilterForContentEmpty(t *testing.T) {
	filtered := TranslationContext{}.FilterForContent("anything")
	assert.Empty(t, filtered.Glossary)
	assert.Empty(t, filtered.Characters)
}
