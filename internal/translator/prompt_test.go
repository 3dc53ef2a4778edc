package translator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MimeLyc/novel-chapter-translator/internal/library"
)

func TestBuildPromptSections(t *testing.T) {
	tc := library.TranslationContext{
		Work: library.Work{
			Title:            "달빛 조각사",
			Genres:           []string{"fantasy", "adventure"},
			Synopsis:         "A sculptor enters a virtual world.",
			TranslationGuide: "Keep honorifics.",
		},
		Glossary: []library.GlossaryEntry{
			{Original: "달빛", Translated: "Moonlight", Note: "title word"},
		},
		Characters: []library.CharacterEntry{
			{NameOriginal: "위드", NameTranslated: "Weed", Role: "protagonist", SpeechStyle: "blunt"},
		},
		SourceLanguage: "Korean",
		TargetLanguage: "English",
	}

	prompt := BuildPrompt(tc, "본문")

	assert.Contains(t, prompt, "Korean")
	assert.Contains(t, prompt, "English")
	assert.Contains(t, prompt, "달빛 조각사")
	assert.Contains(t, prompt, "fantasy, adventure")
	assert.Contains(t, prompt, "달빛 => Moonlight (title word)")
	assert.Contains(t, prompt, "위드 => Weed [protagonist], speech: blunt")
	assert.Contains(t, prompt, "Keep honorifics.")
	assert.Contains(t, prompt, TitleMarker)
}

func TestBuildPromptSkipsEmptySections(t *testing.T) {
	prompt := BuildPrompt(library.TranslationContext{TargetLanguage: "English"}, "text in english so detection is reliable enough to run")

	assert.NotContains(t, prompt, "GLOSSARY")
	assert.NotContains(t, prompt, "CHARACTERS")
	assert.NotContains(t, prompt, "TRANSLATION GUIDE")
	assert.Contains(t, prompt, "OUTPUT FORMAT")
}

func TestDetectLanguage(t *testing.T) {
	korean := DetectLanguage(strings.Repeat("안녕하세요. 오늘 날씨가 좋네요. ", 10))
	assert.Equal(t, "Korean", korean)

	unreliable := DetectLanguage("xq")
	assert.Equal(t, "the source language", unreliable)
}
