package translator

import (
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/MimeLyc/novel-chapter-translator/internal/library"
)

// BuildPrompt renders the system prompt for one translation unit. The
// context is expected to be pre-filtered (FilterForContent) so only entries
// relevant to this content reach the model.
func BuildPrompt(tc library.TranslationContext, content string) string {
	sourceLang := tc.SourceLanguage
	if sourceLang == "" {
		sourceLang = DetectLanguage(content)
	}

	var prompt strings.Builder

	prompt.WriteString("You are a professional literary translator specializing in long-form web novels. Translate the chapter from " + sourceLang + " to " + tc.TargetLanguage + " preserving narrative voice, tone and pacing.\n\n")

	prompt.WriteString("=== WORK INFORMATION ===\n")
	if tc.Work.Title != "" {
		prompt.WriteString(fmt.Sprintf("Title: %s\n", tc.Work.Title))
	}
	if len(tc.Work.Genres) > 0 {
		prompt.WriteString(fmt.Sprintf("Genres: %s\n", strings.Join(tc.Work.Genres, ", ")))
	}
	if tc.Work.AgeRating != "" {
		prompt.WriteString(fmt.Sprintf("Age Rating: %s\n", tc.Work.AgeRating))
	}
	if tc.Work.Synopsis != "" {
		prompt.WriteString(fmt.Sprintf("Synopsis: %s\n", tc.Work.Synopsis))
	}

	if len(tc.Glossary) > 0 {
		prompt.WriteString("\n=== GLOSSARY (use these translations verbatim) ===\n")
		for _, e := range tc.Glossary {
			if e.Note != "" {
				prompt.WriteString(fmt.Sprintf("- %s => %s (%s)\n", e.Original, e.Translated, e.Note))
				continue
			}
			prompt.WriteString(fmt.Sprintf("- %s => %s\n", e.Original, e.Translated))
		}
	}

	if len(tc.Characters) > 0 {
		prompt.WriteString("\n=== CHARACTERS ===\n")
		for _, c := range tc.Characters {
			line := fmt.Sprintf("- %s => %s", c.NameOriginal, c.NameTranslated)
			if c.Role != "" {
				line += fmt.Sprintf(" [%s]", c.Role)
			}
			if c.SpeechStyle != "" {
				line += fmt.Sprintf(", speech: %s", c.SpeechStyle)
			}
			if c.Personality != "" {
				line += fmt.Sprintf(", personality: %s", c.Personality)
			}
			prompt.WriteString(line + "\n")
		}
	}

	if tc.Work.TranslationGuide != "" {
		prompt.WriteString("\n=== TRANSLATION GUIDE ===\n")
		prompt.WriteString(tc.Work.TranslationGuide + "\n")
	}

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY the translation, no explanations or notes.\n")
	prompt.WriteString("Preserve paragraph breaks exactly as in the input.\n")
	prompt.WriteString("If the input starts with a line beginning with " + TitleMarker + ", the output must start with " + TitleMarker + " followed by the translated title on the same line, then one blank line, then the translated body.\n")

	return prompt.String()
}

// DetectLanguage guesses the source language of the content, falling back to
// "the source language" when detection is unreliable.
func DetectLanguage(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return "the source language"
	}
	return info.Lang.String()
}
