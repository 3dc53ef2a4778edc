package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		budget int
	}{
		{"paragraphs", "First paragraph.\n\nSecond paragraph with more text.\n\nThird.", 30},
		{"single sentence over budget", strings.Repeat("a", 95), 10},
		{"cjk sentences", "第一句话。第二句话！第三句话？最后一段没有终结符", 8},
		{"mixed with quotes", `He said "Stop!" Then he left. She stayed.`, 20},
		{"trailing newlines", "Line one.\n\n\nLine two.\n\n", 12},
		{"small text large budget", "Tiny.", 1000},
		{"windows of blank lines", "a\n\nb\n\nc\n\nd\n\ne", 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := Split(tc.text, tc.budget)
			require.NotEmpty(t, chunks)

			// Concatenation reproduces the input exactly.
			assert.Equal(t, tc.text, strings.Join(chunks, ""))
			for _, c := range chunks {
				assert.NotEmpty(t, c)
				assert.LessOrEqual(t, utf8.RuneCountInString(c), tc.budget)
			}
		})
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := "Alpha beta. Gamma delta!\n\nEpsilon zeta? " + strings.Repeat("x", 50)
	first := Split(text, 16)
	second := Split(text, 16)
	assert.Equal(t, first, second)
}

func TestSplitEmpty(t *testing.T) {
	assert.Nil(t, Split("", 100))
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := "Para one line.\n\nPara two line.\n\nPara three line."
	chunks := Split(text, 34)
	require.Len(t, chunks, 2)
	// The first chunk ends on a paragraph boundary rather than mid-paragraph.
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"))
}

func TestSplitSentencesAbsorbClosers(t *testing.T) {
	units := splitSentences(`"Run!" she said. Done.`)
	require.Len(t, units, 3)
	assert.Equal(t, `"Run!"`, units[0])
	assert.Equal(t, ` she said.`, units[1])
	assert.Equal(t, ` Done.`, units[2])
}

func TestHardCutRuneSafe(t *testing.T) {
	text := strings.Repeat("漢", 25)
	pieces := hardCut(text, 10)
	require.Len(t, pieces, 3)
	for _, p := range pieces {
		assert.True(t, utf8.ValidString(p))
	}
	assert.Equal(t, text, strings.Join(pieces, ""))
}
