package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleRoundTrip(t *testing.T) {
	input := PrependTitle("Body first line.\nSecond line.", "Chapter One")
	assert.Equal(t, "<<<TITLE>>> Chapter One\n\nBody first line.\nSecond line.", input)

	title, content := ExtractTitle(input)
	assert.Equal(t, "Chapter One", title)
	assert.Equal(t, "Body first line.\nSecond line.", content)
}

func TestPrependTitleEmpty(t *testing.T) {
	assert.Equal(t, "unchanged", PrependTitle("unchanged", ""))
}

func TestExtractTitleWithoutMarker(t *testing.T) {
	title, content := ExtractTitle("plain output without a marker")
	assert.Empty(t, title)
	assert.Equal(t, "plain output without a marker", content)
}

func TestExtractTitleMarkerMidText(t *testing.T) {
	// Only a leading marker counts; one in the body is literal text.
	out := "First line\n<<<TITLE>>> not a title\n\nmore"
	title, content := ExtractTitle(out)
	assert.Empty(t, title)
	assert.Equal(t, out, content)
}

func TestExtractTitleEmptyTitleLine(t *testing.T) {
	title, content := ExtractTitle("<<<TITLE>>>\n\nbody")
	assert.Empty(t, title)
	assert.Equal(t, "body", content)
}
