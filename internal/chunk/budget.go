package chunk

import (
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

const (
	// Share of the backend's max output tokens we let one chunk consume;
	// the headroom absorbs expansion during translation.
	outputBudgetRatio = 0.9

	// Rough tokens-per-character cost by script class. Dual-byte scripts
	// tokenize far denser than latin text.
	denseTokensPerChar  = 1.5
	sparseTokensPerChar = 0.25

	// MinBudgetChars is the floor for the dynamic character budget.
	MinBudgetChars = 8000
)

var denseScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hangul,
	unicode.Hiragana,
	unicode.Katakana,
}

// Budget derives a per-chunk character budget from the backend's output
// token limit and the script mix of the input.
type Budget struct {
	maxOutputTokens int
	encoder         *tiktoken.Tiktoken
}

// NewBudget builds a budget for the given output token limit. When encoding
// names a tiktoken encoding and it can be loaded, token counting is exact;
// otherwise the script-density heuristic is used.
func NewBudget(maxOutputTokens int, encoding string) *Budget {
	b := &Budget{maxOutputTokens: maxOutputTokens}
	if encoding != "" {
		enc, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			log.Warn("tiktoken encoding %q unavailable, using heuristic token estimate: %v", encoding, err)
		} else {
			b.encoder = enc
		}
	}
	return b
}

// CharBudget returns the character budget for splitting the given text:
// ~90%% of the max output tokens, divided by the sampled tokens-per-char
// density, floored at MinBudgetChars.
func (b *Budget) CharBudget(text string) int {
	tokenBudget := float64(b.maxOutputTokens) * outputBudgetRatio
	chars := int(tokenBudget / tokensPerChar(text))
	if chars < MinBudgetChars {
		chars = MinBudgetChars
	}
	return chars
}

// EstimateTokens counts tokens exactly when an encoder is loaded, otherwise
// by the density heuristic.
func (b *Budget) EstimateTokens(text string) int {
	if b.encoder != nil {
		return len(b.encoder.Encode(text, nil, nil))
	}
	return int(float64(utf8.RuneCountInString(text)) * tokensPerChar(text))
}

// DenseScriptRatio reports the fraction of characters in dual-byte scripts.
func DenseScriptRatio(text string) float64 {
	total := 0
	dense := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.In(r, denseScripts...) {
			dense++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(dense) / float64(total)
}

func tokensPerChar(text string) float64 {
	ratio := DenseScriptRatio(text)
	return ratio*denseTokensPerChar + (1-ratio)*sparseTokensPerChar
}
