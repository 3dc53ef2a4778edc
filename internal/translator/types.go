package translator

import (
	"context"

	"github.com/MimeLyc/novel-chapter-translator/internal/library"
)

// Request is one unit of content (whole chapter or single chunk) to
// translate, plus the work context used to build the prompt.
type Request struct {
	Content string
	Title   string
	Context library.TranslationContext
}

// Result carries the translated text and, when a title was attached, its
// translation, along with the model that produced it.
type Result struct {
	Content string
	Title   string
	Model   string
}

// Translator turns one request into one result. Implementations own their
// resilience policy; callers just see success or a classified error.
type Translator interface {
	Translate(ctx context.Context, req Request) (*Result, error)
}
