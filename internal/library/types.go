package library

import "time"

type ChapterStatus string

const (
	ChapterPending     ChapterStatus = "PENDING"
	ChapterTranslating ChapterStatus = "TRANSLATING"
	ChapterTranslated  ChapterStatus = "TRANSLATED"
	ChapterEdited      ChapterStatus = "EDITED"
	ChapterApproved    ChapterStatus = "APPROVED"
)

// Translated reports whether the chapter already carries an accepted
// translation (translated, edited or approved) and must not be re-translated.
func (s ChapterStatus) Translated() bool {
	return s == ChapterTranslated || s == ChapterEdited || s == ChapterApproved
}

// Work is the novel a chapter belongs to. Read-only input here; ingestion and
// editing happen elsewhere.
type Work struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Genres           []string `json:"genres,omitempty"`
	AgeRating        string   `json:"age_rating,omitempty"`
	Synopsis         string   `json:"synopsis,omitempty"`
	TranslationGuide string   `json:"translation_guide,omitempty"`
	SourceLanguage   string   `json:"source_language,omitempty"`
}

// Chapter is one unit of translatable content.
type Chapter struct {
	ID                string           `json:"id"`
	WorkID            string           `json:"work_id"`
	Number            int              `json:"number"`
	Title             string           `json:"title,omitempty"`
	OriginalContent   string           `json:"original_content"`
	TranslatedContent string           `json:"translated_content,omitempty"`
	TranslatedTitle   string           `json:"translated_title,omitempty"`
	Status            ChapterStatus    `json:"status"`
	Snapshot          ProgressSnapshot `json:"snapshot,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ProgressSnapshot is the persisted checkpoint of a partially translated
// large chapter. The zero value is the None variant; InProgress true marks a
// resumable run.
type ProgressSnapshot struct {
	InProgress     bool      `json:"in_progress"`
	TotalChunks    int       `json:"total_chunks"`
	LastSavedChunk int       `json:"last_saved_chunk"`
	PartialResults []string  `json:"partial_results"`
	StartedAt      time.Time `json:"started_at"`
}

// Resumable reports whether the snapshot can seed a resumed run for a split
// that produced totalChunks chunks. A mismatch means the content or the chunk
// budget changed since the snapshot was taken, so it must be discarded and
// the chapter restarted from chunk 0.
func (s ProgressSnapshot) Resumable(totalChunks int) bool {
	return s.InProgress &&
		s.TotalChunks == totalChunks &&
		s.LastSavedChunk > 0 &&
		s.LastSavedChunk <= totalChunks &&
		len(s.PartialResults) >= s.LastSavedChunk
}

// GlossaryEntry maps one source-language term to its fixed translation.
type GlossaryEntry struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
	Note       string `json:"note,omitempty"`
}

// CharacterEntry describes one character for prompt context.
type CharacterEntry struct {
	NameOriginal   string `json:"name_original"`
	NameTranslated string `json:"name_translated"`
	Role           string `json:"role,omitempty"`
	SpeechStyle    string `json:"speech_style,omitempty"`
	Personality    string `json:"personality,omitempty"`
}

// MainRole reports whether the character is always kept in prompt context
// regardless of whether the name appears in the current content.
func (c CharacterEntry) MainRole() bool {
	return c.Role == "protagonist" || c.Role == "antagonist"
}
