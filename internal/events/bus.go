package events

import (
	"sync"
	"time"

	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

type Type string

const (
	JobStarted       Type = "job_started"
	ChapterStarted   Type = "chapter_started"
	ChunkProgress    Type = "chunk_progress"
	ChapterCompleted Type = "chapter_completed"
	ChapterPartial   Type = "chapter_partial"
	ChapterFailed    Type = "chapter_failed"
	JobPaused        Type = "job_paused"
	JobCompleted     Type = "job_completed"
	JobFailed        Type = "job_failed"
)

// Event is one progress notification. Payloads stay small: identifiers,
// counters and error text only.
type Event struct {
	Type              Type      `json:"type"`
	JobID             string    `json:"job_id,omitempty"`
	WorkID            string    `json:"work_id,omitempty"`
	ChapterNumber     int       `json:"chapter_number,omitempty"`
	ChunkIndex        int       `json:"chunk_index,omitempty"`
	TotalChunks       int       `json:"total_chunks,omitempty"`
	CompletedChapters int       `json:"completed_chapters,omitempty"`
	FailedChapters    int       `json:"failed_chapters,omitempty"`
	Error             string    `json:"error,omitempty"`
	At                time.Time `json:"at"`
}

// Bus fans events out to subscribers. Publishing never blocks the pipeline:
// a subscriber that stops draining just loses events.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish stamps the event and delivers it to every live subscriber.
func (b *Bus) Publish(event Event) {
	event.At = time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Debug("event subscriber %d lagging, dropping %s", id, event.Type)
		}
	}
}

// Subscribe registers a buffered receiver. The returned id releases it.
func (b *Bus) Subscribe() (int, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subs[id] = ch
	return id, ch
}

func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Close releases every subscriber; further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// StartLogNotifier consumes the bus and writes each event to the log. This
// is the default notification transport when no external one is attached.
func StartLogNotifier(bus *Bus) (stop func()) {
	id, ch := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range ch {
			if event.Error != "" {
				log.Warn("event %s job=%s chapter=%d: %s", event.Type, event.JobID, event.ChapterNumber, event.Error)
				continue
			}
			log.Info("event %s job=%s chapter=%d chunk=%d/%d", event.Type, event.JobID, event.ChapterNumber, event.ChunkIndex, event.TotalChunks)
		}
	}()
	return func() {
		bus.Unsubscribe(id)
		<-done
	}
}
