package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/MimeLyc/novel-chapter-translator/internal/chunk"
	"github.com/MimeLyc/novel-chapter-translator/internal/config"
	"github.com/MimeLyc/novel-chapter-translator/internal/events"
	"github.com/MimeLyc/novel-chapter-translator/internal/library"
	"github.com/MimeLyc/novel-chapter-translator/internal/resilience"
	"github.com/MimeLyc/novel-chapter-translator/internal/translator"
	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

// FailedChunkMarker replaces a chunk whose retry budget ran out. The original
// text follows the marker so editors can translate it by hand.
const FailedChunkMarker = "[translation-failed]"

// ChunkOutcome reports one chunked run. Complete false means the run aborted
// early; Snapshot then holds the progress a later run resumes from.
type ChunkOutcome struct {
	Complete     bool
	Content      string
	Title        string
	FailedChunks int
	TotalChunks  int
	Snapshot     library.ProgressSnapshot
	AbortErr     error
}

// ChunkedEngine translates oversized chapters piece by piece, checkpointing
// partial results so a crashed or aborted run never starts from zero.
type ChunkedEngine struct {
	translator translator.Translator
	budget     *chunk.Budget
	cfg        config.ChunkingConfig
	bus        *events.Bus

	// Replaceable in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewChunkedEngine(t translator.Translator, budget *chunk.Budget, cfg config.ChunkingConfig, bus *events.Bus) *ChunkedEngine {
	return &ChunkedEngine{
		translator: t,
		budget:     budget,
		cfg:        cfg,
		bus:        bus,
		sleep:      sleepCtx,
	}
}

// Run translates the chapter chunk by chunk. save persists a snapshot; it is
// called on every checkpoint and before every early return, so durable
// progress only ever advances.
func (e *ChunkedEngine) Run(
	ctx context.Context,
	jobID string,
	chapter *library.Chapter,
	tc library.TranslationContext,
	save func(ctx context.Context, snapshot library.ProgressSnapshot) error,
) (*ChunkOutcome, error) {
	budgetChars := e.budget.CharBudget(chapter.OriginalContent)
	chunks := chunk.Split(chapter.OriginalContent, budgetChars)
	if len(chunks) == 0 {
		return &ChunkOutcome{Complete: true}, nil
	}

	results := make([]string, 0, len(chunks))
	start := 0
	startedAt := time.Now().UTC()

	if chapter.Snapshot.Resumable(len(chunks)) {
		results = append(results, chapter.Snapshot.PartialResults[:chapter.Snapshot.LastSavedChunk]...)
		start = chapter.Snapshot.LastSavedChunk
		startedAt = chapter.Snapshot.StartedAt
		log.Info("resuming chapter %s/%d from chunk %d/%d", chapter.WorkID, chapter.Number, start, len(chunks))
	} else if chapter.Snapshot.InProgress {
		log.Warn("snapshot for chapter %s/%d expects %d chunks but split produced %d, restarting",
			chapter.WorkID, chapter.Number, chapter.Snapshot.TotalChunks, len(chunks))
	}

	failed := 0
	consecutive := 0

	snapshotNow := func() library.ProgressSnapshot {
		return library.ProgressSnapshot{
			InProgress:     true,
			TotalChunks:    len(chunks),
			LastSavedChunk: len(results),
			PartialResults: append([]string(nil), results...),
			StartedAt:      startedAt,
		}
	}

	for i := start; i < len(chunks); i++ {
		if ctx.Err() != nil {
			snap := snapshotNow()
			if err := save(context.WithoutCancel(ctx), snap); err != nil {
				log.Error("save snapshot for chapter %s/%d: %v", chapter.WorkID, chapter.Number, err)
			}
			return &ChunkOutcome{TotalChunks: len(chunks), FailedChunks: failed, Snapshot: snap}, ctx.Err()
		}

		req := translator.Request{Content: chunks[i], Context: tc}
		if i == 0 {
			req.Title = chapter.Title
		}

		var res *translator.Result
		err := retry.Do(
			func() error {
				r, terr := e.translator.Translate(ctx, req)
				if terr != nil {
					return terr
				}
				res = r
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(uint(e.cfg.ChunkMaxAttempts)),
			retry.LastErrorOnly(true),
			retry.RetryIf(chunkRetryable),
			retry.Delay(500*time.Millisecond),
			retry.MaxDelay(10*time.Second),
		)

		switch {
		case err == nil:
			stored := res.Content
			if i == 0 {
				// The translated title rides inside the stored chunk so it
				// survives checkpoint and resume.
				stored = translator.PrependTitle(res.Content, res.Title)
			}
			results = append(results, stored)
			consecutive = 0

		case ctx.Err() != nil:
			snap := snapshotNow()
			if serr := save(context.WithoutCancel(ctx), snap); serr != nil {
				log.Error("save snapshot for chapter %s/%d: %v", chapter.WorkID, chapter.Number, serr)
			}
			return &ChunkOutcome{TotalChunks: len(chunks), FailedChunks: failed, Snapshot: snap}, ctx.Err()

		default:
			apiErr := resilience.Classify(err)
			if !apiErr.Retryable() || apiErr.Kind == resilience.KindCircuitOpen {
				// Either the whole backend is struggling or no model will ever
				// accept this content. Park progress and stop burning attempts.
				snap := snapshotNow()
				if serr := save(ctx, snap); serr != nil {
					return nil, serr
				}
				return &ChunkOutcome{
					TotalChunks:  len(chunks),
					FailedChunks: failed,
					Snapshot:     snap,
					AbortErr:     apiErr,
				}, nil
			}

			log.Warn("chunk %d/%d of chapter %s/%d failed after retries: %v",
				i+1, len(chunks), chapter.WorkID, chapter.Number, err)
			results = append(results, FailedChunkMarker+"\n"+chunks[i])
			failed++
			consecutive++

			processed := i - start + 1
			if consecutive >= e.cfg.AbortConsecutive ||
				(processed >= e.cfg.AbortMinSample && float64(failed)/float64(processed) >= e.cfg.AbortFailureRate) {
				snap := snapshotNow()
				if serr := save(ctx, snap); serr != nil {
					return nil, serr
				}
				return &ChunkOutcome{
					TotalChunks:  len(chunks),
					FailedChunks: failed,
					Snapshot:     snap,
					AbortErr:     fmt.Errorf("aborting after %d failed of %d processed chunks: %w", failed, processed, err),
				}, nil
			}
		}

		if (i+1-start)%e.cfg.CheckpointInterval == 0 && i+1 < len(chunks) {
			if serr := save(ctx, snapshotNow()); serr != nil {
				return nil, serr
			}
			e.bus.Publish(events.Event{
				Type:          events.ChunkProgress,
				JobID:         jobID,
				WorkID:        chapter.WorkID,
				ChapterNumber: chapter.Number,
				ChunkIndex:    len(results),
				TotalChunks:   len(chunks),
			})
		}

		if i+1 < len(chunks) && e.cfg.InterChunkDelay > 0 {
			jitter := 0.8 + rand.Float64()*0.4
			if err := e.sleep(ctx, time.Duration(float64(e.cfg.InterChunkDelay)*jitter)); err != nil {
				snap := snapshotNow()
				if serr := save(context.WithoutCancel(ctx), snap); serr != nil {
					log.Error("save snapshot for chapter %s/%d: %v", chapter.WorkID, chapter.Number, serr)
				}
				return &ChunkOutcome{TotalChunks: len(chunks), FailedChunks: failed, Snapshot: snap}, err
			}
		}
	}

	title, head := translator.ExtractTitle(results[0])
	content := head + strings.Join(results[1:], "")
	return &ChunkOutcome{
		Complete:     true,
		Content:      content,
		Title:        title,
		FailedChunks: failed,
		TotalChunks:  len(chunks),
	}, nil
}

// chunkRetryable gates the chunk-level retry loop. Non-retryable kinds and an
// open breaker abort instead of retrying; everything else gets another pass
// through the full model chain.
func chunkRetryable(err error) bool {
	apiErr := resilience.Classify(err)
	return apiErr.Retryable() && apiErr.Kind != resilience.KindCircuitOpen
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
