package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/MimeLyc/novel-chapter-translator/internal/events"
	"github.com/MimeLyc/novel-chapter-translator/internal/library"
	"github.com/MimeLyc/novel-chapter-translator/internal/translator"
	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

// ChapterResult is the outcome of one chapter run.
//
// Success: the chapter reached TRANSLATED (or already was).
// Partial: progress was checkpointed but the run stopped early; the chapter
// stays in TRANSLATING with a snapshot and resumes on a later tick.
// Otherwise the chapter failed and was reverted to PENDING.
type ChapterResult struct {
	ChapterNumber int
	Success       bool
	Partial       bool
	Skipped       bool
	Err           error
}

// Orchestrator runs the per-chapter pipeline: claim, route by size, translate,
// persist, release.
type Orchestrator struct {
	rt     *Runtime
	engine *ChunkedEngine
}

func NewOrchestrator(rt *Runtime) *Orchestrator {
	return &Orchestrator{
		rt:     rt,
		engine: NewChunkedEngine(rt.translator, rt.budget, rt.cfg.Chunking, rt.bus),
	}
}

// ProcessChapter translates one chapter of a work. Concurrent workers racing
// for the same chapter are resolved by the conditional claim; the loser skips.
func (o *Orchestrator) ProcessChapter(ctx context.Context, jobID, workID string, number int, tc library.TranslationContext) ChapterResult {
	ret := ChapterResult{ChapterNumber: number}

	chapter, err := o.rt.store.GetChapterByNumber(ctx, workID, number)
	if err != nil {
		ret.Err = fmt.Errorf("load chapter %d: %w", number, err)
		return ret
	}
	if chapter == nil {
		ret.Err = fmt.Errorf("chapter %d not found in work %s", number, workID)
		return ret
	}
	if chapter.Status.Translated() {
		ret.Success = true
		ret.Skipped = true
		return ret
	}

	claimed, err := o.rt.store.ClaimChapter(ctx, workID, number)
	if err != nil {
		ret.Err = fmt.Errorf("claim chapter %d: %w", number, err)
		return ret
	}
	if !claimed {
		// Someone finished it between the read and the claim.
		ret.Success = true
		ret.Skipped = true
		return ret
	}

	o.rt.bus.Publish(events.Event{
		Type:          events.ChapterStarted,
		JobID:         jobID,
		WorkID:        workID,
		ChapterNumber: number,
	})

	if o.isLarge(chapter) {
		return o.processChunked(ctx, jobID, chapter, tc, ret)
	}
	return o.processWhole(ctx, jobID, chapter, tc, ret)
}

// isLarge routes by content size. A chapter with a live snapshot always takes
// the chunked path so its checkpoint can be resumed.
func (o *Orchestrator) isLarge(chapter *library.Chapter) bool {
	if chapter.Snapshot.InProgress {
		return true
	}
	return utf8.RuneCountInString(chapter.OriginalContent) > o.rt.cfg.Chunking.LargeChapterThreshold
}

func (o *Orchestrator) processWhole(ctx context.Context, jobID string, chapter *library.Chapter, tc library.TranslationContext, ret ChapterResult) ChapterResult {
	res, err := o.rt.translator.Translate(ctx, translator.Request{
		Content: chapter.OriginalContent,
		Title:   chapter.Title,
		Context: tc,
	})
	if err != nil {
		o.failChapter(ctx, jobID, chapter, err)
		ret.Err = err
		return ret
	}

	if err := o.rt.store.CompleteChapter(ctx, chapter.WorkID, chapter.Number, res.Content, res.Title); err != nil {
		o.failChapter(ctx, jobID, chapter, err)
		ret.Err = fmt.Errorf("persist chapter %d: %w", chapter.Number, err)
		return ret
	}

	o.rt.bus.Publish(events.Event{
		Type:          events.ChapterCompleted,
		JobID:         jobID,
		WorkID:        chapter.WorkID,
		ChapterNumber: chapter.Number,
	})
	ret.Success = true
	return ret
}

func (o *Orchestrator) processChunked(ctx context.Context, jobID string, chapter *library.Chapter, tc library.TranslationContext, ret ChapterResult) ChapterResult {
	save := func(saveCtx context.Context, snapshot library.ProgressSnapshot) error {
		return o.rt.store.SaveChapterSnapshot(saveCtx, chapter.WorkID, chapter.Number, snapshot)
	}

	outcome, err := o.engine.Run(ctx, jobID, chapter, tc, save)
	if err != nil {
		// Cancelled or paused mid-run; the snapshot is already persisted and
		// the chapter stays TRANSLATING for the resume path.
		o.publishPartial(jobID, chapter, outcome)
		ret.Partial = true
		ret.Err = err
		return ret
	}

	if !outcome.Complete {
		log.Warn("chapter %s/%d aborted at chunk %d/%d: %v",
			chapter.WorkID, chapter.Number, outcome.Snapshot.LastSavedChunk, outcome.TotalChunks, outcome.AbortErr)
		o.publishPartial(jobID, chapter, outcome)
		ret.Partial = true
		ret.Err = outcome.AbortErr
		return ret
	}

	if err := o.rt.store.CompleteChapter(ctx, chapter.WorkID, chapter.Number, outcome.Content, outcome.Title); err != nil {
		o.failChapter(ctx, jobID, chapter, err)
		ret.Err = fmt.Errorf("persist chapter %d: %w", chapter.Number, err)
		return ret
	}
	if outcome.FailedChunks > 0 {
		log.Warn("chapter %s/%d completed with %d failed chunks left for manual review",
			chapter.WorkID, chapter.Number, outcome.FailedChunks)
	}

	o.rt.bus.Publish(events.Event{
		Type:          events.ChapterCompleted,
		JobID:         jobID,
		WorkID:        chapter.WorkID,
		ChapterNumber: chapter.Number,
		TotalChunks:   outcome.TotalChunks,
	})
	ret.Success = true
	return ret
}

// failChapter reverts the claim so another run can retry. The revert is
// guarded on TRANSLATING, so a chapter someone else completed is untouched.
func (o *Orchestrator) failChapter(ctx context.Context, jobID string, chapter *library.Chapter, cause error) {
	if err := o.rt.store.RevertChapter(context.WithoutCancel(ctx), chapter.WorkID, chapter.Number); err != nil {
		log.Error("revert chapter %s/%d: %v", chapter.WorkID, chapter.Number, err)
	}
	o.rt.bus.Publish(events.Event{
		Type:          events.ChapterFailed,
		JobID:         jobID,
		WorkID:        chapter.WorkID,
		ChapterNumber: chapter.Number,
		Error:         cause.Error(),
	})
}

func (o *Orchestrator) publishPartial(jobID string, chapter *library.Chapter, outcome *ChunkOutcome) {
	event := events.Event{
		Type:          events.ChapterPartial,
		JobID:         jobID,
		WorkID:        chapter.WorkID,
		ChapterNumber: chapter.Number,
	}
	if outcome != nil {
		event.ChunkIndex = outcome.Snapshot.LastSavedChunk
		event.TotalChunks = outcome.TotalChunks
		if outcome.AbortErr != nil {
			event.Error = outcome.AbortErr.Error()
		}
	}
	o.rt.bus.Publish(event)
}
