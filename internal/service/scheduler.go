package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/novel-chapter-translator/internal/events"
	"github.com/MimeLyc/novel-chapter-translator/internal/jobs"
	"github.com/MimeLyc/novel-chapter-translator/internal/library"
	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

// Scheduler drives translation jobs forward one tick at a time. A tick claims
// at most one job via the lease protocol, runs a bounded slice of its batch
// plan and releases the lease, so any number of worker processes can share
// the same database without stepping on each other.
type Scheduler struct {
	rt    *Runtime
	orch  *Orchestrator
	owner string

	cronExpr string
	cron     *cron.Cron
	group    singleflight.Group

	now func() time.Time
}

func NewScheduler(rt *Runtime, cronRunner *cron.Cron) *Scheduler {
	return &Scheduler{
		rt:       rt,
		orch:     NewOrchestrator(rt),
		owner:    LeaseOwner(),
		cronExpr: rt.cfg.Scheduler.CronExpr,
		cron:     cronRunner,
		now:      time.Now,
	}
}

// Schedule registers the tick on the cron runner. Overlapping fires collapse
// into one running tick via singleflight.
func (s *Scheduler) Schedule(ctx context.Context) error {
	log.Info("scheduler %s ticking on %q", s.owner, s.cronExpr)
	_, err := s.cron.AddFunc(s.cronExpr, func() {
		_, _, _ = s.group.Do("tick", func() (any, error) {
			if err := s.Tick(ctx); err != nil {
				log.Error("scheduler tick: %v", err)
			}
			return nil, nil
		})
	})
	return err
}

// Tick claims the next available job and advances it. No claimable job is a
// quiet no-op.
func (s *Scheduler) Tick(ctx context.Context) error {
	staleCutoff := s.now().Add(-s.rt.cfg.Scheduler.LockStale)
	job, err := s.rt.store.ClaimNextJob(ctx, s.owner, staleCutoff)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if job == nil {
		return nil
	}

	defer func() {
		if err := s.rt.store.ReleaseJobLease(context.WithoutCancel(ctx), job.ID, s.owner); err != nil {
			log.Error("release lease for job %s: %v", job.ID, err)
		}
	}()

	log.Info("claimed job %s (work %s, batch %d/%d)", job.ID, job.WorkID, job.CurrentBatchIndex, job.TotalBatches)
	return s.runClaimed(ctx, job)
}

func (s *Scheduler) runClaimed(ctx context.Context, job *jobs.TranslationJob) error {
	if reason := s.validatePlan(ctx, job); reason != "" {
		return s.failJob(ctx, job, fmt.Errorf("invalid batch plan: %s", reason))
	}

	if job.Status == jobs.StatusPending {
		ok, err := s.rt.store.TransitionJobStatus(ctx, job.ID, []jobs.Status{jobs.StatusPending}, jobs.StatusInProgress)
		if err != nil {
			return err
		}
		if !ok {
			// Status moved underneath us (cancel or a stale-lease takeover).
			return nil
		}
		job.Status = jobs.StatusInProgress
		s.rt.bus.Publish(events.Event{Type: events.JobStarted, JobID: job.ID, WorkID: job.WorkID})
	}

	if job.IsPauseRequested {
		return s.pauseJob(ctx, job)
	}

	tc, err := s.rt.loadContext(ctx, job.WorkID)
	if err != nil {
		return s.recordTickFailure(ctx, job, err)
	}

	// Interrupted chapters get the whole tick to themselves; new batches wait
	// until nothing is left to resume.
	if results, attempted := s.runResumable(ctx, job, tc); attempted {
		return s.settleTick(ctx, job, results, false)
	}

	batches := job.BatchPlan.Slice(job.CurrentBatchIndex, s.rt.cfg.Scheduler.ParallelChapterCount)
	results, halted := s.runBatches(ctx, job.ID, job.WorkID, batches, tc)
	if !halted {
		// A pause or cancel observed mid-slice leaves the index where it was,
		// so the unprocessed chapters rerun after resume.
		job.CurrentBatchIndex += len(batches)
	}
	return s.settleTick(ctx, job, results, !halted)
}

// settleTick applies the tick's chapter outcomes to the job and decides what
// happens next. mayFinish gates terminal settlement: a resumable-only or
// halted tick never finishes the job.
func (s *Scheduler) settleTick(ctx context.Context, job *jobs.TranslationJob, results []ChapterResult, mayFinish bool) error {
	successes, failures := 0, 0
	for _, res := range results {
		s.applyResult(job, res)
		switch {
		case res.Partial:
		case res.Success:
			successes++
		default:
			failures++
		}
	}

	// A tick that failed chapters and completed none burns one retry.
	// Partial outcomes count on neither side.
	if failures > 0 && successes == 0 {
		job.RetryCount++
		if job.RetryCount >= job.MaxRetries {
			return s.failJob(ctx, job, fmt.Errorf("no progress after %d retries: %s", job.RetryCount, job.LastError))
		}
	}

	if err := s.rt.store.SaveJobProgress(ctx, job); err != nil {
		return fmt.Errorf("save progress for job %s: %w", job.ID, err)
	}

	// Re-read control flags set while we were translating.
	fresh, err := s.rt.store.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	if fresh == nil || fresh.Status == jobs.StatusCancelled {
		log.Info("job %s cancelled, stopping", job.ID)
		return nil
	}
	if fresh.IsPauseRequested {
		return s.pauseJob(ctx, job)
	}

	if mayFinish && job.CurrentBatchIndex >= job.TotalBatches {
		return s.finishJob(ctx, job)
	}
	return nil
}

// validatePlan returns a non-empty reason when the stored plan cannot be run.
func (s *Scheduler) validatePlan(ctx context.Context, job *jobs.TranslationJob) string {
	if len(job.BatchPlan) == 0 {
		return "empty plan"
	}
	if job.TotalBatches != len(job.BatchPlan) {
		return fmt.Sprintf("total_batches %d does not match plan length %d", job.TotalBatches, len(job.BatchPlan))
	}
	if job.CurrentBatchIndex < 0 || job.CurrentBatchIndex > job.TotalBatches {
		return fmt.Sprintf("batch index %d out of range", job.CurrentBatchIndex)
	}
	numbers := job.BatchPlan.Chapters()
	if len(numbers) == 0 {
		return "plan contains no chapters"
	}
	count, err := s.rt.store.CountChaptersByNumbers(ctx, job.WorkID, numbers)
	if err != nil {
		log.Error("count chapters for job %s: %v", job.ID, err)
		return ""
	}
	if count != len(uniqueInts(numbers)) {
		return fmt.Sprintf("plan references %d chapters but only %d exist", len(uniqueInts(numbers)), count)
	}
	return ""
}

// resumableNumbers lists planned chapters left TRANSLATING with a snapshot,
// meaning an interrupted chunked run is waiting to be picked up.
func (s *Scheduler) resumableNumbers(ctx context.Context, job *jobs.TranslationJob) []int {
	chapters, err := s.rt.store.ListTranslatingWithSnapshot(ctx, job.WorkID)
	if err != nil {
		log.Error("list resumable chapters for job %s: %v", job.ID, err)
		return nil
	}
	if len(chapters) == 0 {
		return nil
	}

	planned := make(map[int]bool)
	for _, n := range job.BatchPlan.Chapters() {
		planned[n] = true
	}

	numbers := make([]int, 0, len(chapters))
	for _, ch := range chapters {
		if planned[ch.Number] {
			numbers = append(numbers, ch.Number)
		}
	}
	return numbers
}

// runResumable gives interrupted chapters the tick's whole capacity, up to
// the fan-out cap, so checkpointed work lands before new work starts. The
// second return reports whether anything was attempted.
func (s *Scheduler) runResumable(ctx context.Context, job *jobs.TranslationJob, tc library.TranslationContext) ([]ChapterResult, bool) {
	numbers := s.resumableNumbers(ctx, job)
	if len(numbers) == 0 {
		return nil, false
	}
	if limit := s.rt.cfg.Scheduler.ParallelChapterCount; len(numbers) > limit {
		numbers = numbers[:limit]
	}
	log.Info("job %s resuming %d checkpointed chapters", job.ID, len(numbers))
	results, _ := s.runBatches(ctx, job.ID, job.WorkID, jobs.SingleChapterPlan(numbers), tc)
	return results, true
}

// runBatches fans batches out in parallel; chapters inside one batch run in
// order. The pause/cancel flags are re-read at every chapter boundary; once
// one is seen no further chapter starts and halted is reported.
func (s *Scheduler) runBatches(ctx context.Context, jobID, workID string, batches jobs.BatchPlan, tc library.TranslationContext) ([]ChapterResult, bool) {
	if len(batches) == 0 {
		return nil, false
	}

	var mu sync.Mutex
	results := make([]ChapterResult, 0)
	var halted atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.rt.cfg.Scheduler.ParallelChapterCount)
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			for _, number := range batch {
				if gctx.Err() != nil || halted.Load() {
					return nil
				}
				if s.controlRequested(gctx, jobID) {
					halted.Store(true)
					return nil
				}
				res := s.orch.ProcessChapter(gctx, jobID, workID, number, tc)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, halted.Load()
}

// controlRequested re-reads the job's pause/cancel state mid-tick.
func (s *Scheduler) controlRequested(ctx context.Context, jobID string) bool {
	fresh, err := s.rt.store.GetJob(ctx, jobID)
	if err != nil {
		log.Error("re-read job %s: %v", jobID, err)
		return false
	}
	return fresh == nil || fresh.IsPauseRequested || fresh.Status == jobs.StatusCancelled
}

func (s *Scheduler) applyResult(job *jobs.TranslationJob, res ChapterResult) {
	switch {
	case res.Partial:
		// Checkpointed but unfinished; the resumable pass revisits it, so it
		// counts as neither completed nor failed.
	case res.Success:
		job.ClearFailedChapter(res.ChapterNumber)
		if !res.Skipped {
			job.CompletedChapters++
		}
	default:
		job.AddFailedChapter(res.ChapterNumber)
		if res.Err != nil {
			job.LastError = res.Err.Error()
		}
	}
}

// finishJob runs once the plan is exhausted: replan failed chapters while the
// auto-retry budget lasts, otherwise settle COMPLETED. Chapters whose chunked
// run is still checkpointed defer settlement to a later tick's resumable pass.
func (s *Scheduler) finishJob(ctx context.Context, job *jobs.TranslationJob) error {
	if numbers := s.resumableNumbers(ctx, job); len(numbers) > 0 {
		log.Info("job %s holding completion for %d checkpointed chapters", job.ID, len(numbers))
		return nil
	}

	if len(job.FailedChapterNumbers) > 0 && job.AutoRetryCount < job.MaxAutoRetries {
		job.AutoRetryCount++
		job.BatchPlan = jobs.SingleChapterPlan(job.FailedChapterNumbers)
		job.TotalBatches = len(job.BatchPlan)
		job.CurrentBatchIndex = 0
		log.Info("job %s auto-retry %d/%d over %d failed chapters",
			job.ID, job.AutoRetryCount, job.MaxAutoRetries, len(job.FailedChapterNumbers))
		return s.rt.store.SaveJobProgress(ctx, job)
	}

	ok, err := s.rt.store.TransitionJobStatus(ctx, job.ID, []jobs.Status{jobs.StatusInProgress}, jobs.StatusCompleted)
	if err != nil {
		return err
	}
	if ok {
		if len(job.FailedChapterNumbers) > 0 {
			log.Warn("job %s completed with %d chapters still failed after all auto-retries: %v",
				job.ID, job.FailedChapters, job.FailedChapterNumbers)
		} else {
			log.Info("job %s completed: %d chapters", job.ID, job.CompletedChapters)
		}
		s.rt.bus.Publish(events.Event{
			Type:              events.JobCompleted,
			JobID:             job.ID,
			WorkID:            job.WorkID,
			CompletedChapters: job.CompletedChapters,
			FailedChapters:    job.FailedChapters,
		})
	}
	return nil
}

func (s *Scheduler) pauseJob(ctx context.Context, job *jobs.TranslationJob) error {
	ok, err := s.rt.store.TransitionJobStatus(ctx, job.ID,
		[]jobs.Status{jobs.StatusPending, jobs.StatusInProgress}, jobs.StatusPaused)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.rt.store.ClearPauseFlag(ctx, job.ID); err != nil {
		return err
	}
	log.Info("job %s paused", job.ID)
	s.rt.bus.Publish(events.Event{Type: events.JobPaused, JobID: job.ID, WorkID: job.WorkID})
	return nil
}

func (s *Scheduler) recordTickFailure(ctx context.Context, job *jobs.TranslationJob, cause error) error {
	job.RetryCount++
	job.LastError = cause.Error()
	if job.RetryCount >= job.MaxRetries {
		return s.failJob(ctx, job, cause)
	}
	log.Warn("job %s tick failed (retry %d/%d): %v", job.ID, job.RetryCount, job.MaxRetries, cause)
	return s.rt.store.SaveJobProgress(ctx, job)
}

func (s *Scheduler) failJob(ctx context.Context, job *jobs.TranslationJob, cause error) error {
	job.LastError = cause.Error()
	if err := s.rt.store.SaveJobProgress(ctx, job); err != nil {
		return err
	}
	ok, err := s.rt.store.TransitionJobStatus(ctx, job.ID,
		[]jobs.Status{jobs.StatusPending, jobs.StatusInProgress}, jobs.StatusFailed)
	if err != nil {
		return err
	}
	if ok {
		log.Error("job %s failed: %v", job.ID, cause)
		s.rt.bus.Publish(events.Event{
			Type:           events.JobFailed,
			JobID:          job.ID,
			WorkID:         job.WorkID,
			FailedChapters: job.FailedChapters,
			Error:          cause.Error(),
		})
	}
	return nil
}

func uniqueInts(numbers []int) []int {
	seen := make(map[int]bool, len(numbers))
	ret := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if !seen[n] {
			seen[n] = true
			ret = append(ret, n)
		}
	}
	return ret
}
