package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MimeLyc/novel-chapter-translator/internal/jobs"
	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

var (
	ErrUnknownWork = errors.New("work not found")
	ErrActiveJob   = errors.New("work already has an active job")
	ErrInvalidPlan = errors.New("invalid batch plan")
)

// JobService is the write API over translation jobs: creation with plan
// validation, plus the pause/resume/cancel controls. The scheduler picks the
// jobs up asynchronously.
type JobService struct {
	rt *Runtime
}

func NewJobService(rt *Runtime) *JobService {
	return &JobService{rt: rt}
}

// CreateJob validates and stores a new job. The plan must reference only
// chapters that exist in the work, and a work can carry at most one
// non-terminal job at a time.
func (s *JobService) CreateJob(ctx context.Context, workID string, plan jobs.BatchPlan) (*jobs.TranslationJob, error) {
	if workID == "" {
		return nil, fmt.Errorf("%w: work id is required", ErrInvalidPlan)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
	}
	numbers := uniqueInts(plan.Chapters())
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: plan contains no chapters", ErrInvalidPlan)
	}

	work, err := s.rt.store.GetWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	if work == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWork, workID)
	}

	count, err := s.rt.store.CountChaptersByNumbers(ctx, workID, numbers)
	if err != nil {
		return nil, err
	}
	if count != len(numbers) {
		return nil, fmt.Errorf("%w: plan references %d chapters but only %d exist", ErrInvalidPlan, len(numbers), count)
	}

	active, err := s.rt.store.HasActiveJob(ctx, workID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("%w: %s", ErrActiveJob, workID)
	}

	job := &jobs.TranslationJob{
		ID:             uuid.NewString(),
		WorkID:         workID,
		Status:         jobs.StatusPending,
		BatchPlan:      plan,
		TotalBatches:   len(plan),
		MaxRetries:     s.rt.cfg.Scheduler.MaxRetries,
		MaxAutoRetries: s.rt.cfg.Scheduler.MaxAutoRetries,
	}
	if err := s.rt.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	log.Info("created job %s for work %s (%d batches, %d chapters)", job.ID, workID, len(plan), len(numbers))
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, jobID string) (*jobs.TranslationJob, error) {
	return s.rt.store.GetJob(ctx, jobID)
}

// RequestPause flags the job; the scheduler honors the flag at the next safe
// point (between batches), so in-flight chapters finish their checkpoint.
func (s *JobService) RequestPause(ctx context.Context, jobID string) (bool, error) {
	ok, err := s.rt.store.RequestPause(ctx, jobID)
	if err != nil {
		return false, err
	}
	if ok {
		log.Info("pause requested for job %s", jobID)
	}
	return ok, nil
}

func (s *JobService) Resume(ctx context.Context, jobID string) (bool, error) {
	return s.rt.store.ResumeJob(ctx, jobID)
}

func (s *JobService) Cancel(ctx context.Context, jobID string) (bool, error) {
	ok, err := s.rt.store.CancelJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if ok {
		log.Info("job %s cancelled", jobID)
	}
	return ok, nil
}
