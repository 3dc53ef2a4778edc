package jobs

import (
	"context"
	"time"
)

// Store is the durable job state backing the scheduler. Every mutating call
// that participates in the claim protocol is conditional: it reports whether
// the expected prior state still held, and a losing writer sees false rather
// than clobbering anyone.
type Store interface {
	CreateJob(ctx context.Context, job *TranslationJob) error
	GetJob(ctx context.Context, jobID string) (*TranslationJob, error)
	HasActiveJob(ctx context.Context, workID string) (bool, error)

	// ClaimNextJob selects the oldest claimable job (status PENDING or
	// IN_PROGRESS, lease unset or older than staleCutoff) and atomically
	// stamps the lease. It returns nil when there is no candidate or when a
	// concurrent claimer won the race.
	ClaimNextJob(ctx context.Context, owner string, staleCutoff time.Time) (*TranslationJob, error)
	ReleaseJobLease(ctx context.Context, jobID, owner string) error

	// TransitionJobStatus moves status from -> to; false means the job was no
	// longer in the expected status.
	TransitionJobStatus(ctx context.Context, jobID string, from []Status, to Status) (bool, error)
	SaveJobProgress(ctx context.Context, job *TranslationJob) error
	RequestPause(ctx context.Context, jobID string) (bool, error)
	ClearPauseFlag(ctx context.Context, jobID string) error
	CancelJob(ctx context.Context, jobID string) (bool, error)
}
