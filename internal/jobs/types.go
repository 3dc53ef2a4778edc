package jobs

import "time"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusPaused     Status = "PAUSED"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether a job in this status can never be picked up again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// BatchPlan is an ordered list of chapter-number groups. One group is
// processed as a unit; groups are consumed in order by CurrentBatchIndex.
type BatchPlan [][]int

// Slice returns up to n batches starting at from, without going past the end.
func (p BatchPlan) Slice(from, n int) BatchPlan {
	if from < 0 || from >= len(p) || n <= 0 {
		return nil
	}
	end := from + n
	if end > len(p) {
		end = len(p)
	}
	return p[from:end]
}

// Chapters flattens the plan slice into a single chapter-number list.
func (p BatchPlan) Chapters() []int {
	ret := make([]int, 0)
	for _, batch := range p {
		ret = append(ret, batch...)
	}
	return ret
}

// SingleChapterPlan builds a plan with one chapter per batch, used when
// replanning a job to retry only its failed chapters.
func SingleChapterPlan(numbers []int) BatchPlan {
	ret := make(BatchPlan, 0, len(numbers))
	for _, n := range numbers {
		ret = append(ret, []int{n})
	}
	return ret
}

// TranslationJob is one author-initiated translation run over a work's
// chapters. It is only ever mutated by the current lease holder; the lease
// itself is a timestamp+owner pair that goes stale after a fixed window.
type TranslationJob struct {
	ID     string `json:"id"`
	WorkID string `json:"work_id"`
	Status Status `json:"status"`

	BatchPlan            BatchPlan `json:"batch_plan"`
	TotalBatches         int       `json:"total_batches"`
	CurrentBatchIndex    int       `json:"current_batch_index"`
	CompletedChapters    int       `json:"completed_chapters"`
	FailedChapters       int       `json:"failed_chapters"`
	FailedChapterNumbers []int     `json:"failed_chapter_numbers,omitempty"`

	RetryCount     int `json:"retry_count"`
	MaxRetries     int `json:"max_retries"`
	AutoRetryCount int `json:"auto_retry_count"`
	MaxAutoRetries int `json:"max_auto_retries"`

	IsPauseRequested bool `json:"is_pause_requested"`

	LockedAt *time.Time `json:"locked_at,omitempty"`
	LockedBy string     `json:"locked_by,omitempty"`

	LastError string `json:"last_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LeaseStale reports whether the job's lease is unset or older than the
// staleness cutoff, meaning a scheduler tick may (re)claim it.
func (j *TranslationJob) LeaseStale(cutoff time.Time) bool {
	return j.LockedAt == nil || j.LockedAt.Before(cutoff)
}

// AddFailedChapter records a chapter number in the failed set exactly once.
func (j *TranslationJob) AddFailedChapter(number int) {
	for _, n := range j.FailedChapterNumbers {
		if n == number {
			return
		}
	}
	j.FailedChapterNumbers = append(j.FailedChapterNumbers, number)
	j.FailedChapters = len(j.FailedChapterNumbers)
}

// ClearFailedChapter drops a chapter from the failed set, e.g. after a
// successful resume of a previously failed chapter.
func (j *TranslationJob) ClearFailedChapter(number int) {
	for i, n := range j.FailedChapterNumbers {
		if n == number {
			j.FailedChapterNumbers = append(j.FailedChapterNumbers[:i], j.FailedChapterNumbers[i+1:]...)
			j.FailedChapters = len(j.FailedChapterNumbers)
			return
		}
	}
}
