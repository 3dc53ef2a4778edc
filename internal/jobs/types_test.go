package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchPlanSlice(t *testing.T) {
	plan := BatchPlan{{1, 2}, {3}, {4, 5}, {6}}

	assert.Equal(t, BatchPlan{{1, 2}, {3}}, plan.Slice(0, 2))
	assert.Equal(t, BatchPlan{{4, 5}, {6}}, plan.Slice(2, 5))
	assert.Nil(t, plan.Slice(4, 2))
	assert.Nil(t, plan.Slice(-1, 2))
	assert.Nil(t, plan.Slice(0, 0))
}

func TestBatchPlanChapters(t *testing.T) {
	plan := BatchPlan{{3, 1}, {2}}
	assert.Equal(t, []int{3, 1, 2}, plan.Chapters())
	assert.Empty(t, BatchPlan{}.Chapters())
}

func TestSingleChapterPlan(t *testing.T) {
	plan := SingleChapterPlan([]int{7, 9})
	assert.Equal(t, BatchPlan{{7}, {9}}, plan)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.False(t, StatusPaused.Terminal())
}

func TestLeaseStale(t *testing.T) {
	cutoff := time.Now()

	unlocked := &TranslationJob{}
	assert.True(t, unlocked.LeaseStale(cutoff))

	old := cutoff.Add(-time.Minute)
	stale := &TranslationJob{LockedAt: &old}
	assert.True(t, stale.LeaseStale(cutoff))

	fresh := cutoff.Add(time.Minute)
	held := &TranslationJob{LockedAt: &fresh}
	assert.False(t, held.LeaseStale(cutoff))
}

func TestFailedChapterBookkeeping(t *testing.T) {
	job := &TranslationJob{}

	job.AddFailedChapter(3)
	job.AddFailedChapter(5)
	job.AddFailedChapter(3)
	assert.Equal(t, []int{3, 5}, job.FailedChapterNumbers)
	assert.Equal(t, 2, job.FailedChapters)

	job.ClearFailedChapter(3)
	assert.Equal(t, []int{5}, job.FailedChapterNumbers)
	assert.Equal(t, 1, job.FailedChapters)

	job.ClearFailedChapter(42)
	assert.Equal(t, []int{5}, job.FailedChapterNumbers)
}
