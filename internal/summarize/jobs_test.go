package summarize

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashHex(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"text", []byte("hello world"), "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{"empty", []byte{}, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"nil", nil, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentHashHex(tt.in))
		})
	}
	assert.NotEqual(t, ContentHashHex([]byte("aaa")), ContentHashHex([]byte("bbb")))
}

func TestNewJob(t *testing.T) {
	job := NewJob("paper.pdf", "focus on methods", []byte("hello world"))

	_, err := uuid.Parse(job.ID)
	require.NoError(t, err, "job id %q", job.ID)
	assert.Equal(t, "focus on methods", job.Query)
	assert.Equal(t, ContentHashHex([]byte("hello world")), job.ContentHash)
	assert.Equal(t, []byte("hello world"), job.FileData())

	snap := job.Snapshot()
	assert.Equal(t, StatusQueued, snap.Status)
	assert.Equal(t, "queued", snap.Phase)
	assert.Equal(t, "paper.pdf", snap.Filename)
	assert.Equal(t, snap.CreatedAt, snap.UpdatedAt)
}

func TestJobTransitionsAdvanceUpdatedAt(t *testing.T) {
	job := NewJob("a.txt", "", nil)
	for _, step := range []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusSummarizing, "summarizing"},
	} {
		before := job.Snapshot().UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(step.status, step.phase)

		snap := job.Snapshot()
		assert.Equal(t, step.status, snap.Status)
		assert.Equal(t, step.phase, snap.Phase)
		assert.True(t, snap.UpdatedAt.After(before), "UpdatedAt should advance on %s", step.status)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for status, want := range map[JobStatus]bool{
		StatusQueued:      false,
		StatusParsing:     false,
		StatusSummarizing: false,
		StatusCompleted:   true,
		StatusFailed:      true,
	} {
		assert.Equal(t, want, status.Terminal(), string(status))
	}
}

func TestJobCompleteReleasesUpload(t *testing.T) {
	job := NewJob("a.txt", "", []byte("data"))
	job.SetTitle("A Paper")
	job.Complete("summary text")

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "done", snap.Phase)
	assert.Equal(t, "A Paper", snap.Title)
	assert.Equal(t, "summary text", snap.Response)
	assert.Empty(t, snap.Error)
	assert.Nil(t, job.FileData())
}

func TestJobFailReleasesUpload(t *testing.T) {
	job := NewJob("a.txt", "", []byte("data"))
	job.Fail("parsing", "could not extract readable text from the document")

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "parsing", snap.Phase)
	assert.NotEmpty(t, snap.Error)
	assert.Empty(t, snap.Response)
	assert.Nil(t, job.FileData())
}

func TestJobSectionProgress(t *testing.T) {
	job := NewJob("a.txt", "", nil)
	job.SetTotalSections(3)
	job.SectionDone(true)
	job.SectionDone(false)
	job.SectionDone(true)

	assert.Equal(t, Progress{TotalSections: 3, Processed: 3, Summarized: 2}, job.Snapshot().Progress)
}

func TestJobStorePutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob("a.txt", "", nil)
	store.Put(job)

	assert.Same(t, job, store.Get(job.ID))
	assert.Nil(t, store.Get("nonexistent"))
	assert.Equal(t, 1, store.Len())
}

func TestJobStoreCleanupEvictsOnlyFinishedJobs(t *testing.T) {
	store := NewJobStore(time.Minute)

	done := NewJob("done.txt", "", nil)
	done.Complete("ok")
	failed := NewJob("failed.txt", "", nil)
	failed.Fail("parsing", "bad")
	running := NewJob("running.txt", "", nil)
	running.SetStatus(StatusSummarizing, "summarizing")
	for _, j := range []*Job{done, failed, running} {
		store.Put(j)
	}

	assert.Equal(t, 0, store.Cleanup(), "nothing is idle yet")

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 2, store.Cleanup())
	assert.Nil(t, store.Get(done.ID))
	assert.Nil(t, store.Get(failed.ID))
	assert.Same(t, running, store.Get(running.ID), "unfinished jobs are kept")
}

func TestJobStoreCleanupEmpty(t *testing.T) {
	store := NewJobStore(0)
	assert.Equal(t, 0, store.Cleanup())
	assert.Equal(t, 0, store.Len())
}
