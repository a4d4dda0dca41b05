package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// ErrorMode selects how per-modality extraction failures are handled.
type ErrorMode string

const (
	// ErrorModeLenient logs the failure and continues with the next modality.
	ErrorModeLenient ErrorMode = "lenient"
	// ErrorModeStrict surfaces the failure to the caller, failing the item.
	ErrorModeStrict ErrorMode = "strict"
)

// Job is one extraction job over a batch of items.
type Job struct {
	ID           uuid.UUID
	UserID       string
	ItemCount    int
	ImageChunks  int
	AudioChunks  int
	TextChunks   int
	ArchiveKeys  []string
	Status       JobStatus
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewJob(userID string, itemCount, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		ItemCount:   itemCount,
		ArchiveKeys: []string{},
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(archiveKeys []string, imageChunks, audioChunks, textChunks int) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ArchiveKeys = archiveKeys
	j.ImageChunks = imageChunks
	j.AudioChunks = audioChunks
	j.TextChunks = textChunks
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
