package entity

import "github.com/google/uuid"

// ItemRef is one batch member as carried on the wire. SourceURI is a local
// path, an http(s) URL, a data URI, or a bare object key in the uploads
// bucket. An empty SourceURI is logged and yields zero chunks.
type ItemRef struct {
	ID        string `json:"id"`
	SourceURI string `json:"source_uri"`
}

// ParameterOverrides are the per-call overrides recognized by the
// orchestrator, merged over the configured defaults with override-wins
// semantics.
type ParameterOverrides struct {
	Video    *VideoOverrides    `json:"video_args,omitempty"`
	Audio    *AudioOverrides    `json:"audio_args,omitempty"`
	Subtitle *SubtitleOverrides `json:"subtitle_args,omitempty"`
	Waveform *WaveformOverrides `json:"waveform_args,omitempty"`
}

// ExtractionRequestMessage is the inbound message from the media.extraction
// queue.
type ExtractionRequestMessage struct {
	JobID      uuid.UUID           `json:"job_id"`
	UserID     string              `json:"user_id"`
	UserEmail  string              `json:"user_email"`
	Items      []ItemRef           `json:"items"`
	Modalities []string            `json:"modalities,omitempty"`
	Parameters *ParameterOverrides `json:"parameters,omitempty"`
}

// ItemResult summarizes one item's extraction for the status message.
type ItemResult struct {
	ItemID      string `json:"item_id"`
	SourceURI   string `json:"source_uri"`
	ImageChunks int    `json:"image_chunks"`
	AudioChunks int    `json:"audio_chunks"`
	TextChunks  int    `json:"text_chunks"`
	ArchiveKey  string `json:"archive_key,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ExtractionStatusMessage is the outbound message published to the
// media.status queue.
type ExtractionStatusMessage struct {
	JobID        uuid.UUID    `json:"job_id"`
	UserID       string       `json:"user_id"`
	Status       JobStatus    `json:"status"`
	Items        []ItemResult `json:"items,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Attempt      int          `json:"attempt"`
	MaxAttempts  int          `json:"max_attempts"`
}
