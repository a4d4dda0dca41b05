package entity

import "fmt"

// SourceMissingError marks an item whose source reference is empty or absent.
// The item is skipped with zero chunks; it never fails the batch.
type SourceMissingError struct {
	ItemID string
}

func (e *SourceMissingError) Error() string {
	return fmt.Sprintf("item %s has no source reference", e.ItemID)
}

// TranscodeError wraps a non-zero exit or stream error from the external
// transcoding engine, keeping the engine diagnostic for the logs.
type TranscodeError struct {
	Modality   Modality
	Source     string
	Diagnostic string
	Err        error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s for %s: %v: %s", e.Modality, e.Source, e.Err, e.Diagnostic)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// ShapeMismatchError reports a raw frame buffer whose length is not an exact
// multiple of the expected frame geometry. Always a hard failure for the
// image modality.
type ShapeMismatchError struct {
	ByteLen   int
	FrameSize int
	Width     int
	Height    int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("buffer of %d bytes is not a multiple of frame size %d (%dx%dx3)",
		e.ByteLen, e.FrameSize, e.Width, e.Height)
}

// DecodeError reports a malformed or truncated audio byte stream.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode waveform: " + e.Reason
}

// ConfigError reports an argument set that cannot be interpreted, such as a
// frame-rate filter expression with no recoverable rate.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}
