// Package subtitle reconstructs clean subtitle entries from the fragmented,
// duplicated cues produced by lossy caption-format conversion.
package subtitle

// Cue is one raw caption record. Text keeps the raw cue payload verbatim:
// whitespace-only leading or trailing lines are the signal that the sentence
// continues across the cue boundary, so they must survive parsing.
type Cue struct {
	StartSeconds float64
	EndSeconds   float64
	Text         string
}

// Entry is one merged, deduplicated subtitle record. Text is a single line
// joined with spaces from the contributing cue lines.
type Entry struct {
	StartSeconds float64
	EndSeconds   float64
	Text         string
}
