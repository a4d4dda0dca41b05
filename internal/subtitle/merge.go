package subtitle

import (
	"slices"
	"strings"
)

// mergeState carries the in-progress entry across consecutive cues: the
// start time captured when a fresh entry began, whether the previous cue
// completed its entry, the previous cue's visible lines for duplicate
// detection, and the withheld entry of an open continuation chain.
type mergeState struct {
	pendingStart float64
	pendingEnd   float64
	pendingText  string
	prevComplete bool
	prevLines    []string
}

// Merge collapses a time-ordered cue sequence into deduplicated entries.
// Progressive re-renders (a cue repeating text the previous cue already
// showed) are dropped; cues split by continuation markers are merged into
// one entry spanning from the first fragment's start to the closing cue's
// end. Entries come out in non-decreasing start order.
//
// A stream that ends mid-chain flushes the in-progress entry as-is, even
// though it may still be fragmented. Downstream consumers rely on receiving
// a final entry for a truncated track.
func Merge(cues []Cue) []Entry {
	st := mergeState{prevComplete: true}
	entries := []Entry{}
	for _, cue := range cues {
		entries = st.step(cue, entries)
	}
	return st.finish(entries)
}

func (st *mergeState) step(cue Cue, entries []Entry) []Entry {
	lines := visibleLines(cue.Text)
	joined := strings.Join(lines, " ")

	// A single line the previous cue already showed is a progressive
	// re-render of captured text. Drop the cue without touching state.
	if len(lines) == 1 && slices.Contains(st.prevLines, lines[0]) {
		return entries
	}

	// On a fresh entry, a repeated first line is previously shown text,
	// not new content.
	if len(lines) > 1 && st.prevComplete && slices.Contains(st.prevLines, lines[0]) {
		joined = strings.Join(lines[1:], " ")
	}

	if st.prevComplete {
		st.pendingStart = cue.StartSeconds
	}

	complete := !continuesBeyond(cue.Text)
	if complete {
		entries = append(entries, Entry{
			StartSeconds: st.pendingStart,
			EndSeconds:   cue.EndSeconds,
			Text:         joined,
		})
	} else {
		st.pendingEnd = cue.EndSeconds
		st.pendingText = joined
	}

	st.prevComplete = complete
	st.prevLines = lines
	return entries
}

// finish flushes the withheld entry when the stream ended mid-chain.
func (st *mergeState) finish(entries []Entry) []Entry {
	if !st.prevComplete {
		entries = append(entries, Entry{
			StartSeconds: st.pendingStart,
			EndSeconds:   st.pendingEnd,
			Text:         st.pendingText,
		})
	}
	return entries
}

// visibleLines returns the cue's lines that carry non-whitespace content,
// untrimmed.
func visibleLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// continuesBeyond reports whether the raw cue text carries a continuation
// marker: a whitespace-only first line, or a whitespace-only tail after the
// last line break.
func continuesBeyond(raw string) bool {
	first, _, found := strings.Cut(raw, "\n")
	if found && first != "" && strings.TrimSpace(first) == "" {
		return true
	}
	if i := strings.LastIndexByte(raw, '\n'); i >= 0 {
		tail := raw[i+1:]
		if tail != "" && strings.TrimSpace(tail) == "" {
			return true
		}
	}
	return false
}
