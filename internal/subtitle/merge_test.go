package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEmptyStream(t *testing.T) {
	entries := Merge(nil)
	assert.Empty(t, entries)
}

func TestMergeSingleCompleteCue(t *testing.T) {
	entries := Merge([]Cue{{StartSeconds: 0.0, EndSeconds: 2.0, Text: "Hello"}})

	require.Len(t, entries, 1)
	assert.Equal(t, Entry{StartSeconds: 0.0, EndSeconds: 2.0, Text: "Hello"}, entries[0])
}

func TestMergeDuplicateSingleLineCues(t *testing.T) {
	entries := Merge([]Cue{
		{StartSeconds: 0.0, EndSeconds: 1.0, Text: "Hi"},
		{StartSeconds: 1.0, EndSeconds: 2.0, Text: "Hi"},
	})

	// The re-render is dropped entirely: the surviving entry keeps the
	// first cue's timing.
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{StartSeconds: 0.0, EndSeconds: 1.0, Text: "Hi"}, entries[0])
}

func TestMergeSplitCuePair(t *testing.T) {
	entries := Merge([]Cue{
		{StartSeconds: 0.0, EndSeconds: 2.0, Text: "Hello there\n "},
		{StartSeconds: 2.0, EndSeconds: 4.0, Text: "Hello there\nGeneral Kenobi"},
	})

	// One entry spanning the fragment's start to the closing cue's end,
	// with the repeated line appearing once.
	require.Len(t, entries, 1)
	assert.Equal(t, 0.0, entries[0].StartSeconds)
	assert.Equal(t, 4.0, entries[0].EndSeconds)
	assert.Equal(t, "Hello there General Kenobi", entries[0].Text)
}

func TestMergeRepeatedFirstLineAfterCompleteEntry(t *testing.T) {
	entries := Merge([]Cue{
		{StartSeconds: 0.0, EndSeconds: 1.5, Text: "Hello"},
		{StartSeconds: 1.5, EndSeconds: 3.0, Text: "Hello\nWorld"},
	})

	// The second cue re-shows the already-emitted line before the new one;
	// only the new content survives.
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{StartSeconds: 0.0, EndSeconds: 1.5, Text: "Hello"}, entries[0])
	assert.Equal(t, Entry{StartSeconds: 1.5, EndSeconds: 3.0, Text: "World"}, entries[1])
}

func TestMergeProgressiveTypewriterRendering(t *testing.T) {
	// Typewriter-style conversion emits the same line across adjacent cues
	// while the next one builds up.
	entries := Merge([]Cue{
		{StartSeconds: 0.0, EndSeconds: 1.0, Text: "First line"},
		{StartSeconds: 1.0, EndSeconds: 2.0, Text: "First line"},
		{StartSeconds: 2.0, EndSeconds: 3.0, Text: "First line\nSecond line"},
		{StartSeconds: 3.0, EndSeconds: 4.0, Text: "Second line"},
	})

	require.Len(t, entries, 2)
	assert.Equal(t, Entry{StartSeconds: 0.0, EndSeconds: 1.0, Text: "First line"}, entries[0])
	assert.Equal(t, Entry{StartSeconds: 2.0, EndSeconds: 3.0, Text: "Second line"}, entries[1])
}

func TestMergeLeadingContinuationMarker(t *testing.T) {
	entries := Merge([]Cue{
		{StartSeconds: 0.0, EndSeconds: 2.0, Text: " \nstill going"},
		{StartSeconds: 2.0, EndSeconds: 4.0, Text: "still going\nand done"},
	})

	require.Len(t, entries, 1)
	assert.Equal(t, 0.0, entries[0].StartSeconds)
	assert.Equal(t, 4.0, entries[0].EndSeconds)
	assert.Equal(t, "still going and done", entries[0].Text)
}

func TestMergeWhitespaceOnlyCue(t *testing.T) {
	entries := Merge([]Cue{{StartSeconds: 0.5, EndSeconds: 1.0, Text: "   "}})

	// No visible lines, but the cue is complete: an empty-text entry is
	// emitted rather than filtered.
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{StartSeconds: 0.5, EndSeconds: 1.0, Text: ""}, entries[0])
}

func TestMergeFlushesTrailingIncompleteEntry(t *testing.T) {
	entries := Merge([]Cue{
		{StartSeconds: 0.0, EndSeconds: 1.0, Text: "Complete"},
		{StartSeconds: 1.0, EndSeconds: 3.0, Text: "Truncated sentence\n "},
	})

	// A stream ending mid-chain still yields the partial entry.
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{StartSeconds: 1.0, EndSeconds: 3.0, Text: "Truncated sentence"}, entries[1])
}

func TestMergeOrderingInvariant(t *testing.T) {
	cues := []Cue{
		{StartSeconds: 0.0, EndSeconds: 1.0, Text: "one"},
		{StartSeconds: 1.0, EndSeconds: 2.0, Text: "one"},
		{StartSeconds: 2.0, EndSeconds: 3.5, Text: "two\n "},
		{StartSeconds: 3.5, EndSeconds: 5.0, Text: "two\nthree"},
		{StartSeconds: 5.0, EndSeconds: 6.0, Text: "four"},
		{StartSeconds: 6.0, EndSeconds: 7.0, Text: "four\nfive"},
	}

	entries := Merge(cues)
	require.NotEmpty(t, entries)
	for i, e := range entries {
		assert.LessOrEqual(t, e.StartSeconds, e.EndSeconds)
		if i > 0 {
			assert.GreaterOrEqual(t, e.StartSeconds, entries[i-1].StartSeconds)
		}
	}
}

func TestMergeIdempotentOverOwnOutput(t *testing.T) {
	cues := []Cue{
		{StartSeconds: 0.0, EndSeconds: 1.0, Text: "Hello"},
		{StartSeconds: 1.0, EndSeconds: 2.0, Text: "Hello"},
		{StartSeconds: 2.0, EndSeconds: 4.0, Text: "Hello\nhow are you"},
		{StartSeconds: 4.0, EndSeconds: 5.5, Text: "doing today\n "},
		{StartSeconds: 5.5, EndSeconds: 7.0, Text: "doing today\nmy friend"},
	}

	first := Merge(cues)
	require.NotEmpty(t, first)

	again := make([]Cue, len(first))
	for i, e := range first {
		again[i] = Cue{StartSeconds: e.StartSeconds, EndSeconds: e.EndSeconds, Text: e.Text}
	}

	assert.Equal(t, first, Merge(again))
}
