package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBasicFile(t *testing.T) {
	vtt := strings.Join([]string{
		"WEBVTT",
		"",
		"00:00.000 --> 00:02.500",
		"Hello there",
		"",
		"00:02.500 --> 00:04.000",
		"General Kenobi",
		"",
	}, "\n")

	cues, err := Read(strings.NewReader(vtt))
	require.NoError(t, err)
	require.Len(t, cues, 2)

	assert.Equal(t, Cue{StartSeconds: 0.0, EndSeconds: 2.5, Text: "Hello there"}, cues[0])
	assert.Equal(t, Cue{StartSeconds: 2.5, EndSeconds: 4.0, Text: "General Kenobi"}, cues[1])
}

func TestReadPreservesContinuationLines(t *testing.T) {
	// A line holding a single space is cue text, not a block separator.
	// It is the continuation marker the merge engine depends on.
	vtt := "WEBVTT\n\n00:00.000 --> 00:02.000\nHello there\n \n\n00:02.000 --> 00:04.000\n \nHello there\nGeneral Kenobi\n"

	cues, err := Read(strings.NewReader(vtt))
	require.NoError(t, err)
	require.Len(t, cues, 2)

	assert.Equal(t, "Hello there\n ", cues[0].Text)
	assert.Equal(t, " \nHello there\nGeneral Kenobi", cues[1].Text)
}

func TestReadHoursIdentifiersAndSettings(t *testing.T) {
	vtt := strings.Join([]string{
		"WEBVTT - converted track",
		"",
		"NOTE",
		"conversion artifact, ignore",
		"",
		"intro",
		"01:02:03.400 --> 01:02:05.600 align:start position:10%",
		"Deep into the film",
		"",
	}, "\n")

	cues, err := Read(strings.NewReader(vtt))
	require.NoError(t, err)
	require.Len(t, cues, 1)

	assert.InDelta(t, 3723.4, cues[0].StartSeconds, 1e-9)
	assert.InDelta(t, 3725.6, cues[0].EndSeconds, 1e-9)
	assert.Equal(t, "Deep into the film", cues[0].Text)
}

func TestReadMultiLineCue(t *testing.T) {
	vtt := "WEBVTT\n\n00:01.000 --> 00:03.000\nfirst line\nsecond line\n"

	cues, err := Read(strings.NewReader(vtt))
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "first line\nsecond line", cues[0].Text)
}

func TestReadBadTimestamp(t *testing.T) {
	vtt := "WEBVTT\n\nnot-a-time --> 00:03.000\ntext\n"

	_, err := Read(strings.NewReader(vtt))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timestamp")
}

func TestReadEmptyFile(t *testing.T) {
	cues, err := Read(strings.NewReader("WEBVTT\n"))
	require.NoError(t, err)
	assert.Empty(t, cues)
}
