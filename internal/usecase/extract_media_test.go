package usecase

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
	"github.com/clipstream/clipstream-extraction-service/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTranscoder struct {
	geometry  port.Geometry
	frames    []byte
	audio     []byte
	vtt       string
	framesErr error
	audioErr  error
	subsErr   error
}

func (f *fakeTranscoder) Probe(_ context.Context, _ string) (port.Geometry, error) {
	return f.geometry, nil
}

func (f *fakeTranscoder) RawFrames(_ context.Context, _ string, _ entity.VideoArgs) ([]byte, error) {
	return f.frames, f.framesErr
}

func (f *fakeTranscoder) AudioStream(_ context.Context, _ string, _ entity.AudioArgs) ([]byte, error) {
	return f.audio, f.audioErr
}

func (f *fakeTranscoder) ExtractSubtitles(_ context.Context, _ string, destPath string, _ entity.SubtitleArgs) error {
	if f.subsErr != nil {
		return f.subsErr
	}
	return os.WriteFile(destPath, []byte(f.vtt), 0644)
}

type fakeDLQ struct {
	reasons []string
}

func (f *fakeDLQ) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	f.reasons = append(f.reasons, reason)
	return nil
}

func monoWAV(rate int, samples []int16) []byte {
	dataLen := 2 * len(samples)
	buf := make([]byte, 0, 44+dataLen)
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataLen))
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate*2))
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataLen))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

func newTestUseCase(t *testing.T, tc port.Transcoder, mode entity.ErrorMode) *ExtractMediaUseCase {
	t.Helper()
	return NewExtractMediaUseCase(
		nil, nil, nil, tc, nil, nil, nil, nil,
		zap.NewNop(),
		ExtractMediaConfig{
			TempDir:      t.TempDir(),
			MaxRetries:   3,
			Modalities:   []entity.Modality{entity.ModalityImage, entity.ModalityAudio, entity.ModalityText},
			ErrorMode:    mode,
			VideoArgs:    entity.DefaultVideoArgs(),
			AudioArgs:    entity.DefaultAudioArgs(),
			SubtitleArgs: entity.DefaultSubtitleArgs(),
			WaveformArgs: entity.WaveformArgs{SampleRate: 8000, Mono: true},
		},
	)
}

func localSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("container bytes"), 0644))
	return path
}

func TestExtractItemNoSourceYieldsZeroChunks(t *testing.T) {
	uc := newTestUseCase(t, &fakeTranscoder{}, entity.ErrorModeLenient)

	item := &entity.ExtractionItem{ID: "doc-1"}
	err := uc.ExtractItem(context.Background(), item,
		[]entity.Modality{entity.ModalityImage, entity.ModalityAudio, entity.ModalityText}, nil)

	require.NoError(t, err)
	assert.Empty(t, item.Chunks)
}

func TestExtractItemAllModalities(t *testing.T) {
	tc := &fakeTranscoder{
		geometry: port.Geometry{Width: 2, Height: 2},
		frames:   make([]byte, 3*2*2*3), // 3 frames of 2x2 rgb24
		audio:    monoWAV(8000, []int16{0, 100, 200, 300}),
		vtt:      "WEBVTT\n\n00:00.000 --> 00:01.000\nHi\n\n00:01.000 --> 00:02.000\nHi\n",
	}
	uc := newTestUseCase(t, tc, entity.ErrorModeLenient)

	item := &entity.ExtractionItem{ID: "doc-1", SourceURI: localSource(t)}
	err := uc.ExtractItem(context.Background(), item,
		[]entity.Modality{entity.ModalityImage, entity.ModalityAudio, entity.ModalityText}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, item.CountByModality(entity.ModalityImage))
	assert.Equal(t, 1, item.CountByModality(entity.ModalityAudio))
	assert.Equal(t, 1, item.CountByModality(entity.ModalityText)) // deduplicated cues

	// Frame chunks carry index and timestamp at 1 fps.
	assert.Equal(t, 0, item.Chunks[0].FrameIndex)
	assert.Equal(t, 2.0, item.Chunks[2].Timestamp)

	audioChunk := item.Chunks[3]
	assert.Equal(t, entity.ModalityAudio, audioChunk.Modality)
	assert.Equal(t, 8000, audioChunk.SampleRate)
	assert.Len(t, audioChunk.Waveform, 4)

	textChunk := item.Chunks[4]
	assert.Equal(t, "Hi", textChunk.Text)
	assert.Equal(t, 0.0, textChunk.StartSeconds)
	assert.Equal(t, 1.0, textChunk.EndSeconds)
	assert.Equal(t, 0, textChunk.Sequence)
}

func TestExtractItemChunkOrderIsImageAudioText(t *testing.T) {
	tc := &fakeTranscoder{
		geometry: port.Geometry{Width: 1, Height: 1},
		frames:   make([]byte, 2*3),
		audio:    monoWAV(8000, []int16{1, 2}),
		vtt:      "WEBVTT\n\n00:00.000 --> 00:01.000\nwords\n",
	}
	uc := newTestUseCase(t, tc, entity.ErrorModeLenient)

	item := &entity.ExtractionItem{ID: "doc-1", SourceURI: localSource(t)}
	// Requested out of order; grouping order must not change.
	err := uc.ExtractItem(context.Background(), item,
		[]entity.Modality{entity.ModalityText, entity.ModalityImage, entity.ModalityAudio}, nil)
	require.NoError(t, err)

	var order []entity.Modality
	for _, c := range item.Chunks {
		order = append(order, c.Modality)
	}
	assert.Equal(t, []entity.Modality{
		entity.ModalityImage, entity.ModalityImage,
		entity.ModalityAudio,
		entity.ModalityText,
	}, order)
}

func TestExtractItemLenientContinuesPastFailedModality(t *testing.T) {
	tc := &fakeTranscoder{
		geometry: port.Geometry{Width: 1, Height: 1},
		framesErr: &entity.TranscodeError{
			Modality: entity.ModalityImage, Source: "x", Diagnostic: "no video stream",
			Err: assert.AnError,
		},
		audio: monoWAV(8000, []int16{1, 2, 3}),
		vtt:   "WEBVTT\n\n00:00.000 --> 00:01.000\nstill here\n",
	}
	uc := newTestUseCase(t, tc, entity.ErrorModeLenient)

	item := &entity.ExtractionItem{ID: "doc-1", SourceURI: localSource(t)}
	err := uc.ExtractItem(context.Background(), item,
		[]entity.Modality{entity.ModalityImage, entity.ModalityAudio, entity.ModalityText}, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, item.CountByModality(entity.ModalityImage))
	assert.Equal(t, 1, item.CountByModality(entity.ModalityAudio))
	assert.Equal(t, 1, item.CountByModality(entity.ModalityText))
}

func TestExtractItemStrictSurfacesFailure(t *testing.T) {
	tc := &fakeTranscoder{
		geometry: port.Geometry{Width: 1, Height: 1},
		framesErr: &entity.TranscodeError{
			Modality: entity.ModalityImage, Source: "x", Diagnostic: "corrupt stream",
			Err: assert.AnError,
		},
	}
	uc := newTestUseCase(t, tc, entity.ErrorModeStrict)

	item := &entity.ExtractionItem{ID: "doc-1", SourceURI: localSource(t)}
	err := uc.ExtractItem(context.Background(), item,
		[]entity.Modality{entity.ModalityImage, entity.ModalityAudio}, nil)

	var tErr *entity.TranscodeError
	require.ErrorAs(t, err, &tErr)
	assert.Empty(t, item.Chunks)
}

func TestExtractItemShapeMismatchFailsImageModality(t *testing.T) {
	tc := &fakeTranscoder{
		geometry: port.Geometry{Width: 2, Height: 2},
		frames:   make([]byte, 13), // not a multiple of 2*2*3
	}
	uc := newTestUseCase(t, tc, entity.ErrorModeStrict)

	item := &entity.ExtractionItem{ID: "doc-1", SourceURI: localSource(t)}
	err := uc.ExtractItem(context.Background(), item, []entity.Modality{entity.ModalityImage}, nil)

	var shapeErr *entity.ShapeMismatchError
	require.ErrorAs(t, err, &shapeErr)
}

func TestExtractItemParameterOverrides(t *testing.T) {
	tc := &fakeTranscoder{
		geometry: port.Geometry{Width: 10, Height: 10}, // probe must be ignored
		frames:   make([]byte, 2*2*4*3),                // 2 frames of 4x2
	}
	uc := newTestUseCase(t, tc, entity.ErrorModeLenient)

	size := "4x2"
	fps := 2
	params := &entity.ParameterOverrides{Video: &entity.VideoOverrides{Size: &size, FPS: &fps}}

	item := &entity.ExtractionItem{ID: "doc-1", SourceURI: localSource(t)}
	err := uc.ExtractItem(context.Background(), item, []entity.Modality{entity.ModalityImage}, params)
	require.NoError(t, err)

	require.Equal(t, 2, item.CountByModality(entity.ModalityImage))
	assert.Equal(t, 4, item.Chunks[0].Width)
	assert.Equal(t, 2, item.Chunks[0].Height)
	assert.Equal(t, 0.5, item.Chunks[1].Timestamp)
}

func TestExecuteMalformedMessageGoesToDLQ(t *testing.T) {
	dlq := &fakeDLQ{}
	uc := NewExtractMediaUseCase(
		nil, nil, nil, &fakeTranscoder{}, nil, nil, dlq, nil,
		zap.NewNop(),
		ExtractMediaConfig{TempDir: t.TempDir(), MaxRetries: 3, ErrorMode: entity.ErrorModeLenient},
	)

	err := uc.Execute(context.Background(), []byte(`{invalid json`))

	require.NoError(t, err)
	require.Len(t, dlq.reasons, 1)
	assert.Contains(t, dlq.reasons[0], "unmarshal_error")
}
