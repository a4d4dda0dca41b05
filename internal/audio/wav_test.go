package audio

import (
	"encoding/binary"
	"testing"

	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wavBytes builds a minimal PCM16 RIFF/WAVE stream with interleaved samples.
func wavBytes(rate, channels int, samples []int16) []byte {
	dataLen := 2 * len(samples)
	buf := make([]byte, 0, 44+dataLen)

	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataLen))
	buf = append(buf, []byte("WAVE")...)

	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate*channels*2))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels*2))
	buf = binary.LittleEndian.AppendUint16(buf, 16)

	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataLen))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

func TestDecodeMonoPassthrough(t *testing.T) {
	raw := wavBytes(8000, 1, []int16{0, 16384, -16384, 32767})

	wave, err := Decode(raw, entity.WaveformArgs{SampleRate: 8000, Mono: true})
	require.NoError(t, err)

	assert.Equal(t, 8000, wave.SampleRate)
	assert.Equal(t, 1, wave.Channels)
	require.Len(t, wave.Samples, 4)
	assert.InDelta(t, 0.0, wave.Samples[0], 1e-9)
	assert.InDelta(t, 0.5, wave.Samples[1], 1e-9)
	assert.InDelta(t, -0.5, wave.Samples[2], 1e-9)
}

func TestDecodeStereoDownmix(t *testing.T) {
	// Interleaved L/R frames: (0.5, -0.5) and (0.25, 0.25).
	raw := wavBytes(44100, 2, []int16{16384, -16384, 8192, 8192})

	wave, err := Decode(raw, entity.WaveformArgs{SampleRate: 44100, Mono: true})
	require.NoError(t, err)

	assert.Equal(t, 1, wave.Channels)
	require.Len(t, wave.Samples, 2)
	assert.InDelta(t, 0.0, wave.Samples[0], 1e-9)
	assert.InDelta(t, 0.25, wave.Samples[1], 1e-9)
}

func TestDecodeKeepsChannelsWithoutMono(t *testing.T) {
	raw := wavBytes(44100, 2, []int16{16384, -16384, 8192, 8192})

	wave, err := Decode(raw, entity.WaveformArgs{SampleRate: 44100, Mono: false})
	require.NoError(t, err)

	assert.Equal(t, 2, wave.Channels)
	assert.Len(t, wave.Samples, 4)
}

func TestDecodeResamples(t *testing.T) {
	samples := make([]int16, 100)
	raw := wavBytes(8000, 1, samples)

	wave, err := Decode(raw, entity.WaveformArgs{SampleRate: 4000, Mono: true})
	require.NoError(t, err)

	assert.Equal(t, 4000, wave.SampleRate)
	assert.Len(t, wave.Samples, 50)
}

func TestDecodeEmptyBuffer(t *testing.T) {
	_, err := Decode(nil, entity.WaveformArgs{})

	var decodeErr *entity.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeMalformedStream(t *testing.T) {
	_, err := Decode([]byte("definitely not a wav stream"), entity.WaveformArgs{})

	var decodeErr *entity.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeTruncatedDataChunkIsTolerated(t *testing.T) {
	// Piped WAV output carries placeholder sizes; the decoder takes the
	// remaining bytes as the data payload.
	raw := wavBytes(8000, 1, []int16{100, 200, 300})
	binary.LittleEndian.PutUint32(raw[40:], 0xFFFFFFFF)

	wave, err := Decode(raw, entity.WaveformArgs{SampleRate: 8000, Mono: true})
	require.NoError(t, err)
	assert.Len(t, wave.Samples, 3)
}
