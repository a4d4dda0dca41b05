// Package audio decodes the transcoded WAV byte stream into a waveform.
package audio

import (
	"encoding/binary"
	"math"

	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
)

// Waveform is the decoded audio track: normalized samples in [-1, 1] and
// the effective sample rate. Multi-channel data is interleaved.
type Waveform struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Decode parses a RIFF/WAVE byte stream (PCM 16-bit little-endian, the
// transcoder's output format) and returns the waveform at args.SampleRate,
// resampling when the stream rate differs. With args.Mono the channels are
// averaged into one.
func Decode(buf []byte, args entity.WaveformArgs) (*Waveform, error) {
	if len(buf) == 0 {
		return nil, &entity.DecodeError{Reason: "empty buffer"}
	}
	rate, channels, bits, data, err := parseRIFF(buf)
	if err != nil {
		return nil, err
	}
	if bits != 16 {
		return nil, &entity.DecodeError{Reason: "unsupported bit depth"}
	}
	if channels <= 0 || rate <= 0 {
		return nil, &entity.DecodeError{Reason: "invalid format chunk"}
	}

	frames := len(data) / (2 * channels)
	samples := make([]float64, 0, frames*channels)
	for i := 0; i < frames*channels; i++ {
		s := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples = append(samples, float64(s)/32768.0)
	}

	if args.Mono && channels > 1 {
		samples = downmix(samples, channels)
		channels = 1
	}

	if args.SampleRate > 0 && args.SampleRate != rate {
		samples = resample(samples, channels, rate, args.SampleRate)
		rate = args.SampleRate
	}

	return &Waveform{Samples: samples, SampleRate: rate, Channels: channels}, nil
}

// parseRIFF walks the chunk list and returns the format and data payloads.
func parseRIFF(buf []byte) (rate, channels, bits int, data []byte, err error) {
	if len(buf) < 12 || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		return 0, 0, 0, nil, &entity.DecodeError{Reason: "not a RIFF/WAVE stream"}
	}

	off := 12
	haveFmt := false
	for off+8 <= len(buf) {
		id := string(buf[off : off+4])
		size := int(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
		body := buf[off+8:]
		if size < 0 || size > len(body) {
			// The transcoder writes size placeholders when piping; take
			// the rest of the buffer for the data chunk.
			if id == "data" {
				size = len(body)
			} else {
				return 0, 0, 0, nil, &entity.DecodeError{Reason: "truncated chunk " + id}
			}
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return 0, 0, 0, nil, &entity.DecodeError{Reason: "short fmt chunk"}
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			if format != 1 {
				return 0, 0, 0, nil, &entity.DecodeError{Reason: "unsupported WAV encoding"}
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			rate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return 0, 0, 0, nil, &entity.DecodeError{Reason: "data chunk before fmt chunk"}
			}
			return rate, channels, bits, body[:size], nil
		}
		// Chunks are word-aligned.
		off += 8 + size + size%2
	}
	return 0, 0, 0, nil, &entity.DecodeError{Reason: "no data chunk"}
}

func downmix(samples []float64, channels int) []float64 {
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// resample interpolates linearly between neighboring frames.
func resample(samples []float64, channels, from, to int) []float64 {
	frames := len(samples) / channels
	if frames == 0 || from == to {
		return samples
	}
	outFrames := int(math.Round(float64(frames) * float64(to) / float64(from)))
	if outFrames < 1 {
		outFrames = 1
	}
	out := make([]float64, outFrames*channels)
	ratio := float64(frames-1) / float64(max(outFrames-1, 1))
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		lo := int(pos)
		hi := min(lo+1, frames-1)
		frac := pos - float64(lo)
		for c := 0; c < channels; c++ {
			a := samples[lo*channels+c]
			b := samples[hi*channels+c]
			out[i*channels+c] = a + (b-a)*frac
		}
	}
	return out
}
