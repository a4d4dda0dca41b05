package entity

import (
	"regexp"
	"strconv"
)

const (
	DefaultFPS             = 1
	DefaultAudioBitRate    = 160000
	DefaultAudioChannels   = 2
	DefaultAudioSampleRate = 44100
	DefaultSubtitleStream  = "0:s:0"
)

// VideoArgs is the validated argument set for raw frame extraction. Size is
// "WxH"; empty means the probed stream geometry. FPS is the first-class
// frame rate; Filter optionally carries a raw "fps=N" filter expression for
// compatibility and, when set, is the source of truth for FPS.
type VideoArgs struct {
	Format   string `json:"format"`
	PixelFmt string `json:"pix_fmt"`
	FramePTS bool   `json:"frame_pts"`
	VSync    string `json:"vsync"`
	Size     string `json:"s"`
	FPS      int    `json:"fps"`
	Filter   string `json:"vf"`
}

type AudioArgs struct {
	Format     string `json:"format"`
	BitRate    int    `json:"ab"`
	Channels   int    `json:"ac"`
	SampleRate int    `json:"ar"`
}

type SubtitleArgs struct {
	Stream string `json:"map"`
}

// WaveformArgs controls the decode of the transcoded audio stream into a
// waveform. Mono averages all channels into one.
type WaveformArgs struct {
	SampleRate int  `json:"sr"`
	Mono       bool `json:"mono"`
}

func DefaultVideoArgs() VideoArgs {
	return VideoArgs{
		Format:   "rawvideo",
		PixelFmt: "rgb24",
		FramePTS: true,
		VSync:    "0",
		FPS:      DefaultFPS,
	}
}

func DefaultAudioArgs() AudioArgs {
	return AudioArgs{
		Format:     "wav",
		BitRate:    DefaultAudioBitRate,
		Channels:   DefaultAudioChannels,
		SampleRate: DefaultAudioSampleRate,
	}
}

func DefaultSubtitleArgs() SubtitleArgs {
	return SubtitleArgs{Stream: DefaultSubtitleStream}
}

// DefaultWaveformArgs follows the audio args: decode at the transcoded
// sample rate, downmix when the stream carries more than one channel.
func DefaultWaveformArgs(audio AudioArgs) WaveformArgs {
	return WaveformArgs{
		SampleRate: audio.SampleRate,
		Mono:       audio.Channels > 1,
	}
}

// VideoOverrides are the per-call overrides recognized for frame extraction.
// Shallow merge, override wins per key.
type VideoOverrides struct {
	Format   *string `json:"format,omitempty"`
	PixelFmt *string `json:"pix_fmt,omitempty"`
	FramePTS *bool   `json:"frame_pts,omitempty"`
	VSync    *string `json:"vsync,omitempty"`
	Size     *string `json:"s,omitempty"`
	FPS      *int    `json:"fps,omitempty"`
	Filter   *string `json:"vf,omitempty"`
}

type AudioOverrides struct {
	Format     *string `json:"format,omitempty"`
	BitRate    *int    `json:"ab,omitempty"`
	Channels   *int    `json:"ac,omitempty"`
	SampleRate *int    `json:"ar,omitempty"`
}

type SubtitleOverrides struct {
	Stream *string `json:"map,omitempty"`
}

type WaveformOverrides struct {
	SampleRate *int  `json:"sr,omitempty"`
	Mono       *bool `json:"mono,omitempty"`
}

func (a VideoArgs) Merge(ov *VideoOverrides) VideoArgs {
	if ov == nil {
		return a
	}
	if ov.Format != nil {
		a.Format = *ov.Format
	}
	if ov.PixelFmt != nil {
		a.PixelFmt = *ov.PixelFmt
	}
	if ov.FramePTS != nil {
		a.FramePTS = *ov.FramePTS
	}
	if ov.VSync != nil {
		a.VSync = *ov.VSync
	}
	if ov.Size != nil {
		a.Size = *ov.Size
	}
	if ov.FPS != nil {
		a.FPS = *ov.FPS
	}
	if ov.Filter != nil {
		a.Filter = *ov.Filter
	}
	return a
}

func (a AudioArgs) Merge(ov *AudioOverrides) AudioArgs {
	if ov == nil {
		return a
	}
	if ov.Format != nil {
		a.Format = *ov.Format
	}
	if ov.BitRate != nil {
		a.BitRate = *ov.BitRate
	}
	if ov.Channels != nil {
		a.Channels = *ov.Channels
	}
	if ov.SampleRate != nil {
		a.SampleRate = *ov.SampleRate
	}
	return a
}

func (a SubtitleArgs) Merge(ov *SubtitleOverrides) SubtitleArgs {
	if ov == nil {
		return a
	}
	if ov.Stream != nil {
		a.Stream = *ov.Stream
	}
	return a
}

func (a WaveformArgs) Merge(ov *WaveformOverrides) WaveformArgs {
	if ov == nil {
		return a
	}
	if ov.SampleRate != nil {
		a.SampleRate = *ov.SampleRate
	}
	if ov.Mono != nil {
		a.Mono = *ov.Mono
	}
	return a
}

var fpsFilterRe = regexp.MustCompile(`fps=(\d+)`)

// EffectiveFPS resolves the frame rate used for frame timestamps. A raw
// filter expression, when present, must carry an fps=N term.
func (a VideoArgs) EffectiveFPS() (int, error) {
	if a.Filter == "" {
		if a.FPS <= 0 {
			return 0, &ConfigError{Field: "fps", Reason: "frame rate must be positive"}
		}
		return a.FPS, nil
	}
	m := fpsFilterRe.FindStringSubmatch(a.Filter)
	if m == nil {
		return 0, &ConfigError{Field: "vf", Reason: "no fps= term in filter expression " + strconv.Quote(a.Filter)}
	}
	fps, err := strconv.Atoi(m[1])
	if err != nil || fps <= 0 {
		return 0, &ConfigError{Field: "vf", Reason: "invalid fps value in filter expression"}
	}
	return fps, nil
}
