package entity

import "fmt"

type Modality string

const (
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
	ModalityText  Modality = "text"
)

// ParseModalities validates a requested modality list. An empty list means
// all modalities.
func ParseModalities(names []string) ([]Modality, error) {
	if len(names) == 0 {
		return []Modality{ModalityImage, ModalityAudio, ModalityText}, nil
	}
	out := make([]Modality, 0, len(names))
	for _, n := range names {
		m := Modality(n)
		switch m {
		case ModalityImage, ModalityAudio, ModalityText:
			out = append(out, m)
		default:
			return nil, fmt.Errorf("unknown modality %q", n)
		}
	}
	return out, nil
}

// Chunk is one modality-tagged artifact extracted from a video. Only the
// fields of its modality are populated, mirroring the manifest layout.
type Chunk struct {
	Modality Modality `json:"modality"`

	// image
	FrameIndex int     `json:"frame_index,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Timestamp  float64 `json:"timestamp,omitempty"`
	Pixels     []byte  `json:"-"`

	// audio
	SampleRate int       `json:"sample_rate,omitempty"`
	Waveform   []float64 `json:"-"`

	// text
	Text         string  `json:"text,omitempty"`
	StartSeconds float64 `json:"beg_in_seconds,omitempty"`
	EndSeconds   float64 `json:"end_in_seconds,omitempty"`
	Sequence     int     `json:"sequence,omitempty"`
}

// ExtractionItem is one input unit of a batch: a source reference plus the
// chunks attached to it during extraction.
type ExtractionItem struct {
	ID        string  `json:"id"`
	SourceURI string  `json:"source_uri"`
	Chunks    []Chunk `json:"-"`
}

func (it *ExtractionItem) AppendChunk(c Chunk) {
	it.Chunks = append(it.Chunks, c)
}

// CountByModality reports how many chunks of the given modality the item
// carries, preserving nothing but the tally.
func (it *ExtractionItem) CountByModality(m Modality) int {
	n := 0
	for _, c := range it.Chunks {
		if c.Modality == m {
			n++
		}
	}
	return n
}
