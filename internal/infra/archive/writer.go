// Package archive packs extracted chunks into a zip: a manifest.json with
// chunk metadata plus one payload file per image/audio chunk. Subtitle text
// travels inside the manifest.
package archive

import (
	"archive/zip"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
)

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

type manifestChunk struct {
	entity.Chunk
	Payload string `json:"payload,omitempty"`
}

type manifest struct {
	ItemID    string          `json:"item_id"`
	SourceURI string          `json:"source_uri"`
	Chunks    []manifestChunk `json:"chunks"`
}

func (w *Writer) WriteArchive(ctx context.Context, item *entity.ExtractionItem, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	m := manifest{ItemID: item.ID, SourceURI: item.SourceURI}
	for _, c := range item.Chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		mc := manifestChunk{Chunk: c}
		switch c.Modality {
		case entity.ModalityImage:
			mc.Payload = fmt.Sprintf("frames/frame_%04d.rgb24", c.FrameIndex)
			if err := writePayload(zw, mc.Payload, c.Pixels); err != nil {
				return err
			}
		case entity.ModalityAudio:
			mc.Payload = "audio/waveform.f64le"
			if err := writePayload(zw, mc.Payload, waveformBytes(c.Waveform)); err != nil {
				return err
			}
		}
		m.Chunks = append(m.Chunks, mc)
	}

	mf, err := zw.Create("manifest.json")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	enc := json.NewEncoder(mf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	return nil
}

func writePayload(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func waveformBytes(samples []float64) []byte {
	buf := make([]byte, 8*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(s))
	}
	return buf
}
