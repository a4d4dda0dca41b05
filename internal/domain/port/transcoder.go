package port

import (
	"context"

	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
)

// Geometry is the probed pixel geometry of the first video stream.
type Geometry struct {
	Width  int
	Height int
}

// Transcoder wraps the external transcoding engine. Frame and audio output
// is returned as raw bytes from the engine's stdout; subtitles are written
// to destPath as a WebVTT file.
type Transcoder interface {
	Probe(ctx context.Context, sourcePath string) (Geometry, error)
	RawFrames(ctx context.Context, sourcePath string, args entity.VideoArgs) ([]byte, error)
	AudioStream(ctx context.Context, sourcePath string, args entity.AudioArgs) ([]byte, error)
	ExtractSubtitles(ctx context.Context, sourcePath string, destPath string, args entity.SubtitleArgs) error
}
