// Package frame reshapes raw rgb24 byte streams into indexed, timestamped
// image frames.
package frame

import (
	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
)

// Frame is one decoded image: h*w*3 bytes in row-major rgb24 order, tagged
// with its 0-based decode index and timestamp index/fps.
type Frame struct {
	Index     int
	Width     int
	Height    int
	Timestamp float64
	Pixels    []byte
}

// Decode splits a raw pixel buffer into frames of the given geometry. The
// buffer length must be an exact multiple of h*w*3.
func Decode(buf []byte, width, height, fps int) ([]Frame, error) {
	frameSize := height * width * 3
	if frameSize <= 0 {
		return nil, &entity.ShapeMismatchError{ByteLen: len(buf), FrameSize: frameSize, Width: width, Height: height}
	}
	if len(buf)%frameSize != 0 {
		return nil, &entity.ShapeMismatchError{ByteLen: len(buf), FrameSize: frameSize, Width: width, Height: height}
	}

	n := len(buf) / frameSize
	frames := make([]Frame, n)
	for i := 0; i < n; i++ {
		frames[i] = Frame{
			Index:     i,
			Width:     width,
			Height:    height,
			Timestamp: float64(i) / float64(fps),
			Pixels:    buf[i*frameSize : (i+1)*frameSize : (i+1)*frameSize],
		}
	}
	return frames, nil
}
