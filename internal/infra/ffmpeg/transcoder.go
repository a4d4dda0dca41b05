package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
	"github.com/clipstream/clipstream-extraction-service/internal/domain/port"
	"go.uber.org/zap"
)

// Transcoder shells out to ffmpeg/ffprobe. Frame and audio output is read
// from the engine's stdout pipe; subtitles are written to a file.
type Transcoder struct {
	ffmpegBin  string
	ffprobeBin string
	logger     *zap.Logger
}

func NewTranscoder(logger *zap.Logger) *Transcoder {
	return &Transcoder{ffmpegBin: "ffmpeg", ffprobeBin: "ffprobe", logger: logger}
}

func (t *Transcoder) Probe(ctx context.Context, sourcePath string) (port.Geometry, error) {
	cmd := exec.CommandContext(ctx, t.ffprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		sourcePath,
	)
	output, err := cmd.Output()
	if err != nil {
		return port.Geometry{}, &entity.TranscodeError{
			Modality:   entity.ModalityImage,
			Source:     sourcePath,
			Diagnostic: exitDiagnostic(err),
			Err:        fmt.Errorf("ffprobe: %w", err),
		}
	}

	dims := strings.Split(strings.TrimSpace(string(output)), "x")
	if len(dims) != 2 {
		return port.Geometry{}, &entity.TranscodeError{
			Modality:   entity.ModalityImage,
			Source:     sourcePath,
			Diagnostic: strings.TrimSpace(string(output)),
			Err:        fmt.Errorf("ffprobe: unexpected geometry output"),
		}
	}
	w, errW := strconv.Atoi(dims[0])
	h, errH := strconv.Atoi(dims[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return port.Geometry{}, &entity.TranscodeError{
			Modality:   entity.ModalityImage,
			Source:     sourcePath,
			Diagnostic: strings.TrimSpace(string(output)),
			Err:        fmt.Errorf("ffprobe: parse geometry"),
		}
	}
	return port.Geometry{Width: w, Height: h}, nil
}

func (t *Transcoder) RawFrames(ctx context.Context, sourcePath string, args entity.VideoArgs) ([]byte, error) {
	fps, err := args.EffectiveFPS()
	if err != nil {
		return nil, err
	}

	cmdArgs := []string{"-i", sourcePath, "-f", args.Format, "-pix_fmt", args.PixelFmt}
	filter := args.Filter
	if filter == "" {
		filter = fmt.Sprintf("fps=%d", fps)
	}
	cmdArgs = append(cmdArgs, "-vf", filter)
	if args.VSync != "" {
		cmdArgs = append(cmdArgs, "-fps_mode", args.VSync)
	}
	if args.FramePTS {
		cmdArgs = append(cmdArgs, "-frame_pts", "1")
	}
	if args.Size != "" {
		cmdArgs = append(cmdArgs, "-s", args.Size)
	}
	cmdArgs = append(cmdArgs, "-an", "-sn", "pipe:1")

	return t.runPipe(ctx, entity.ModalityImage, sourcePath, cmdArgs)
}

func (t *Transcoder) AudioStream(ctx context.Context, sourcePath string, args entity.AudioArgs) ([]byte, error) {
	cmdArgs := []string{
		"-i", sourcePath,
		"-f", args.Format,
		"-ab", strconv.Itoa(args.BitRate),
		"-ac", strconv.Itoa(args.Channels),
		"-ar", strconv.Itoa(args.SampleRate),
		"-vn", "-sn",
		"pipe:1",
	}
	return t.runPipe(ctx, entity.ModalityAudio, sourcePath, cmdArgs)
}

func (t *Transcoder) ExtractSubtitles(ctx context.Context, sourcePath string, destPath string, args entity.SubtitleArgs) error {
	cmd := exec.CommandContext(ctx, t.ffmpegBin,
		"-i", sourcePath,
		"-map", args.Stream,
		"-y",
		destPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &entity.TranscodeError{
			Modality:   entity.ModalityText,
			Source:     sourcePath,
			Diagnostic: tail(string(output)),
			Err:        fmt.Errorf("ffmpeg: %w", err),
		}
	}
	return nil
}

func (t *Transcoder) runPipe(ctx context.Context, modality entity.Modality, sourcePath string, cmdArgs []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.ffmpegBin, cmdArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Debug("invoking transcoder",
		zap.String("modality", string(modality)),
		zap.Strings("args", cmdArgs),
	)

	if err := cmd.Run(); err != nil {
		return nil, &entity.TranscodeError{
			Modality:   modality,
			Source:     sourcePath,
			Diagnostic: tail(stderr.String()),
			Err:        fmt.Errorf("ffmpeg: %w", err),
		}
	}
	return stdout.Bytes(), nil
}

func exitDiagnostic(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return tail(string(exitErr.Stderr))
	}
	return err.Error()
}

// tail keeps the last few lines of engine output for the diagnostic.
func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 6 {
		lines = lines[len(lines)-6:]
	}
	return strings.Join(lines, "\n")
}
