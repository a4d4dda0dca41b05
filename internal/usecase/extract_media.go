package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/clipstream/clipstream-extraction-service/internal/audio"
	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
	"github.com/clipstream/clipstream-extraction-service/internal/domain/port"
	"github.com/clipstream/clipstream-extraction-service/internal/frame"
	"github.com/clipstream/clipstream-extraction-service/internal/infra/metrics"
	"github.com/clipstream/clipstream-extraction-service/internal/subtitle"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ExtractMediaUseCase pulls aligned multi-modal chunks out of each item in
// an extraction batch. Items are processed one at a time, in order; a
// failing item or modality never aborts the batch in lenient mode.
type ExtractMediaUseCase struct {
	repo       port.JobRepository
	storage    port.VideoStorage
	fetcher    port.SourceFetcher
	transcoder port.Transcoder
	archiver   port.ChunkArchiver
	publisher  port.StatusPublisher
	dlq        port.DLQPublisher
	notifier   port.FailureNotifier
	logger     *zap.Logger
	cfg        ExtractMediaConfig
}

type ExtractMediaConfig struct {
	TempDir       string
	MaxRetries    int
	FallbackEmail string
	Modalities    []entity.Modality
	ErrorMode     entity.ErrorMode
	VideoArgs     entity.VideoArgs
	AudioArgs     entity.AudioArgs
	SubtitleArgs  entity.SubtitleArgs
	WaveformArgs  entity.WaveformArgs
}

func NewExtractMediaUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	fetcher port.SourceFetcher,
	transcoder port.Transcoder,
	archiver port.ChunkArchiver,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ExtractMediaConfig,
) *ExtractMediaUseCase {
	return &ExtractMediaUseCase{
		repo:       repo,
		storage:    storage,
		fetcher:    fetcher,
		transcoder: transcoder,
		archiver:   archiver,
		publisher:  publisher,
		dlq:        dlq,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

func (uc *ExtractMediaUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractMediaUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ExtractionRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.Int("job.items", len(msg.Items)),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("user_id", msg.UserID))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, len(msg.Items), uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.processBatch(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.ExtractionDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ExtractMediaUseCase) processBatch(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	modalities, err := uc.requestedModalities(msg.Modalities)
	if err != nil {
		log.Error("invalid modality selection", zap.Error(err))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "modality_error: "+err.Error())
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
		return nil
	}

	results := make([]entity.ItemResult, 0, len(msg.Items))
	archiveKeys := []string{}
	var imageTotal, audioTotal, textTotal int

	for _, ref := range msg.Items {
		itemCtx, itemSpan := tracer.Start(ctx, "extract_item")
		itemSpan.SetAttributes(attribute.String("item.id", ref.ID))

		item := &entity.ExtractionItem{ID: ref.ID, SourceURI: ref.SourceURI}
		extractErr := uc.ExtractItem(itemCtx, item, modalities, msg.Parameters)
		itemSpan.End()

		result := entity.ItemResult{
			ItemID:      item.ID,
			SourceURI:   item.SourceURI,
			ImageChunks: item.CountByModality(entity.ModalityImage),
			AudioChunks: item.CountByModality(entity.ModalityAudio),
			TextChunks:  item.CountByModality(entity.ModalityText),
		}

		if extractErr != nil {
			result.Error = extractErr.Error()
			metrics.ItemsProcessedTotal.WithLabelValues("failed").Inc()
			if uc.cfg.ErrorMode == entity.ErrorModeStrict {
				results = append(results, result)
				return uc.handleRetryableFailure(ctx, job, msg, rawMsg,
					fmt.Sprintf("extract_item %s: %s", item.ID, extractErr.Error()), log)
			}
			log.Warn("item extraction failed, continuing batch",
				zap.String("item_id", item.ID), zap.Error(extractErr))
		} else {
			metrics.ItemsProcessedTotal.WithLabelValues("completed").Inc()
		}

		if len(item.Chunks) > 0 {
			key, archiveErr := uc.archiveItem(ctx, job, msg, item, log)
			if archiveErr != nil {
				if uc.cfg.ErrorMode == entity.ErrorModeStrict {
					return uc.handleRetryableFailure(ctx, job, msg, rawMsg,
						fmt.Sprintf("archive_item %s: %s", item.ID, archiveErr.Error()), log)
				}
				log.Error("chunk archive failed", zap.String("item_id", item.ID), zap.Error(archiveErr))
				result.Error = archiveErr.Error()
			} else {
				result.ArchiveKey = key
				archiveKeys = append(archiveKeys, key)
			}
		}

		imageTotal += result.ImageChunks
		audioTotal += result.AudioChunks
		textTotal += result.TextChunks
		results = append(results, result)
	}

	job.MarkCompleted(archiveKeys, imageTotal, audioTotal, textTotal)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, results, log)

	log.Info("job completed",
		zap.Int("items", len(msg.Items)),
		zap.Int("image_chunks", imageTotal),
		zap.Int("audio_chunks", audioTotal),
		zap.Int("text_chunks", textTotal),
	)

	return nil
}

// ExtractItem runs the full extraction pass for one item, appending chunks
// in image, audio, text order. The item's temp dir is removed on every exit
// path. An item with no source reference is logged and yields zero chunks.
func (uc *ExtractMediaUseCase) ExtractItem(
	ctx context.Context,
	item *entity.ExtractionItem,
	modalities []entity.Modality,
	params *entity.ParameterOverrides,
) error {
	log := uc.logger.With(zap.String("item_id", item.ID), zap.String("source", item.SourceURI))

	if item.SourceURI == "" {
		log.Error("no source reference for item", zap.Error(&entity.SourceMissingError{ItemID: item.ID}))
		return nil
	}

	workDir, err := os.MkdirTemp(uc.cfg.TempDir, "extract-")
	if err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	sourcePath, err := uc.resolveSource(ctx, item.SourceURI, workDir)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}

	videoArgs := uc.cfg.VideoArgs
	audioArgs := uc.cfg.AudioArgs
	subtitleArgs := uc.cfg.SubtitleArgs
	waveformArgs := uc.cfg.WaveformArgs
	if params != nil {
		videoArgs = videoArgs.Merge(params.Video)
		audioArgs = audioArgs.Merge(params.Audio)
		subtitleArgs = subtitleArgs.Merge(params.Subtitle)
		waveformArgs = waveformArgs.Merge(params.Waveform)
	}

	for _, m := range orderedModalities(modalities) {
		var modErr error
		timer := time.Now()
		switch m {
		case entity.ModalityImage:
			modErr = uc.extractFrames(ctx, item, sourcePath, videoArgs, log)
		case entity.ModalityAudio:
			modErr = uc.extractAudio(ctx, item, sourcePath, audioArgs, waveformArgs, log)
		case entity.ModalityText:
			modErr = uc.extractSubtitles(ctx, item, sourcePath, workDir, subtitleArgs, log)
		}
		metrics.ExtractionDuration.WithLabelValues(string(m)).Observe(time.Since(timer).Seconds())

		if modErr != nil {
			metrics.ModalityFailuresTotal.WithLabelValues(string(m)).Inc()
			if uc.cfg.ErrorMode == entity.ErrorModeStrict {
				return modErr
			}
		}
	}

	return nil
}

func (uc *ExtractMediaUseCase) extractFrames(
	ctx context.Context,
	item *entity.ExtractionItem,
	sourcePath string,
	args entity.VideoArgs,
	log *zap.Logger,
) error {
	fps, err := args.EffectiveFPS()
	if err != nil {
		log.Error("Frame extraction failed", zap.Error(err))
		return err
	}

	width, height, err := uc.frameGeometry(ctx, sourcePath, args)
	if err != nil {
		log.Error("Frame extraction failed", zap.Error(err))
		return err
	}

	buf, err := uc.transcoder.RawFrames(ctx, sourcePath, args)
	if err != nil {
		log.Error("Frame extraction failed", zap.Error(err))
		return err
	}

	frames, err := frame.Decode(buf, width, height, fps)
	if err != nil {
		log.Error("Frame extraction failed", zap.Error(err))
		return err
	}

	for _, f := range frames {
		item.AppendChunk(entity.Chunk{
			Modality:   entity.ModalityImage,
			FrameIndex: f.Index,
			Width:      f.Width,
			Height:     f.Height,
			Timestamp:  f.Timestamp,
			Pixels:     f.Pixels,
		})
	}
	metrics.ChunksExtractedTotal.WithLabelValues(string(entity.ModalityImage)).Add(float64(len(frames)))
	log.Debug("frames extracted", zap.Int("count", len(frames)))
	return nil
}

func (uc *ExtractMediaUseCase) extractAudio(
	ctx context.Context,
	item *entity.ExtractionItem,
	sourcePath string,
	args entity.AudioArgs,
	waveformArgs entity.WaveformArgs,
	log *zap.Logger,
) error {
	buf, err := uc.transcoder.AudioStream(ctx, sourcePath, args)
	if err != nil {
		log.Error("Audio extraction failed", zap.Error(err))
		return err
	}

	wave, err := audio.Decode(buf, waveformArgs)
	if err != nil {
		log.Error("Audio extraction failed", zap.Error(err))
		return err
	}

	item.AppendChunk(entity.Chunk{
		Modality:   entity.ModalityAudio,
		Waveform:   wave.Samples,
		SampleRate: wave.SampleRate,
	})
	metrics.ChunksExtractedTotal.WithLabelValues(string(entity.ModalityAudio)).Inc()
	log.Debug("audio extracted", zap.Int("samples", len(wave.Samples)), zap.Int("sample_rate", wave.SampleRate))
	return nil
}

func (uc *ExtractMediaUseCase) extractSubtitles(
	ctx context.Context,
	item *entity.ExtractionItem,
	sourcePath string,
	workDir string,
	args entity.SubtitleArgs,
	log *zap.Logger,
) error {
	captionPath := filepath.Join(workDir, "subs.vtt")
	if err := uc.transcoder.ExtractSubtitles(ctx, sourcePath, captionPath, args); err != nil {
		log.Error("Subtitle extraction failed", zap.Error(err))
		return err
	}

	cues, err := subtitle.ReadFile(captionPath)
	if err != nil {
		log.Error("Subtitle extraction failed", zap.Error(err))
		return err
	}

	entries := subtitle.Merge(cues)
	for idx, e := range entries {
		item.AppendChunk(entity.Chunk{
			Modality:     entity.ModalityText,
			Text:         e.Text,
			StartSeconds: e.StartSeconds,
			EndSeconds:   e.EndSeconds,
			Sequence:     idx,
		})
	}
	metrics.ChunksExtractedTotal.WithLabelValues(string(entity.ModalityText)).Add(float64(len(entries)))
	log.Debug("subtitles extracted", zap.Int("cues", len(cues)), zap.Int("entries", len(entries)))
	return nil
}

// frameGeometry resolves the output geometry: an explicit "WxH" override
// wins, otherwise the probed stream dimensions are used.
func (uc *ExtractMediaUseCase) frameGeometry(ctx context.Context, sourcePath string, args entity.VideoArgs) (int, int, error) {
	if args.Size != "" {
		return parseSize(args.Size)
	}
	geo, err := uc.transcoder.Probe(ctx, sourcePath)
	if err != nil {
		return 0, 0, err
	}
	return geo.Width, geo.Height, nil
}

func parseSize(s string) (int, int, error) {
	wStr, hStr, found := strings.Cut(s, "x")
	if !found {
		return 0, 0, &entity.ConfigError{Field: "s", Reason: "geometry must be WxH"}
	}
	w, errW := strconv.Atoi(wStr)
	h, errH := strconv.Atoi(hStr)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, &entity.ConfigError{Field: "s", Reason: "geometry must be WxH"}
	}
	return w, h, nil
}

// resolveSource materializes the item's source reference into a local path:
// remote URLs and data URIs are fetched, existing local paths pass through,
// anything else is treated as an object key in the uploads bucket.
func (uc *ExtractMediaUseCase) resolveSource(ctx context.Context, uri string, workDir string) (string, error) {
	if strings.Contains(uri, "://") || strings.HasPrefix(uri, "data:") {
		return uc.fetcher.Fetch(ctx, uri, workDir)
	}
	if _, err := os.Stat(uri); err == nil {
		return uri, nil
	}
	destPath := filepath.Join(workDir, "source.mp4")
	if err := uc.storage.DownloadVideo(ctx, uri, destPath); err != nil {
		return "", fmt.Errorf("download %s: %w", uri, err)
	}
	return destPath, nil
}

func (uc *ExtractMediaUseCase) archiveItem(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	item *entity.ExtractionItem,
	log *zap.Logger,
) (string, error) {
	archiveDir, err := os.MkdirTemp(uc.cfg.TempDir, "archive-")
	if err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	defer os.RemoveAll(archiveDir)

	archivePath := filepath.Join(archiveDir, "chunks.zip")
	if err := uc.archiver.WriteArchive(ctx, item, archivePath); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}

	key := fmt.Sprintf("%s/%s/chunks_%s.zip", msg.UserID, job.ID.String(), item.ID)
	if err := uc.storage.UploadArchive(ctx, key, f, stat.Size()); err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}

	log.Debug("chunk archive uploaded", zap.String("key", key), zap.Int64("bytes", stat.Size()))
	return key, nil
}

func (uc *ExtractMediaUseCase) requestedModalities(names []string) ([]entity.Modality, error) {
	if len(names) == 0 {
		return uc.cfg.Modalities, nil
	}
	return entity.ParseModalities(names)
}

// orderedModalities enforces the image, audio, text chunk grouping order
// regardless of how the request lists them.
func orderedModalities(requested []entity.Modality) []entity.Modality {
	var out []entity.Modality
	for _, m := range []entity.Modality{entity.ModalityImage, entity.ModalityAudio, entity.ModalityText} {
		for _, r := range requested {
			if r == m {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func (uc *ExtractMediaUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, nil, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ExtractMediaUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, nil, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	recipient := msg.UserEmail
	if recipient == "" {
		recipient = uc.cfg.FallbackEmail
	}
	if recipient != "" {
		_ = uc.notifier.NotifyFailure(ctx, recipient, job.ID.String(), errMsg)
	}

	return nil
}

func (uc *ExtractMediaUseCase) publishStatus(ctx context.Context, job *entity.Job, results []entity.ItemResult, log *zap.Logger) {
	statusMsg := &entity.ExtractionStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		Items:        results,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	if err := uc.publisher.PublishStatus(ctx, statusMsg); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
