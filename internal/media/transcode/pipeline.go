// Package transcode drives one media record through the processing
// stages: initialization, transcode, thumbnail, metadata extraction,
// sensitivity scan, finalize. Each stage owns a fixed share of the overall
// percentage and stage-internal progress is mapped linearly into that band,
// so the reported percent is monotonic and reaches 100 exactly once, at
// completion.
package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"clipstream/server/internal/config"
	"clipstream/server/internal/events"
	"clipstream/server/internal/media/ffmpeg"
	"clipstream/server/internal/media/moderation"
	"clipstream/server/internal/models"
	"clipstream/server/internal/notify"
	"clipstream/server/internal/repository"
)

// Stage weight bands, summing to 100.
const (
	initEnd        = 10
	transcodeEnd   = 40
	thumbnailEnd   = 60
	metadataEnd    = 70
	sensitivityEnd = 90
	finalizeEnd    = 100
)

type Engine interface {
	Probe(ctx context.Context, input string) (ffmpeg.ProbeInfo, error)
	Transcode(ctx context.Context, input, output string, src ffmpeg.ProbeInfo, opts ffmpeg.TranscodeOptions, onProgress func(float64)) error
	ExtractFrame(ctx context.Context, input string, at float64, width, height int, output string) error
}

type Scorer interface {
	Score(ctx context.Context, path string, onProgress func(float64)) (moderation.Result, error)
}

type ProgressFunc func(percent int, message string)

type Pipeline struct {
	repo     repository.MediaRepository
	engine   Engine
	scorer   Scorer
	producer *events.Producer
	hub      *notify.Hub
	storage  config.StorageConfig
	media    config.MediaConfig
	log      zerolog.Logger
}

func NewPipeline(
	repo repository.MediaRepository,
	engine Engine,
	scorer Scorer,
	producer *events.Producer,
	hub *notify.Hub,
	storage config.StorageConfig,
	media config.MediaConfig,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		repo:     repo,
		engine:   engine,
		scorer:   scorer,
		producer: producer,
		hub:      hub,
		storage:  storage,
		media:    media,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run processes one record to a terminal state. Any stage error marks the
// record failed, removes partial artifacts (never the original) and
// returns the error for the queue to log.
func (p *Pipeline) Run(ctx context.Context, mediaID string, onProgress func(percent int, message string)) error {
	logger := p.log.With().Str("media_id", mediaID).Logger()
	track := &tracker{onProgress: onProgress}

	m, err := p.repo.GetByID(ctx, mediaID)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}

	outPath := filepath.Join(p.storage.VariantsDir, m.ID+".mp4")
	thumbPath := filepath.Join(p.storage.ThumbnailsDir, m.ID+".jpg")

	// Stage 1: initialization. A missing original is fatal and
	// non-retriable.
	if _, err := os.Stat(m.OriginalPath); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("original file missing: %w", err))
	}

	src, err := p.engine.Probe(ctx, m.OriginalPath)
	if err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("probe original: %w", err))
	}

	from := m.Status
	if err := models.ValidateTransition(from, models.MediaStatusProcessing); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, err)
	}
	m.Status = models.MediaStatusProcessing
	m.Progress = 0
	if err := p.repo.Update(ctx, m); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("mark processing: %w", err))
	}
	p.producer.StatusChanged(ctx, m, from, models.MediaStatusProcessing)
	track.report(initEnd, "Initialized")

	// Stage 2: transcode to the normalized streaming layout.
	if err := os.MkdirAll(p.storage.VariantsDir, 0o755); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("variants dir: %w", err))
	}
	opts := ffmpeg.TranscodeOptions{
		MaxWidth:     p.media.MaxWidth,
		MaxHeight:    p.media.MaxHeight,
		Preset:       p.media.Preset,
		RateControl:  p.media.RateControl,
		CRF:          p.media.CRF,
		VideoBitrate: p.media.VideoBitrate,
		AudioBitrate: p.media.AudioBitrate,
	}
	err = p.engine.Transcode(ctx, m.OriginalPath, outPath, src, opts, func(frac float64) {
		track.band(initEnd, transcodeEnd, frac, "Transcoding")
	})
	if err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("transcode: %w", err))
	}
	track.report(transcodeEnd, "Transcode complete")

	// Stage 3: thumbnail at 10% of the re-encoded duration.
	out, err := p.engine.Probe(ctx, outPath)
	if err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("probe derivative: %w", err))
	}
	if err := os.MkdirAll(p.storage.ThumbnailsDir, 0o755); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("thumbnails dir: %w", err))
	}
	thumbAt := out.DurationSeconds * 0.1
	if err := p.engine.ExtractFrame(ctx, outPath, thumbAt, p.media.ThumbnailWidth, p.media.ThumbnailHeight, thumbPath); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("thumbnail: %w", err))
	}
	track.report(thumbnailEnd, "Thumbnail generated")

	// Stage 4: metadata, persisted immediately.
	m.DurationSeconds = int(out.DurationSeconds)
	m.Width = out.Width
	m.Height = out.Height
	m.Codec = out.VideoCodec
	m.BitRate = out.BitRate
	m.HasAudio = out.HasAudio
	if err := p.repo.Update(ctx, m); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("persist metadata: %w", err))
	}
	track.report(metadataEnd, "Metadata extracted")

	// Stage 5: sensitivity scan of the derivative.
	result, err := p.scorer.Score(ctx, outPath, func(frac float64) {
		track.band(metadataEnd, sensitivityEnd, frac, "Scanning content")
	})
	if err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("sensitivity scan: %w", err))
	}
	m.SensitivityLevel = result.Level
	m.SensitivityScore = result.Confidence
	if err := p.repo.Update(ctx, m); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("persist sensitivity: %w", err))
	}
	track.report(sensitivityEnd, "Content scan complete")

	// Stage 6: finalize.
	final := models.MediaStatusSafe
	if result.Flagged {
		final = models.MediaStatusFlagged
	}
	m.ProcessedPath = outPath
	m.ThumbnailPath = thumbPath
	m.Progress = 100
	m.Status = final
	if err := p.repo.Update(ctx, m); err != nil {
		return p.fail(ctx, logger, m, outPath, thumbPath, fmt.Errorf("finalize: %w", err))
	}
	p.producer.StatusChanged(ctx, m, models.MediaStatusProcessing, final)
	p.hub.Publish(m.OwnerID, notify.Event{
		MediaID:  m.ID,
		Progress: 100,
		Status:   final,
	})
	track.report(finalizeEnd, "Processing complete")

	logger.Info().
		Str("status", string(final)).
		Str("level", string(result.Level)).
		Int("sampled_frames", result.SampledFrames).
		Msg("pipeline finished")

	p.schedulePromotion(m, final)
	return nil
}

// schedulePromotion promotes safe/flagged to ready after a short delay.
// The write is guarded: a record that moved elsewhere in the meantime
// (e.g. a later failure) is left alone.
func (p *Pipeline) schedulePromotion(m models.Media, from models.MediaStatus) {
	delay := p.media.ReadyDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}

	time.AfterFunc(delay, func() {
		ctx := context.Background()
		promoted, err := p.repo.PromoteStatus(ctx, m.ID,
			[]models.MediaStatus{models.MediaStatusSafe, models.MediaStatusFlagged},
			models.MediaStatusReady,
		)
		if err != nil {
			p.log.Error().Err(err).Str("media_id", m.ID).Msg("ready promotion failed")
			return
		}
		if !promoted {
			return
		}
		p.producer.StatusChanged(ctx, m, from, models.MediaStatusReady)
		p.hub.Publish(m.OwnerID, notify.Event{
			MediaID:  m.ID,
			Progress: 100,
			Status:   models.MediaStatusReady,
		})
	})
}

// fail marks the record failed and removes partial artifacts. The original
// upload is never deleted.
func (p *Pipeline) fail(ctx context.Context, logger zerolog.Logger, m models.Media, outPath, thumbPath string, cause error) error {
	for _, path := range []string{outPath, thumbPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("partial artifact cleanup failed")
		}
	}

	from := m.Status
	m.Status = models.MediaStatusFailed
	if err := p.repo.Update(ctx, m); err != nil {
		logger.Error().Err(err).Msg("mark failed errored")
	}
	p.producer.StatusChanged(ctx, m, from, models.MediaStatusFailed)
	p.hub.Publish(m.OwnerID, notify.Event{
		MediaID:  m.ID,
		Progress: m.Progress,
		Status:   models.MediaStatusFailed,
	})

	return cause
}

// tracker maps stage progress into the overall percentage and keeps it
// monotonic even if a stage reports out of order.
type tracker struct {
	onProgress ProgressFunc
	last       int
}

func (t *tracker) report(percent int, message string) {
	if percent <= t.last {
		return
	}
	t.last = percent
	if t.onProgress != nil {
		t.onProgress(percent, message)
	}
}

// band maps frac in [0,1] into (start, end], holding back the band's final
// point until the stage completes via report(end, ...).
func (t *tracker) band(start, end int, frac float64, message string) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	percent := start + int(float64(end-start)*frac)
	if percent >= end {
		percent = end - 1
	}
	t.report(percent, message)
}
