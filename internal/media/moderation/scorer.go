// Package moderation implements the content-sensitivity heuristic: frames
// are sampled at a fixed interval, scored on brightness and skin-tone
// presence, and aggregated into a low/medium/high classification. The
// signal is deterministic for a given input; it is a heuristic classifier,
// not a content-safety model.
package moderation

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"clipstream/server/internal/media/ffmpeg"
	"clipstream/server/internal/models"
)

const (
	brightnessFloor   = 0.2
	brightnessCeiling = 0.9
	skinToneCutoff    = 0.4
	frameFlagCutoff   = 0.5
	flaggedThreshold  = 0.6
	highThreshold     = 0.8
	mediumThreshold   = 0.5
)

// Engine is the slice of the media engine the scorer needs.
type Engine interface {
	Probe(ctx context.Context, input string) (ffmpeg.ProbeInfo, error)
	ExtractFrame(ctx context.Context, input string, at float64, width, height int, output string) error
}

type Result struct {
	Flagged       bool
	Level         models.SensitivityLevel
	Confidence    float64
	SampledFrames int
	FlaggedFrames int
}

type Scorer struct {
	engine         Engine
	sampleInterval time.Duration
	frameWidth     int
	log            zerolog.Logger
}

func NewScorer(engine Engine, sampleInterval time.Duration, frameWidth int, log zerolog.Logger) *Scorer {
	if sampleInterval <= 0 {
		sampleInterval = 5 * time.Second
	}
	if frameWidth <= 0 {
		frameWidth = 320
	}
	return &Scorer{
		engine:         engine,
		sampleInterval: sampleInterval,
		frameWidth:     frameWidth,
		log:            log.With().Str("component", "moderation").Logger(),
	}
}

// Score samples one frame per interval across the whole duration, scores
// each, and aggregates. Frames that fail to extract or decode are skipped.
// Zero sampled frames yields the safe default. Temporary frame files are
// removed on every exit path.
func (s *Scorer) Score(ctx context.Context, path string, onProgress func(float64)) (Result, error) {
	info, err := s.engine.Probe(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("probe for scoring: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "clipstream-scan-*")
	if err != nil {
		return Result{}, fmt.Errorf("create scan dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	interval := s.sampleInterval.Seconds()
	var offsets []float64
	for t := 0.0; t < info.DurationSeconds; t += interval {
		offsets = append(offsets, t)
	}

	if len(offsets) == 0 {
		return safeDefault(), nil
	}

	var scores []float64
	for i, at := range offsets {
		framePath := filepath.Join(tmpDir, fmt.Sprintf("frame_%03d.jpg", i))
		score, err := s.scoreFrameFile(ctx, path, at, framePath)
		if err != nil {
			// Recoverable per frame: scoring continues with the rest.
			s.log.Warn().Err(err).Float64("offset", at).Msg("frame analysis skipped")
		} else {
			scores = append(scores, score)
		}
		if onProgress != nil {
			onProgress(float64(i+1) / float64(len(offsets)))
		}
	}

	if len(scores) == 0 {
		return safeDefault(), nil
	}

	overall, flaggedFrames := aggregate(scores)
	flagged, level := classify(overall)

	return Result{
		Flagged:       flagged,
		Level:         level,
		Confidence:    overall,
		SampledFrames: len(scores),
		FlaggedFrames: flaggedFrames,
	}, nil
}

func (s *Scorer) scoreFrameFile(ctx context.Context, input string, at float64, framePath string) (float64, error) {
	if err := s.engine.ExtractFrame(ctx, input, at, s.frameWidth, s.frameWidth, framePath); err != nil {
		return 0, err
	}

	f, err := os.Open(framePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode frame: %w", err)
	}

	brightness, skinTone := analyzeFrame(img)
	return frameScore(brightness, skinTone), nil
}

// analyzeFrame computes the mean luma in [0,1] and the fraction of pixels
// matching an RGB skin-tone rule.
func analyzeFrame(img image.Image) (brightness, skinTone float64) {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0, 0
	}

	var lumaSum float64
	var skinPixels int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			r := float64(r16 >> 8)
			g := float64(g16 >> 8)
			b := float64(b16 >> 8)

			lumaSum += (0.299*r + 0.587*g + 0.114*b) / 255

			if isSkinTone(r, g, b) {
				skinPixels++
			}
		}
	}
	return lumaSum / float64(total), float64(skinPixels) / float64(total)
}

// isSkinTone applies the classic Kovac RGB rule.
func isSkinTone(r, g, b float64) bool {
	maxC := max3(r, g, b)
	minC := min3(r, g, b)
	return r > 95 && g > 40 && b > 20 &&
		maxC-minC > 15 &&
		r-g > 15 && r > b
}

// frameScore: 0.3 when brightness leaves the acceptable band, plus
// 0.7*skinTone when skin presence passes the cutoff.
func frameScore(brightness, skinTone float64) float64 {
	score := 0.0
	if brightness < brightnessFloor || brightness > brightnessCeiling {
		score += 0.3
	}
	if skinTone > skinToneCutoff {
		score += 0.7 * skinTone
	}
	return score
}

// aggregate: mean frame score plus 0.3 times the fraction of frames scoring
// above the per-frame cutoff, capped at 1.
func aggregate(scores []float64) (overall float64, flaggedFrames int) {
	var sum float64
	for _, s := range scores {
		sum += s
		if s > frameFlagCutoff {
			flaggedFrames++
		}
	}
	overall = sum/float64(len(scores)) + 0.3*(float64(flaggedFrames)/float64(len(scores)))
	if overall > 1 {
		overall = 1
	}
	return overall, flaggedFrames
}

func classify(overall float64) (flagged bool, level models.SensitivityLevel) {
	flagged = overall > flaggedThreshold
	switch {
	case overall > highThreshold:
		level = models.SensitivityHigh
	case overall > mediumThreshold:
		level = models.SensitivityMedium
	default:
		level = models.SensitivityLow
	}
	return flagged, level
}

func safeDefault() Result {
	return Result{
		Flagged:    false,
		Level:      models.SensitivityLow,
		Confidence: 0,
	}
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
