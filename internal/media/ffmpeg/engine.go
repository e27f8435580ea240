// Package ffmpeg drives the external media engine. Every invocation runs
// under a deadline so a hung binary fails the job instead of stalling the
// queue forever.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Engine struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
	log         zerolog.Logger
}

func NewEngine(ffmpegPath, ffprobePath string, timeout time.Duration, log zerolog.Logger) *Engine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Engine{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
		log:         log.With().Str("component", "ffmpeg").Logger(),
	}
}

type TranscodeOptions struct {
	MaxWidth     int
	MaxHeight    int
	Preset       string
	RateControl  string // "crf" or "bitrate"
	CRF          int
	VideoBitrate string
	AudioBitrate string
}

// Transcode re-encodes input into a normalized streaming mp4: H.264/AAC,
// moov atom up front, downscale-only even-dimension scaling, keyframes
// roughly every second of source frame rate. onProgress receives a 0..1
// fraction parsed from the engine's progress stream.
func (e *Engine) Transcode(ctx context.Context, input, output string, src ProbeInfo, opts TranscodeOptions, onProgress func(float64)) error {
	ctx, cancel := e.deadline(ctx)
	defer cancel()

	gop := int(src.FrameRate + 0.5)
	if gop <= 0 {
		gop = 25
	}

	args := []string{
		"-y",
		"-i", input,
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-profile:v", "main",
		"-pix_fmt", "yuv420p",
		"-vf", scaleFilter(opts.MaxWidth, opts.MaxHeight),
		"-g", strconv.Itoa(gop),
		"-keyint_min", strconv.Itoa(gop),
		"-sc_threshold", "0",
	}

	if opts.RateControl == "bitrate" {
		args = append(args, "-b:v", opts.VideoBitrate, "-maxrate", opts.VideoBitrate, "-bufsize", opts.VideoBitrate)
	} else {
		args = append(args, "-crf", strconv.Itoa(opts.CRF))
	}

	args = append(args,
		"-c:a", "aac",
		"-b:a", opts.AudioBitrate,
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		output,
	)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("progress pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	e.watchProgress(stdout, src.DurationSeconds, onProgress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transcode timed out after %s: %w", e.timeout, ctx.Err())
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// ExtractFrame rasterizes a single frame at the given offset. width/height
// of zero keep the source dimensions.
func (e *Engine) ExtractFrame(ctx context.Context, input string, at float64, width, height int, output string) error {
	ctx, cancel := e.deadline(ctx)
	defer cancel()

	args := []string{
		"-y",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", input,
		"-vframes", "1",
		"-q:v", "2",
	}
	if width > 0 {
		args = append(args, "-vf", scaleFilter(width, height))
	}
	args = append(args, output)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("frame extraction timed out: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg frame: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

func (e *Engine) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) watchProgress(r io.Reader, durationSeconds float64, onProgress func(float64)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if onProgress == nil || durationSeconds <= 0 {
			continue
		}
		// -progress emits key=value lines; out_time_ms is microseconds.
		if strings.HasPrefix(line, "out_time_ms=") {
			us, err := strconv.ParseInt(strings.TrimPrefix(line, "out_time_ms="), 10, 64)
			if err != nil {
				continue
			}
			frac := (float64(us) / 1e6) / durationSeconds
			if frac < 0 {
				frac = 0
			}
			if frac > 1 {
				frac = 1
			}
			onProgress(frac)
		}
	}
}

// scaleFilter caps output at maxW x maxH preserving aspect ratio, never
// upscales, and rounds dimensions down to even numbers for yuv420p.
func scaleFilter(maxW, maxH int) string {
	return fmt.Sprintf(
		"scale='min(iw,%d)':'min(ih,%d)':force_original_aspect_ratio=decrease:force_divisible_by=2",
		maxW, maxH,
	)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}
