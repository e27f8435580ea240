package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type ProbeInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
	VideoCodec      string
	BitRate         int64
	FrameRate       float64
	HasAudio        bool
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// Probe extracts duration, dimensions, codec, bitrate, frame rate and
// audio presence from the container.
func (e *Engine) Probe(ctx context.Context, input string) (ProbeInfo, error) {
	ctx, cancel := e.deadline(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		input,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ProbeInfo{}, fmt.Errorf("probe timed out: %w", ctx.Err())
		}
		return ProbeInfo{}, fmt.Errorf("ffprobe: %w: %s", err, lastLine(stderr.String()))
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return ProbeInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := ProbeInfo{}
	info.DurationSeconds, _ = strconv.ParseFloat(out.Format.Duration, 64)
	info.BitRate, _ = strconv.ParseInt(out.Format.BitRate, 10, 64)

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
				info.Width = s.Width
				info.Height = s.Height
				info.FrameRate = parseFrameRate(s.AvgFrameRate)
				if info.FrameRate == 0 {
					info.FrameRate = parseFrameRate(s.RFrameRate)
				}
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if info.VideoCodec == "" {
		return ProbeInfo{}, fmt.Errorf("no video stream in %s", input)
	}
	return info, nil
}

// parseFrameRate handles ffprobe's rational "30000/1001" form.
func parseFrameRate(r string) float64 {
	if r == "" || r == "0/0" {
		return 0
	}
	parts := strings.SplitN(r, "/", 2)
	if len(parts) == 1 {
		f, _ := strconv.ParseFloat(parts[0], 64)
		return f
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
