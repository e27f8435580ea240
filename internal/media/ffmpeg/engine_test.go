package ffmpeg

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"x/y", 0},
		{"30/0", 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, parseFrameRate(tc.in), 1e-9, "input %q", tc.in)
	}
}

func TestWatchProgress(t *testing.T) {
	stream := strings.Join([]string{
		"frame=100",
		"out_time_ms=5000000",
		"speed=2.1x",
		"out_time_ms=10000000",
		"out_time_ms=garbage",
		"out_time_ms=30000000", // overshoot clamps to 1
		"progress=end",
	}, "\n")

	e := NewEngine("", "", 0, zerolog.Nop())

	var fracs []float64
	e.watchProgress(strings.NewReader(stream), 20, func(f float64) {
		fracs = append(fracs, f)
	})

	assert.Equal(t, []float64{0.25, 0.5, 1}, fracs)
}

func TestWatchProgressNoDuration(t *testing.T) {
	e := NewEngine("", "", 0, zerolog.Nop())
	called := false
	e.watchProgress(strings.NewReader("out_time_ms=5000000\n"), 0, func(float64) {
		called = true
	})
	assert.False(t, called, "unknown duration yields no progress signal")
}

func TestScaleFilterNeverUpscales(t *testing.T) {
	got := scaleFilter(1280, 720)
	assert.Contains(t, got, "min(iw,1280)")
	assert.Contains(t, got, "min(ih,720)")
	assert.Contains(t, got, "force_divisible_by=2")
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "final error", lastLine("warning one\nwarning two\nfinal error\n"))
	assert.Equal(t, "only", lastLine("only"))
	assert.Equal(t, "", lastLine("  \n "))
}
