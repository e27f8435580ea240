package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type StorageConfig struct {
	OriginalsDir  string
	VariantsDir   string
	ThumbnailsDir string
}

type MediaConfig struct {
	FFmpegPath      string
	FFprobePath     string
	MaxWidth        int
	MaxHeight       int
	Preset          string
	RateControl     string // "crf" or "bitrate"
	CRF             int
	VideoBitrate    string
	AudioBitrate    string
	ThumbnailWidth  int
	ThumbnailHeight int
	StageTimeout    time.Duration
	ReadyDelay      time.Duration
}

type ModerationConfig struct {
	SampleInterval time.Duration
	FrameWidth     int
}

type SecurityConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

type EventsConfig struct {
	Brokers []string
	Topic   string
}

type JobsConfig struct {
	ReconcileSpec string
	StaleAfter    time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Storage          StorageConfig
	Media            MediaConfig
	Moderation       ModerationConfig
	Security         SecurityConfig
	Events           EventsConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CLIPSTREAM")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	// Streaming responses can outlive a default write window by far.
	v.SetDefault("http.writetimeout", "10m")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("storage.originalsdir", "data/originals")
	v.SetDefault("storage.variantsdir", "data/variants")
	v.SetDefault("storage.thumbnailsdir", "data/thumbnails")

	v.SetDefault("media.ffmpegpath", "ffmpeg")
	v.SetDefault("media.ffprobepath", "ffprobe")
	v.SetDefault("media.maxwidth", 1280)
	v.SetDefault("media.maxheight", 720)
	v.SetDefault("media.preset", "medium")
	v.SetDefault("media.ratecontrol", "crf")
	v.SetDefault("media.crf", 23)
	v.SetDefault("media.videobitrate", "2500k")
	v.SetDefault("media.audiobitrate", "128k")
	v.SetDefault("media.thumbnailwidth", 480)
	v.SetDefault("media.thumbnailheight", 270)
	v.SetDefault("media.stagetimeout", "10m")
	v.SetDefault("media.readydelay", "3s")

	v.SetDefault("moderation.sampleinterval", "5s")
	v.SetDefault("moderation.framewidth", 320)

	v.SetDefault("security.jwtttl", "15m")

	v.SetDefault("events.topic", "media.status")

	v.SetDefault("jobs.reconcilespec", "0 * * * * *") // every minute
	v.SetDefault("jobs.staleafter", "30m")
}
