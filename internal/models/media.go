package models

import "time"

type MediaStatus string

const (
	MediaStatusUploaded   MediaStatus = "uploaded"
	MediaStatusProcessing MediaStatus = "processing"
	MediaStatusSafe       MediaStatus = "safe"
	MediaStatusFlagged    MediaStatus = "flagged"
	MediaStatusReady      MediaStatus = "ready"
	MediaStatusFailed     MediaStatus = "failed"
)

// Streamable reports whether a record in this status may be served.
// A failed record still exposes whatever original file remains.
func (s MediaStatus) Streamable() bool {
	switch s {
	case MediaStatusSafe, MediaStatusFlagged, MediaStatusReady, MediaStatusFailed:
		return true
	default:
		return false
	}
}

func (s MediaStatus) Terminal() bool {
	return s == MediaStatusReady || s == MediaStatusFailed
}

type SensitivityLevel string

const (
	SensitivityLow    SensitivityLevel = "low"
	SensitivityMedium SensitivityLevel = "medium"
	SensitivityHigh   SensitivityLevel = "high"
)

type Media struct {
	ID               string
	TenantID         string
	OwnerID          string
	Title            string
	Description      string
	MimeType         string
	SizeBytes        int64
	OriginalPath     string
	ProcessedPath    string
	ThumbnailPath    string
	DurationSeconds  int
	Width            int
	Height           int
	Codec            string
	BitRate          int64
	HasAudio         bool
	SensitivityLevel SensitivityLevel
	SensitivityScore float64
	Status           MediaStatus
	Progress         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PlayablePath picks the streaming derivative when the transcode produced
// one, otherwise the original upload.
func (m Media) PlayablePath() string {
	if m.ProcessedPath != "" {
		return m.ProcessedPath
	}
	return m.OriginalPath
}

func CanTransition(from, to MediaStatus) bool {
	switch from {
	case MediaStatusUploaded:
		return to == MediaStatusProcessing
	case MediaStatusProcessing:
		return to == MediaStatusSafe || to == MediaStatusFlagged || to == MediaStatusFailed
	case MediaStatusSafe, MediaStatusFlagged:
		return to == MediaStatusReady
	default:
		return false
	}
}

func ValidateTransition(from, to MediaStatus) error {
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
