package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[MediaStatus][]MediaStatus{
		MediaStatusUploaded:   {MediaStatusProcessing},
		MediaStatusProcessing: {MediaStatusSafe, MediaStatusFlagged, MediaStatusFailed},
		MediaStatusSafe:       {MediaStatusReady},
		MediaStatusFlagged:    {MediaStatusReady},
		MediaStatusReady:      {},
		MediaStatusFailed:     {},
	}

	all := []MediaStatus{
		MediaStatusUploaded, MediaStatusProcessing, MediaStatusSafe,
		MediaStatusFlagged, MediaStatusReady, MediaStatusFailed,
	}

	for from, targets := range allowed {
		ok := map[MediaStatus]bool{}
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			assert.Equal(t, ok[to], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(MediaStatusUploaded, MediaStatusProcessing))
	assert.NoError(t, ValidateTransition(MediaStatusReady, MediaStatusReady), "self transition is a no-op")

	err := ValidateTransition(MediaStatusReady, MediaStatusProcessing)
	assert.Error(t, err)
	var ite *InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
	assert.Equal(t, MediaStatusReady, ite.From)
	assert.Equal(t, MediaStatusProcessing, ite.To)
}

func TestStreamable(t *testing.T) {
	assert.False(t, MediaStatusUploaded.Streamable())
	assert.False(t, MediaStatusProcessing.Streamable())
	assert.True(t, MediaStatusSafe.Streamable())
	assert.True(t, MediaStatusFlagged.Streamable())
	assert.True(t, MediaStatusReady.Streamable())
	assert.True(t, MediaStatusFailed.Streamable(), "failed records still expose the original")
}

func TestTerminal(t *testing.T) {
	assert.True(t, MediaStatusReady.Terminal())
	assert.True(t, MediaStatusFailed.Terminal())
	assert.False(t, MediaStatusSafe.Terminal())
	assert.False(t, MediaStatusProcessing.Terminal())
}

func TestPlayablePath(t *testing.T) {
	m := Media{OriginalPath: "/data/originals/a.mov"}
	assert.Equal(t, "/data/originals/a.mov", m.PlayablePath())

	m.ProcessedPath = "/data/variants/a.mp4"
	assert.Equal(t, "/data/variants/a.mp4", m.PlayablePath())
}
