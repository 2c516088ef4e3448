package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrExternalTool, "audio", "sidechain", "ffmpeg failed", cause)

	assert.ErrorIs(t, err, ErrExternalTool)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "external tool error: audio: sidechain: ffmpeg failed: exit status 1", err.Error())
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrNotFound, "prepare", "", "outro missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "not found: prepare: outro missing", err.Error())
}

func TestFailureStatus(t *testing.T) {
	assert.Equal(t, models.StatusCompleted, FailureStatus(nil))
	assert.Equal(t, models.StatusRejected, FailureStatus(Wrap(ErrConfiguration, "timeline", "", "bad", nil)))
	assert.Equal(t, models.StatusFailed, FailureStatus(Wrap(ErrExternalTool, "slideshow", "", "", errors.New("x"))))
	assert.Equal(t, models.StatusFailed, FailureStatus(errors.New("plain")))
}
