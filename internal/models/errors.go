package models

import (
	"errors"
	"fmt"
)

var (
	ErrMediaNotFound = errors.New("media not found")
	ErrConflict      = errors.New("media already exists")
	ErrNotReady      = errors.New("media is not ready for streaming")
)

type InvalidTransitionError struct {
	From MediaStatus
	To   MediaStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}
