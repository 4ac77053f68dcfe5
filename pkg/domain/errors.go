package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

var (
	ErrDialogNotFound       = fmt.Errorf("dialog %w", ErrNotFound)
	ErrModelNotFound        = fmt.Errorf("model %w", ErrNotFound)
	ErrChannelNotFound      = fmt.Errorf("channel %w", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("subscription %w", ErrNotFound)
)

var ErrEmptyMessage = errors.New("message is empty")
