package classify

import (
	"errors"
	"fmt"
)

// ErrPoolClosed is reported by futures of tasks submitted after Close.
var ErrPoolClosed = errors.New("classification pool closed")

// Task stages reported in TaskError.
const (
	StageContent = "content"
	StageDecode  = "decode"
	StagePublish = "publish"
)

// TaskError describes a classification task that failed.
type TaskError struct {
	ExchangeID string // Exchange the payload was captured from
	Stage      string // Stage that failed ("content", "decode", "publish")
	Panicked   bool   // Whether the failure was a recovered panic
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("classification task panicked [exchange=%s, stage=%s]: %v", e.ExchangeID, e.Stage, e.Cause)
	}
	return fmt.Sprintf("classification task failed [exchange=%s, stage=%s]: %v", e.ExchangeID, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *TaskError) Unwrap() error {
	return e.Cause
}
