// Package session runs one form through recognize, transform and optional
// reconciliation, and keeps the latest session per workspace.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/recognize"
	"github.com/jackzampolin/formshelf/internal/reconcile"
	"github.com/jackzampolin/formshelf/internal/record"
)

// State is a session lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateRecognizing  State = "recognizing"
	StateTransforming State = "transforming"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// next lists the legal forward transitions. Failed is reachable from any
// non-terminal state.
var next = map[State]State{
	StateIdle:         StateRecognizing,
	StateRecognizing:  StateTransforming,
	StateTransforming: StateDone,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ErrorClass names why a session failed.
type ErrorClass string

const (
	ClassNoTable          ErrorClass = "no_table_detected"
	ClassMalformed        ErrorClass = "malformed_transform_result"
	ClassStorageWrite     ErrorClass = "storage_write_failure"
	ClassUnsupportedImage ErrorClass = "unsupported_image"
	ClassInvalidRequest   ErrorClass = "invalid_request"
	ClassEngine           ErrorClass = "engine_error"
)

// Classify maps an error onto its failure class.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, recognize.ErrNoTableDetected):
		return ClassNoTable
	case errors.Is(err, recognize.ErrUnsupportedImage):
		return ClassUnsupportedImage
	case errors.Is(err, home.ErrStorageWrite):
		return ClassStorageWrite
	case errors.Is(err, record.ErrMalformed):
		return ClassMalformed
	case errors.Is(err, fields.ErrEmptySchema):
		return ClassInvalidRequest
	default:
		return ClassEngine
	}
}

// ErrIllegalTransition is returned when a session would move backwards or
// leave a terminal state.
var ErrIllegalTransition = errors.New("illegal session transition")

// Session is one upload's trip through the pipeline. Values handed out by
// the Store are copies; the Result and Recognition they point to are never
// modified after being set.
type Session struct {
	ID        string        `json:"id"`
	Workspace string        `json:"workspace"`
	State     State         `json:"state"`
	Schema    fields.Schema `json:"schema"`
	ImageName string        `json:"image_name"`

	Recognition *recognize.Result `json:"recognition,omitempty"`
	Result      *record.Result    `json:"result,omitempty"`

	MainCorrespondence  reconcile.Correspondence `json:"main_correspondence,omitempty"`
	ChildCorrespondence reconcile.Correspondence `json:"child_correspondence,omitempty"`

	ErrorClass ErrorClass `json:"error_class,omitempty"`
	Error      string     `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// transition moves the session to state to.
func (s *Session) transition(to State) error {
	if s.State.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, to)
	}
	if to != StateFailed && next[s.State] != to {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, to)
	}
	s.State = to
	if to.Terminal() {
		s.FinishedAt = time.Now()
	}
	return nil
}

// fail records err and moves to failed. No partial result is kept.
func (s *Session) fail(err error) {
	s.ErrorClass = Classify(err)
	s.Error = err.Error()
	s.Result = nil
	s.MainCorrespondence = nil
	s.ChildCorrespondence = nil
	_ = s.transition(StateFailed)
}

// Duration returns how long the session ran, or has run so far.
func (s *Session) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
