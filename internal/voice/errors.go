package voice

import (
	"errors"
	"fmt"
)

// Sentinels recorder and synthesizer backends wrap so the adapters can
// classify their failures.
var (
	ErrUnsupported      = errors.New("not supported on this system")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoSpeech         = errors.New("no speech detected")
	ErrInterrupted      = errors.New("interrupted")
)

type Reason string

const (
	ReasonUnsupported      Reason = "unsupported"
	ReasonPermissionDenied Reason = "permission-denied"
	ReasonNoSpeech         Reason = "no-speech"
	ReasonAborted          Reason = "aborted"
	ReasonOther            Reason = "other"
)

type CaptureError struct {
	Reason Reason
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture: %s", e.Reason)
	}
	return fmt.Sprintf("capture: %s: %v", e.Reason, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func classify(err error) Reason {
	switch {
	case errors.Is(err, ErrUnsupported):
		return ReasonUnsupported
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, ErrNoSpeech):
		return ReasonNoSpeech
	default:
		return ReasonOther
	}
}
