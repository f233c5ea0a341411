package voice

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"
)

// Recorder captures the samples of one utterance, mono 16 kHz float32.
// It must return promptly once ctx is cancelled.
type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

// Input turns one recorded utterance into a transcript.
type Input struct {
	rec Recorder
	tr  Transcriber

	// OnStart runs once recording is about to begin.
	OnStart func()

	mu  sync.Mutex
	cur context.Context // ctx of the capture that owns the device, if any

	// device is held for the whole capture, so a cancelled one has fully
	// unwound before the next one opens the recorder.
	device sync.Mutex
}

func NewInput(rec Recorder, tr Transcriber) *Input {
	return &Input{rec: rec, tr: tr}
}

// Supported reports whether both a recorder and a transcriber are present.
func (in *Input) Supported() bool {
	return in.rec != nil && in.tr != nil
}

// Listen captures at most one utterance. Cancelling ctx stops the capture
// and yields a CaptureError with ReasonAborted instead of a transcript.
//
// A second Listen while a live capture runs fails with ReasonOther. One
// started after the previous capture was cancelled waits for it to unwind.
func (in *Input) Listen(ctx context.Context) (string, error) {
	if !in.Supported() {
		return "", &CaptureError{Reason: ReasonUnsupported, Err: ErrUnsupported}
	}

	in.mu.Lock()
	if in.cur != nil && in.cur.Err() == nil {
		in.mu.Unlock()
		return "", &CaptureError{Reason: ReasonOther, Err: errors.New("capture already in progress")}
	}
	in.cur = ctx
	in.mu.Unlock()

	defer func() {
		in.mu.Lock()
		if in.cur == ctx {
			in.cur = nil
		}
		in.mu.Unlock()
	}()

	in.device.Lock()
	defer in.device.Unlock()

	if ctx.Err() != nil {
		return "", &CaptureError{Reason: ReasonAborted, Err: ctx.Err()}
	}

	if in.OnStart != nil {
		in.OnStart()
	}

	pcm, err := in.rec.Record(ctx)
	if ctx.Err() != nil {
		return "", &CaptureError{Reason: ReasonAborted, Err: ctx.Err()}
	}
	if err != nil {
		return "", &CaptureError{Reason: classify(err), Err: err}
	}
	if len(pcm) == 0 {
		return "", &CaptureError{Reason: ReasonNoSpeech, Err: ErrNoSpeech}
	}

	log.Debug("Recorded", "samples", len(pcm))

	text, err := in.tr.Transcribe(ctx, pcm)
	if ctx.Err() != nil {
		return "", &CaptureError{Reason: ReasonAborted, Err: ctx.Err()}
	}
	if err != nil {
		return "", &CaptureError{Reason: classify(err), Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &CaptureError{Reason: ReasonNoSpeech, Err: ErrNoSpeech}
	}

	return text, nil
}

// Wait blocks until no capture holds the recorder. Callers cancel the
// capture first; Wait only covers the unwinding.
func (in *Input) Wait() {
	in.device.Lock()
	in.device.Unlock()
}
