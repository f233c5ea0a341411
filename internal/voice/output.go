package voice

import (
	"context"
	log "log/slog"
	"sync"
	"time"
)

// Synthesizer speaks text and blocks until playback ends. Cancelling ctx
// must stop playback and make Synthesize return.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) error
}

// Ducker lowers other applications' audio while the assistant talks.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, duration time.Duration) error
	UnduckOthers(ctx context.Context, duration time.Duration) error
}

const (
	duckFactor = 0.3
	duckFade   = 200 * time.Millisecond
)

// Output plays one utterance at a time. A new Speak call interrupts the
// current one instead of queueing behind it.
type Output struct {
	syn  Synthesizer
	duck Ducker

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc

	// engine is held for the whole of Synthesize, so an interrupted
	// utterance has fully unwound before the next one starts.
	engine sync.Mutex
}

// Initializer is implemented by engines that must be set up before the
// first utterance.
type Initializer interface {
	Init() error
}

// NewOutput wraps syn. An engine that fails to initialise is dropped, so the
// Output reports itself unsupported from the start.
func NewOutput(syn Synthesizer, duck Ducker) *Output {
	if i, ok := syn.(Initializer); ok {
		if err := i.Init(); err != nil {
			log.Error("Speech synthesis unavailable", "err", err)
			syn = nil
		}
	}
	return &Output{syn: syn, duck: duck}
}

func (o *Output) Supported() bool {
	return o.syn != nil
}

func (o *Output) Speak(ctx context.Context, text string) error {
	if o.syn == nil {
		return &SynthesisError{Err: ErrUnsupported}
	}

	o.Cancel()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.seq++
	id := o.seq
	o.cancel = cancel
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.seq == id {
			o.cancel = nil
		}
		o.mu.Unlock()
	}()

	o.engine.Lock()
	defer o.engine.Unlock()

	if ctx.Err() != nil {
		return &SynthesisError{Err: ErrInterrupted}
	}

	if o.duck != nil {
		if err := o.duck.DuckOthers(ctx, duckFactor, duckFade); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := o.duck.UnduckOthers(context.WithoutCancel(ctx), duckFade); err != nil {
				log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	err := o.syn.Synthesize(ctx, text)
	if ctx.Err() != nil {
		return &SynthesisError{Err: ErrInterrupted}
	}
	if err != nil {
		return &SynthesisError{Err: err}
	}

	return nil
}

// Cancel interrupts the active utterance. It does nothing when idle.
func (o *Output) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Speaking reports whether an utterance is in progress.
func (o *Output) Speaking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.cancel != nil
}
