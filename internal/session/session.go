package session

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"voxchat/internal/chat"
	"voxchat/internal/inference"
	"voxchat/internal/voice"
)

type op int

const (
	opStart op = iota
	opStop
	opToggle
	opClear
)

type command struct {
	op    op
	reply chan error
}

// Results of background work carry the generation they were started under;
// the loop ignores any whose generation is no longer current.
type captured struct {
	gen  uint64
	text string
	err  error
}

type replied struct {
	gen  uint64
	text string
	err  error
}

type spoken struct {
	gen uint64
	err error
}

// Session runs the listen -> complete -> speak cycle. All state changes
// happen on the goroutine executing Run.
type Session struct {
	in  Listener
	out Speaker
	llm Completer
	ui  Presenter

	events chan any
	done   chan struct{}

	// loop-owned
	ctx    context.Context
	gen    uint64
	cancel context.CancelFunc
	turn   *log.Logger

	mu      sync.RWMutex
	state   State
	history chat.History
}

func New(in Listener, out Speaker, llm Completer, ui Presenter) *Session {
	if ui == nil {
		ui = nopPresenter{}
	}

	return &Session{
		in:     in,
		out:    out,
		llm:    llm,
		ui:     ui,
		events: make(chan any, 16),
		done:   make(chan struct{}),
		turn:   log.Default(),
	}
}

// Run processes commands and adapter results until ctx is done. It must be
// called once. Any in-flight capture, request or speech is cancelled on exit.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer close(s.done)

	s.ui.StatusChanged(labelIdle, Idle)

	for {
		select {
		case <-ctx.Done():
			s.abort()
			return ctx.Err()
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

// StartCapture begins listening. While speaking, the speech is cut short.
// While a reply is being generated it fails with ErrBusy.
func (s *Session) StartCapture() error { return s.do(opStart) }

// StopCapture ends an active capture without a transcript.
func (s *Session) StopCapture() error { return s.do(opStop) }

// Toggle stops an active capture or starts a new one.
func (s *Session) Toggle() error { return s.do(opToggle) }

// Clear empties the history and returns to Idle from any state. Work still
// in flight is cancelled and its results are discarded.
func (s *Session) Clear() error { return s.do(opClear) }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Session) History() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.history.Messages()
}

func (s *Session) do(o op) error {
	reply := make(chan error, 1)

	select {
	case s.events <- command{op: o, reply: reply}:
	case <-s.done:
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrStopped
	}
}

func (s *Session) post(ev any) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) handle(ev any) {
	switch ev := ev.(type) {
	case command:
		ev.reply <- s.apply(ev.op)
	case captured:
		s.onCaptured(ev)
	case replied:
		s.onReplied(ev)
	case spoken:
		s.onSpoken(ev)
	}
}

func (s *Session) apply(o op) error {
	switch o {
	case opStart:
		return s.startCapture()
	case opStop:
		s.stopCapture()
		return nil
	case opToggle:
		if s.state.Activity == Listening {
			s.stopCapture()
			return nil
		}
		return s.startCapture()
	case opClear:
		s.clear()
		return nil
	default:
		return fmt.Errorf("unknown op %d", o)
	}
}

func (s *Session) startCapture() error {
	switch s.state.Activity {
	case Listening:
		return nil
	case Processing:
		return ErrBusy
	case Speaking:
		log.Debug("Interrupting speech to listen")
		s.abort()
	}

	s.turn = log.With("turn", uuid.NewString())

	ctx, gen := s.begin()
	s.setState(State{Activity: Listening})
	s.ui.StatusChanged(labelListening, Listening)

	go func() {
		text, err := s.in.Listen(ctx)
		s.post(captured{gen: gen, text: text, err: err})
	}()

	return nil
}

// stopCapture only cancels; the aborted capture result brings the session
// back to Idle.
func (s *Session) stopCapture() {
	if s.state.Activity != Listening || s.cancel == nil {
		return
	}
	s.cancel()
}

func (s *Session) clear() {
	s.abort()

	s.mu.Lock()
	s.history.Reset()
	s.state = State{Activity: Idle}
	s.mu.Unlock()

	log.Info("Conversation cleared")
	s.ui.ConversationCleared()
	s.ui.StatusChanged(labelIdle, Idle)
}

func (s *Session) onCaptured(ev captured) {
	if ev.gen != s.gen || s.state.Activity != Listening {
		log.Debug("Dropping stale capture result", "gen", ev.gen)
		return
	}

	if ev.err != nil {
		var cerr *voice.CaptureError
		if errors.As(ev.err, &cerr) && cerr.Reason == voice.ReasonAborted {
			s.turn.Debug("Capture stopped")
			s.idle()
			return
		}
		s.fail(ev.err)
		return
	}

	text := strings.TrimSpace(ev.text)
	if text == "" {
		s.fail(&voice.CaptureError{Reason: voice.ReasonNoSpeech, Err: voice.ErrNoSpeech})
		return
	}

	s.turn.Info("Heard", "text", text)

	s.mu.Lock()
	s.history.Append(chat.UserMessage(text))
	prompt := s.history.Messages()
	s.state = State{Activity: Processing}
	s.mu.Unlock()

	s.ui.MessageAppended(chat.RoleUser, text)
	s.ui.StatusChanged(labelProcessing, Processing)

	ctx, gen := s.begin()
	go func() {
		reply, err := s.llm.Complete(ctx, prompt)
		s.post(replied{gen: gen, text: reply, err: err})
	}()
}

func (s *Session) onReplied(ev replied) {
	if ev.gen != s.gen || s.state.Activity != Processing {
		log.Debug("Dropping stale reply", "gen", ev.gen)
		return
	}

	if ev.err != nil {
		s.fail(ev.err)
		return
	}

	s.turn.Info("Reply", "text", ev.text)

	s.mu.Lock()
	s.history.Append(chat.AssistantMessage(ev.text))
	s.state = State{Activity: Speaking}
	s.mu.Unlock()

	s.ui.MessageAppended(chat.RoleAssistant, ev.text)
	s.ui.StatusChanged(labelSpeaking, Speaking)

	ctx, gen := s.begin()
	text := ev.text
	go func() {
		err := s.out.Speak(ctx, text)
		s.post(spoken{gen: gen, err: err})
	}()
}

func (s *Session) onSpoken(ev spoken) {
	if ev.gen != s.gen || s.state.Activity != Speaking {
		log.Debug("Dropping stale speech result", "gen", ev.gen)
		return
	}

	if ev.err != nil {
		s.turn.Warn("Speech synthesis failed", "err", ev.err)
	}
	s.idle()
}

// begin cancels whatever the previous stage left running and opens a new
// generation for the next one.
func (s *Session) begin() (context.Context, uint64) {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel

	return ctx, s.gen
}

// abort cancels in-flight work and invalidates its pending result.
func (s *Session) abort() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *Session) release() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) idle() {
	s.release()
	s.setState(State{Activity: Idle})
	s.ui.StatusChanged(labelIdle, Idle)
}

func (s *Session) fail(err error) {
	s.release()
	s.turn.Warn("Turn failed", "err", err)

	s.setState(State{Activity: Idle, Err: true})
	s.ui.ErrorShown(Describe(err))
	s.ui.StatusChanged(labelError, Idle)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Describe renders a turn error as the text shown to the user.
func Describe(err error) string {
	var (
		cerr *voice.CaptureError
		aerr *inference.AuthError
		ierr *inference.InferenceError
	)

	switch {
	case errors.As(err, &cerr):
		switch cerr.Reason {
		case voice.ReasonNoSpeech:
			return "No speech detected. Please try again."
		case voice.ReasonPermissionDenied:
			return "Microphone access denied. Please enable microphone permissions."
		case voice.ReasonUnsupported:
			return "Speech recognition is not supported on this system."
		default:
			if cerr.Err != nil {
				return fmt.Sprintf("Speech recognition error: %v", cerr.Err)
			}
			return fmt.Sprintf("Speech recognition error: %s", cerr.Reason)
		}
	case errors.As(err, &aerr):
		return "Please configure your OpenRouter API key in settings."
	case errors.As(err, &ierr):
		return "API Error: " + ierr.Message
	default:
		return "Error: " + err.Error()
	}
}
