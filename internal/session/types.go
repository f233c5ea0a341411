package session

import (
	"context"
	"errors"

	"voxchat/internal/chat"
)

// Activity is what the session is doing right now. Exactly one value holds
// at any instant.
type Activity int

const (
	Idle Activity = iota
	Listening
	Processing
	Speaking
)

func (a Activity) String() string {
	switch a {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	case Speaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// State is the activity tag plus whether the last turn ended in an error.
type State struct {
	Activity Activity
	Err      bool
}

const (
	labelIdle       = "Ready to listen"
	labelListening  = "Listening..."
	labelProcessing = "Processing..."
	labelSpeaking   = "Speaking..."
	labelError      = "Error occurred"
)

var (
	ErrBusy    = errors.New("a reply is still being generated")
	ErrStopped = errors.New("session is not running")
)

// Listener captures one utterance. Cancelling ctx stops the capture.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Speaker says text and returns once playback ends or fails.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Completer produces the assistant reply for the given history.
type Completer interface {
	Complete(ctx context.Context, history []chat.Message) (string, error)
}

// Presenter renders what the session does. Methods are called from the
// session goroutine and must not call back into the Session.
type Presenter interface {
	MessageAppended(role chat.Role, text string)
	StatusChanged(label string, activity Activity)
	ErrorShown(text string)
	ConversationCleared()
}

type nopPresenter struct{}

func (nopPresenter) MessageAppended(chat.Role, string) {}
func (nopPresenter) StatusChanged(string, Activity)    {}
func (nopPresenter) ErrorShown(string)                 {}
func (nopPresenter) ConversationCleared()              {}
