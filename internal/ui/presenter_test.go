package ui

import (
	"errors"
	"sync"
	"testing"
	"time"

	"voxchat/internal/bus"
	"voxchat/internal/chat"
	"voxchat/internal/session"
)

type memWriter struct {
	msgs []bus.Message
	err  error
}

func (w *memWriter) Write(m *bus.Message) error {
	w.msgs = append(w.msgs, *m)
	return w.err
}

func TestBus_PublishesEveryEvent(t *testing.T) {
	w := &memWriter{}
	var p session.Presenter = NewBus(w, "vox", "ui")

	p.StatusChanged("Listening...", session.Listening)
	p.MessageAppended(chat.RoleUser, "hi")
	p.ErrorShown("boom")
	p.ConversationCleared()

	want := []bus.Message{
		{From: "vox", To: "ui", Kind: bus.KindStatus, Activity: "listening", Content: "Listening..."},
		{From: "vox", To: "ui", Kind: bus.KindMessage, Role: "user", Content: "hi"},
		{From: "vox", To: "ui", Kind: bus.KindError, Content: "boom"},
		{From: "vox", To: "ui", Kind: bus.KindClear},
	}
	if len(w.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(w.msgs), len(want))
	}
	for i := range want {
		if w.msgs[i] != want[i] {
			t.Fatalf("message %d: got %+v want %+v", i, w.msgs[i], want[i])
		}
	}
}

func TestBus_WriteErrorIsNotFatal(t *testing.T) {
	w := &memWriter{err: errors.New("closed")}
	NewBus(w, "vox", "ui").ErrorShown("x")
	if len(w.msgs) != 1 {
		t.Fatalf("expected one attempted write")
	}
}

type countingPresenter struct{ messages, statuses, errs, clears int }

func (c *countingPresenter) MessageAppended(chat.Role, string)       { c.messages++ }
func (c *countingPresenter) StatusChanged(string, session.Activity) { c.statuses++ }
func (c *countingPresenter) ErrorShown(string)                      { c.errs++ }
func (c *countingPresenter) ConversationCleared()                   { c.clears++ }

func TestMulti_FansOut(t *testing.T) {
	a, b := &countingPresenter{}, &countingPresenter{}
	m := Multi{a, b}

	m.MessageAppended(chat.RoleAssistant, "x")
	m.StatusChanged("Ready to listen", session.Idle)
	m.ErrorShown("x")
	m.ConversationCleared()

	for i, c := range []*countingPresenter{a, b} {
		if c.messages != 1 || c.statuses != 1 || c.errs != 1 || c.clears != 1 {
			t.Fatalf("presenter %d: %+v", i, c)
		}
	}
}

func TestDesktop_OnlyListeningAndErrors(t *testing.T) {
	var (
		mu    sync.Mutex
		shown []string
	)
	d := &Desktop{notify: func(summary, body string) error {
		mu.Lock()
		shown = append(shown, summary+"|"+body)
		mu.Unlock()
		return nil
	}}

	d.StatusChanged("Processing...", session.Processing)
	d.MessageAppended(chat.RoleUser, "hi")
	d.StatusChanged("Listening...", session.Listening)
	d.ErrorShown("No speech detected. Please try again.")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(shown)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(shown) != 2 {
		t.Fatalf("expected two notifications, got %v", shown)
	}
}

type recorded struct {
	events []string
}

func (r *recorded) MessageAppended(role chat.Role, text string) {
	r.events = append(r.events, "msg:"+string(role)+":"+text)
}

func (r *recorded) StatusChanged(label string, a session.Activity) {
	r.events = append(r.events, "status:"+a.String()+":"+label)
}

func (r *recorded) ErrorShown(text string) { r.events = append(r.events, "err:"+text) }
func (r *recorded) ConversationCleared()   { r.events = append(r.events, "clear") }

func TestReplay_RoundTripsBusPresenter(t *testing.T) {
	w := &memWriter{}
	p := NewBus(w, "vox", "ui")
	p.StatusChanged("Speaking...", session.Speaking)
	p.MessageAppended(chat.RoleAssistant, "Paris.")
	p.ErrorShown("API Error: rate limited")
	p.ConversationCleared()

	var got recorded
	for i := range w.msgs {
		if err := Replay(&got, &w.msgs[i]); err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
	}

	want := []string{
		"status:speaking:Speaking...",
		"msg:assistant:Paris.",
		"err:API Error: rate limited",
		"clear",
	}
	if len(got.events) != len(want) {
		t.Fatalf("events %v", got.events)
	}
	for i := range want {
		if got.events[i] != want[i] {
			t.Fatalf("event %d: got %q want %q", i, got.events[i], want[i])
		}
	}
}

func TestReplay_RejectsUnknown(t *testing.T) {
	bad := []bus.Message{
		{Kind: "reply"},
		{Kind: bus.KindMessage, Role: "system"},
		{Kind: bus.KindStatus, Activity: "dancing"},
	}
	for _, m := range bad {
		if err := Replay(&recorded{}, &m); err == nil {
			t.Fatalf("expected error for %+v", m)
		}
	}
}
