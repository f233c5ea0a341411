package control

import (
	"path/filepath"
	"strings"
	"testing"

	"voxchat/internal/chat"
	"voxchat/internal/credential"
	"voxchat/internal/ipc"
	"voxchat/internal/session"
)

type fakeSession struct {
	calls   []string
	state   session.State
	history []chat.Message
	err     error
}

func (f *fakeSession) StartCapture() error { f.calls = append(f.calls, "start"); return f.err }
func (f *fakeSession) StopCapture() error  { f.calls = append(f.calls, "stop"); return f.err }
func (f *fakeSession) Toggle() error       { f.calls = append(f.calls, "toggle"); return f.err }
func (f *fakeSession) Clear() error        { f.calls = append(f.calls, "clear"); return f.err }

func (f *fakeSession) State() session.State    { return f.state }
func (f *fakeSession) History() []chat.Message { return f.history }

type notes []string

func (n *notes) MessageAppended(_ chat.Role, text string) { *n = append(*n, text) }

func newStore(t *testing.T) *credential.Store {
	t.Helper()
	s, err := credential.Open(filepath.Join(t.TempDir(), "credentials.yaml"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestDispatch_SessionCommands(t *testing.T) {
	cases := map[string]string{
		"trigger": "toggle",
		"listen":  "start",
		"stop":    "stop",
		"clear":   "clear",
		" Clear ": "clear",
	}

	for cmd, want := range cases {
		sess := &fakeSession{state: session.State{Activity: session.Listening}}
		d := NewDispatcher(sess, newStore(t), nil)

		r := d.Dispatch(ipc.ControlMessage{Cmd: cmd})
		if !r.OK {
			t.Fatalf("%q: not ok: %s", cmd, r.Error)
		}
		if len(sess.calls) != 1 || sess.calls[0] != want {
			t.Fatalf("%q: calls %v, want [%s]", cmd, sess.calls, want)
		}
		if r.Activity != "listening" {
			t.Fatalf("%q: activity %q", cmd, r.Activity)
		}
	}
}

func TestDispatch_SessionErrorIsReported(t *testing.T) {
	sess := &fakeSession{err: session.ErrBusy, state: session.State{Activity: session.Processing}}
	r := NewDispatcher(sess, newStore(t), nil).Dispatch(ipc.ControlMessage{Cmd: "listen"})

	if r.OK || r.Error != session.ErrBusy.Error() {
		t.Fatalf("unexpected reply %+v", r)
	}
	if r.Activity != "processing" {
		t.Fatalf("activity %q", r.Activity)
	}
}

func TestDispatch_StatusAndHistory(t *testing.T) {
	sess := &fakeSession{
		state: session.State{Activity: session.Idle, Err: true},
		history: []chat.Message{
			chat.UserMessage("hi"),
			chat.AssistantMessage("hello"),
		},
	}
	d := NewDispatcher(sess, newStore(t), nil)

	r := d.Dispatch(ipc.ControlMessage{Cmd: "status"})
	if !r.OK || r.Activity != "idle" || !r.ErrorFlag || r.Messages != 2 || r.History != nil {
		t.Fatalf("status reply %+v", r)
	}

	r = d.Dispatch(ipc.ControlMessage{Cmd: "history"})
	if len(r.History) != 2 || r.History[1].Content != "hello" {
		t.Fatalf("history reply %+v", r)
	}
	if len(sess.calls) != 0 {
		t.Fatalf("queries must not drive the session: %v", sess.calls)
	}
}

func TestDispatch_SaveKey(t *testing.T) {
	store := newStore(t)
	var shown notes
	d := NewDispatcher(&fakeSession{}, store, &shown)

	r := d.Dispatch(ipc.ControlMessage{Cmd: "key", Arg: "  sk-or-v1-abcdef123456  "})
	if !r.OK {
		t.Fatalf("save failed: %s", r.Error)
	}
	if store.Get() != "sk-or-v1-abcdef123456" {
		t.Fatalf("stored %q", store.Get())
	}
	if len(shown) != 1 || shown[0] != keySaved {
		t.Fatalf("confirmation %v", shown)
	}

	r = d.Dispatch(ipc.ControlMessage{Cmd: "settings"})
	if r.Credential != "sk-or-v1-abcd…" {
		t.Fatalf("masked %q", r.Credential)
	}
}

func TestDispatch_InvalidKeyKeepsPrevious(t *testing.T) {
	store := newStore(t)
	if err := store.Set("sk-or-v1-original"); err != nil {
		t.Fatal(err)
	}
	var shown notes
	d := NewDispatcher(&fakeSession{}, store, &shown)

	for _, bad := range []string{"", "   ", "sk-openai-123"} {
		r := d.Dispatch(ipc.ControlMessage{Cmd: "key", Arg: bad})
		if r.OK || !strings.HasPrefix(r.Error, "invalid API key") {
			t.Fatalf("%q: reply %+v", bad, r)
		}
	}
	if store.Get() != "sk-or-v1-original" {
		t.Fatalf("key replaced: %q", store.Get())
	}
	if len(shown) != 0 {
		t.Fatalf("no confirmation expected: %v", shown)
	}
}

func TestDispatch_SettingsWithoutKey(t *testing.T) {
	r := NewDispatcher(&fakeSession{}, newStore(t), nil).Dispatch(ipc.ControlMessage{Cmd: "settings"})
	if !r.OK || r.Credential != "" {
		t.Fatalf("reply %+v", r)
	}
}

func TestDispatch_Unknown(t *testing.T) {
	r := NewDispatcher(&fakeSession{}, newStore(t), nil).Dispatch(ipc.ControlMessage{Cmd: "dance"})
	if r.OK || !strings.Contains(r.Error, "dance") {
		t.Fatalf("reply %+v", r)
	}
}
