// Package control maps control-socket commands onto the running session and
// the credential store.
package control

import (
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"voxchat/internal/chat"
	"voxchat/internal/credential"
	"voxchat/internal/ipc"
	"voxchat/internal/session"
)

const keySaved = "API key saved successfully! You can now use the voice assistant."

type Session interface {
	StartCapture() error
	StopCapture() error
	Toggle() error
	Clear() error
	State() session.State
	History() []chat.Message
}

type Credentials interface {
	Get() string
	Set(value string) error
}

// Notifier receives the confirmation shown after a key is saved.
type Notifier interface {
	MessageAppended(role chat.Role, text string)
}

type Dispatcher struct {
	sess  Session
	creds Credentials
	ui    Notifier
}

func NewDispatcher(sess Session, creds Credentials, ui Notifier) *Dispatcher {
	return &Dispatcher{sess: sess, creds: creds, ui: ui}
}

// Dispatch runs one command. Every reply carries the session state as it is
// after the command.
func (d *Dispatcher) Dispatch(msg ipc.ControlMessage) ipc.ControlReply {
	cmd := strings.ToLower(strings.TrimSpace(msg.Cmd))
	log.Debug("Control command", "cmd", cmd)

	var err error
	switch cmd {
	case "trigger":
		err = d.sess.Toggle()
	case "listen":
		err = d.sess.StartCapture()
	case "stop":
		err = d.sess.StopCapture()
	case "clear":
		err = d.sess.Clear()
	case "key":
		err = d.saveKey(msg.Arg)
	case "settings":
		r := d.status()
		r.Credential = credential.Mask(d.creds.Get())
		return r
	case "status":
	case "history":
		r := d.status()
		r.History = d.sess.History()
		return r
	default:
		err = fmt.Errorf("unknown command %q", msg.Cmd)
	}

	r := d.status()
	if err != nil {
		r.OK = false
		r.Error = err.Error()
	}
	return r
}

func (d *Dispatcher) saveKey(value string) error {
	if err := d.creds.Set(value); err != nil {
		var verr *credential.ValidationError
		if !errors.As(err, &verr) {
			log.Error("Failed to save API key", "err", err)
		}
		return err
	}

	log.Info("API key saved")
	if d.ui != nil {
		d.ui.MessageAppended(chat.RoleAssistant, keySaved)
	}
	return nil
}

func (d *Dispatcher) status() ipc.ControlReply {
	st := d.sess.State()
	return ipc.ControlReply{
		OK:        true,
		Activity:  st.Activity.String(),
		ErrorFlag: st.Err,
		Messages:  len(d.sess.History()),
	}
}
