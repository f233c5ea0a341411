package ui

import (
	log "log/slog"

	"voxchat/internal/chat"
	"voxchat/internal/notify"
	"voxchat/internal/session"
)

// Desktop pops a notification when listening starts and when an error is
// shown. Everything else is too chatty for a notification.
type Desktop struct {
	notify func(summary, body string) error
}

func NewDesktop() *Desktop {
	return &Desktop{notify: notify.Desktop}
}

func (d *Desktop) MessageAppended(chat.Role, string) {}

func (d *Desktop) StatusChanged(label string, activity session.Activity) {
	if activity == session.Listening {
		d.show(label, "")
	}
}

func (d *Desktop) ErrorShown(text string) {
	d.show("Voice assistant", text)
}

func (d *Desktop) ConversationCleared() {}

func (d *Desktop) show(summary, body string) {
	// notify-send can stall on a busy session bus; keep the session loop moving
	go func() {
		if err := d.notify(summary, body); err != nil {
			log.Debug("Desktop notification failed", "err", err)
		}
	}()
}
