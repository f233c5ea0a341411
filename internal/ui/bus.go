package ui

import (
	log "log/slog"

	"voxchat/internal/bus"
	"voxchat/internal/chat"
	"voxchat/internal/session"
)

type BusWriter interface {
	Write(m *bus.Message) error
}

// Bus publishes every event to a websocket bus so a separate viewer can
// render the conversation.
type Bus struct {
	w    BusWriter
	from string
	to   string
}

func NewBus(w BusWriter, from, to string) *Bus {
	return &Bus{w: w, from: from, to: to}
}

func (b *Bus) MessageAppended(role chat.Role, text string) {
	b.send(&bus.Message{Kind: bus.KindMessage, Role: string(role), Content: text})
}

func (b *Bus) StatusChanged(label string, activity session.Activity) {
	b.send(&bus.Message{Kind: bus.KindStatus, Activity: activity.String(), Content: label})
}

func (b *Bus) ErrorShown(text string) {
	b.send(&bus.Message{Kind: bus.KindError, Content: text})
}

func (b *Bus) ConversationCleared() {
	b.send(&bus.Message{Kind: bus.KindClear})
}

func (b *Bus) send(m *bus.Message) {
	m.From = b.from
	m.To = b.to
	if err := b.w.Write(m); err != nil {
		log.Warn("Failed to publish to bus", "kind", m.Kind, "err", err)
	}
}
