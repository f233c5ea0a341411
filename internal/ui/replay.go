package ui

import (
	"fmt"

	"voxchat/internal/bus"
	"voxchat/internal/chat"
	"voxchat/internal/session"
)

var activities = map[string]session.Activity{
	session.Idle.String():       session.Idle,
	session.Listening.String():  session.Listening,
	session.Processing.String(): session.Processing,
	session.Speaking.String():   session.Speaking,
}

// Replay turns a bus message published by Bus back into the presenter call
// that produced it.
func Replay(p session.Presenter, m *bus.Message) error {
	switch m.Kind {
	case bus.KindMessage:
		role := chat.Role(m.Role)
		if role != chat.RoleUser && role != chat.RoleAssistant {
			return fmt.Errorf("unknown role %q", m.Role)
		}
		p.MessageAppended(role, m.Content)
	case bus.KindStatus:
		a, ok := activities[m.Activity]
		if !ok {
			return fmt.Errorf("unknown activity %q", m.Activity)
		}
		p.StatusChanged(m.Content, a)
	case bus.KindError:
		p.ErrorShown(m.Content)
	case bus.KindClear:
		p.ConversationCleared()
	default:
		return fmt.Errorf("unknown kind %q", m.Kind)
	}

	return nil
}
