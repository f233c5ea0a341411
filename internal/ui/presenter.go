// Package ui renders session events: in the log, on the websocket bus and as
// desktop notifications.
package ui

import (
	"voxchat/internal/chat"
	"voxchat/internal/session"
)

// Multi fans every event out to each presenter in order.
type Multi []session.Presenter

func (m Multi) MessageAppended(role chat.Role, text string) {
	for _, p := range m {
		p.MessageAppended(role, text)
	}
}

func (m Multi) StatusChanged(label string, activity session.Activity) {
	for _, p := range m {
		p.StatusChanged(label, activity)
	}
}

func (m Multi) ErrorShown(text string) {
	for _, p := range m {
		p.ErrorShown(text)
	}
}

func (m Multi) ConversationCleared() {
	for _, p := range m {
		p.ConversationCleared()
	}
}

func speakerLabel(role chat.Role) string {
	if role == chat.RoleUser {
		return "You"
	}
	return "Assistant"
}
