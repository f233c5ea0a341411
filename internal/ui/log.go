package ui

import (
	log "log/slog"

	"voxchat/internal/chat"
	"voxchat/internal/session"
)

// Log writes the conversation to the process logger.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) MessageAppended(role chat.Role, text string) {
	l.logger.Info(speakerLabel(role)+":", "text", text)
}

func (l *Log) StatusChanged(label string, activity session.Activity) {
	l.logger.Debug("Status", "label", label, "activity", activity.String())
}

func (l *Log) ErrorShown(text string) {
	l.logger.Error(text)
}

func (l *Log) ConversationCleared() {
	l.logger.Info("──────── cleared ────────")
}
