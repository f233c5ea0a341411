package chat

// History is the ordered, append-only list of messages sent as the prompt on
// every turn. It is not safe for concurrent use; the session owns it.
type History struct {
	messages []Message
}

func (h *History) Append(m Message) {
	h.messages = append(h.messages, m)
}

// Messages returns a copy, so callers may hold it across turns.
func (h *History) Messages() []Message {
	copied := make([]Message, len(h.messages))
	copy(copied, h.messages)

	return copied
}

func (h *History) Len() int {
	return len(h.messages)
}

// Reset drops every message. The backing array is replaced, not truncated,
// so copies handed out earlier stay intact.
func (h *History) Reset() {
	h.messages = nil
}
