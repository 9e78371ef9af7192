package conversation

// Speaker identifies which side of the thread wrote a message.
type Speaker string

const (
	Self  Speaker = "self"
	Other Speaker = "other"
)

// Message is a single parsed line of a transcript.
type Message struct {
	Speaker    Speaker `json:"speaker"`
	Text       string  `json:"text"`
	Ordinal    int     `json:"ordinal"`
	Annotation string  `json:"annotation,omitempty"` // trailing "(…)" note, e.g. "(3 hours later)"
}

// Transcript is the ordered message list. Order defines recency.
type Transcript []Message

// Count returns the number of messages written by the given speaker.
func (t Transcript) Count(s Speaker) int {
	n := 0
	for _, m := range t {
		if m.Speaker == s {
			n++
		}
	}
	return n
}

// Last returns the most recent message, if any.
func (t Transcript) Last() (Message, bool) {
	if len(t) == 0 {
		return Message{}, false
	}
	return t[len(t)-1], true
}

// LastFrom returns up to n of the most recent messages by the given speaker,
// oldest first.
func (t Transcript) LastFrom(s Speaker, n int) []Message {
	if n <= 0 {
		return nil
	}
	picked := make([]Message, 0, n)
	for i := len(t) - 1; i >= 0 && len(picked) < n; i-- {
		if t[i].Speaker == s {
			picked = append(picked, t[i])
		}
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}

// Tail returns the last n messages (or the whole transcript when shorter).
func (t Transcript) Tail(n int) Transcript {
	if n <= 0 {
		return nil
	}
	if len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}
