package chat

import (
	"strings"

	"github.com/google/uuid"
)

// Role identifies who a message belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind tags a message with its purpose at creation time, so flows never
// have to re-derive intent from text content.
type Kind string

const (
	KindPlain      Kind = "plain"
	KindQuestion   Kind = "question"
	KindAnswer     Kind = "answer"
	KindStoryboard Kind = "storyboard"
	KindVideo      Kind = "video"
)

// PendingVideoScheme prefixes a video reference that is still rendering,
// as opposed to a playable URL.
const PendingVideoScheme = "videogen://"

// Message is one turn in the conversation transcript.
type Message struct {
	ID             string   `json:"id"`
	Role           Role     `json:"role"`
	Kind           Kind     `json:"kind"`
	Text           string   `json:"text"`
	IsLoading      bool     `json:"is_loading,omitempty"`
	IsError        bool     `json:"is_error,omitempty"`
	Images         []string `json:"images,omitempty"`
	VideoURL       string   `json:"video_url,omitempty"`
	IsEditable     bool     `json:"is_editable,omitempty"`
	IsEditing      bool     `json:"is_editing,omitempty"`
	ShouldScrollTo bool     `json:"should_scroll_to,omitempty"`
}

func newMessage(role Role, kind Kind, text string) Message {
	return Message{
		ID:   uuid.NewString(),
		Role: role,
		Kind: kind,
		Text: text,
	}
}

// HasPendingVideo reports whether the message tracks a video render that
// has not resolved yet.
func (m Message) HasPendingVideo() bool {
	return strings.HasPrefix(m.VideoURL, PendingVideoScheme)
}

// PendingVideoID extracts the render id from a pending video reference.
func PendingVideoID(videoURL string) (string, bool) {
	if !strings.HasPrefix(videoURL, PendingVideoScheme) {
		return "", false
	}
	return strings.TrimPrefix(videoURL, PendingVideoScheme), true
}

// storyboardIndex returns the position of the finished storyboard
// message, or -1 if there is none.
func storyboardIndex(messages []Message) int {
	for i, msg := range messages {
		if msg.Role == RoleAssistant && msg.Kind == KindStoryboard && !msg.IsLoading && !msg.IsError {
			return i
		}
	}
	return -1
}

// videoInsertionIndex computes where a completed video message belongs:
// immediately after the storyboard, before any assistant messages that
// followed it, so repeated generations stack newest-first beneath the
// storyboard. Computed against the current list, never a cached index.
func videoInsertionIndex(messages []Message) int {
	idx := storyboardIndex(messages)
	if idx == -1 {
		return len(messages)
	}
	return idx + 1
}

// insertMessage places msg at position idx, shifting the tail right.
func insertMessage(messages []Message, idx int, msg Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	out = append(out, messages[:idx]...)
	out = append(out, msg)
	out = append(out, messages[idx:]...)
	return out
}
