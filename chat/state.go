package chat

// DefaultTotalQuestions is the interview length assumed before the
// backend reports the real count.
const DefaultTotalQuestions = 4

// StorageOutcome describes how durably a finished video was persisted.
type StorageOutcome int

const (
	// StorageNone: the render resolved straight to a playable URL and no
	// storage call was made.
	StorageNone StorageOutcome = iota
	// StoragePersisted: the backend stored the video permanently.
	StoragePersisted
	// StorageDegraded: permanent storage failed but the link itself was
	// saved as a fallback.
	StorageDegraded
	// StorageFailed: neither storage path succeeded. The video is still
	// shown to the user.
	StorageFailed
)

// qualifier returns the user-facing suffix for a completed video message.
func (o StorageOutcome) qualifier() string {
	switch o {
	case StoragePersisted:
		return " (Saved permanently)"
	case StorageDegraded:
		return " (Note: only a link to the video could be saved)"
	case StorageFailed:
		return " (Note: the video could not be stored permanently)"
	default:
		return ""
	}
}

// State holds everything the conversation machine knows. It is treated
// as an immutable value: Reduce returns a fresh State and never mutates
// its input, so each event is one atomic transform.
type State struct {
	Messages           []Message
	CurrentQuestion    int
	TotalQuestions     int
	SessionID          string
	IsComplete         bool
	IsLoading          bool
	Err                string
	ShowGenerateButton bool
	VideoGenerated     bool
	VideoGenerating    bool
	PendingEmail       string
	EmailOptIn         bool
}

// NewState returns the empty initial state.
func NewState() State {
	return State{
		Messages:       []Message{},
		TotalQuestions: DefaultTotalQuestions,
	}
}

// clone deep-copies the state so a published snapshot cannot alias the
// machine's live message slice.
func (s State) clone() State {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	for i := range out.Messages {
		if len(out.Messages[i].Images) > 0 {
			images := make([]string, len(out.Messages[i].Images))
			copy(images, out.Messages[i].Images)
			out.Messages[i].Images = images
		}
	}
	return out
}

// CanResume reports whether a rehydrated session is still waiting to be
// picked up: a session id exists and the transcript holds at most error
// messages (a failed resume attempt leaves only those), so resuming
// again cannot discard anything the user said.
func (s State) CanResume() bool {
	if s.SessionID == "" || s.IsLoading {
		return false
	}
	for _, msg := range s.Messages {
		if !msg.IsError {
			return false
		}
	}
	return true
}

// Storyboard returns the finished storyboard message, if any.
func (s State) Storyboard() (Message, bool) {
	idx := storyboardIndex(s.Messages)
	if idx == -1 {
		return Message{}, false
	}
	return s.Messages[idx], true
}

// EditingMessage returns the message currently being edited, if any.
// At most one message is ever in that state.
func (s State) EditingMessage() (Message, bool) {
	for _, msg := range s.Messages {
		if msg.IsEditing {
			return msg, true
		}
	}
	return Message{}, false
}

// ScrollTarget returns the message carrying the one-shot scroll hint.
func (s State) ScrollTarget() (Message, bool) {
	for _, msg := range s.Messages {
		if msg.ShouldScrollTo {
			return msg, true
		}
	}
	return Message{}, false
}
