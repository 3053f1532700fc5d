package chat

// User-visible transcript text. Everything the flows have to say to the
// user lands in the transcript itself, never a dialog.
const (
	textGenericError       = "Sorry, I encountered an error. Please try again."
	textStoryboardLoading  = "Generating your storyboard..."
	textStoryboardAbandon  = "Storyboard generation is taking longer than expected. Start a new story or try again later."
	textVideoLoading       = "Your video is generating..."
	textVideoReady         = "Your video is ready!"
	textVideoFailed        = "Sorry, video generation failed. Please try again."
	textResumeGreeting     = "Welcome back! Let's pick up where we left off."
	textResumeComplete     = "Welcome back! Your story interview is already complete."
)

// Event is a single state transition input. Events are produced by user
// intents and by poll callbacks; Reduce is the only thing that applies
// them.
type Event interface {
	isEvent()
}

type startBegun struct{}

type sessionStarted struct {
	sessionID      string
	greeting       string
	question       string
	questionNumber int
	totalQuestions int
}

type startFailed struct {
	err string
}

type sessionResumed struct {
	question       string
	questionNumber int
	totalQuestions int
	complete       bool
}

type answerSent struct {
	text string
	// withPlaceholder is true when this is the final answer, which gets
	// an immediate "generating storyboard" placeholder.
	withPlaceholder bool
}

type answerAccepted struct {
	reply                string
	sessionComplete      bool
	storyboard           string
	storyboardGenerating bool
	images               []string
	nextQuestion         string
	questionNumber       int
	totalQuestions       int
	hadPlaceholder       bool
}

type answerFailed struct {
	err            string
	hadPlaceholder bool
}

type storyboardReady struct {
	text string
}

type storyboardAbandoned struct{}

type videoRequested struct {
	email string
	optIn bool
}

type videoPending struct {
	ref string
}

type videoReady struct {
	url     string
	ref     string
	outcome StorageOutcome
}

type videoFailed struct {
	err string
	ref string
}

type editStarted struct {
	id string
}

type editCommitted struct {
	id   string
	text string
}

type editCancelled struct {
	id string
}

type emailStored struct {
	email string
}

type generateShown struct{}

type errorCleared struct{}

type scrollConsumed struct {
	id string
}

type resetDone struct{}

func (startBegun) isEvent()          {}
func (sessionStarted) isEvent()      {}
func (startFailed) isEvent()         {}
func (sessionResumed) isEvent()      {}
func (answerSent) isEvent()          {}
func (answerAccepted) isEvent()      {}
func (answerFailed) isEvent()        {}
func (storyboardReady) isEvent()     {}
func (storyboardAbandoned) isEvent() {}
func (videoRequested) isEvent()      {}
func (videoPending) isEvent()        {}
func (videoReady) isEvent()          {}
func (videoFailed) isEvent()         {}
func (editStarted) isEvent()         {}
func (editCommitted) isEvent()       {}
func (editCancelled) isEvent()       {}
func (emailStored) isEvent()         {}
func (generateShown) isEvent()       {}
func (errorCleared) isEvent()        {}
func (scrollConsumed) isEvent()      {}
func (resetDone) isEvent()           {}
