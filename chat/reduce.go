package chat

// Reduce applies one event to the state and returns the next state.
// It is pure: the input state is never mutated, user messages are never
// removed, and loading placeholders are the only replaceable slots.
func Reduce(s State, ev Event) State {
	next := s.clone()

	switch ev := ev.(type) {
	case startBegun:
		next.IsLoading = true
		next.Err = ""

	case sessionStarted:
		next.SessionID = ev.sessionID
		next.CurrentQuestion = ev.questionNumber
		if next.CurrentQuestion == 0 {
			next.CurrentQuestion = 1
		}
		if ev.totalQuestions > 0 {
			next.TotalQuestions = ev.totalQuestions
		}
		next.Messages = []Message{
			newMessage(RoleAssistant, KindPlain, ev.greeting),
			newMessage(RoleAssistant, KindQuestion, ev.question),
		}
		next.IsLoading = false
		next.Err = ""

	case startFailed:
		next.IsLoading = false
		next.Err = ev.err
		errMsg := newMessage(RoleAssistant, KindPlain, textGenericError)
		errMsg.IsError = true
		next.Messages = append(next.Messages, errMsg)

	case sessionResumed:
		if ev.totalQuestions > 0 {
			next.TotalQuestions = ev.totalQuestions
		}
		if ev.questionNumber > 0 {
			next.CurrentQuestion = ev.questionNumber
		}
		next.IsLoading = false
		next.Err = ""
		if ev.complete {
			next.IsComplete = true
			next.ShowGenerateButton = true
			next.Messages = []Message{
				newMessage(RoleAssistant, KindPlain, textResumeComplete),
			}
		} else {
			next.Messages = []Message{
				newMessage(RoleAssistant, KindPlain, textResumeGreeting),
				newMessage(RoleAssistant, KindQuestion, ev.question),
			}
		}

	case answerSent:
		next.IsLoading = true
		next.Err = ""
		next.Messages = append(next.Messages, newMessage(RoleUser, KindAnswer, ev.text))
		if ev.withPlaceholder {
			placeholder := newMessage(RoleAssistant, KindStoryboard, textStoryboardLoading)
			placeholder.IsLoading = true
			next.Messages = append(next.Messages, placeholder)
		}

	case answerAccepted:
		if ev.hadPlaceholder {
			next.Messages = removeLastLoading(next.Messages, KindStoryboard)
		}
		if ev.reply != "" {
			next.Messages = append(next.Messages, newMessage(RoleAssistant, KindPlain, ev.reply))
		}
		if ev.sessionComplete {
			next.IsComplete = true
			next.ShowGenerateButton = true
			if ev.storyboardGenerating {
				placeholder := newMessage(RoleAssistant, KindStoryboard, textStoryboardLoading)
				placeholder.IsLoading = true
				next.Messages = append(next.Messages, placeholder)
			} else if ev.storyboard != "" {
				sb := newMessage(RoleAssistant, KindStoryboard, ev.storyboard)
				sb.IsEditable = true
				sb.Images = ev.images
				next.Messages = append(next.Messages, sb)
			}
		} else {
			if ev.nextQuestion != "" {
				next.Messages = append(next.Messages, newMessage(RoleAssistant, KindQuestion, ev.nextQuestion))
			}
			if ev.questionNumber > 0 {
				next.CurrentQuestion = ev.questionNumber
			} else {
				next.CurrentQuestion++
			}
		}
		if ev.totalQuestions > 0 {
			next.TotalQuestions = ev.totalQuestions
		}
		next.IsLoading = false
		next.Err = ""

	case answerFailed:
		if ev.hadPlaceholder {
			next.Messages = removeLastLoading(next.Messages, KindStoryboard)
		}
		next.IsLoading = false
		next.Err = ev.err
		errMsg := newMessage(RoleAssistant, KindPlain, textGenericError)
		errMsg.IsError = true
		next.Messages = append(next.Messages, errMsg)

	case storyboardReady:
		// Replace the loading placeholder in place with the finished
		// storyboard, keeping its position in the transcript.
		idx := lastLoadingIndex(next.Messages, KindStoryboard)
		if idx != -1 {
			msg := next.Messages[idx]
			msg.Text = ev.text
			msg.IsLoading = false
			msg.IsEditable = true
			next.Messages[idx] = msg
			next.ShowGenerateButton = true
		}

	case storyboardAbandoned:
		idx := lastLoadingIndex(next.Messages, KindStoryboard)
		if idx != -1 {
			msg := next.Messages[idx]
			msg.Text = textStoryboardAbandon
			msg.IsLoading = false
			msg.IsError = true
			msg.Kind = KindPlain
			next.Messages[idx] = msg
		}
		next.Err = textStoryboardAbandon

	case videoRequested:
		next.VideoGenerating = true
		if ev.email != "" {
			next.PendingEmail = ev.email
		}
		next.EmailOptIn = ev.optIn
		loading := newMessage(RoleAssistant, KindVideo, textVideoLoading)
		loading.IsLoading = true
		next.Messages = append(next.Messages, loading)

	case videoPending:
		idx := lastLoadingIndex(next.Messages, KindVideo)
		if idx != -1 {
			next.Messages[idx].VideoURL = ev.ref
		}

	case videoReady:
		next.Messages = removePendingVideo(next.Messages, ev.ref)
		done := newMessage(RoleAssistant, KindVideo, textVideoReady+ev.outcome.qualifier())
		done.VideoURL = ev.url
		done.ShouldScrollTo = true
		next.Messages = insertMessage(next.Messages, videoInsertionIndex(next.Messages), done)
		next.VideoGenerated = true
		next.VideoGenerating = false

	case videoFailed:
		next.Messages = removePendingVideo(next.Messages, ev.ref)
		errMsg := newMessage(RoleAssistant, KindPlain, textVideoFailed)
		errMsg.IsError = true
		next.Messages = append(next.Messages, errMsg)
		next.ShowGenerateButton = true
		next.VideoGenerating = false
		next.Err = ev.err

	case editStarted:
		for i := range next.Messages {
			next.Messages[i].IsEditing = next.Messages[i].ID == ev.id
		}

	case editCommitted:
		for i := range next.Messages {
			if next.Messages[i].ID == ev.id {
				next.Messages[i].Text = ev.text
				next.Messages[i].IsEditing = false
			}
		}
		next.ShowGenerateButton = true

	case editCancelled:
		for i := range next.Messages {
			if next.Messages[i].ID == ev.id {
				next.Messages[i].IsEditing = false
			}
		}

	case emailStored:
		next.PendingEmail = ev.email
		next.EmailOptIn = ev.email != ""

	case generateShown:
		next.ShowGenerateButton = true

	case errorCleared:
		next.Err = ""

	case scrollConsumed:
		for i := range next.Messages {
			if next.Messages[i].ID == ev.id {
				next.Messages[i].ShouldScrollTo = false
			}
		}

	case resetDone:
		return NewState()
	}

	return next
}

// lastLoadingIndex finds the most recent loading placeholder of a kind.
func lastLoadingIndex(messages []Message, kind Kind) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsLoading && messages[i].Kind == kind {
			return i
		}
	}
	return -1
}

// removeLastLoading drops the most recent loading placeholder of a kind.
func removeLastLoading(messages []Message, kind Kind) []Message {
	idx := lastLoadingIndex(messages, kind)
	if idx == -1 {
		return messages
	}
	return append(messages[:idx], messages[idx+1:]...)
}

// removePendingVideo drops the loading message tracking a given render
// reference. Matching by reference keeps concurrent renders from
// clobbering each other's placeholders; an empty ref falls back to the
// most recent loading video message.
func removePendingVideo(messages []Message, ref string) []Message {
	if ref != "" {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].IsLoading && messages[i].VideoURL == ref {
				return append(messages[:i], messages[i+1:]...)
			}
		}
	}
	return removeLastLoading(messages, KindVideo)
}
