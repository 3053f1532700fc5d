package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storycatcher/api"
	"storycatcher/session"
)

// Backend is the slice of the Story Catcher API the machine drives.
// *api.Client satisfies it; tests substitute a fake.
type Backend interface {
	Health(ctx context.Context) error
	StartSession(ctx context.Context) (api.Session, error)
	SubmitAnswer(ctx context.Context, sessionID, answer string) (api.Session, error)
	CurrentQuestion(ctx context.Context, sessionID string) (api.Session, error)
	StoryboardStatus(ctx context.Context, sessionID string) (api.StoryboardStatus, error)
	GenerateVideoWithOutline(ctx context.Context, sessionID, email string) (string, error)
	GenerateVideoFromStoryboard(ctx context.Context, storyboard, sessionID, email string) (string, error)
	GenerateVideoFromSession(ctx context.Context, sessionID, email string) (string, error)
	CheckVideoStatus(ctx context.Context, fileID string) (api.VideoStatus, error)
	ProcessAndStoreVideo(ctx context.Context, fileID, sessionID, email string) (string, error)
	SaveVideoLink(ctx context.Context, sessionID, videoURL, email string) error
}

// Intervals holds the polling schedule. Tests shrink these.
type Intervals struct {
	// StoryboardKickoff is the delay before the first storyboard check.
	StoryboardKickoff time.Duration
	// StoryboardPoll is the cadence while the storyboard is generating.
	StoryboardPoll time.Duration
	// StoryboardBudget caps storyboard checks before giving up.
	StoryboardBudget int
	// VideoKickoff is the delay before the first video status check.
	VideoKickoff time.Duration
	// VideoPoll is the cadence while the render is still processing.
	VideoPoll time.Duration
	// VideoNotReady is the cadence after a not-ready or failed response.
	VideoNotReady time.Duration
	// VideoError is the cadence after a transport error.
	VideoError time.Duration
	// VideoDeadline caps the total wait for one render before giving up.
	VideoDeadline time.Duration
}

// DefaultIntervals returns the production polling schedule.
func DefaultIntervals() Intervals {
	return Intervals{
		StoryboardKickoff: 1 * time.Second,
		StoryboardPoll:    2 * time.Second,
		StoryboardBudget:  150,
		VideoKickoff:      5 * time.Second,
		VideoPoll:         10 * time.Second,
		VideoNotReady:     15 * time.Second,
		VideoError:        20 * time.Second,
		VideoDeadline:     30 * time.Minute,
	}
}

// Machine owns the conversation state and coordinates every flow:
// question/answer turns, storyboard polling, video generation and its
// status polling, editing, and local persistence of progress.
//
// All mutations funnel through Reduce under a mutex, so each network or
// timer result lands as one atomic transform of the latest state.
// Background polls capture an epoch counter when they start; ResetSession
// bumps the epoch, turning any still-scheduled callback from a previous
// session into a no-op.
type Machine struct {
	backend   Backend
	store     session.Store
	intervals Intervals
	log       zerolog.Logger

	mu    sync.Mutex
	state State
	epoch uint64

	updates chan State
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMachine creates a machine, rehydrating session id and question
// progress from the store if a usable snapshot is persisted.
func NewMachine(backend Backend, store session.Store, intervals Intervals, log zerolog.Logger) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		backend:   backend,
		store:     store,
		intervals: intervals,
		log:       log,
		state:     NewState(),
		updates:   make(chan State, 1),
		ctx:       ctx,
		cancel:    cancel,
	}

	if snap, ok := store.Load(); ok {
		m.state.SessionID = snap.SessionID
		m.state.CurrentQuestion = snap.CurrentQuestion
		m.log.Info().Str("session_id", snap.SessionID).Int("question", snap.CurrentQuestion).
			Msg("rehydrated persisted session")
	}

	return m
}

// Updates delivers state snapshots after each applied event. The channel
// holds only the latest snapshot; slow consumers see the newest state,
// not every intermediate one.
func (m *Machine) Updates() <-chan State {
	return m.updates
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Close stops all background polling. In-flight callbacks become no-ops.
func (m *Machine) Close() {
	m.cancel()
	m.wg.Wait()
}

// currentEpoch reads the epoch a new flow should stamp its events with.
func (m *Machine) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// apply runs one event through the reducer, unless the event is stale.
func (m *Machine) apply(epoch uint64, ev Event) {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		m.log.Debug().Uint64("event_epoch", epoch).Uint64("epoch", m.epoch).
			Msg("discarding stale event")
		return
	}
	m.state = Reduce(m.state, ev)
	snap := m.state.clone()
	m.mu.Unlock()

	if snap.SessionID != "" {
		if err := m.store.Save(session.Snapshot{
			SessionID:       snap.SessionID,
			CurrentQuestion: snap.CurrentQuestion,
		}); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist session progress")
		}
	}
	m.publish(snap)
}

// publish replaces whatever snapshot is queued with the newest one.
func (m *Machine) publish(snap State) {
	for {
		select {
		case m.updates <- snap:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}

// StartSession probes backend health, then opens a new interview.
// No-op when a session already exists or a start is in flight; failure
// leaves SessionID unset so the user can retry.
func (m *Machine) StartSession() {
	m.mu.Lock()
	if m.state.SessionID != "" || m.state.IsLoading {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	m.mu.Unlock()

	m.apply(epoch, startBegun{})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		if err := m.backend.Health(m.ctx); err != nil {
			m.log.Error().Err(err).Msg("health probe failed")
			m.apply(epoch, startFailed{err: "Backend server is not available. Please check the server status."})
			return
		}

		sess, err := m.backend.StartSession(m.ctx)
		if err != nil {
			m.log.Error().Err(err).Msg("failed to start session")
			m.apply(epoch, startFailed{err: err.Error()})
			return
		}

		m.log.Info().Str("session_id", sess.SessionID).Msg("session started")
		m.apply(epoch, sessionStarted{
			sessionID:      sess.SessionID,
			greeting:       sess.Message,
			question:       sess.Question,
			questionNumber: sess.QuestionNumber,
			totalQuestions: sess.TotalQuestions,
		})
	}()
}

// ResumeSession picks a rehydrated session back up by fetching the
// question it is waiting on. No-op unless the session is resumable; a
// failed attempt leaves the state resumable so the user can retry.
func (m *Machine) ResumeSession() {
	m.mu.Lock()
	if !m.state.CanResume() {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	sessionID := m.state.SessionID
	m.mu.Unlock()

	m.apply(epoch, startBegun{})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		sess, err := m.backend.CurrentQuestion(m.ctx, sessionID)
		if err != nil {
			m.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to resume session")
			m.apply(epoch, startFailed{err: err.Error()})
			return
		}

		m.apply(epoch, sessionResumed{
			question:       sess.Question,
			questionNumber: sess.QuestionNumber,
			totalQuestions: sess.TotalQuestions,
			complete:       sess.SessionComplete,
		})
	}()
}

// SubmitAnswer appends the user's answer optimistically and sends it to
// the backend. The user message survives any later failure; only the
// storyboard placeholder is replaceable.
func (m *Machine) SubmitAnswer(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	m.mu.Lock()
	if m.state.SessionID == "" || m.state.IsComplete || m.state.IsLoading {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	sessionID := m.state.SessionID
	final := m.state.CurrentQuestion >= m.state.TotalQuestions
	m.mu.Unlock()

	m.apply(epoch, answerSent{text: text, withPlaceholder: final})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		sess, err := m.backend.SubmitAnswer(m.ctx, sessionID, text)
		if err != nil {
			m.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to submit answer")
			m.apply(epoch, answerFailed{err: err.Error(), hadPlaceholder: final})
			return
		}

		m.apply(epoch, answerAccepted{
			reply:                sess.Message,
			sessionComplete:      sess.SessionComplete,
			storyboard:           sess.Storyboard,
			storyboardGenerating: sess.StoryboardGenerating,
			images:               sess.Images,
			nextQuestion:         sess.Question,
			questionNumber:       sess.QuestionNumber,
			totalQuestions:       sess.TotalQuestions,
			hadPlaceholder:       final,
		})

		if sess.SessionComplete && sess.StoryboardGenerating {
			m.wg.Add(1)
			go m.pollStoryboard(epoch, sessionID)
		}
	}()
}

// pollStoryboard checks generation status on a fixed cadence until the
// storyboard completes, the budget runs out, or the epoch goes stale.
func (m *Machine) pollStoryboard(epoch uint64, sessionID string) {
	defer m.wg.Done()

	delay := m.intervals.StoryboardKickoff
	for attempt := 0; attempt < m.intervals.StoryboardBudget; attempt++ {
		if !m.sleep(delay) {
			return
		}
		delay = m.intervals.StoryboardPoll

		if m.currentEpoch() != epoch {
			return
		}

		status, err := m.backend.StoryboardStatus(m.ctx, sessionID)
		if err != nil {
			// Transient; swallowed and retried.
			m.log.Warn().Err(err).Str("session_id", sessionID).Msg("storyboard status check failed")
			continue
		}

		if status.Status == "completed" && status.Storyboard != "" {
			m.apply(epoch, storyboardReady{text: status.Storyboard})
			return
		}
	}

	m.log.Error().Str("session_id", sessionID).Msg("storyboard polling budget exhausted")
	m.apply(epoch, storyboardAbandoned{})
}

// GenerateVideo requests a video render for the current storyboard.
// Silent no-op when no finished storyboard exists or a render is already
// outstanding. The storyboard text in the transcript is authoritative:
// edits win over the backend's original outline.
func (m *Machine) GenerateVideo(email string) {
	m.mu.Lock()
	idx := storyboardIndex(m.state.Messages)
	if idx == -1 || m.state.SessionID == "" || m.state.VideoGenerating {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	sessionID := m.state.SessionID
	storyboardText := m.state.Messages[idx].Text
	if email == "" {
		email = m.state.PendingEmail
	}
	m.mu.Unlock()

	optIn := email != ""
	m.apply(epoch, videoRequested{email: email, optIn: optIn})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		var (
			videoURL string
			err      error
		)
		if storyboardText != "" {
			videoURL, err = m.backend.GenerateVideoFromStoryboard(m.ctx, storyboardText, sessionID, email)
		} else {
			videoURL, err = m.backend.GenerateVideoWithOutline(m.ctx, sessionID, email)
		}
		if err != nil {
			// Older backend deployments only expose generation from the
			// session transcript.
			legacyURL, legacyErr := m.backend.GenerateVideoFromSession(m.ctx, sessionID, email)
			if legacyErr != nil {
				m.log.Error().Err(err).Str("session_id", sessionID).Msg("video generation request failed")
				m.apply(epoch, videoFailed{err: err.Error()})
				return
			}
			m.log.Info().Str("session_id", sessionID).Msg("fell back to session-transcript video generation")
			videoURL = legacyURL
		}

		if fileID, pending := PendingVideoID(videoURL); pending {
			m.log.Info().Str("file_id", fileID).Msg("video render pending")
			m.apply(epoch, videoPending{ref: videoURL})
			m.wg.Add(1)
			go m.pollVideo(epoch, sessionID, videoURL, email, optIn)
			return
		}

		// Direct playable URL, no render wait and nothing to persist.
		m.apply(epoch, videoReady{url: videoURL, outcome: StorageNone})
	}()
}

// pollVideo waits out a pending render: first check after a short
// kickoff delay, then a steady cadence, stretched after not-ready
// responses and stretched further after transport errors.
func (m *Machine) pollVideo(epoch uint64, sessionID, ref, email string, optIn bool) {
	defer m.wg.Done()

	fileID, _ := PendingVideoID(ref)
	deadline := time.Now().Add(m.intervals.VideoDeadline)
	delay := m.intervals.VideoKickoff

	for {
		if !m.sleep(delay) {
			return
		}
		if m.currentEpoch() != epoch {
			return
		}
		if time.Now().After(deadline) {
			m.log.Error().Str("file_id", fileID).Msg("video polling deadline exceeded")
			m.apply(epoch, videoFailed{err: "video generation timed out", ref: ref})
			return
		}

		status, err := m.backend.CheckVideoStatus(m.ctx, fileID)
		if err != nil {
			m.log.Warn().Err(err).Str("file_id", fileID).Msg("video status check failed")
			var refusal *api.BackendError
			if errors.As(err, &refusal) {
				delay = m.intervals.VideoNotReady
			} else {
				delay = m.intervals.VideoError
			}
			continue
		}

		if !status.Fulfilled() {
			delay = m.intervals.VideoPoll
			continue
		}

		outcome := m.persistVideo(fileID, sessionID, status.SignedURL, email, optIn)
		m.apply(epoch, videoReady{url: status.SignedURL, ref: ref, outcome: outcome})
		return
	}
}

// persistVideo tries to store the finished video durably, falling back
// to saving just the link. Storage failure never blocks showing the
// video; the outcome only selects the qualifier on the success message.
func (m *Machine) persistVideo(fileID, sessionID, signedURL, email string, optIn bool) StorageOutcome {
	storeEmail := ""
	if optIn {
		storeEmail = email
	}

	permanentURL, err := m.backend.ProcessAndStoreVideo(m.ctx, fileID, sessionID, storeEmail)
	if err == nil && permanentURL != "" {
		m.log.Info().Str("permanent_url", permanentURL).Msg("video stored permanently")
		return StoragePersisted
	}
	m.log.Warn().Err(err).Str("file_id", fileID).Msg("permanent video storage failed")

	if err := m.backend.SaveVideoLink(m.ctx, sessionID, signedURL, storeEmail); err != nil {
		m.log.Warn().Err(err).Str("file_id", fileID).Msg("fallback link save failed")
		return StorageFailed
	}
	return StorageDegraded
}

// StartEditing marks one message as being edited and clears the flag on
// every other message.
func (m *Machine) StartEditing(id string) {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	m.apply(epoch, editStarted{id: id})
}

// EditMessage commits new text for a message and re-enables video
// generation: an edit invalidates any earlier video's relationship to
// the displayed script, but existing video messages stay visible.
func (m *Machine) EditMessage(id, text string) {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	m.apply(epoch, editCommitted{id: id, text: text})
}

// CancelEditing leaves the message text untouched.
func (m *Machine) CancelEditing(id string) {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	m.apply(epoch, editCancelled{id: id})
}

// StoreEmail records contact details ahead of video generation.
func (m *Machine) StoreEmail(email string) {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	m.apply(epoch, emailStored{email: email})
}

// ShowGenerate re-enables the generate-video affordance.
func (m *Machine) ShowGenerate() {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	m.apply(epoch, generateShown{})
}

// ClearError drops the last user-visible error.
func (m *Machine) ClearError() {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	m.apply(epoch, errorCleared{})
}

// ConsumeScrollTarget returns the message the presentation layer should
// bring into view and clears the one-shot flag. The second return is
// false when nothing is waiting to be scrolled to.
func (m *Machine) ConsumeScrollTarget() (Message, bool) {
	m.mu.Lock()
	var target Message
	found := false
	for _, msg := range m.state.Messages {
		if msg.ShouldScrollTo {
			target = msg
			found = true
			break
		}
	}
	epoch := m.epoch
	m.mu.Unlock()

	if !found {
		return Message{}, false
	}
	m.apply(epoch, scrollConsumed{id: target.ID})
	return target, true
}

// ResetSession clears persisted progress and reinitializes the state.
// Bumping the epoch invalidates every outstanding poll. Idempotent.
func (m *Machine) ResetSession() {
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear persisted session")
	}
	m.log.Info().Msg("session reset")
	m.apply(epoch, resetDone{})
}

// sleep waits for d unless the machine shuts down first.
func (m *Machine) sleep(d time.Duration) bool {
	select {
	case <-m.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
