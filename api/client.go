package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout for backend requests
const DefaultTimeout = 30 * time.Second

// Client is a thin wrapper around the Story Catcher backend HTTP API.
// It translates calls into JSON requests and responses; it performs no
// retries or backoff of its own.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a backend client for the given base URL
// (e.g. "http://localhost:5000/api").
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Session describes one step of a story interview as reported by the backend.
type Session struct {
	SessionID            string   `json:"session_id"`
	Message              string   `json:"message"`
	Question             string   `json:"question"`
	QuestionID           string   `json:"question_id"`
	QuestionNumber       int      `json:"question_number"`
	TotalQuestions       int      `json:"total_questions"`
	SessionComplete      bool     `json:"session_complete"`
	Storyboard           string   `json:"storyboard"`
	StoryboardGenerating bool     `json:"storyboard_generating"`
	Images               []string `json:"images"`
	VideoURL             string   `json:"video_url"`
}

// StoryboardStatus reports storyboard generation progress.
type StoryboardStatus struct {
	Status     string `json:"status"` // "generating" or "completed"
	Storyboard string `json:"storyboard"`
}

// VideoStatus reports the state of an asynchronous video render.
type VideoStatus struct {
	LoadingState string `json:"loadingState"`
	SignedURL    string `json:"apiFileSignedUrl"`
}

// Fulfilled reports whether the video has resolved to a playable URL.
func (v VideoStatus) Fulfilled() bool {
	return v.LoadingState == "FULFILLED" && v.SignedURL != ""
}

// apiResponse is the union of all fields the backend may return.
type apiResponse struct {
	Success              bool         `json:"success"`
	Status               string       `json:"status"`
	Message              string       `json:"message"`
	Error                string       `json:"error"`
	SessionID            string       `json:"session_id"`
	Question             string       `json:"question"`
	QuestionID           string       `json:"question_id"`
	QuestionNumber       int          `json:"question_number"`
	TotalQuestions       int          `json:"total_questions"`
	SessionComplete      bool         `json:"session_complete"`
	Storyboard           string       `json:"storyboard"`
	StoryboardGenerating bool         `json:"storyboard_generating"`
	Images               []string     `json:"images"`
	VideoURL             string       `json:"video_url"`
	PermanentURL         string       `json:"permanent_url"`
	Result               *VideoStatus `json:"result"`
	SessionData          *Session     `json:"session_data"`
}

// do sends a request and decodes the response envelope.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// BackendError reports a request that reached the backend but was
// refused (a success:false envelope), as opposed to a transport failure.
type BackendError struct {
	Msg string
}

func (e *BackendError) Error() string {
	return e.Msg
}

// refused builds a BackendError from an envelope's most specific text.
func refused(resp *apiResponse, fallback string) error {
	msg := fallback
	if resp.Message != "" {
		msg = resp.Message
	}
	if resp.Error != "" {
		msg = resp.Error
	}
	return &BackendError{Msg: msg}
}

// Health probes backend liveness.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if !resp.Success && resp.Status != "healthy" {
		return refused(resp, "backend is not healthy")
	}
	return nil
}

// StartSession begins a new story interview.
func (c *Client) StartSession(ctx context.Context) (Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/story/start", map[string]string{})
	if err != nil {
		return Session{}, err
	}
	if !resp.Success {
		return Session{}, refused(resp, "failed to start session")
	}
	return resp.session(), nil
}

// SubmitAnswer sends the user's answer to the current question.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, answer string) (Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/story/answer", map[string]string{
		"session_id": sessionID,
		"answer":     answer,
	})
	if err != nil {
		return Session{}, err
	}
	if !resp.Success {
		return Session{}, refused(resp, "failed to submit answer")
	}
	sess := resp.session()
	if sess.SessionID == "" {
		sess.SessionID = sessionID
	}
	return sess, nil
}

// CurrentQuestion fetches the question an existing session is waiting on.
func (c *Client) CurrentQuestion(ctx context.Context, sessionID string) (Session, error) {
	resp, err := c.do(ctx, http.MethodGet, "/story/current-question/"+sessionID, nil)
	if err != nil {
		return Session{}, err
	}
	if !resp.Success {
		return Session{}, refused(resp, "failed to get current question")
	}
	sess := resp.session()
	if sess.SessionID == "" {
		sess.SessionID = sessionID
	}
	return sess, nil
}

// SessionStatus fetches the full server-side state of a session.
func (c *Client) SessionStatus(ctx context.Context, sessionID string) (Session, error) {
	resp, err := c.do(ctx, http.MethodGet, "/story/session/"+sessionID, nil)
	if err != nil {
		return Session{}, err
	}
	if !resp.Success {
		return Session{}, refused(resp, "failed to get session status")
	}
	if resp.SessionData != nil {
		return *resp.SessionData, nil
	}
	return resp.session(), nil
}

// StoryboardStatus checks storyboard generation progress.
func (c *Client) StoryboardStatus(ctx context.Context, sessionID string) (StoryboardStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/storyboard/status/"+sessionID, nil)
	if err != nil {
		return StoryboardStatus{}, err
	}
	if !resp.Success {
		return StoryboardStatus{}, refused(resp, "failed to check storyboard status")
	}
	return StoryboardStatus{Status: resp.Status, Storyboard: resp.Storyboard}, nil
}

// GenerateVideoWithOutline requests a video render from the original
// generation outline held by the backend. The returned URL may be a
// pending "videogen://" reference.
func (c *Client) GenerateVideoWithOutline(ctx context.Context, sessionID, email string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/video/generate-with-videogen-outline", map[string]string{
		"session_id": sessionID,
		"email":      email,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.VideoURL == "" {
		return "", refused(resp, "video generation failed")
	}
	return resp.VideoURL, nil
}

// GenerateVideoFromStoryboard requests a video render from (possibly
// user-edited) storyboard text.
func (c *Client) GenerateVideoFromStoryboard(ctx context.Context, storyboard, sessionID, email string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/video/generate-from-storyboard", map[string]string{
		"storyboard": storyboard,
		"session_id": sessionID,
		"email":      email,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.VideoURL == "" {
		return "", refused(resp, "video generation failed")
	}
	return resp.VideoURL, nil
}

// GenerateVideoFromSession requests a video render straight from the
// session transcript. Older backend deployments only expose this path.
func (c *Client) GenerateVideoFromSession(ctx context.Context, sessionID, email string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/video/generate-from-session", map[string]string{
		"session_id": sessionID,
		"email":      email,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.VideoURL == "" {
		return "", refused(resp, "video generation failed")
	}
	return resp.VideoURL, nil
}

// CheckVideoStatus polls the state of a pending video render.
func (c *Client) CheckVideoStatus(ctx context.Context, fileID string) (VideoStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/video/status/"+fileID, nil)
	if err != nil {
		return VideoStatus{}, err
	}
	if !resp.Success || resp.Result == nil {
		return VideoStatus{}, refused(resp, "failed to check video status")
	}
	return *resp.Result, nil
}

// ProcessAndStoreVideo asks the backend to download a finished video and
// store it permanently, tagged with the user's email when provided.
// It returns the permanent URL.
func (c *Client) ProcessAndStoreVideo(ctx context.Context, fileID, sessionID, email string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/video/process-and-store", map[string]string{
		"id":         fileID,
		"session_id": sessionID,
		"email":      email,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.PermanentURL == "" {
		return "", refused(resp, "video storage failed")
	}
	return resp.PermanentURL, nil
}

// SaveVideoLink records just the signed video URL as a best-effort
// fallback when full storage fails.
func (c *Client) SaveVideoLink(ctx context.Context, sessionID, videoURL, email string) error {
	resp, err := c.do(ctx, http.MethodPost, "/video/save-link", map[string]string{
		"session_id": sessionID,
		"video_url":  videoURL,
		"email":      email,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return refused(resp, "failed to save video link")
	}
	return nil
}

func (r *apiResponse) session() Session {
	return Session{
		SessionID:            r.SessionID,
		Message:              r.Message,
		Question:             r.Question,
		QuestionID:           r.QuestionID,
		QuestionNumber:       r.QuestionNumber,
		TotalQuestions:       r.TotalQuestions,
		SessionComplete:      r.SessionComplete,
		Storyboard:           r.Storyboard,
		StoryboardGenerating: r.StoryboardGenerating,
		Images:               r.Images,
		VideoURL:             r.VideoURL,
	}
}
