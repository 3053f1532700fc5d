package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 0)
}

func TestHealth(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	assert.NoError(t, client.Health(context.Background()))
}

func TestHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, 0)

	err := client.Health(context.Background())
	require.Error(t, err)

	var refusal *BackendError
	assert.False(t, errors.As(err, &refusal), "transport failures are not backend refusals")
}

func TestStartSession(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/story/start", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":         true,
			"session_id":      "sess-42",
			"message":         "Welcome!",
			"question":        "What is your name?",
			"question_number": 1,
			"total_questions": 4,
		})
	})

	sess, err := client.StartSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-42", sess.SessionID)
	assert.Equal(t, "What is your name?", sess.Question)
	assert.Equal(t, 1, sess.QuestionNumber)
	assert.Equal(t, 4, sess.TotalQuestions)
}

func TestSubmitAnswer(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sess-42", body["session_id"])
		assert.Equal(t, "my answer", body["answer"])
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":               true,
			"message":               "All done!",
			"session_complete":      true,
			"storyboard_generating": true,
		})
	})

	sess, err := client.SubmitAnswer(context.Background(), "sess-42", "my answer")
	require.NoError(t, err)
	assert.True(t, sess.SessionComplete)
	assert.True(t, sess.StoryboardGenerating)
	// The envelope omitted the id; the client carries it forward.
	assert.Equal(t, "sess-42", sess.SessionID)
}

func TestSubmitAnswerRefused(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "session expired",
		})
	})

	_, err := client.SubmitAnswer(context.Background(), "sess-42", "answer")
	require.Error(t, err)

	var refusal *BackendError
	require.True(t, errors.As(err, &refusal))
	assert.Equal(t, "session expired", refusal.Msg)
}

func TestSubmitAnswerServerError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := client.SubmitAnswer(context.Background(), "sess-42", "answer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestStoryboardStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storyboard/status/sess-42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"status":     "completed",
			"storyboard": "# Scene 1",
		})
	})

	status, err := client.StoryboardStatus(context.Background(), "sess-42")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, "# Scene 1", status.Storyboard)
}

func TestGenerateVideoFromStoryboard(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/generate-from-storyboard", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "# Edited", body["storyboard"])
		assert.Equal(t, "user@example.com", body["email"])
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"video_url": "videogen://file-abc",
		})
	})

	url, err := client.GenerateVideoFromStoryboard(context.Background(), "# Edited", "sess-42", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "videogen://file-abc", url)
}

func TestGenerateVideoFromSession(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/generate-from-session", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sess-42", body["session_id"])
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"video_url": "https://cdn.example.com/legacy.mp4",
		})
	})

	url, err := client.GenerateVideoFromSession(context.Background(), "sess-42", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/legacy.mp4", url)
}

func TestCheckVideoStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/status/file-abc", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result": map[string]string{
				"loadingState":     "FULFILLED",
				"apiFileSignedUrl": "https://cdn.example.com/v.mp4",
			},
		})
	})

	status, err := client.CheckVideoStatus(context.Background(), "file-abc")
	require.NoError(t, err)
	assert.True(t, status.Fulfilled())
	assert.Equal(t, "https://cdn.example.com/v.mp4", status.SignedURL)
}

func TestCheckVideoStatusNotReady(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result":  map[string]string{"loadingState": "PROCESSING"},
		})
	})

	status, err := client.CheckVideoStatus(context.Background(), "file-abc")
	require.NoError(t, err)
	assert.False(t, status.Fulfilled())
}

func TestCheckVideoStatusRefused(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "file not found",
		})
	})

	_, err := client.CheckVideoStatus(context.Background(), "missing")
	var refusal *BackendError
	require.True(t, errors.As(err, &refusal))
	assert.Equal(t, "file not found", refusal.Msg)
}

func TestProcessAndStoreVideo(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/process-and-store", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "file-abc", body["id"])
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       true,
			"permanent_url": "https://store.example.com/v.mp4",
		})
	})

	url, err := client.ProcessAndStoreVideo(context.Background(), "file-abc", "sess-42", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://store.example.com/v.mp4", url)
}

func TestSaveVideoLink(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/save-link", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn.example.com/v.mp4", body["video_url"])
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	err := client.SaveVideoLink(context.Background(), "sess-42", "https://cdn.example.com/v.mp4", "")
	assert.NoError(t, err)
}

func TestSessionStatusPrefersSessionData(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"session_data": map[string]interface{}{
				"session_id":       "sess-42",
				"session_complete": true,
				"storyboard":       "# Scene 1",
			},
		})
	})

	sess, err := client.SessionStatus(context.Background(), "sess-42")
	require.NoError(t, err)
	assert.True(t, sess.SessionComplete)
	assert.Equal(t, "# Scene 1", sess.Storyboard)
}
