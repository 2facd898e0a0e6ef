package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, content string, captured *ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		body := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "http://localhost", "gpt-4o-mini", time.Second)
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	var req ChatCompletionRequest
	srv := newTestServer(t, http.StatusOK, "  Quantos anos você tem?  ", &req)
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, "gpt-4o-mini", 5*time.Second)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "Você é a Zubi.", "Pergunte a idade.", 0.7)
	require.NoError(t, err)
	assert.Equal(t, "Quantos anos você tem?", out)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Nil(t, req.ResponseFormat)
}

func TestCompleteJSON(t *testing.T) {
	var req ChatCompletionRequest
	srv := newTestServer(t, http.StatusOK, "```json\n{\"age\": 30}\n```", &req)
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, "gpt-4o-mini", 5*time.Second)
	require.NoError(t, err)

	raw, err := c.CompleteJSON(context.Background(), "extraia")
	require.NoError(t, err)
	assert.JSONEq(t, `{"age": 30}`, string(raw))
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
}

func TestCompleteJSONRejectsProse(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "não sei", nil)
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, "gpt-4o-mini", 5*time.Second)
	require.NoError(t, err)

	_, err = c.CompleteJSON(context.Background(), "extraia")
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestCompleteAPIError(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, "", nil)
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, "gpt-4o-mini", 5*time.Second)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "", "oi", 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
