package oracle

import (
	"context"
	"encoding/json"
	"fleet-route-optimizer/internal/ports"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReturnsCandidateText(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"overallDelay\":"},{"text":"12}"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini("secret", time.Second, WithBaseURL(srv.URL), WithModel("gemini-test"))
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), "predict please")
	require.NoError(t, err)
	assert.Equal(t, `{"overallDelay":12}`, text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "predict please", got.Contents[0].Parts[0].Text)
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini("k", time.Second, WithBaseURL(srv.URL))
	require.NoError(t, err)
	g.client.Backoff = time.Millisecond

	text, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g, err := NewGemini("k", time.Second, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "no candidates")
}

func TestNewGeminiWithoutKey(t *testing.T) {
	_, err := NewGemini("  ", time.Second)
	assert.ErrorIs(t, err, ports.ErrOracleNotConfigured)
}
