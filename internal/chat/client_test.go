package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "invoicedash/internal/errors"
	"invoicedash/internal/log"
)

func newTestClient(url string) *HTTPClient {
	return NewHTTPClient(Config{
		BaseURL:      url,
		APIKey:       "secret",
		Timeout:      2 * time.Second,
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
}

func TestHTTPClient_SendQuery(t *testing.T) {
	var gotAuth, gotQuery, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body["query"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"sql":"SELECT 1","data":[{"b":2,"a":1}],"message":"ok"}`)
	}))
	defer srv.Close()

	answer, err := newTestClient(srv.URL+"/").SendQuery(context.Background(), "top vendors?")
	require.NoError(t, err)

	assert.Equal(t, "/api/chat", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "top vendors?", gotQuery)
	assert.Equal(t, "SELECT 1", answer.SQL)
	assert.Equal(t, `[{"b":2,"a":1}]`, string(answer.Data))
	assert.Equal(t, "ok", answer.Message)
}

func TestHTTPClient_NoAPIKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"sql":"","data":null}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	answer, err := client.SendQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.Equal(t, "[]", string(answer.Data))
}

func TestHTTPClient_UpstreamStatusIsRelayedWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "model overloaded")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.New(log.Config{Format: "json", Output: &buf}))

	_, err := newTestClient(srv.URL).SendQuery(ctx, "q")
	require.Error(t, err)

	assert.Contains(t, buf.String(), `"component":"chat"`)
	assert.Contains(t, buf.String(), `"status_code":503`)
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, ierr.IsUpstream(err))
	assert.Equal(t, http.StatusServiceUnavailable, ierr.HTTPStatusFromErr(err))
	assert.Equal(t, "Failed to process query", ierr.DisplayMessage(err, ""))

	var upstream *ierr.UpstreamError
	require.True(t, ierr.As(err, &upstream))
	assert.Equal(t, "model overloaded", upstream.Body)
}

func TestHTTPClient_RetriesDroppedConnections(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				conn.Close()
			}
			return
		}
		_, _ = io.WriteString(w, `{"sql":"SELECT 2","data":[]}`)
	}))
	defer srv.Close()

	answer, err := newTestClient(srv.URL).SendQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", answer.SQL)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).SendQuery(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, ierr.IsUpstream(err))
	assert.Equal(t, http.StatusBadGateway, ierr.HTTPStatusFromErr(err))
}

func TestHTTPClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendQuery(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, ierr.HTTPStatusFromErr(err))
}
