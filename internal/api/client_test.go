package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret123")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret123", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, New(server.URL, "").Healthcheck(context.Background()))
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	assert.Error(t, New(url, "").Healthcheck(context.Background()))
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := New(server.URL, "").Healthcheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestUpload_Success(t *testing.T) {
	type received struct {
		fields  map[string]string
		content []byte
	}
	got := make(chan received, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/journals/add", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		rec := received{fields: map[string]string{}}
		for _, k := range []string{"secret", "filename", "arena", "sessionId", "startTime", "duration", "tag"} {
			rec.fields[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if assert.NoError(t, err) {
			rec.content, _ = io.ReadAll(file)
			file.Close()
		}
		got <- rec
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "soccar_20261019_083000_3.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("journal content"), 0644))

	err := New(server.URL, "mysecret").Upload(context.Background(), testFile, core.UploadMetadata{
		Arena:     "soccar",
		SessionID: 3,
		StartTime: time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC),
		Duration:  312.5,
		Tag:       "scrim",
	})
	require.NoError(t, err)

	rec := <-got
	assert.Equal(t, map[string]string{
		"secret":    "mysecret",
		"filename":  "soccar_20261019_083000_3.json.gz",
		"arena":     "soccar",
		"sessionId": "3",
		"startTime": "2026-10-19T08:30:00Z",
		"duration":  "312.500000",
		"tag":       "scrim",
	}, rec.fields)
	assert.Equal(t, "journal content", string(rec.content))
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("content"), 0644))

	err := New(server.URL, "wrong-secret").Upload(context.Background(), testFile, core.UploadMetadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestUpload_ErrorBodyIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, "session already uploaded\n")
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "test.json")
	require.NoError(t, os.WriteFile(testFile, []byte("{}"), 0644))

	err := New(server.URL, "k").Upload(context.Background(), testFile, core.UploadMetadata{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.Equal(t, "upload", se.Op)
	assert.Equal(t, "session already uploaded", se.Body)
	assert.EqualError(t, err, "upload returned status 409: session already uploaded")
}

func TestUpload_Cancelled(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.json")
	require.NoError(t, os.WriteFile(testFile, []byte("{}"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New("http://127.0.0.1:1", "k").Upload(ctx, testFile, core.UploadMetadata{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
