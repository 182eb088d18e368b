package poe

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(32<<20))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"attachment_url": "https://files.example/abc", "mime_type": "image/png"}`))
	}))
}

func TestUploadBase64(t *testing.T) {
	var hits atomic.Int64
	server := uploadServer(t, &hits)
	defer server.Close()

	payload := base64.StdEncoding.EncodeToString([]byte("fake png bytes"))
	dataURL := "data:image/png;base64," + payload

	c := NewClient(WithUploadURL(server.URL), WithHTTPClient(server.Client()))
	attachment, err := c.UploadBase64(context.Background(), "upload-key-1", dataURL)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/abc", attachment.URL)
	assert.Equal(t, "image/png", attachment.ContentType)
	assert.Equal(t, "uploaded_file.png", attachment.Name)
}

func TestUploadBase64UnknownMimeFallsBackToBin(t *testing.T) {
	var hits atomic.Int64
	server := uploadServer(t, &hits)
	defer server.Close()

	payload := base64.StdEncoding.EncodeToString([]byte("who knows"))
	dataURL := "data:application/x-strange;base64," + payload

	c := NewClient(WithUploadURL(server.URL), WithHTTPClient(server.Client()))
	attachment, err := c.UploadBase64(context.Background(), "upload-key-2", dataURL)
	require.NoError(t, err)
	assert.Equal(t, "uploaded_file.bin", attachment.Name)
}

func TestUploadBase64RejectsNonDataURL(t *testing.T) {
	c := NewClient()
	_, err := c.UploadBase64(context.Background(), "upload-key-3", "https://example.com/img.png")
	require.Error(t, err)

	_, err = c.UploadBase64(context.Background(), "upload-key-3", "data:image/png,not-base64-marker")
	require.Error(t, err)
}

func TestUploadBase64Dedupes(t *testing.T) {
	var hits atomic.Int64
	server := uploadServer(t, &hits)
	defer server.Close()

	payload := base64.StdEncoding.EncodeToString([]byte("dedupe me"))
	dataURL := "data:image/jpeg;base64," + payload

	c := NewClient(WithUploadURL(server.URL), WithHTTPClient(server.Client()))
	first, err := c.UploadBase64(context.Background(), "upload-key-4", dataURL)
	require.NoError(t, err)
	second, err := c.UploadBase64(context.Background(), "upload-key-4", dataURL)
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, int64(1), hits.Load())

	// A different key re-uploads: cached references are scoped per credential.
	_, err = c.UploadBase64(context.Background(), "upload-key-5", dataURL)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestUploadURL(t *testing.T) {
	var downloadURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		downloadURL = r.FormValue("download_url")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"attachment_url": "https://files.example/def", "mime_type": "image/jpeg"}`))
	}))
	defer server.Close()

	c := NewClient(WithUploadURL(server.URL), WithHTTPClient(server.Client()))
	attachment, err := c.UploadURL(context.Background(), "upload-key-6", "https://cdn.example/photos/cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/photos/cat.jpg", downloadURL)
	assert.Equal(t, "https://files.example/def", attachment.URL)
	assert.Equal(t, "cat.jpg", attachment.Name)
}

func TestUploadFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(WithUploadURL(server.URL), WithHTTPClient(server.Client()))
	_, err := c.UploadBytes(context.Background(), "upload-key-7", "img.png", []byte("bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
