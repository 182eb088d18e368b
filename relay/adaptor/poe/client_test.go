package poe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, events string, wantBot string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/"+wantBot, r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var queryReq QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&queryReq))
		assert.Equal(t, "1.1", queryReq.Version)
		assert.Equal(t, "query", queryReq.Type)
		assert.True(t, queryReq.SkipSystemPrompt)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(events))
	}))
}

func TestQueryStreamsTextEvents(t *testing.T) {
	events := "event: text\ndata: {\"text\": \"Hello\"}\n\n" +
		"event: text\ndata: {\"text\": \" world\"}\n\n" +
		"event: done\ndata: {}\n\n"
	server := sseServer(t, events, "TestBot")
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	stream, err := c.Query(context.Background(), "test-key", "TestBot", []ProtocolMessage{
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	defer stream.Close()

	msg, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "Hello", msg.Text)
	assert.False(t, msg.IsReplaceResponse)

	msg, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, " world", msg.Text)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)

	// Next after completion keeps returning EOF.
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestQueryReplaceAndFileEvents(t *testing.T) {
	events := "event: text\ndata: {\"text\": \"draft\"}\n\n" +
		"event: replace_response\ndata: {\"text\": \"final\"}\n\n" +
		"event: file\ndata: {\"url\": \"https://files.example/img.png\", \"content_type\": \"image/png\", \"name\": \"img.png\"}\n\n" +
		"event: done\ndata: {}\n\n"
	server := sseServer(t, events, "ImageBot")
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	stream, err := c.Query(context.Background(), "test-key", "ImageBot", nil)
	require.NoError(t, err)
	defer stream.Close()

	msg, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "draft", msg.Text)

	msg, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "final", msg.Text)
	assert.True(t, msg.IsReplaceResponse)

	msg, err = stream.Next()
	require.NoError(t, err)
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "https://files.example/img.png", msg.Attachment.URL)
	assert.Equal(t, "image/png", msg.Attachment.ContentType)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestQuerySkipsBookkeepingEvents(t *testing.T) {
	events := "event: meta\ndata: {\"content_type\": \"text/markdown\"}\n\n" +
		"event: ping\ndata: {}\n\n" +
		"event: text\ndata: {\"text\": \"payload\"}\n\n" +
		"event: json\ndata: {\"whatever\": true}\n\n" +
		"event: done\ndata: {}\n\n"
	server := sseServer(t, events, "Bot")
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	stream, err := c.Query(context.Background(), "test-key", "Bot", nil)
	require.NoError(t, err)
	defer stream.Close()

	msg, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "payload", msg.Text)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestQueryErrorEvent(t *testing.T) {
	events := "event: text\ndata: {\"text\": \"partial\"}\n\n" +
		"event: error\ndata: {\"text\": \"Internal server error\", \"allow_retry\": true}\n\n"
	server := sseServer(t, events, "Bot")
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	stream, err := c.Query(context.Background(), "test-key", "Bot", nil)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.NoError(t, err)

	_, err = stream.Next()
	var botErr *BotError
	require.ErrorAs(t, err, &botErr)
	assert.Contains(t, botErr.Payload, "Internal server error")

	// The stream stays failed.
	_, err2 := stream.Next()
	assert.Equal(t, err, err2)
}

func TestQueryTruncatedStream(t *testing.T) {
	events := "event: text\ndata: {\"text\": \"partial\"}\n\n"
	server := sseServer(t, events, "Bot")
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	stream, err := c.Query(context.Background(), "test-key", "Bot", nil)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.NoError(t, err)

	_, err = stream.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without done event")
}

func TestQueryNotFoundBecomesValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such bot", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	_, err := c.Query(context.Background(), "test-key", "MissingBot", nil)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "MissingBot")

	normalized := NormalizeError(err)
	assert.Equal(t, http.StatusNotFound, normalized.StatusCode)
}
