package poe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/poe-bridge/common/client"
	"github.com/songquanpeng/poe-bridge/common/config"
	"github.com/songquanpeng/poe-bridge/common/random"
)

const (
	protocolVersion = "1.1"

	eventText      = "text"
	eventReplace   = "replace_response"
	eventFile      = "file"
	eventDone      = "done"
	eventError     = "error"
	eventJSON      = "json"
	eventMeta      = "meta"
	eventPing      = "ping"
	eventSuggested = "suggested_reply"
)

// Client talks the bot query protocol: one POST per conversation turn, the
// reply delivered as a server-sent event stream.
type Client struct {
	httpClient *http.Client
	baseURL    string
	uploadURL  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the bot query endpoint, useful with httptest servers.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithUploadURL overrides the attachment upload endpoint.
func WithUploadURL(url string) Option {
	return func(c *Client) { c.uploadURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   config.PoeBaseURL,
		uploadURL: config.PoeFileUploadURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// client resolves the HTTP client at call time. The shared client is nil
// until client.Init runs, and Clients constructed in package-level vars must
// still pick it up afterwards.
func (c *Client) client() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	if client.HTTPClient != nil {
		return client.HTTPClient
	}
	return http.DefaultClient
}

// Query sends a conversation to the named bot and returns the event stream of
// its reply. The caller owns the stream and must Close it.
func (c *Client) Query(ctx context.Context, apiKey, botName string, messages []ProtocolMessage) (*EventStream, error) {
	queryReq := QueryRequest{
		Version:          protocolVersion,
		Type:             "query",
		Query:            messages,
		UserID:           "",
		ConversationID:   random.GetUUID(),
		MessageID:        random.GetUUID(),
		SkipSystemPrompt: true,
	}
	body, err := json.Marshal(queryReq)
	if err != nil {
		return nil, errors.Wrap(err, "marshal bot query")
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/" + botName
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build bot query request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "query bot %s", botName)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return nil, errors.Errorf("bot %s returned status %d", botName, resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, &ValidationError{Message: "Model " + botName + " not found"}
		}
		return nil, errors.Errorf("bot %s returned status %d: %s", botName, resp.StatusCode, string(data))
	}

	return newEventStream(ctx, resp.Body), nil
}

// EventStream parses bot response events off an SSE body.
type EventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	done    bool
	err     error
}

func newEventStream(ctx context.Context, body io.ReadCloser) *EventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 4096), 1024*1024)
	return &EventStream{
		body:    body,
		scanner: scanner,
		ctx:     ctx,
	}
}

// Next returns the next semantic bot message. It returns io.EOF after the done
// event and a *BotError when the bot reports a fault. Bookkeeping events such
// as meta, json and ping are skipped.
func (s *EventStream) Next() (*BotMessage, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.err != nil {
		return nil, s.err
	}

	for {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return nil, s.err
		}

		eventType, data, err := s.readEvent()
		if err != nil {
			s.err = err
			return nil, s.err
		}

		switch eventType {
		case eventText, eventReplace:
			var payload struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				s.err = errors.Wrapf(err, "parse %s event", eventType)
				return nil, s.err
			}
			return &BotMessage{
				Text:              payload.Text,
				IsReplaceResponse: eventType == eventReplace,
			}, nil
		case eventFile:
			var attachment Attachment
			if err := json.Unmarshal([]byte(data), &attachment); err != nil {
				s.err = errors.Wrap(err, "parse file event")
				return nil, s.err
			}
			return &BotMessage{Attachment: &attachment}, nil
		case eventDone:
			s.done = true
			return nil, io.EOF
		case eventError:
			s.err = &BotError{Payload: data}
			return nil, s.err
		case eventMeta, eventJSON, eventPing, eventSuggested:
			continue
		default:
			// Unknown event types are skipped for forward compatibility.
			continue
		}
	}
}

// readEvent assembles one SSE event, returning its type and data payload.
// A scanner exhausted without a done event means the upstream hung up early.
func (s *EventStream) readEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if eventType != "" || dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// Comment lines and unknown fields are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", errors.Wrap(err, "read bot response stream")
	}
	if eventType != "" || dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", errors.New("bot response stream ended without done event")
}

// Close releases the underlying response body.
func (s *EventStream) Close() error {
	return s.body.Close()
}
