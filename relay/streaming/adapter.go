// Package streaming adapts bot response events to OpenAI-style completion
// streams. The central subtlety is the replace event: a bot may discard its
// reply so far and start over, which resets the accumulated text the usage
// accounting is based on, while downstream clients simply receive the
// replacement content as the next delta.
package streaming

import (
	"github.com/songquanpeng/poe-bridge/relay/adaptor/poe"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
	"github.com/songquanpeng/poe-bridge/relay/token"
)

// Adapter accumulates one bot reply and renders it either as a chunk stream
// or as a single accumulated response.
type Adapter struct {
	dialect      Dialect
	model        string
	promptTokens int
	accumulated  string
	firstChunk   bool
	attachments  []poe.Attachment
}

// NewAdapter creates an adapter for one bot reply. promptUsage carries the
// token count of the request conversation; only its prompt side is kept,
// completion tokens are recomputed from the actual reply.
func NewAdapter(dialect Dialect, model string, promptUsage *relaymodel.Usage) *Adapter {
	a := &Adapter{
		dialect:    dialect,
		model:      model,
		firstChunk: true,
	}
	if promptUsage != nil {
		a.promptTokens = promptUsage.PromptTokens
	}
	return a
}

// Consume folds one bot event into the reply and returns the chunk to stream
// to the client. Attachment URLs ride along appended to the event text.
func (a *Adapter) Consume(msg *poe.BotMessage) any {
	if msg.IsReplaceResponse {
		a.accumulated = ""
	}
	text := msg.Text
	if msg.Attachment != nil {
		text += "\n" + msg.Attachment.URL
	}
	chunk := FormatChunk(a.dialect, a.model, text, a.firstChunk, msg.IsReplaceResponse)
	a.accumulated += text
	a.firstChunk = false
	return chunk
}

// Absorb folds one bot event into the reply without producing a chunk. Used
// by non-streaming handlers, which collect attachments separately and append
// their URLs once the reply is complete.
func (a *Adapter) Absorb(msg *poe.BotMessage) {
	if msg.IsReplaceResponse {
		a.accumulated = ""
	}
	a.accumulated += msg.Text
	if msg.Attachment != nil {
		a.attachments = append(a.attachments, *msg.Attachment)
	}
}

// Finish returns the terminal stream chunk with final usage totals.
func (a *Adapter) Finish() any {
	return FormatFinal(a.dialect, a.model, a.Usage())
}

// Text returns the accumulated reply for non-streaming responses, with the
// URL of every collected attachment appended on its own line.
func (a *Adapter) Text() string {
	content := a.accumulated
	for _, attachment := range a.attachments {
		content += "\n" + attachment.URL + "\n"
	}
	return content
}

// Attachments returns the files the bot emitted, in arrival order.
func (a *Adapter) Attachments() []poe.Attachment {
	return a.attachments
}

// Usage recomputes completion tokens from the accumulated reply and returns
// the full usage record. The total always equals prompt plus completion.
func (a *Adapter) Usage() *relaymodel.Usage {
	completionTokens := token.CountText(a.accumulated)
	return &relaymodel.Usage{
		PromptTokens:     a.promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      a.promptTokens + completionTokens,
	}
}

type streamError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	ErrorID string `json:"error_id,omitempty"`
}

type streamErrorPayload struct {
	Error streamError       `json:"error"`
	Usage *relaymodel.Usage `json:"usage,omitempty"`
}

// Fail normalizes a mid-stream failure into the terminal error payload. When
// content was already streamed, the usage counted so far rides along so
// clients can still account for the partial reply.
func (a *Adapter) Fail(err error) any {
	normalized := poe.NormalizeError(err)
	payload := &streamErrorPayload{
		Error: streamError{
			Message: normalized.Message,
			Type:    normalized.Type,
			Code:    normalized.Type,
			ErrorID: normalized.ErrorID,
		},
	}
	if a.accumulated != "" {
		payload.Usage = a.Usage()
	}
	return payload
}
