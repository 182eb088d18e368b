package streaming

import (
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/poe-bridge/common/config"
	"github.com/songquanpeng/poe-bridge/relay/adaptor/poe"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

func approximateTokens(t *testing.T) {
	t.Helper()
	old := config.ApproximateTokenEnabled
	config.ApproximateTokenEnabled = true
	t.Cleanup(func() { config.ApproximateTokenEnabled = old })
}

func TestAdapterAppendsText(t *testing.T) {
	approximateTokens(t)
	adapter := NewAdapter(DialectChat, "TestBot", &relaymodel.Usage{PromptTokens: 10})

	chunk := adapter.Consume(&poe.BotMessage{Text: "Hi"})
	resp, ok := chunk.(*relaymodel.ChatCompletionsStreamResponse)
	require.True(t, ok)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "assistant", resp.Choices[0].Delta.Role)
	require.NotNil(t, resp.Choices[0].Delta.Content)
	assert.Equal(t, "Hi", *resp.Choices[0].Delta.Content)

	chunk = adapter.Consume(&poe.BotMessage{Text: " there"})
	resp = chunk.(*relaymodel.ChatCompletionsStreamResponse)
	assert.Empty(t, resp.Choices[0].Delta.Role)
	assert.Equal(t, " there", *resp.Choices[0].Delta.Content)

	usage := adapter.Usage()
	assert.Equal(t, 10, usage.PromptTokens)
	assert.Equal(t, len("Hi there")/4, usage.CompletionTokens)
	assert.Equal(t, usage.PromptTokens+usage.CompletionTokens, usage.TotalTokens)
}

func TestAdapterReplaceResetsBuffer(t *testing.T) {
	approximateTokens(t)
	adapter := NewAdapter(DialectChat, "TestBot", &relaymodel.Usage{PromptTokens: 5})

	adapter.Consume(&poe.BotMessage{Text: "this draft is quite long and will be thrown away"})
	adapter.Consume(&poe.BotMessage{Text: "Bye!", IsReplaceResponse: true})

	usage := adapter.Usage()
	assert.Equal(t, len("Bye!")/4, usage.CompletionTokens)
	assert.Equal(t, 5+usage.CompletionTokens, usage.TotalTokens)
}

func TestAdapterAttachmentURLRidesAlong(t *testing.T) {
	approximateTokens(t)
	adapter := NewAdapter(DialectChat, "TestBot", nil)

	chunk := adapter.Consume(&poe.BotMessage{
		Text:       "Here you go",
		Attachment: &poe.Attachment{URL: "https://files.example/pic.png"},
	})
	resp := chunk.(*relaymodel.ChatCompletionsStreamResponse)
	assert.Equal(t, "Here you go\nhttps://files.example/pic.png", *resp.Choices[0].Delta.Content)
}

func TestAdapterFinish(t *testing.T) {
	approximateTokens(t)
	adapter := NewAdapter(DialectChat, "TestBot", &relaymodel.Usage{PromptTokens: 4})
	adapter.Consume(&poe.BotMessage{Text: "some reply text"})

	final := adapter.Finish()
	resp, ok := final.(*relaymodel.ChatCompletionsStreamResponse)
	require.True(t, ok)
	require.Len(t, resp.Choices, 1)
	require.NotNil(t, resp.Choices[0].FinishReason)
	assert.Equal(t, "stop", *resp.Choices[0].FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, resp.Usage.PromptTokens+resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
}

func TestAdapterFailWithPartialContent(t *testing.T) {
	approximateTokens(t)
	adapter := NewAdapter(DialectChat, "TestBot", &relaymodel.Usage{PromptTokens: 7})
	adapter.Consume(&poe.BotMessage{Text: "partial content before the fault"})

	payload := adapter.Fail(&poe.BotError{Payload: `{"text":"Internal server error"}`})
	errPayload, ok := payload.(*streamErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "Internal server error", errPayload.Error.Message)
	assert.Equal(t, relaymodel.ErrTypePoeServer, errPayload.Error.Type)
	assert.Equal(t, errPayload.Error.Type, errPayload.Error.Code)
	require.NotNil(t, errPayload.Usage)
	assert.Equal(t, 7, errPayload.Usage.PromptTokens)
}

func TestAdapterFailWithoutContentOmitsUsage(t *testing.T) {
	approximateTokens(t)
	adapter := NewAdapter(DialectChat, "TestBot", nil)

	payload := adapter.Fail(errors.New("connection reset"))
	errPayload := payload.(*streamErrorPayload)
	assert.Nil(t, errPayload.Usage)
	assert.Equal(t, relaymodel.ErrTypeServer, errPayload.Error.Type)
}

func TestAdapterAbsorbCollectsAttachments(t *testing.T) {
	approximateTokens(t)
	adapter := NewAdapter(DialectChat, "TestBot", nil)

	adapter.Absorb(&poe.BotMessage{Text: "draft"})
	adapter.Absorb(&poe.BotMessage{Text: "Answer", IsReplaceResponse: true})
	adapter.Absorb(&poe.BotMessage{Attachment: &poe.Attachment{URL: "https://files.example/a.png"}})
	adapter.Absorb(&poe.BotMessage{Attachment: &poe.Attachment{URL: "https://files.example/b.png"}})

	assert.Equal(t, "Answer\nhttps://files.example/a.png\n\nhttps://files.example/b.png\n", adapter.Text())
	assert.Len(t, adapter.Attachments(), 2)
}
