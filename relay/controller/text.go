package controller

import (
	"io"
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/common"
	"github.com/songquanpeng/poe-bridge/common/ctxkey"
	"github.com/songquanpeng/poe-bridge/common/helper"
	"github.com/songquanpeng/poe-bridge/common/random"
	"github.com/songquanpeng/poe-bridge/common/render"
	"github.com/songquanpeng/poe-bridge/monitor"
	"github.com/songquanpeng/poe-bridge/relay/adaptor/poe"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
	"github.com/songquanpeng/poe-bridge/relay/relaymode"
	"github.com/songquanpeng/poe-bridge/relay/streaming"
	"github.com/songquanpeng/poe-bridge/relay/token"
)

// RelayChatCompletions serves POST /v1/chat/completions.
func RelayChatCompletions(c *gin.Context) {
	lg := gmw.GetLogger(c)

	var request relaymodel.GeneralOpenAIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "Invalid request body: "+err.Error(), "")
		return
	}
	if len(request.Messages) == 0 {
		badRequest(c, "Messages array cannot be empty", "messages")
		return
	}
	if len(request.Tools) > 0 {
		lg.Debug("tools are not supported by the upstream protocol, ignoring",
			zap.Int("count", len(request.Tools)))
	}

	model := NormalizeModel(request.Model)
	apiKey := c.GetString(ctxkey.APIKey)
	c.Set(ctxkey.RequestModel, model)
	monitor.RecordRelayRequest(relaymode.Name(relaymode.ChatCompletions), model)

	messages := ConvertMessages(c, apiKey, request.Messages)
	promptUsage := token.CountMessages(messages)

	if request.Stream {
		relayStream(c, streaming.DialectChat, model, apiKey, messages, promptUsage, relaymode.ChatCompletions)
		return
	}

	adapter := streaming.NewAdapter(streaming.DialectChat, model, promptUsage)
	if relayErr := absorbBotResponse(c, model, apiKey, messages, adapter); relayErr != nil {
		monitor.RecordRelayError(relaymode.Name(relaymode.ChatCompletions), relayErr.Type)
		respondError(c, relayErr)
		return
	}

	// Completion tokens are counted over the final content, attachment URLs
	// included, so usage matches what the client actually received.
	content := adapter.Text()
	completionTokens := token.CountText(content)

	c.JSON(http.StatusOK, relaymodel.TextResponse{
		Id:      "chatcmpl-" + random.GetHexString(12),
		Object:  "chat.completion",
		Created: helper.GetTimestamp(),
		Model:   request.Model,
		Choices: []relaymodel.TextResponseChoice{
			{
				Index: 0,
				Message: relaymodel.Message{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: relaymodel.Usage{
			PromptTokens:     promptUsage.PromptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptUsage.PromptTokens + completionTokens,
		},
	})
}

// RelayCompletions serves POST /v1/completions. The prompt becomes a single
// user turn; everything downstream is shared with the chat endpoint.
func RelayCompletions(c *gin.Context) {
	var request relaymodel.TextRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "Invalid request body: "+err.Error(), "")
		return
	}

	model := NormalizeModel(request.Model)
	apiKey := c.GetString(ctxkey.APIKey)
	c.Set(ctxkey.RequestModel, model)
	monitor.RecordRelayRequest(relaymode.Name(relaymode.Completions), model)

	prompt := request.StringPrompt()
	messages := []poe.ProtocolMessage{{Role: "user", Content: prompt}}

	if request.Stream {
		relayStream(c, streaming.DialectCompletion, model, apiKey, messages, token.CountMessages(messages), relaymode.Completions)
		return
	}

	adapter := streaming.NewAdapter(streaming.DialectCompletion, model, nil)
	if relayErr := absorbBotResponse(c, model, apiKey, messages, adapter); relayErr != nil {
		monitor.RecordRelayError(relaymode.Name(relaymode.Completions), relayErr.Type)
		respondError(c, relayErr)
		return
	}

	content := adapter.Text()
	promptTokens := token.CountText(prompt)
	completionTokens := token.CountText(content)

	c.JSON(http.StatusOK, relaymodel.CompletionResponse{
		Id:      "cmpl-" + random.GetHexString(12),
		Object:  "text_completion",
		Created: helper.GetTimestamp(),
		Model:   request.Model,
		Choices: []relaymodel.CompletionResponseChoice{
			{Index: 0, Text: content, FinishReason: "stop"},
		},
		Usage: relaymodel.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

// relayStream drives a bot reply onto the wire as server-sent events. The
// stream always terminates cleanly from the client's point of view: upstream
// faults become an in-band error payload followed by the dialect's sentinel.
func relayStream(c *gin.Context, dialect streaming.Dialect, model, apiKey string, messages []poe.ProtocolMessage, promptUsage *relaymodel.Usage, mode int) {
	lg := gmw.GetLogger(c)
	adapter := streaming.NewAdapter(dialect, model, promptUsage)
	common.SetEventStreamHeaders(c)

	finish := func(payload any) {
		if err := render.ObjectData(c, payload); err != nil {
			lg.Warn("write stream payload", zap.Error(err))
		}
		if dialect.NeedsDoneSentinel() {
			render.Done(c)
		}
	}

	stream, err := queryBotFn(c.Request.Context(), apiKey, model, messages)
	if err != nil {
		monitor.RecordRelayError(relaymode.Name(mode), poe.NormalizeError(err).Type)
		finish(adapter.Fail(err))
		return
	}
	defer stream.Close()

	for {
		msg, err := stream.Next()
		if err == io.EOF {
			finish(adapter.Finish())
			return
		}
		if err != nil {
			monitor.RecordRelayError(relaymode.Name(mode), poe.NormalizeError(err).Type)
			finish(adapter.Fail(err))
			return
		}
		if writeErr := render.ObjectData(c, adapter.Consume(msg)); writeErr != nil {
			lg.Warn("client disconnected mid-stream", zap.Error(writeErr))
			return
		}
	}
}

// absorbBotResponse runs a full bot reply into the adapter for non-streaming
// responses. It returns the normalized error on upstream failure.
func absorbBotResponse(c *gin.Context, model, apiKey string, messages []poe.ProtocolMessage, adapter *streaming.Adapter) *relaymodel.ErrorWithStatusCode {
	stream, err := queryBotFn(c.Request.Context(), apiKey, model, messages)
	if err != nil {
		return poe.NormalizeError(err)
	}
	defer stream.Close()

	for {
		msg, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return poe.NormalizeError(err)
		}
		adapter.Absorb(msg)
	}
}
