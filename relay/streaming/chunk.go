package streaming

import (
	"github.com/songquanpeng/poe-bridge/common/helper"
	"github.com/songquanpeng/poe-bridge/common/random"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

// Dialect selects the wire shape of streamed chunks.
type Dialect int

const (
	// DialectChat emits chat.completion.chunk objects.
	DialectChat Dialect = iota
	// DialectCompletion emits legacy text_completion objects.
	DialectCompletion
	// DialectMinimal emits bare response/done objects without OpenAI framing.
	DialectMinimal
)

// NeedsDoneSentinel reports whether the dialect terminates its stream with a
// [DONE] sentinel. The minimal dialect signals completion in-band instead.
func (d Dialect) NeedsDoneSentinel() bool {
	return d != DialectMinimal
}

type minimalChunk struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	IsReplace bool   `json:"is_replace"`
}

type minimalFinalChunk struct {
	Response string            `json:"response"`
	Done     bool              `json:"done"`
	Usage    *relaymodel.Usage `json:"usage,omitempty"`
}

// FormatChunk builds one streamed content chunk. The first chat chunk carries
// the assistant role marker; replace chunks are flagged only in the minimal
// dialect, OpenAI dialects signal replacement implicitly by resending content.
func FormatChunk(dialect Dialect, model, text string, firstChunk, isReplace bool) any {
	chunkID := random.GetHexString(12)
	timestamp := helper.GetTimestamp()

	switch dialect {
	case DialectCompletion:
		return &relaymodel.CompletionsStreamResponse{
			Id:      "cmpl-" + chunkID,
			Object:  "text_completion",
			Created: timestamp,
			Model:   model,
			Choices: []relaymodel.CompletionsStreamResponseChoice{
				{Index: 0, Text: text},
			},
		}
	case DialectMinimal:
		return &minimalChunk{Response: text, IsReplace: isReplace}
	default:
		delta := relaymodel.StreamDelta{Content: &text}
		if firstChunk {
			delta.Role = "assistant"
		}
		return &relaymodel.ChatCompletionsStreamResponse{
			Id:      "chatcmpl-" + chunkID,
			Object:  "chat.completion.chunk",
			Created: timestamp,
			Model:   model,
			Choices: []relaymodel.ChatCompletionsStreamResponseChoice{
				{Index: 0, Delta: delta},
			},
		}
	}
}

// FormatFinal builds the terminal chunk carrying the finish reason and, when
// available, the usage totals.
func FormatFinal(dialect Dialect, model string, usage *relaymodel.Usage) any {
	chunkID := random.GetHexString(12)
	timestamp := helper.GetTimestamp()
	finishReason := "stop"

	switch dialect {
	case DialectCompletion:
		return &relaymodel.CompletionsStreamResponse{
			Id:      "cmpl-" + chunkID,
			Object:  "text_completion",
			Created: timestamp,
			Model:   model,
			Choices: []relaymodel.CompletionsStreamResponseChoice{
				{Index: 0, Text: "", FinishReason: &finishReason},
			},
			Usage: usage,
		}
	case DialectMinimal:
		return &minimalFinalChunk{Done: true, Usage: usage}
	default:
		return &relaymodel.ChatCompletionsStreamResponse{
			Id:      "chatcmpl-" + chunkID,
			Object:  "chat.completion.chunk",
			Created: timestamp,
			Model:   model,
			Choices: []relaymodel.ChatCompletionsStreamResponseChoice{
				{Index: 0, FinishReason: &finishReason},
			},
			Usage: usage,
		}
	}
}
