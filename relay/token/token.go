// Package token counts prompt and completion tokens for usage reporting.
// All bots are counted with the cl100k_base encoding for consistency; exact
// parity with any particular upstream tokenizer is not a goal.
package token

import (
	"sync"

	"github.com/Laisky/zap"
	"github.com/pkoukk/tiktoken-go"

	"github.com/songquanpeng/poe-bridge/common/config"
	"github.com/songquanpeng/poe-bridge/common/logger"
	"github.com/songquanpeng/poe-bridge/relay/adaptor/poe"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// Init eagerly loads the encoder so the first request does not pay the cost.
// A load failure is not fatal: counting falls back to approximation.
func Init() {
	if enc := getEncoder(); enc == nil && !config.ApproximateTokenEnabled {
		logger.Logger.Warn("token encoder unavailable, falling back to approximate counting",
			zap.String("encoding", "cl100k_base"))
	}
}

func getEncoder() *tiktoken.Tiktoken {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Logger.Warn("failed to load token encoder", zap.Error(err))
			return
		}
		encoder = enc
	})
	return encoder
}

// CountText returns the token count of a string. When approximation is
// enabled, or the encoder could not be loaded, it estimates four characters
// per token.
func CountText(text string) int {
	if !config.ApproximateTokenEnabled {
		if enc := getEncoder(); enc != nil {
			return len(enc.Encode(text, nil, nil))
		}
	}
	return len(text) / 4
}

// CountMessages splits the token count of a conversation by role: bot turns
// count as completion tokens, everything else as prompt tokens. A fixed
// overhead of 3 tokens covers message framing.
func CountMessages(messages []poe.ProtocolMessage) *relaymodel.Usage {
	usage := &relaymodel.Usage{}
	for _, msg := range messages {
		count := CountText(msg.Content)
		if msg.Role == "bot" || msg.Role == "assistant" {
			usage.CompletionTokens += count
		} else {
			usage.PromptTokens += count
		}
	}
	usage.PromptTokens += 3
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}
