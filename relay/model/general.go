package model

// GeneralOpenAIRequest is the chat completion request body. Sampling fields are
// accepted for wire compatibility but not enforced beyond defaults; the
// upstream bot decides its own sampling.
type GeneralOpenAIRequest struct {
	Model            string             `json:"model"`
	Messages         []Message          `json:"messages"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	Seed             *int               `json:"seed,omitempty"`
	ResponseFormat   map[string]string  `json:"response_format,omitempty"`
	N                *int               `json:"n,omitempty"`
	Stream           bool               `json:"stream,omitempty"`
	Stop             any                `json:"stop,omitempty"`
	MaxTokens        int                `json:"max_tokens,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	User             string             `json:"user,omitempty"`
	// Tools are accepted and ignored; the upstream protocol has no tool calling.
	Tools      []any `json:"tools,omitempty"`
	ToolChoice any   `json:"tool_choice,omitempty"`
}

// TextRequest is the legacy completion request body.
type TextRequest struct {
	Model       string   `json:"model"`
	Prompt      any      `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
	Stop        any      `json:"stop,omitempty"`
	User        string   `json:"user,omitempty"`
}

// StringPrompt flattens the polymorphic prompt field (string or string list).
func (r TextRequest) StringPrompt() string {
	if prompt, ok := r.Prompt.(string); ok {
		return prompt
	}
	promptList, ok := r.Prompt.([]any)
	if !ok {
		return ""
	}
	var result string
	for _, p := range promptList {
		if s, ok := p.(string); ok {
			result += s
		}
	}
	return result
}

// ImageRequest is shared by the generation and edit endpoints. Size is accepted
// and ignored: the upstream bots decide output dimensions themselves.
type ImageRequest struct {
	Prompt         string `json:"prompt" binding:"required"`
	Model          string `json:"model,omitempty"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	User           string `json:"user,omitempty"`
}
