package model

// TextResponseChoice is one choice of a non-streaming chat completion.
type TextResponseChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// TextResponse is the non-streaming chat completion body.
type TextResponse struct {
	Id      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []TextResponseChoice `json:"choices"`
	Usage   `json:"usage"`
}

// CompletionResponseChoice is one choice of a legacy non-streaming completion.
type CompletionResponseChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Logprobs     any    `json:"logprobs"`
	FinishReason string `json:"finish_reason"`
}

// CompletionResponse is the legacy non-streaming completion body.
type CompletionResponse struct {
	Id      string                     `json:"id"`
	Object  string                     `json:"object"`
	Created int64                      `json:"created"`
	Model   string                     `json:"model"`
	Choices []CompletionResponseChoice `json:"choices"`
	Usage   `json:"usage"`
}

// StreamDelta is the incremental payload of a chat stream chunk. Content is a
// pointer so empty deltas still serialize their content field while the
// terminal chunk serializes as an empty object.
type StreamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

type ChatCompletionsStreamResponseChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	Logprobs     any         `json:"logprobs"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

type ChatCompletionsStreamResponse struct {
	Id      string                                `json:"id"`
	Object  string                                `json:"object"`
	Created int64                                 `json:"created"`
	Model   string                                `json:"model"`
	Choices []ChatCompletionsStreamResponseChoice `json:"choices"`
	Usage   *Usage                                `json:"usage,omitempty"`
}

type CompletionsStreamResponseChoice struct {
	Index        int     `json:"index"`
	Text         string  `json:"text"`
	Logprobs     any     `json:"logprobs"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

type CompletionsStreamResponse struct {
	Id      string                            `json:"id"`
	Object  string                            `json:"object"`
	Created int64                             `json:"created"`
	Model   string                            `json:"model"`
	Choices []CompletionsStreamResponseChoice `json:"choices"`
	Usage   *Usage                            `json:"usage,omitempty"`
}

// ImageData is one generated image, delivered either by URL or inline.
type ImageData struct {
	Url     string `json:"url,omitempty"`
	B64Json string `json:"b64_json,omitempty"`
}

// ImageResponse is the body of the image generation and edit endpoints.
type ImageResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}
