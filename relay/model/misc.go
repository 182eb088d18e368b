package model

// Usage is the token usage information returned alongside completions.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

const (
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeAuthentication = "authentication_error"
	ErrTypePermission     = "permission_error"
	ErrTypeNotFound       = "not_found_error"
	ErrTypeModelNotFound  = "model_not_found"
	ErrTypeRateLimit      = "rate_limit_error"
	ErrTypePoeAPI         = "poe_api_error"
	ErrTypePoeServer      = "poe_server_error"
	ErrTypeServer         = "server_error"
)

// Error is the canonical error record every failure is normalized into before
// it reaches a client, either as an HTTP error body or a terminal SSE event.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    any    `json:"code,omitempty"`
	// PoeError preserves the structured payload scraped from the upstream fault, if any.
	PoeError any `json:"poe_error,omitempty"`
	// ErrorID is the upstream correlation identifier, if one was embedded in the fault text.
	ErrorID string `json:"error_id,omitempty"`
	// RawError preserves the original upstream or internal error for diagnostics.
	// Omitted from JSON to avoid leaking provider internals.
	RawError error `json:"-"`
}

type ErrorWithStatusCode struct {
	Error
	StatusCode int `json:"status_code"`
}
