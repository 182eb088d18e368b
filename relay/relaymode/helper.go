package relaymode

import "strings"

// GetByPath classifies a request path, with or without the /v1 prefix.
func GetByPath(path string) int {
	path = strings.TrimPrefix(path, "/v1")
	switch {
	case strings.HasPrefix(path, "/chat/completions"):
		return ChatCompletions
	case strings.HasPrefix(path, "/completions"):
		return Completions
	case strings.HasPrefix(path, "/images/generations"):
		return ImagesGenerations
	case strings.HasPrefix(path, "/images/edits"):
		return ImagesEdits
	case strings.HasPrefix(path, "/models"):
		return ListModels
	default:
		return Unknown
	}
}
