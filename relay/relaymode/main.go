package relaymode

const (
	Unknown = iota
	ChatCompletions
	Completions
	ImagesGenerations
	ImagesEdits
	ListModels
)

// Name returns the metrics label for a relay mode.
func Name(mode int) string {
	switch mode {
	case ChatCompletions:
		return "chat_completions"
	case Completions:
		return "completions"
	case ImagesGenerations:
		return "images_generations"
	case ImagesEdits:
		return "images_edits"
	case ListModels:
		return "list_models"
	default:
		return "unknown"
	}
}
