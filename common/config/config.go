package config

import (
	"strings"

	"github.com/songquanpeng/poe-bridge/common/env"
)

var (
	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)

	// GinMode allows forcing Gin into release mode (or other modes) without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))

	// ServerPort overrides the default listen port when running inside container or PaaS environments.
	ServerPort = strings.TrimSpace(env.String("PORT", ""))

	// PoeBaseURL is the bot-query endpoint prefix; the bot name is appended per request.
	PoeBaseURL = strings.TrimRight(env.String("POE_BASE_URL", "https://api.poe.com/bot"), "/")

	// PoeFileUploadURL receives multipart uploads for message attachments.
	PoeFileUploadURL = env.String("POE_FILE_UPLOAD_URL", "https://www.quora.com/poe_api/file_upload_3RD_PARTY_POST")

	// RelayTimeout bounds upstream HTTP requests (seconds) before aborting them. Zero means no limit,
	// which is the safe default for long-lived streaming responses.
	RelayTimeout = env.Int("RELAY_TIMEOUT", 0)

	// UserContentRequestTimeout bounds outbound fetches of user-supplied URLs (seconds).
	UserContentRequestTimeout = env.Int("USER_CONTENT_REQUEST_TIMEOUT", 30)

	// MaxInlineImageSizeMB limits the size (MB) of images that can be inlined as base64 to prevent
	// oversized payloads from overwhelming the upstream file store.
	MaxInlineImageSizeMB = func() int {
		v := env.Int("MAX_INLINE_IMAGE_SIZE_MB", 30)
		if v < 0 {
			panic("MAX_INLINE_IMAGE_SIZE_MB must not be negative")
		}
		return v
	}()

	// ApproximateTokenEnabled skips the tiktoken encoder and estimates token counts from text length.
	ApproximateTokenEnabled = env.Bool("APPROXIMATE_TOKEN_ENABLED", false)

	// AttachmentCacheSeconds controls how long uploaded attachment references are reused for
	// identical payloads before re-uploading.
	AttachmentCacheSeconds = env.Int("ATTACHMENT_CACHE_SECONDS", 3600)

	// EnablePrometheusMetrics exposes /metrics and per-request relay counters.
	EnablePrometheusMetrics = env.Bool("ENABLE_PROMETHEUS_METRICS", true)

	// DefaultImageModel is used by the image generation endpoint when the request omits a model.
	DefaultImageModel = env.String("DEFAULT_IMAGE_MODEL", "Imagen-3-Fast")

	// DefaultImageEditModel is used by the image edit endpoint when the request omits a model.
	DefaultImageEditModel = env.String("DEFAULT_IMAGE_EDIT_MODEL", "StableDiffusionXL")

	// MaxImagesPerRequest caps the n parameter of image endpoints.
	MaxImagesPerRequest = env.Int("MAX_IMAGES_PER_REQUEST", 10)
)
