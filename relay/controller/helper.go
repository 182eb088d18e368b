package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	imgutil "github.com/songquanpeng/poe-bridge/common/image"
	"github.com/songquanpeng/poe-bridge/relay/adaptor/poe"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

// botStream is the subset of the upstream event stream the handlers consume.
type botStream interface {
	Next() (*poe.BotMessage, error)
	Close() error
}

// The upstream client is reached through function vars so tests can stub the
// network without an HTTP server.
var (
	relayClient = poe.NewClient()

	queryBotFn = func(ctx context.Context, apiKey, botName string, messages []poe.ProtocolMessage) (botStream, error) {
		return relayClient.Query(ctx, apiKey, botName, messages)
	}
	uploadBase64Fn = func(ctx context.Context, apiKey, dataURL string) (*poe.Attachment, error) {
		return relayClient.UploadBase64(ctx, apiKey, dataURL)
	}
	uploadURLFn = func(ctx context.Context, apiKey, fileURL string) (*poe.Attachment, error) {
		return relayClient.UploadURL(ctx, apiKey, fileURL)
	}
	uploadBytesFn = func(ctx context.Context, apiKey, fileName string, fileData []byte) (*poe.Attachment, error) {
		return relayClient.UploadBytes(ctx, apiKey, fileName, fileData)
	}
)

// NormalizeRole maps OpenAI roles onto bot protocol roles. Unknown roles pass
// through unchanged and are rejected upstream.
func NormalizeRole(role string) string {
	if role == "assistant" {
		return "bot"
	}
	return role
}

// NormalizeModel trims whitespace. No catalog validation happens here, the
// upstream service is authoritative for which bots exist.
func NormalizeModel(model string) string {
	return strings.TrimSpace(model)
}

// ConvertMessages rewrites an OpenAI conversation into protocol messages,
// uploading inline and referenced images as attachments. A message whose
// attachment uploads fail is kept with a textual placeholder; only a failure
// of the conversion itself degrades the message to bare text extraction.
func ConvertMessages(c *gin.Context, apiKey string, messages []relaymodel.Message) []poe.ProtocolMessage {
	lg := gmw.GetLogger(c)
	converted := make([]poe.ProtocolMessage, 0, len(messages))

	for _, msg := range messages {
		role := NormalizeRole(msg.Role)

		if msg.IsStringContent() {
			converted = append(converted, poe.ProtocolMessage{
				Role:    role,
				Content: msg.StringContent(),
			})
			continue
		}

		parts := msg.ParseContent()
		content, attachments, err := convertContent(c.Request.Context(), apiKey, parts)
		if err != nil {
			lg.Warn("file processing failed, falling back to text extraction",
				zap.String("role", msg.Role), zap.Error(err))
			content = extractTextOnly(parts)
			attachments = nil
		}

		converted = append(converted, poe.ProtocolMessage{
			Role:        role,
			Content:     content,
			Attachments: attachments,
		})
	}
	return converted
}

// convertContent uploads every image part and collects text parts. Upload
// failures are tolerated per part; context cancellation aborts the whole
// conversion.
func convertContent(ctx context.Context, apiKey string, parts []relaymodel.MessageContent) (string, []poe.Attachment, error) {
	var textParts []string
	var attachments []poe.Attachment

	for _, part := range parts {
		switch part.Type {
		case relaymodel.ContentTypeText:
			if part.Text != nil {
				textParts = append(textParts, *part.Text)
			}
		case relaymodel.ContentTypeImageURL, relaymodel.ContentTypeImage:
			if part.ImageURL == nil || part.ImageURL.Url == "" {
				continue
			}
			url := part.ImageURL.Url

			attachment, err := uploadImage(ctx, apiKey, url)
			if err != nil {
				if ctx.Err() != nil {
					return "", nil, ctx.Err()
				}
				if part.Type == relaymodel.ContentTypeImage {
					textParts = append(textParts, fmt.Sprintf("[Image: %s]", url))
				} else {
					textParts = append(textParts, fmt.Sprintf("[Image (upload failed): %s]", url))
				}
				continue
			}

			attachments = append(attachments, *attachment)
			if strings.HasPrefix(url, "data:") {
				textParts = append(textParts, fmt.Sprintf("[Uploaded Image: %s]", attachment.Name))
			} else {
				textParts = append(textParts, fmt.Sprintf("[Image from URL: %s]", attachment.Name))
			}
		}
	}

	return strings.Join(textParts, " "), attachments, nil
}

func uploadImage(ctx context.Context, apiKey, url string) (*poe.Attachment, error) {
	if strings.HasPrefix(url, "data:") {
		if err := validateInlineImage(url); err != nil {
			return nil, errors.Wrap(err, "invalid inline image")
		}
		return uploadBase64Fn(ctx, apiKey, url)
	}
	return uploadURLFn(ctx, apiKey, url)
}

// rasterPrefixes are the inline mime types we can decode locally. Anything
// else (svg, pdf) is passed through for the upload endpoint to judge.
var rasterPrefixes = []string{
	"data:image/png;", "data:image/jpeg;", "data:image/gif;", "data:image/webp;",
}

// validateInlineImage rejects raster payloads that do not decode as images,
// saving an upload round trip for corrupt data.
func validateInlineImage(dataURL string) error {
	for _, prefix := range rasterPrefixes {
		if strings.HasPrefix(dataURL, prefix) {
			_, _, err := imgutil.GetImageSizeFromBase64(dataURL)
			return err
		}
	}
	return nil
}

// extractTextOnly is the degraded rendering of multimodal content: text parts
// verbatim, image parts reduced to a bracketed URL reference.
func extractTextOnly(parts []relaymodel.MessageContent) string {
	var textParts []string
	for _, part := range parts {
		switch part.Type {
		case relaymodel.ContentTypeText:
			if part.Text != nil {
				textParts = append(textParts, *part.Text)
			}
		case relaymodel.ContentTypeImageURL, relaymodel.ContentTypeImage:
			url := ""
			if part.ImageURL != nil {
				url = part.ImageURL.Url
			}
			textParts = append(textParts, fmt.Sprintf("[Image: %s]", url))
		}
	}
	return strings.Join(textParts, " ")
}
