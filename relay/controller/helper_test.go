package controller

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/poe-bridge/common/logger"
	"github.com/songquanpeng/poe-bridge/relay/adaptor/poe"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// A valid 1x1 PNG so inline payloads survive raster validation.
const tinyPNGDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

func testContext(t *testing.T) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/v1/chat/completions", nil)
	gmw.SetLogger(c, logger.Logger)
	return c
}

func stubUploadBase64(t *testing.T, fn func(ctx context.Context, apiKey, dataURL string) (*poe.Attachment, error)) {
	t.Helper()
	old := uploadBase64Fn
	uploadBase64Fn = fn
	t.Cleanup(func() { uploadBase64Fn = old })
}

func stubUploadURL(t *testing.T, fn func(ctx context.Context, apiKey, fileURL string) (*poe.Attachment, error)) {
	t.Helper()
	old := uploadURLFn
	uploadURLFn = fn
	t.Cleanup(func() { uploadURLFn = old })
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, "user", NormalizeRole("user"))
	assert.Equal(t, "bot", NormalizeRole("assistant"))
	assert.Equal(t, "system", NormalizeRole("system"))
	assert.Equal(t, "tool", NormalizeRole("tool"))
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "Claude-Sonnet-4", NormalizeModel("  Claude-Sonnet-4 "))
}

func TestConvertMessagesPlainText(t *testing.T) {
	c := testContext(t)
	converted := ConvertMessages(c, "key", []relaymodel.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})

	require.Len(t, converted, 3)
	assert.Equal(t, poe.ProtocolMessage{Role: "system", Content: "be terse"}, converted[0])
	assert.Equal(t, poe.ProtocolMessage{Role: "user", Content: "hello"}, converted[1])
	assert.Equal(t, poe.ProtocolMessage{Role: "bot", Content: "hi"}, converted[2])
}

func TestConvertMessagesUploadsImages(t *testing.T) {
	stubUploadBase64(t, func(ctx context.Context, apiKey, dataURL string) (*poe.Attachment, error) {
		return &poe.Attachment{URL: "https://files.example/1", Name: "uploaded_file.png"}, nil
	})
	stubUploadURL(t, func(ctx context.Context, apiKey, fileURL string) (*poe.Attachment, error) {
		return &poe.Attachment{URL: "https://files.example/2", Name: "cat.jpg"}, nil
	})

	c := testContext(t)
	converted := ConvertMessages(c, "key", []relaymodel.Message{
		{Role: "user", Content: []any{
			map[string]any{"type": "text", "text": "look at this"},
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": tinyPNGDataURL}},
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://cdn.example/cat.jpg"}},
		}},
	})

	require.Len(t, converted, 1)
	assert.Equal(t, "look at this [Uploaded Image: uploaded_file.png] [Image from URL: cat.jpg]", converted[0].Content)
	require.Len(t, converted[0].Attachments, 2)
	assert.Equal(t, "https://files.example/1", converted[0].Attachments[0].URL)
	assert.Equal(t, "https://files.example/2", converted[0].Attachments[1].URL)
}

func TestConvertMessagesToleratesFailedUpload(t *testing.T) {
	stubUploadURL(t, func(ctx context.Context, apiKey, fileURL string) (*poe.Attachment, error) {
		return nil, errors.New("upload rejected")
	})

	c := testContext(t)
	converted := ConvertMessages(c, "key", []relaymodel.Message{
		{Role: "user", Content: []any{
			map[string]any{"type": "text", "text": "describe"},
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://cdn.example/gone.jpg"}},
		}},
	})

	require.Len(t, converted, 1)
	assert.Equal(t, "describe [Image (upload failed): https://cdn.example/gone.jpg]", converted[0].Content)
	assert.Empty(t, converted[0].Attachments)
}

func TestConvertMessagesRejectsCorruptInlineImage(t *testing.T) {
	stubUploadBase64(t, func(ctx context.Context, apiKey, dataURL string) (*poe.Attachment, error) {
		t.Fatal("corrupt payload must not reach the upload endpoint")
		return nil, nil
	})

	c := testContext(t)
	converted := ConvertMessages(c, "key", []relaymodel.Message{
		{Role: "user", Content: []any{
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": "data:image/png;base64,aaaa"}},
		}},
	})

	require.Len(t, converted, 1)
	assert.Equal(t, "[Image (upload failed): data:image/png;base64,aaaa]", converted[0].Content)
	assert.Empty(t, converted[0].Attachments)
}

func TestConvertMessagesLegacyImagePart(t *testing.T) {
	stubUploadURL(t, func(ctx context.Context, apiKey, fileURL string) (*poe.Attachment, error) {
		return nil, errors.New("upload rejected")
	})

	c := testContext(t)
	converted := ConvertMessages(c, "key", []relaymodel.Message{
		{Role: "user", Content: []any{
			map[string]any{"type": "image", "image_url": "https://cdn.example/old.jpg"},
		}},
	})

	require.Len(t, converted, 1)
	// The legacy part shape degrades to the shorter placeholder.
	assert.Equal(t, "[Image: https://cdn.example/old.jpg]", converted[0].Content)
}

func TestConvertMessagesFallsBackOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stubUploadURL(t, func(_ context.Context, apiKey, fileURL string) (*poe.Attachment, error) {
		return nil, ctx.Err()
	})

	c := testContext(t)
	c.Request = c.Request.WithContext(ctx)
	converted := ConvertMessages(c, "key", []relaymodel.Message{
		{Role: "user", Content: []any{
			map[string]any{"type": "text", "text": "caption"},
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://cdn.example/x.jpg"}},
		}},
	})

	require.Len(t, converted, 1)
	assert.Equal(t, "caption [Image: https://cdn.example/x.jpg]", converted[0].Content)
	assert.Empty(t, converted[0].Attachments)
}
