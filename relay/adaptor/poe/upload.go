package poe

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/songquanpeng/poe-bridge/common/config"
)

// extensionByMime maps the MIME types clients commonly inline to an upload
// filename extension. Anything else is uploaded as .bin.
var extensionByMime = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"application/pdf": "pdf",
}

// attachmentCache deduplicates repeated uploads of identical payloads within
// the configured TTL. Keys are content hashes scoped by API key.
var attachmentCache = gocache.New(
	time.Duration(config.AttachmentCacheSeconds)*time.Second,
	10*time.Minute,
)

type uploadResponse struct {
	AttachmentURL string `json:"attachment_url"`
	MimeType      string `json:"mime_type"`
}

// UploadBase64 decodes a data URL and uploads its payload as a file
// attachment. The data URL must carry a ;base64, marker.
func (c *Client) UploadBase64(ctx context.Context, apiKey, dataURL string) (*Attachment, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, errors.New("invalid data URL format")
	}
	header, data, found := strings.Cut(dataURL, ";base64,")
	if !found {
		return nil, errors.New("data URL is not base64 encoded")
	}
	mimeType := strings.TrimPrefix(header, "data:")

	fileData, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 payload")
	}

	extension, ok := extensionByMime[mimeType]
	if !ok {
		extension = "bin"
	}
	fileName := "uploaded_file." + extension

	cacheKey := cacheKeyFor(apiKey, fileData)
	if cached, ok := attachmentCache.Get(cacheKey); ok {
		return cached.(*Attachment), nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, errors.Wrap(err, "create multipart file part")
	}
	if _, err = part.Write(fileData); err != nil {
		return nil, errors.Wrap(err, "write multipart payload")
	}
	if err = writer.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize multipart body")
	}

	attachment, err := c.doUpload(ctx, apiKey, &body, writer.FormDataContentType(), fileName)
	if err != nil {
		return nil, err
	}
	attachmentCache.SetDefault(cacheKey, attachment)
	return attachment, nil
}

// UploadURL asks the upstream to download the file itself. Used for remote
// image URLs so the bridge never proxies the bytes.
func (c *Client) UploadURL(ctx context.Context, apiKey, fileURL string) (*Attachment, error) {
	cacheKey := cacheKeyFor(apiKey, []byte(fileURL))
	if cached, ok := attachmentCache.Get(cacheKey); ok {
		return cached.(*Attachment), nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("download_url", fileURL); err != nil {
		return nil, errors.Wrap(err, "write download_url field")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize multipart body")
	}

	attachment, err := c.doUpload(ctx, apiKey, &body, writer.FormDataContentType(), fileNameFromURL(fileURL))
	if err != nil {
		return nil, err
	}
	attachmentCache.SetDefault(cacheKey, attachment)
	return attachment, nil
}

// UploadBytes uploads raw file bytes under the given name. Used by the image
// edit endpoint, which receives files as multipart form uploads.
func (c *Client) UploadBytes(ctx context.Context, apiKey, fileName string, fileData []byte) (*Attachment, error) {
	cacheKey := cacheKeyFor(apiKey, fileData)
	if cached, ok := attachmentCache.Get(cacheKey); ok {
		return cached.(*Attachment), nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, errors.Wrap(err, "create multipart file part")
	}
	if _, err = part.Write(fileData); err != nil {
		return nil, errors.Wrap(err, "write multipart payload")
	}
	if err = writer.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize multipart body")
	}

	attachment, err := c.doUpload(ctx, apiKey, &body, writer.FormDataContentType(), fileName)
	if err != nil {
		return nil, err
	}
	attachmentCache.SetDefault(cacheKey, attachment)
	return attachment, nil
}

func (c *Client) doUpload(ctx context.Context, apiKey string, body io.Reader, contentType, fileName string) (*Attachment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", apiKey)

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "upload attachment")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, errors.Wrap(err, "read upload response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("attachment upload returned status %d: %s", resp.StatusCode, string(data))
	}

	var uploaded uploadResponse
	if err = json.Unmarshal(data, &uploaded); err != nil {
		return nil, errors.Wrap(err, "parse upload response")
	}
	if uploaded.AttachmentURL == "" {
		return nil, errors.New("attachment upload returned no URL")
	}

	return &Attachment{
		URL:         uploaded.AttachmentURL,
		ContentType: uploaded.MimeType,
		Name:        fileName,
	}, nil
}

func cacheKeyFor(apiKey string, payload []byte) string {
	sum := sha256.New()
	sum.Write([]byte(apiKey))
	sum.Write([]byte{0})
	sum.Write(payload)
	return hex.EncodeToString(sum.Sum(nil))
}

func fileNameFromURL(fileURL string) string {
	parsed, err := url.Parse(fileURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "downloaded_file"
	}
	return path.Base(parsed.Path)
}
