package controller

import (
	"fmt"
	"io"
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/common/config"
	"github.com/songquanpeng/poe-bridge/common/ctxkey"
	"github.com/songquanpeng/poe-bridge/common/helper"
	imgutil "github.com/songquanpeng/poe-bridge/common/image"
	"github.com/songquanpeng/poe-bridge/monitor"
	"github.com/songquanpeng/poe-bridge/relay/adaptor/poe"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
	"github.com/songquanpeng/poe-bridge/relay/relaymode"
)

// RelayImageGenerations serves POST /v1/images/generations. Each requested
// image is a separate bot query; the request succeeds if at least one query
// yields a file.
func RelayImageGenerations(c *gin.Context) {
	var request relaymodel.ImageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "Invalid request body: "+err.Error(), "prompt")
		return
	}

	model := NormalizeModel(request.Model)
	if model == "" {
		model = config.DefaultImageModel
	}
	apiKey := c.GetString(ctxkey.APIKey)
	c.Set(ctxkey.RequestModel, model)
	monitor.RecordRelayRequest(relaymode.Name(relaymode.ImagesGenerations), model)

	messages := []poe.ProtocolMessage{{Role: "user", Content: request.Prompt}}
	data := generateImages(c, model, apiKey, messages, clampImageCount(request.N), request.ResponseFormat)
	if len(data) == 0 {
		monitor.RecordRelayError(relaymode.Name(relaymode.ImagesGenerations), "image_generation_error")
		imageFailure(c, "generate", "image_generation_error")
		return
	}

	c.JSON(http.StatusOK, relaymodel.ImageResponse{
		Created: helper.GetTimestamp(),
		Data:    data,
	})
}

type imageEditForm struct {
	Prompt         string `form:"prompt" binding:"required"`
	Model          string `form:"model"`
	N              int    `form:"n"`
	Size           string `form:"size"`
	ResponseFormat string `form:"response_format"`
}

// RelayImageEdits serves POST /v1/images/edits. The source image is uploaded
// as an attachment on the prompt turn. A mask part is accepted for wire
// compatibility but not forwarded, the upstream bots take no mask input.
func RelayImageEdits(c *gin.Context) {
	lg := gmw.GetLogger(c)

	var form imageEditForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "Invalid request body: "+err.Error(), "prompt")
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "Image file is required", "image")
		return
	}

	model := NormalizeModel(form.Model)
	if model == "" {
		model = config.DefaultImageEditModel
	}
	apiKey := c.GetString(ctxkey.APIKey)
	c.Set(ctxkey.RequestModel, model)
	monitor.RecordRelayRequest(relaymode.Name(relaymode.ImagesEdits), model)

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, ErrorWrapper(err, "read_image_failed", http.StatusBadRequest))
		return
	}
	defer file.Close()
	fileData, err := io.ReadAll(file)
	if err != nil {
		respondError(c, ErrorWrapper(err, "read_image_failed", http.StatusBadRequest))
		return
	}

	fileName := fileHeader.Filename
	if fileName == "" {
		fileName = "image.png"
	}

	content := form.Prompt
	var attachments []poe.Attachment
	attachment, err := uploadBytesFn(c.Request.Context(), apiKey, fileName, fileData)
	if err != nil {
		lg.Warn("image upload failed, degrading to text placeholder",
			zap.String("file", fileName), zap.Error(err))
		content += " " + fmt.Sprintf("[Image (upload failed): %s]", fileName)
	} else {
		content += " " + fmt.Sprintf("[Uploaded Image: %s]", attachment.Name)
		attachments = append(attachments, *attachment)
	}

	messages := []poe.ProtocolMessage{{
		Role:        "user",
		Content:     content,
		Attachments: attachments,
	}}

	data := generateImages(c, model, apiKey, messages, clampImageCount(form.N), form.ResponseFormat)
	if len(data) == 0 {
		monitor.RecordRelayError(relaymode.Name(relaymode.ImagesEdits), "image_edit_error")
		imageFailure(c, "edit", "image_edit_error")
		return
	}

	c.JSON(http.StatusOK, relaymodel.ImageResponse{
		Created: helper.GetTimestamp(),
		Data:    data,
	})
}

// generateImages queries the bot once per requested image and collects the
// first file of every reply. Failed attempts are logged and skipped.
func generateImages(c *gin.Context, model, apiKey string, messages []poe.ProtocolMessage, count int, responseFormat string) []relaymodel.ImageData {
	lg := gmw.GetLogger(c)
	var data []relaymodel.ImageData

	for i := 0; i < count; i++ {
		attachment, err := firstFileFromBot(c, model, apiKey, messages)
		if err != nil {
			lg.Warn("image query failed",
				zap.Int("attempt", i+1), zap.Int("requested", count), zap.Error(err))
			continue
		}
		if attachment == nil {
			lg.Warn("bot reply carried no file",
				zap.Int("attempt", i+1), zap.Int("requested", count))
			continue
		}

		if responseFormat == "b64_json" {
			_, b64, err := imgutil.GetImageFromUrl(attachment.URL)
			if err != nil {
				lg.Warn("failed to inline generated image",
					zap.String("url", attachment.URL), zap.Error(err))
				continue
			}
			data = append(data, relaymodel.ImageData{B64Json: b64})
		} else {
			data = append(data, relaymodel.ImageData{Url: attachment.URL})
		}
	}
	return data
}

// firstFileFromBot runs one bot query and returns the first file event, or
// nil when the reply completes without one.
func firstFileFromBot(c *gin.Context, model, apiKey string, messages []poe.ProtocolMessage) (*poe.Attachment, error) {
	stream, err := queryBotFn(c.Request.Context(), apiKey, model, messages)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	for {
		msg, err := stream.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if msg.Attachment != nil {
			return msg.Attachment, nil
		}
	}
}

func clampImageCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > config.MaxImagesPerRequest {
		return config.MaxImagesPerRequest
	}
	return n
}
