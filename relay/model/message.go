package model

const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
	// ContentTypeImage is the legacy image part shape where image_url is a bare string.
	ContentTypeImage = "image"
)

type Message struct {
	Role string `json:"role"`
	// Content is either a plain string or an ordered list of typed parts.
	Content any     `json:"content"`
	Name    *string `json:"name,omitempty"`
}

type ImageURL struct {
	Url    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type MessageContent struct {
	Type     string    `json:"type"`
	Text     *string   `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// IsStringContent reports whether the message carries plain text content.
func (m Message) IsStringContent() bool {
	_, ok := m.Content.(string)
	return ok
}

// StringContent returns the text of the message: the content itself for plain
// messages, the concatenated text parts for multimodal ones.
func (m Message) StringContent() string {
	content, ok := m.Content.(string)
	if ok {
		return content
	}
	contentList, ok := m.Content.([]any)
	if !ok {
		return ""
	}

	var contentStr string
	for _, contentItem := range contentList {
		contentMap, ok := contentItem.(map[string]any)
		if !ok {
			continue
		}
		if contentMap["type"] == ContentTypeText {
			if subStr, ok := contentMap["text"].(string); ok {
				contentStr += subStr
			}
		}
	}
	return contentStr
}

// ParseContent normalizes the polymorphic content field into typed parts.
// Both the current image_url object shape and the legacy image shape (where
// image_url is a bare string) are recognized.
func (m Message) ParseContent() []MessageContent {
	var contentList []MessageContent
	content, ok := m.Content.(string)
	if ok {
		contentList = append(contentList, MessageContent{
			Type: ContentTypeText,
			Text: &content,
		})
		return contentList
	}

	anyList, ok := m.Content.([]any)
	if !ok {
		return contentList
	}
	for _, contentItem := range anyList {
		contentMap, ok := contentItem.(map[string]any)
		if !ok {
			continue
		}
		switch contentMap["type"] {
		case ContentTypeText:
			if subStr, ok := contentMap["text"].(string); ok {
				contentList = append(contentList, MessageContent{
					Type: ContentTypeText,
					Text: &subStr,
				})
			}
		case ContentTypeImageURL:
			if subObj, ok := contentMap["image_url"].(map[string]any); ok {
				detail := ""
				if d, ok := subObj["detail"].(string); ok {
					detail = d
				}
				url, _ := subObj["url"].(string)
				contentList = append(contentList, MessageContent{
					Type: ContentTypeImageURL,
					ImageURL: &ImageURL{
						Url:    url,
						Detail: detail,
					},
				})
			} else if subStr, ok := contentMap["image_url"].(string); ok {
				contentList = append(contentList, MessageContent{
					Type: ContentTypeImageURL,
					ImageURL: &ImageURL{
						Url: subStr,
					},
				})
			}
		case ContentTypeImage:
			if subStr, ok := contentMap["image_url"].(string); ok {
				contentList = append(contentList, MessageContent{
					Type: ContentTypeImage,
					ImageURL: &ImageURL{
						Url: subStr,
					},
				})
			}
		}
	}
	return contentList
}
