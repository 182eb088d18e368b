package poe

// Attachment is a file attached to a protocol message, either uploaded by the
// bridge on behalf of the client or emitted by a bot alongside its reply.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Name        string `json:"name,omitempty"`
}

// ProtocolMessage is one turn of a bot conversation. Roles on this side of the
// bridge are system, user and bot.
type ProtocolMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ContentType string       `json:"content_type,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// QueryRequest is the body POSTed to a bot. Version and Type are fixed by the
// protocol revision this client speaks.
type QueryRequest struct {
	Version          string            `json:"version"`
	Type             string            `json:"type"`
	Query            []ProtocolMessage `json:"query"`
	UserID           string            `json:"user_id"`
	ConversationID   string            `json:"conversation_id"`
	MessageID        string            `json:"message_id"`
	SkipSystemPrompt bool              `json:"skip_system_prompt"`
}

// BotMessage is one event of a bot's streamed reply. A text event appends to
// the reply, a replace event discards everything accumulated so far, a file
// event carries an attachment produced by the bot.
type BotMessage struct {
	Text              string      `json:"text"`
	IsReplaceResponse bool        `json:"-"`
	Attachment        *Attachment `json:"-"`
}
