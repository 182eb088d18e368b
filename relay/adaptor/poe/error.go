package poe

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"

	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

// BotError is a terminal error event received on a bot response stream. The
// payload is the raw JSON body of the event, preserved verbatim so the
// normalizer can recover the structured fault.
type BotError struct {
	Payload string
}

func (e *BotError) Error() string {
	return "BotError('" + e.Payload + "')"
}

// ValidationError is a client-side fault detected before a bot is queried,
// such as an unusable message list or an unknown model.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StatusForType maps a normalized error type to the HTTP status it is served
// with. Unrecognized types fall through to 500.
func StatusForType(errType string) int {
	switch errType {
	case relaymodel.ErrTypeInvalidRequest:
		return http.StatusBadRequest
	case relaymodel.ErrTypeAuthentication:
		return http.StatusUnauthorized
	case relaymodel.ErrTypePermission:
		return http.StatusForbidden
	case relaymodel.ErrTypeNotFound, relaymodel.ErrTypeModelNotFound:
		return http.StatusNotFound
	case relaymodel.ErrTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// applyStructuredFault decodes a JSON fault payload into the error record. A
// payload that fails to parse leaves the record untouched.
func applyStructuredFault(result *relaymodel.Error, payload string) {
	var data map[string]any
	if jsonErr := json.Unmarshal([]byte(payload), &data); jsonErr != nil {
		return
	}
	result.PoeError = data
	result.Type = relaymodel.ErrTypePoeAPI
	if text, ok := data["text"].(string); ok {
		result.Message = text
	}
	if id, ok := data["error_id"].(string); ok {
		result.ErrorID = id
	}
}

// NormalizeError converts any upstream or internal failure into the canonical
// error record. It never fails: when no structured fault can be recovered the
// raw error text is served as a server_error.
//
// Recovery is attempted in order. A message that is itself a JSON object is
// decoded directly. Otherwise a BotError('...') wrapper is unwrapped and its
// embedded JSON decoded. In both cases the fault's "text" field becomes the
// message and the type becomes poe_api_error. An upstream correlation id is
// lifted into its own field, whether it arrives as an "error_id" payload field
// or as a trailing "error_id: <id>" marker in the message.
func NormalizeError(err error) *relaymodel.ErrorWithStatusCode {
	errStr := err.Error()
	result := &relaymodel.Error{
		Message:  errStr,
		Type:     relaymodel.ErrTypeServer,
		RawError: err,
	}

	if strings.HasPrefix(errStr, "{") && strings.HasSuffix(errStr, "}") {
		applyStructuredFault(result, errStr)
	} else if start := strings.Index(errStr, "BotError('"); start >= 0 {
		if end := strings.LastIndex(errStr, "')"); end > start {
			applyStructuredFault(result, errStr[start+len("BotError('"):end])
		}
	}

	if _, after, found := strings.Cut(result.Message, "error_id:"); found {
		result.ErrorID = strings.TrimSuffix(strings.TrimSpace(after), ")")
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) && strings.Contains(errStr, "Model") {
		result.Type = relaymodel.ErrTypeModelNotFound
	} else if strings.Contains(result.Message, "Internal server error") {
		result.Type = relaymodel.ErrTypePoeServer
	}

	return &relaymodel.ErrorWithStatusCode{
		Error:      *result,
		StatusCode: StatusForType(result.Type),
	}
}
