// Package common provides shared helpers for the HTTP layer.
package common

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CustomEvent is a server-sent event render that keeps the payload verbatim.
// gin's built-in sse render escapes newlines inside the data field, which breaks
// clients that expect one data line per event.
type CustomEvent struct {
	Event string
	Id    string
	Retry uint
	Data  any
}

var contentType = []string{"text/event-stream"}
var noCache = []string{"no-cache"}

func encode(writer io.Writer, event CustomEvent) error {
	return writeSSEvent(writer, event)
}

func writeSSEvent(writer io.Writer, event CustomEvent) error {
	var sb strings.Builder
	if event.Id != "" {
		sb.WriteString(fmt.Sprintf("id: %s\n", event.Id))
	}
	if event.Event != "" {
		sb.WriteString(fmt.Sprintf("event: %s\n", event.Event))
	}
	if event.Retry > 0 {
		sb.WriteString(fmt.Sprintf("retry: %d\n", event.Retry))
	}
	sb.WriteString(fmt.Sprintf("%s\n\n", event.Data))
	_, err := writer.Write([]byte(sb.String()))
	return err
}

func (r CustomEvent) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	return encode(w, r)
}

func (r CustomEvent) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	header["Content-Type"] = contentType

	if _, exist := header["Cache-Control"]; !exist {
		header["Cache-Control"] = noCache
	}
}
