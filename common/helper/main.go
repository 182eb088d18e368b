package helper

import (
	"fmt"

	"github.com/songquanpeng/poe-bridge/common/random"
)

const (
	RequestIdKey = "X-Poe-Bridge-Request-Id"
)

// GenRequestID returns a sortable per-request identifier: timestamp prefix plus random suffix.
func GenRequestID() string {
	return GetTimeString() + random.GetRandomNumberString(8)
}

func MessageWithRequestId(message string, id string) string {
	return fmt.Sprintf("%s (request id: %s)", message, id)
}
