// Package client provides the shared HTTP clients used for upstream calls.
package client

import (
	"net/http"
	"time"

	"github.com/songquanpeng/poe-bridge/common/config"
)

// HTTPClient carries bot-query and upload traffic. It deliberately has no
// timeout by default: streaming responses stay open for the lifetime of the
// generation and are bounded by the request context instead.
var HTTPClient *http.Client

// UserContentRequestHTTPClient fetches user-supplied or bot-produced URLs
// (remote images, b64_json downloads) and is bounded tightly.
var UserContentRequestHTTPClient *http.Client

func Init() {
	UserContentRequestHTTPClient = &http.Client{
		Timeout: time.Duration(config.UserContentRequestTimeout) * time.Second,
	}

	if config.RelayTimeout == 0 {
		HTTPClient = &http.Client{}
	} else {
		HTTPClient = &http.Client{
			Timeout: time.Duration(config.RelayTimeout) * time.Second,
		}
	}
}
