// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// Shared outbound clients with bounded timeouts per destination class.
var (
	VideoHTTPClient   = &http.Client{Timeout: 10 * time.Second}
	WebhookHTTPClient = &http.Client{Timeout: 15 * time.Second}
	OAuthHTTPClient   = &http.Client{Timeout: 30 * time.Second}
)
