// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the default client for calls to the challenge API.
var HTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
