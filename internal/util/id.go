package util

import "github.com/google/uuid"

// NewRequestID returns an ID for correlating an outbound request with the
// service's logs. Sent as X-Request-Id.
func NewRequestID() string {
	return uuid.NewString()
}
