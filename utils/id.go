package utils

import "github.com/google/uuid"

// NewRequestID generates an id for tagging one inbound request in logs.
func NewRequestID() string {
	return uuid.NewString()
}
