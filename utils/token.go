package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateShareCode returns a short URL-safe code for public schedule
// links. 12 hex chars of a v4 UUID is plenty for a revocable code.
func GenerateShareCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:12]
}

// GenerateStateNonce is used for the OAuth state parameter.
func GenerateStateNonce() string {
	return uuid.NewString()
}
