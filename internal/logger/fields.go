package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"

	"go.uber.org/zap"
)

const maxLoggedQuery = 100

// Query returns the query field truncated for logging.
func Query(q string) zap.Field {
	if utf8.RuneCountInString(q) > maxLoggedQuery {
		r := []rune(q)
		q = string(r[:maxLoggedQuery]) + "..."
	}
	return zap.String("query", q)
}

// Identity returns a short stable hash of a caller identity. Raw identities are never logged.
func Identity(id string) zap.Field {
	if id == "" {
		return zap.String("user", "anonymous")
	}
	sum := sha256.Sum256([]byte(id))
	return zap.String("user", hex.EncodeToString(sum[:6]))
}
