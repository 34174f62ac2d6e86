package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/google/uuid"
)

var hashSalt string

func init() {
	// In production, set LOG_HASH_SALT.
	hashSalt = os.Getenv("LOG_HASH_SALT")
	if hashSalt == "" {
		hashSalt = "default-salt-change-in-production"
	}
}

// HashUserID creates a privacy-preserving hash of a user ID so log lines can
// be correlated without exposing the id itself.
func HashUserID(userID uuid.UUID) string {
	return hashValue(userID.String())
}

// HashChatID creates a privacy-preserving hash of a Telegram chat ID.
func HashChatID(chatID int64) string {
	return hashValue(fmt.Sprintf("%d", chatID))
}

func hashValue(v string) string {
	hash := sha256.Sum256([]byte(v + ":" + hashSalt))
	// First 8 characters are enough for correlation.
	return hex.EncodeToString(hash[:])[:8]
}

// SanitizeText redacts user-provided text such as an email address or a
// message body, keeping only a short prefix and the length.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}
	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}
	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
