package util

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewHexID returns a random UUID rendered as 32 lowercase hex characters.
func NewHexID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// IsHexID reports whether s looks like an id produced by NewHexID, with or
// without hyphens.
func IsHexID(s string) bool {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 32 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
