package core

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// IDLength is the length of generated person IDs.
const IDLength = 20

// NewID returns a fresh opaque document ID of IDLength lowercase hex
// characters. IDs come from a random UUID and never from record content.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(u[:])[:IDLength], nil
}
