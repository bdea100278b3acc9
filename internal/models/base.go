package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID string used as primary key for cycle entities.
func NewID() string {
	return uuid.NewString()
}

func ensureID(id *string) {
	if strings.TrimSpace(*id) == "" {
		*id = NewID()
	}
}
