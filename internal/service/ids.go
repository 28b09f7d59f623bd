package service

import (
	"strings"

	"github.com/google/uuid"
)

// generateID returns a prefixed identifier that fits varchar(32).
func generateID(prefix string) string {
	clean := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(prefix) > 0 {
		return prefix + "_" + clean[:min(26, len(clean))]
	}
	return clean
}
