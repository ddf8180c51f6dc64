// Package triangle renders the legacy ASCII triangle demo.
package triangle

import (
	"strings"

	"example.com/inara/internal/domain"
)

// Defaults applied when a request omits the field.
const (
	DefaultMessage = "hello world"
	DefaultHeight  = 4
	MaxHeight      = 1000
)

// Build returns message followed by height lines whose right-aligned slashes
// form a diagonal: line k (1-indexed) has height-k leading spaces.
func Build(message string, height int) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.Invalid("message must be non-empty")
	}
	if height < 0 {
		return "", domain.Invalid("height must be >= 0")
	}
	if height > MaxHeight {
		return "", domain.Invalid("height must be <= %d", MaxHeight)
	}

	var b strings.Builder
	b.Grow(len(message) + height*(height+3)/2)
	b.WriteString(message)
	for i := 0; i < height; i++ {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", height-i-1))
		b.WriteByte('/')
	}
	return b.String(), nil
}
