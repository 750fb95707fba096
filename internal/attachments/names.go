package attachments

import (
	"fmt"
	"path/filepath"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	nameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	nameLength   = 16
)

// NewStoredName builds a storage identity from prefix, a random suffix and
// the lower-cased extension of the client filename. Nothing else from the
// client filename is kept.
func NewStoredName(prefix, originalName string) (string, error) {
	id, err := nanoid.Generate(nameAlphabet, nameLength)
	if err != nil {
		return "", fmt.Errorf("stored name: %w", err)
	}
	return prefix + "_" + id + Ext(originalName), nil
}

// Ext returns the lower-cased extension of name, or "" when it is missing or
// not alphanumeric.
func Ext(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.ReplaceAll(name, "\\", "/"))))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
