package util

import (
	"bytes"
	"strings"
)

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// SanitizePostgresJSON drops escaped NUL characters, which jsonb refuses
// even though they are valid JSON.
func SanitizePostgresJSON(doc []byte) []byte {
	if !bytes.Contains(doc, []byte(`\u0000`)) {
		return doc
	}
	return bytes.ReplaceAll(doc, []byte(`\u0000`), nil)
}
