package util

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// AllowedExtensions are the upload formats accepted for conversion.
var AllowedExtensions = map[string]struct{}{
	"csv":  {},
	"json": {},
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// AllowedFile reports whether name has one of the AllowedExtensions.
func AllowedFile(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	_, ok := AllowedExtensions[strings.ToLower(name[i+1:])]
	return ok
}

// Extension returns the lower-cased part after the last dot, or "".
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// SecureFilename reduces a client supplied file name to a flat ASCII name
// that is safe to use as an object key. Path separators become spaces,
// whitespace runs become a single underscore, anything outside
// [A-Za-z0-9_.-] is dropped and leading or trailing dots and underscores
// are trimmed. The result may be empty.
func SecureFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		if r == '/' || r == '\\' {
			r = ' '
		}
		b.WriteRune(r)
	}

	joined := strings.Join(strings.Fields(b.String()), "_")
	cleaned := unsafeFilenameChars.ReplaceAllString(joined, "")
	return strings.Trim(cleaned, "._")
}

// ParquetName builds the object key for a converted upload:
// <base>_<YYYYMMDD_HHMMSS>.parquet.
func ParquetName(filename string, at time.Time) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + "_" + at.Format("20060102_150405") + ".parquet"
}

// MetadataName returns the key of the markdown report for a Parquet object.
func MetadataName(parquetKey string) string {
	return strings.TrimSuffix(parquetKey, filepath.Ext(parquetKey)) + "_metadata.md"
}
