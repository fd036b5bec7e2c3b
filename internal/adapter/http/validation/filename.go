package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFilenameLength is the common filesystem limit.
const maxFilenameLength = 255

var errBadFilename = errors.New("invalid filename")

// dangerousChars are replaced in filenames used inside HTTP headers. They
// can break Content-Disposition quoting or smuggle path separators.
var dangerousChars = map[rune]bool{
	'"':  true,
	'\\': true,
	'/':  true,
	':':  true,
	'\n': true,
	'\r': true,
}

// RequestedFilename normalizes a client-requested file name down to a bare
// basename. Traversal segments are discarded rather than rejected: asking
// for ../../x serves x from the download directory or 404s, never escapes it.
func RequestedFilename(raw string) (string, error) {
	name := filepath.Base(strings.TrimSpace(raw))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return "", errBadFilename
	}
	if strings.ContainsRune(name, 0) {
		return "", errBadFilename
	}
	return name, nil
}

// SanitizeFilename makes a stored filename safe for a Content-Disposition
// header. Unicode (CJK, accents, emoji) is preserved; control characters
// and header-breaking punctuation become underscores, and the result is
// truncated to filesystem length keeping the extension.
func SanitizeFilename(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))

	for _, r := range name {
		if r < 32 || r == 127 || dangerousChars[r] {
			sb.WriteRune('_')
		} else {
			sb.WriteRune(r)
		}
	}

	result := strings.TrimSpace(sb.String())
	if result == "" || strings.Trim(result, "_") == "" {
		return "file"
	}

	if len(result) > maxFilenameLength {
		result = truncatePreservingExtension(result)
	}
	return result
}

// ContentDisposition returns an attachment Content-Disposition value with
// the filename sanitized for header use.
func ContentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", SanitizeFilename(filename))
}

// truncatePreservingExtension truncates to maxFilenameLength, keeping the
// extension when one fits.
func truncatePreservingExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxFilenameLength {
		return truncateToBytes(name, maxFilenameLength)
	}

	base := name[:len(name)-len(ext)]
	return truncateToBytes(base, maxFilenameLength-len(ext)) + ext
}

// truncateToBytes cuts a UTF-8 string to at most maxBytes without splitting
// a multi-byte rune.
func truncateToBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
