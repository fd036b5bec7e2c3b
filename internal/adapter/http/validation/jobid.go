package validation

import (
	"regexp"
	"strings"
)

// maxJobIDLength bounds path-supplied ids before any other check runs.
const maxJobIDLength = 50

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	jobIDPattern   = regexp.MustCompile(`^download_\d+$`)
)

// SanitizeJobID strips markup and control characters from a path-supplied
// download id and truncates it. The result still has to pass ValidJobID;
// sanitizing first keeps garbage out of logs and error payloads.
func SanitizeJobID(raw string) string {
	if raw == "" {
		return ""
	}
	if len(raw) > maxJobIDLength {
		raw = raw[:maxJobIDLength]
	}

	raw = htmlTagPattern.ReplaceAllString(raw, "")

	var sb strings.Builder
	sb.Grow(len(raw))
	for _, r := range raw {
		if r < 32 || r == 127 {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}

// ValidJobID reports whether id has the download_<digits> shape the
// service hands out.
func ValidJobID(id string) bool {
	return jobIDPattern.MatchString(id)
}
