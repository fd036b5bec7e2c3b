package validation

import (
	"errors"
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

// maxURLLength caps submitted URLs (common browser/CDN limit).
const maxURLLength = 2048

// blockedPatterns rejects URLs carrying script, traversal or SQL fragments.
// A media URL has no business containing any of these; matching is
// case-insensitive like the inputs that tend to probe for it.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)expression\s*\(`),
	regexp.MustCompile(`(?i)import\s+`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)<iframe`),
	regexp.MustCompile(`(?i)<embed`),
	regexp.MustCompile(`(?i)<object`),
	regexp.MustCompile(`\.\./\.\.`),
	regexp.MustCompile(`\.\.\\\.\.`),
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`(?i)insert\s+into`),
	regexp.MustCompile(`(?i)delete\s+from`),
	regexp.MustCompile(`(?i)update\s+.*set`),
	regexp.MustCompile(`--\s*$`),
	regexp.MustCompile(`/\*.*\*/`),
}

var (
	errURLRequired   = errors.New("URL is required")
	errURLTooLong    = errors.New("URL too long")
	errURLSuspicious = errors.New("URL contains suspicious content")
	errURLFormat     = errors.New("invalid URL format")
	errURLScheme     = errors.New("only http and https URLs are allowed")
	errURLLocal      = errors.New("local and private network URLs are not allowed")
)

// lookupIP resolves hostnames for the private-network check; swapped out
// in tests.
var lookupIP = net.LookupIP

// ValidateURL checks a client-submitted media URL and returns the trimmed
// URL on success. Errors are user-presentable.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errURLRequired
	}
	if len(raw) > maxURLLength {
		return "", errURLTooLong
	}

	for _, p := range blockedPatterns {
		if p.MatchString(raw) {
			return "", errURLSuspicious
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errURLFormat
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return "", errURLScheme
	}

	host := u.Hostname()
	if host == "" {
		return "", errURLFormat
	}
	if isBlockedHost(host) {
		return "", errURLLocal
	}

	return raw, nil
}

// isBlockedHost reports whether the host points into local or private
// address space. Literal addresses are checked directly; hostnames are
// resolved as well, so a DNS name fronting 127.0.0.1 is caught before the
// URL ever reaches the extractor. Unresolvable names pass: the extractor
// will fail on them with a clearer error than ours.
func isBlockedHost(host string) bool {
	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return true
	}

	if addr, err := netip.ParseAddr(lower); err == nil {
		return isPrivateAddr(addr.Unmap())
	}

	ips, err := lookupIP(lower)
	if err != nil {
		return false
	}
	for _, ip := range ips {
		if addr, ok := netip.AddrFromSlice(ip); ok && isPrivateAddr(addr.Unmap()) {
			return true
		}
	}
	return false
}

// isPrivateAddr covers loopback, RFC 1918/4193 private ranges, link-local
// (including the 169.254.169.254 metadata endpoint) and unspecified
// addresses, for both IPv4 and IPv6.
func isPrivateAddr(addr netip.Addr) bool {
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}
