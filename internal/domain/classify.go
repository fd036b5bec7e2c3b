package domain

import "strings"

// ErrorKind buckets extractor failures into user-presentable categories.
type ErrorKind string

const (
	ErrKindDRM         ErrorKind = "drm_protected"
	ErrKindAuth        ErrorKind = "login_required"
	ErrKindUnsupported ErrorKind = "unsupported_site"
	ErrKindNotFound    ErrorKind = "not_found"
	ErrKindExtraction  ErrorKind = "extraction_failed"
	ErrKindBotWall     ErrorKind = "bot_protection"
	ErrKindQueueFull   ErrorKind = "queue_full"
	ErrKindUnknown     ErrorKind = "unknown"
)

// classifyRule matches raw yt-dlp error text. exact needles are
// case-sensitive, matching yt-dlp's own capitalization; folded needles are
// compared against the lowercased message.
type classifyRule struct {
	kind   ErrorKind
	exact  []string
	folded []string
}

// classifyRules is evaluated in order and the first match wins, so the
// specific failure modes sit above the generic ones.
var classifyRules = []classifyRule{
	{kind: ErrKindDRM, exact: []string{"DRM"}, folded: []string{"drm protection"}},
	{kind: ErrKindAuth, folded: []string{"need to log in", "login required", "cookies", "nsfw"}},
	{kind: ErrKindUnsupported, exact: []string{"Unsupported URL", "No video formats found"}},
	{kind: ErrKindNotFound, exact: []string{"HTTP Error 404"}},
	{kind: ErrKindExtraction, exact: []string{"Unable to extract", "Failed to parse"}},
	{kind: ErrKindBotWall, exact: []string{"Cloudflare", "HTTP Error 403", "impersonate"}},
}

// Classify maps raw extractor error text to an ErrorKind.
func Classify(msg string) ErrorKind {
	folded := strings.ToLower(msg)
	for _, r := range classifyRules {
		for _, needle := range r.exact {
			if strings.Contains(msg, needle) {
				return r.kind
			}
		}
		for _, needle := range r.folded {
			if strings.Contains(folded, needle) {
				return r.kind
			}
		}
	}
	return ErrKindUnknown
}

// Message returns the user-facing description for the kind. Unknown returns
// the empty string so callers surface the raw error text instead.
func (k ErrorKind) Message() string {
	switch k {
	case ErrKindDRM:
		return "DRM-protected content cannot be downloaded. Use the official app (Netflix, Disney+, etc.)."
	case ErrKindAuth:
		return "Login required. This content needs authentication."
	case ErrKindUnsupported:
		return "Site not supported or the URL format is not recognized."
	case ErrKindNotFound:
		return "Video not found (404). It may have been deleted or the URL is incorrect."
	case ErrKindExtraction:
		return "Failed to extract video information. The site may have changed its format."
	case ErrKindBotWall:
		return "Site is protected by anti-bot measures."
	case ErrKindQueueFull:
		return "Download queue is full."
	default:
		return ""
	}
}

// Suggestion returns the actionable hint paired with the kind.
func (k ErrorKind) Suggestion() string {
	switch k {
	case ErrKindDRM:
		return "DRM bypass is not supported. Watch this content through the official service."
	case ErrKindAuth:
		return "Export cookies from a logged-in browser session and configure them on the server."
	case ErrKindUnsupported, ErrKindExtraction:
		return "Update yt-dlp to the latest version and try again."
	case ErrKindNotFound:
		return "Check the URL and try again."
	case ErrKindBotWall:
		return "This site needs a client-impersonation capable yt-dlp build on the server."
	case ErrKindQueueFull:
		return "Wait for running downloads to finish and try again."
	default:
		return "Try again; if the problem persists, update yt-dlp."
	}
}
