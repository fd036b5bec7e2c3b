// Package static embeds the web UI.
package static

import "embed"

//go:embed index.html
var FS embed.FS
