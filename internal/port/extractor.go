package port

import (
	"context"

	"github.com/bnema/snatch/internal/domain"
)

// DownloadRequest describes one extraction run.
type DownloadRequest struct {
	URL     string
	Quality domain.Quality
	Kind    domain.MediaKind

	// OnProgress receives measurements while a stream downloads.
	// OnFinished fires when a stream lands and post-processing begins;
	// merged formats trigger it once per stream. Either may be nil.
	OnProgress func(domain.Progress)
	OnFinished func(filename string)
}

// DownloadResult reports what landed on disk.
type DownloadResult struct {
	// Filename is the basename of the final output file.
	Filename string
}

// MediaExtractor wraps the external download tool.
type MediaExtractor interface {
	// Probe extracts metadata without downloading. generic forces the
	// fallback extractor for pages the site-specific ones reject.
	Probe(ctx context.Context, url string, generic bool) (*domain.MediaInfo, error)

	// Download fetches media into the extractor's output directory,
	// reporting progress through the request callbacks. It blocks until
	// the download finishes or fails.
	Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error)
}
