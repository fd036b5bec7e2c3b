package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/bnema/snatch/internal/domain"
	"github.com/bnema/snatch/internal/port"
)

const progressInterval = 500 * time.Millisecond

// Options configure every yt-dlp invocation.
type Options struct {
	// Dir is where finished downloads land.
	Dir string
	// SocketTimeout bounds each network read, not the whole download.
	SocketTimeout time.Duration
	// GeoCountry is faked towards geo-fenced sites.
	GeoCountry string
	// UserAgent replaces yt-dlp's default, which several sites block.
	UserAgent string
}

// Extractor shells out to yt-dlp through go-ytdlp.
type Extractor struct {
	opts Options
}

func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Install downloads a managed yt-dlp binary when none is available on PATH.
// Run it once at startup; downloads fail fast without it.
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

func (e *Extractor) Probe(ctx context.Context, url string, generic bool) (*domain.MediaInfo, error) {
	cmd := e.base("5", "3").
		DumpSingleJSON().
		SkipDownload().
		Quiet()
	if generic {
		cmd = cmd.ForceGenericExtractor()
	}

	result, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, runError(result, err)
	}
	return parseProbe(result.Stdout)
}

func (e *Extractor) Download(ctx context.Context, req port.DownloadRequest) (*port.DownloadResult, error) {
	cmd := e.base("10", "5").
		FragmentRetries("10").
		Output(filepath.Join(e.opts.Dir, "%(title)s.%(ext)s"))

	if req.Kind == domain.KindAudio {
		cmd = cmd.Format(domain.AudioSelector).
			ExtractAudio().
			AudioFormat("mp3").
			AudioQuality("320")
	} else {
		cmd = cmd.Format(req.Quality.Selector()).
			MergeOutputFormat("mp4")
	}

	var mu sync.Mutex
	var lastFile string

	cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		var name string
		if update.Filename != "" {
			name = filepath.Base(update.Filename)
			mu.Lock()
			lastFile = name
			mu.Unlock()
		}

		switch update.Status {
		case ytdlp.ProgressStatusFinished:
			if req.OnFinished != nil {
				req.OnFinished(name)
			}
		case ytdlp.ProgressStatusDownloading:
			if req.OnProgress != nil {
				req.OnProgress(measure(
					int64(update.DownloadedBytes),
					int64(update.TotalBytes),
					update.Started,
					update.ETA(),
					name,
				))
			}
		}
	})

	result, err := cmd.Run(ctx, req.URL)
	if err != nil {
		return nil, runError(result, err)
	}

	filename := extractedFilename(result)
	if filename == "" {
		mu.Lock()
		filename = lastFile
		mu.Unlock()
	}
	return &port.DownloadResult{Filename: filename}, nil
}

// base carries the bypass flags every invocation needs: certificate checks
// off, geo bypass and a desktop browser user agent.
func (e *Extractor) base(retries, extractorRetries string) *ytdlp.Command {
	return ytdlp.New().
		NoPlaylist().
		NoWarnings().
		NoCheckCertificates().
		GeoBypassCountry(e.opts.GeoCountry).
		UserAgent(e.opts.UserAgent).
		Retries(retries).
		ExtractorRetries(extractorRetries).
		SocketTimeout(e.opts.SocketTimeout.Seconds())
}

type probePayload struct {
	Title       string        `json:"title"`
	Duration    float64       `json:"duration"`
	Thumbnail   string        `json:"thumbnail"`
	Uploader    string        `json:"uploader"`
	Description string        `json:"description"`
	ViewCount   int64         `json:"view_count"`
	Formats     []probeFormat `json:"formats"`
}

type probeFormat struct {
	Height *int   `json:"height"`
	Ext    string `json:"ext"`
}

func parseProbe(raw string) (*domain.MediaInfo, error) {
	var payload probePayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	info := &domain.MediaInfo{
		Title:       payload.Title,
		Duration:    int(payload.Duration),
		Thumbnail:   payload.Thumbnail,
		Uploader:    payload.Uploader,
		Description: payload.Description,
		ViewCount:   payload.ViewCount,
		Formats:     formatOptions(payload.Formats),
	}
	if info.Title == "" {
		info.Title = "Unknown"
	}
	if info.Uploader == "" {
		info.Uploader = "Unknown"
	}
	return info, nil
}

// formatOptions keeps one entry per distinct height (first ext seen wins),
// highest first, at most ten.
func formatOptions(formats []probeFormat) []domain.FormatOption {
	seen := make(map[int]bool)
	var out []domain.FormatOption
	for _, f := range formats {
		if f.Height == nil || *f.Height <= 0 || seen[*f.Height] {
			continue
		}
		seen[*f.Height] = true
		ext := f.Ext
		if ext == "" {
			ext = "mp4"
		}
		out = append(out, domain.FormatOption{
			Quality: fmt.Sprintf("%dp", *f.Height),
			Height:  *f.Height,
			Ext:     ext,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Height > out[j].Height })
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// measure converts byte counts into the progress shape jobs carry.
func measure(downloaded, total int64, started time.Time, eta time.Duration, filename string) domain.Progress {
	p := domain.Progress{
		Downloaded: downloaded,
		Total:      total,
		Filename:   filename,
	}
	if total > 0 {
		p.Percent = float64(downloaded) / float64(total) * 100
	}
	if !started.IsZero() {
		if elapsed := time.Since(started).Seconds(); elapsed > 0 {
			p.Speed = float64(downloaded) / elapsed
		}
	}
	if eta > 0 {
		p.ETA = int(eta.Seconds())
	}
	return p
}

// runError surfaces yt-dlp's own ERROR line instead of the exec wrapper
// text; that line is what error classification keys on.
func runError(result *ytdlp.Result, err error) error {
	if result != nil {
		if line := lastErrorLine(result.Stderr); line != "" {
			return errors.New(line)
		}
	}
	return err
}

func lastErrorLine(stderr string) string {
	var last string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			last = line
		}
	}
	return last
}

func extractedFilename(result *ytdlp.Result) string {
	if result == nil {
		return ""
	}
	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 || info[0].Filename == nil || *info[0].Filename == "" {
		return ""
	}
	return filepath.Base(*info[0].Filename)
}
