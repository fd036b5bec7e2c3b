package service

import (
	"context"
	"fmt"

	"github.com/bnema/snatch/internal/domain"
	"github.com/bnema/snatch/internal/infrastructure/logger"
	"github.com/bnema/snatch/internal/port"
)

// DownloadService drives one job through the extractor: probe for metadata,
// download with live progress, then settle the job in a terminal state.
type DownloadService struct {
	registry  *Registry
	extractor port.MediaExtractor
}

func NewDownloadService(registry *Registry, extractor port.MediaExtractor) *DownloadService {
	return &DownloadService{
		registry:  registry,
		extractor: extractor,
	}
}

// Run executes the job until it reaches completed or error. It never returns
// an error; failures land on the job itself where clients can see them.
func (s *DownloadService) Run(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("job_id", jobID).Interface("panic", r).Msg("download task panicked")
			s.registry.MarkFailed(jobID, domain.ErrKindUnknown, fmt.Sprintf("internal error: %v", r))
		}
	}()

	job, ok := s.registry.Get(jobID)
	if !ok {
		logger.Warn().Str("job_id", jobID).Msg("job vanished before it could start")
		return
	}
	if !s.registry.MarkStarting(jobID) {
		return
	}
	logger.Info().Str("job_id", jobID).Str("url", logger.SanitizeForLog(job.URL)).Msg("starting download")

	info, err := s.extractor.Probe(ctx, job.URL, false)
	if err != nil {
		s.fail(jobID, err)
		return
	}
	s.registry.SetMetadata(jobID, *info)
	// Mark the transfer as underway even before the first progress report.
	s.registry.UpdateProgress(jobID, domain.Progress{})

	result, err := s.extractor.Download(ctx, port.DownloadRequest{
		URL:     job.URL,
		Quality: job.Quality,
		Kind:    job.Kind,
		OnProgress: func(p domain.Progress) {
			s.registry.UpdateProgress(jobID, p)
		},
		OnFinished: func(filename string) {
			s.registry.MarkProcessing(jobID, filename)
		},
	})
	if err != nil {
		s.fail(jobID, err)
		return
	}

	s.registry.MarkCompleted(jobID, result.Filename)
	logger.Info().Str("job_id", jobID).Str("file", logger.SanitizeForLog(result.Filename)).Msg("download completed")
}

// Info probes a URL without downloading. When the site-specific extractor
// fails for a reason other than DRM or a login wall, it tries the generic
// extractor once; if that also fails the original error is the one reported.
func (s *DownloadService) Info(ctx context.Context, url string) (*domain.MediaInfo, error) {
	info, err := s.extractor.Probe(ctx, url, false)
	if err == nil {
		return info, nil
	}

	kind := domain.Classify(err.Error())
	if kind == domain.ErrKindDRM || kind == domain.ErrKindAuth {
		return nil, err
	}

	if retry, retryErr := s.extractor.Probe(ctx, url, true); retryErr == nil {
		logger.Debug().Str("url", logger.SanitizeForLog(url)).Msg("generic extractor succeeded after site extractor failed")
		return retry, nil
	}
	return nil, err
}

func (s *DownloadService) fail(jobID string, err error) {
	kind := domain.Classify(err.Error())
	s.registry.MarkFailed(jobID, kind, err.Error())
	logger.Error().Str("job_id", jobID).Str("kind", string(kind)).Err(err).Msg("download failed")
}
