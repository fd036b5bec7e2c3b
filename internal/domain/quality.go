package domain

import (
	"fmt"
	"strings"
)

type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

type Quality string

const (
	QualityBest  Quality = "best"
	Quality4K    Quality = "4k"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
)

// selectors maps each quality to its yt-dlp format chain, ordered from the
// preferred mp4 pairing down to whatever the site can serve.
var selectors = map[Quality]string{
	QualityBest:  "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best[ext=mp4]/best",
	Quality4K:    "bestvideo[height>=2160][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height>=2160]+bestaudio/best[height>=2160]/bestvideo+bestaudio/best",
	Quality1080p: "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=1080]+bestaudio/best[height<=1080]/best",
	Quality720p:  "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=720]+bestaudio/best[height<=720]/best",
	Quality480p:  "bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=480]+bestaudio/best[height<=480]/best",
}

// AudioSelector is the format chain for audio-only downloads. The actual
// mp3 conversion happens in the extractor's post-processing step.
const AudioSelector = "bestaudio/best"

// Selector returns the yt-dlp format chain for q. Unknown values fall back
// to the best chain rather than failing mid-download.
func (q Quality) Selector() string {
	if s, ok := selectors[q]; ok {
		return s
	}
	return selectors[QualityBest]
}

// ParseQuality validates a client-supplied quality. An empty value defaults
// to best; anything outside the allowed set is an error. Use this at the
// submission boundary where a bad value must be rejected.
func ParseQuality(s string) (Quality, error) {
	if strings.TrimSpace(s) == "" {
		return QualityBest, nil
	}
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := selectors[q]; ok {
		return q, nil
	}
	return QualityBest, fmt.Errorf("invalid quality %q", s)
}

// NormalizeQuality coerces any value into the allowed set, mapping unknown
// input to best. Use this away from the submission boundary where a bad
// value should degrade instead of failing the job.
func NormalizeQuality(s string) Quality {
	q, err := ParseQuality(s)
	if err != nil {
		return QualityBest
	}
	return q
}

// ParseKind validates a client-supplied format. Empty defaults to video;
// anything outside {video, audio} is an error.
func ParseKind(s string) (MediaKind, error) {
	if strings.TrimSpace(s) == "" {
		return KindVideo, nil
	}
	switch k := MediaKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindVideo, KindAudio:
		return k, nil
	default:
		return KindVideo, fmt.Errorf("invalid format %q", s)
	}
}

// NormalizeKind coerces any value to video or audio, defaulting to video.
func NormalizeKind(s string) MediaKind {
	k, err := ParseKind(s)
	if err != nil {
		return KindVideo
	}
	return k
}
