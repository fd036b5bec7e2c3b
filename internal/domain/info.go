package domain

// MediaInfo is the metadata subset extracted without downloading. The
// download task uses it to label a running job; the info endpoint returns
// it directly.
type MediaInfo struct {
	Title       string
	Duration    int
	Thumbnail   string
	Uploader    string
	Description string
	ViewCount   int64
	Formats     []FormatOption
}

// FormatOption is one selectable rendition, deduplicated by height.
type FormatOption struct {
	Quality string `json:"quality"`
	Height  int    `json:"height"`
	Ext     string `json:"ext"`
}
