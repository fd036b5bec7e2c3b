package ytdlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	raw := `{
		"title": "Big Buck Bunny",
		"duration": 596.47,
		"thumbnail": "https://cdn.example.com/t.jpg",
		"uploader": "Blender",
		"description": "An open movie.",
		"view_count": 1234,
		"formats": [
			{"height": null, "ext": "m4a"},
			{"height": 360, "ext": "mp4"},
			{"height": 720, "ext": "webm"},
			{"height": 720, "ext": "mp4"},
			{"height": 1080, "ext": ""}
		]
	}`

	info, err := parseProbe(raw)
	require.NoError(t, err)

	assert.Equal(t, "Big Buck Bunny", info.Title)
	assert.Equal(t, 596, info.Duration)
	assert.Equal(t, "Blender", info.Uploader)
	assert.Equal(t, int64(1234), info.ViewCount)

	require.Len(t, info.Formats, 3, "audio-only and duplicate heights drop out")
	assert.Equal(t, 1080, info.Formats[0].Height)
	assert.Equal(t, "mp4", info.Formats[0].Ext, "missing ext defaults to mp4")
	assert.Equal(t, "720p", info.Formats[1].Quality)
	assert.Equal(t, "webm", info.Formats[1].Ext, "first ext for a height wins")
	assert.Equal(t, 360, info.Formats[2].Height)
}

func TestParseProbeDefaults(t *testing.T) {
	info, err := parseProbe(`{}`)
	require.NoError(t, err)

	assert.Equal(t, "Unknown", info.Title)
	assert.Equal(t, "Unknown", info.Uploader)
	assert.Empty(t, info.Formats)
}

func TestParseProbeBadJSON(t *testing.T) {
	_, err := parseProbe("WARNING: not json")
	assert.Error(t, err)
}

func TestFormatOptionsCap(t *testing.T) {
	var formats []probeFormat
	for h := 100; h <= 1500; h += 100 {
		height := h
		formats = append(formats, probeFormat{Height: &height, Ext: "mp4"})
	}

	out := formatOptions(formats)
	require.Len(t, out, 10)
	assert.Equal(t, 1500, out[0].Height, "cap keeps the highest formats")
	assert.Equal(t, 600, out[9].Height)
}

func TestMeasure(t *testing.T) {
	p := measure(250, 1000, time.Now().Add(-2*time.Second), 6*time.Second, "clip.mp4")

	assert.Equal(t, float64(25), p.Percent)
	assert.Equal(t, int64(250), p.Downloaded)
	assert.Equal(t, int64(1000), p.Total)
	assert.Equal(t, 6, p.ETA)
	assert.Equal(t, "clip.mp4", p.Filename)
	assert.Greater(t, p.Speed, float64(0))
}

func TestMeasureUnknownTotal(t *testing.T) {
	p := measure(500, 0, time.Time{}, 0, "")

	assert.Equal(t, float64(0), p.Percent, "no total means no percentage")
	assert.Equal(t, float64(0), p.Speed)
	assert.Equal(t, 0, p.ETA)
}

func TestLastErrorLine(t *testing.T) {
	stderr := "WARNING: unable to obtain file audio codec\n" +
		"ERROR: [generic] Unable to extract video data\n" +
		"some trailing noise\n" +
		"ERROR: HTTP Error 404: Not Found\n"

	assert.Equal(t, "ERROR: HTTP Error 404: Not Found", lastErrorLine(stderr))
	assert.Empty(t, lastErrorLine("all quiet"))
}
