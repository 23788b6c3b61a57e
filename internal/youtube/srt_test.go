package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const srtSample = `1
00:00:01,360 --> 00:00:03,040
hello there

2
00:00:03,040 --> 00:00:05,540
split over
two lines

3
00:00:06,000 --> 00:00:07,000
bye
`

func TestParseSubtitleFileSRT(t *testing.T) {
	lines := ParseSubtitleFile(srtSample)
	require.Len(t, lines, 3)

	assert.Equal(t, "hello there", lines[0].Text)
	assert.InDelta(t, 1.36, lines[0].Offset, 1e-9)
	assert.InDelta(t, 1.68, lines[0].Duration, 1e-9)

	assert.Equal(t, "split over two lines", lines[1].Text)
	assert.InDelta(t, 2.5, lines[1].Duration, 1e-9)
}

const vttSample = "WEBVTT\r\n\r\n00:00:00.500 --> 00:00:02.000\r\nfirst cue\r\n\r\n00:00:02.000 --> 00:00:04.000\r\nsecond &amp; cue\r\n"

func TestParseSubtitleFileVTT(t *testing.T) {
	lines := ParseSubtitleFile(vttSample)
	require.Len(t, lines, 2)

	assert.Equal(t, "first cue", lines[0].Text)
	assert.InDelta(t, 0.5, lines[0].Offset, 1e-9)
	assert.InDelta(t, 1.5, lines[0].Duration, 1e-9)

	// Entities in cue text are decoded like any other caption payload.
	assert.Equal(t, "second & cue", lines[1].Text)
}

func TestParseSubtitleFileEmpty(t *testing.T) {
	assert.Empty(t, ParseSubtitleFile(""))
	assert.Empty(t, ParseSubtitleFile("WEBVTT\n\n"))
	// Timing lines without any text produce nothing.
	assert.Empty(t, ParseSubtitleFile("1\n00:00:01,000 --> 00:00:02,000\n"))
}
