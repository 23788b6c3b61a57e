package youtube

import (
	"regexp"
	"strconv"
	"strings"
)

var cueRangeRe = regexp.MustCompile(`(\d{1,2}:\d{2}:\d{2}[.,]\d{1,3})\s*-->\s*(\d{1,2}:\d{2}:\d{2}[.,]\d{1,3})`)

// ParseSubtitleFile parses SRT or WebVTT content, the formats the official
// Data API serves caption downloads in, into transcript lines with real
// timings. Cue index numbers and the WEBVTT header are skipped; multi-line
// cue text is joined with spaces.
func ParseSubtitleFile(content string) []TranscriptLine {
	var lines []TranscriptLine
	var current *TranscriptLine

	flush := func() {
		if current != nil && current.Text != "" {
			lines = append(lines, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)

		if line == "" || line == "WEBVTT" {
			flush()
			continue
		}

		if m := cueRangeRe.FindStringSubmatch(line); len(m) == 3 {
			flush()
			start := ParseTimestamp(strings.Replace(m[1], ",", ".", 1))
			end := ParseTimestamp(strings.Replace(m[2], ",", ".", 1))
			current = &TranscriptLine{Offset: start, Duration: end - start}
			continue
		}

		// Cue index lines are bare integers between cues.
		if _, err := strconv.Atoi(line); err == nil && current == nil {
			continue
		}

		if current != nil {
			if current.Text != "" {
				current.Text += " "
			}
			current.Text += DecodeAndClean(line)
		}
	}
	flush()

	return lines
}
