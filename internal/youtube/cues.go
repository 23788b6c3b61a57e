package youtube

import (
	"regexp"
	"strconv"
)

// Caption files arrive in one of two tolerated families:
//
//   <text start="1.36" dur="1.68">hello</text>          flat timedtext
//   <p begin="00:00:01.360" end="00:00:03.040">hi</p>   TTML cue ranges
//   <p t="1360" d="1680">hi</p>                          millisecond variant
//   <p id="3" begin="..." end="...">hi</p>               id-qualified variant
//
// The flat format is tried first; the TTML patterns only run when it yields
// zero cues. Cues stay in source order. TTML cues whose timestamps fail to
// parse are kept with a zero offset/duration pair rather than dropped,
// matching what the flat format's producers emit for malformed stamps.

var (
	textCueRe   = regexp.MustCompile(`(?s)<text start="([^"]*)" dur="([^"]*)"[^>]*>(.*?)</text>`)
	ttmlCueRe   = regexp.MustCompile(`(?s)<p\b[^>]*\bbegin="([^"]*)"[^>]*\bend="([^"]*)"[^>]*>(.*?)</p>`)
	millisCueRe = regexp.MustCompile(`(?s)<p\b[^>]*\bt="(\d+)"[^>]*\bd="(\d+)"[^>]*>(.*?)</p>`)

	innerTagRe = regexp.MustCompile(`<[^>]*>`)
)

// ParseCaptionFile turns a timed-text document into transcript lines. An
// empty result means the body matched neither tolerated format; the caller
// treats that as a strategy failure.
func ParseCaptionFile(content string) []TranscriptLine {
	if lines := parseFlatCues(content); len(lines) > 0 {
		return lines
	}
	if lines := parseTTMLCues(content); len(lines) > 0 {
		return lines
	}
	return parseMillisCues(content)
}

func parseFlatCues(content string) []TranscriptLine {
	var lines []TranscriptLine
	for _, m := range textCueRe.FindAllStringSubmatch(content, -1) {
		offset, errO := strconv.ParseFloat(m[1], 64)
		dur, errD := strconv.ParseFloat(m[2], 64)
		if errO != nil || errD != nil {
			// Malformed attribute pair; skip the cue.
			continue
		}
		lines = append(lines, TranscriptLine{
			Text:     cleanCueText(m[3]),
			Offset:   offset,
			Duration: dur,
		})
	}
	return lines
}

func parseTTMLCues(content string) []TranscriptLine {
	var lines []TranscriptLine
	for _, m := range ttmlCueRe.FindAllStringSubmatch(content, -1) {
		offset := ParseTimestamp(m[1])
		duration := ParseTimestamp(m[2]) - offset
		if duration < 0 {
			continue
		}
		lines = append(lines, TranscriptLine{
			Text:     cleanCueText(m[3]),
			Offset:   offset,
			Duration: duration,
		})
	}
	return lines
}

func parseMillisCues(content string) []TranscriptLine {
	var lines []TranscriptLine
	for _, m := range millisCueRe.FindAllStringSubmatch(content, -1) {
		t, _ := strconv.ParseFloat(m[1], 64)
		d, _ := strconv.ParseFloat(m[2], 64)
		lines = append(lines, TranscriptLine{
			Text:     cleanCueText(m[3]),
			Offset:   t / 1000,
			Duration: d / 1000,
		})
	}
	return lines
}

// cleanCueText strips nested markup (srv3 word-timing spans, <br> breaks)
// before entity decoding.
func cleanCueText(s string) string {
	s = innerTagRe.ReplaceAllString(s, " ")
	return DecodeAndClean(s)
}
