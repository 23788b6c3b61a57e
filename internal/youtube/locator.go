package youtube

import (
	"encoding/json"
	"log"
	"strings"
)

// The locator digs the caption tracklist out of raw watch-page HTML. The page
// embeds the same data in several shapes depending on video, region and
// rollout state, so patterns are tried in descending order of reliability.
// Exhaustion returns nil — an expected outcome, not a fault.

// trackList mirrors the playerCaptionsTracklistRenderer payload. Every
// pattern's output is normalized into this one shape.
type trackList struct {
	CaptionTracks []CaptionTrack `json:"captionTracks"`
}

type captionsRenderer struct {
	PlayerCaptionsTracklistRenderer trackList `json:"playerCaptionsTracklistRenderer"`
}

// patternStrategy tags one way of matching a raw caption blob in the page. A
// miss returns ok=false silently; only a matched-but-unparsable blob is a
// real fault, and even that just falls through to the next pattern.
type patternStrategy struct {
	name  string
	match func(html string) ([]CaptionTrack, bool)
}

var locatorPatterns = []patternStrategy{
	{name: "player-response", match: matchPlayerResponse},
	{name: "captions-sibling", match: matchCaptionsSibling},
	{name: "track-array", match: matchTrackArray},
	{name: "baseurl-literal", match: matchBaseURLLiteral},
	{name: "timedtext-scan", match: matchTimedTextScan},
}

// Locate finds the caption tracks embedded in html. Returns nil when no
// pattern produces a non-empty track list.
func Locate(html, videoID string) []CaptionTrack {
	for _, p := range locatorPatterns {
		tracks, ok := p.match(html)
		if !ok || len(tracks) == 0 {
			continue
		}
		tracks = resolveTrackURLs(tracks)
		log.Printf("[youtube] [%s] found %d caption track(s) via %s pattern", videoID, len(tracks), p.name)
		return tracks
	}
	return nil
}

// SelectTrack picks the track to fetch: an English track when one exists
// ("en" or an "en-*" variant), otherwise the first in source order.
func SelectTrack(tracks []CaptionTrack) CaptionTrack {
	for _, t := range tracks {
		if t.LanguageCode == "en" || strings.HasPrefix(t.LanguageCode, "en-") {
			return t
		}
	}
	return tracks[0]
}

// matchPlayerResponse extracts the embedded ytInitialPlayerResponse object by
// balanced-brace scanning and reads the tracklist out of the parsed state.
// Most reliable source: structured JSON, not a regex-reconstructed fragment.
func matchPlayerResponse(html string) ([]CaptionTrack, bool) {
	raw, ok := extractPlayerResponseJSON(html)
	if !ok {
		return nil, false
	}
	var pr struct {
		Captions captionsRenderer `json:"captions"`
	}
	if err := json.Unmarshal([]byte(raw), &pr); err != nil {
		return nil, false
	}
	tracks := pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	return tracks, len(tracks) > 0
}

var playerResponseMarkers = []string{
	"var ytInitialPlayerResponse = ",
	"ytInitialPlayerResponse = ",
}

// extractPlayerResponseJSON returns the balanced JSON object following the
// ytInitialPlayerResponse assignment. The brace walk is string-aware so
// braces inside caption text don't terminate it early.
func extractPlayerResponseJSON(html string) (string, bool) {
	start := -1
	for _, marker := range playerResponseMarkers {
		if idx := strings.Index(html, marker); idx != -1 {
			start = idx + len(marker)
			break
		}
	}
	if start == -1 || start >= len(html) || html[start] != '{' {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(html); i++ {
		ch := html[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return html[start : i+1], true
			}
		}
	}
	return "", false
}

// matchCaptionsSibling matches the captions object by its known sibling key,
// the shape the desktop page has carried for years:
// "captions":{..."captionTracks":...},"videoDetails".
func matchCaptionsSibling(html string) ([]CaptionTrack, bool) {
	fragment, ok := cutBetween(html, `"captions":`, `,"videoDetails"`)
	if !ok || !strings.Contains(fragment, `"captionTracks"`) {
		return nil, false
	}
	var renderer captionsRenderer
	if !parseEscapedJSON(fragment, &renderer) {
		return nil, false
	}
	return renderer.PlayerCaptionsTracklistRenderer.CaptionTracks, true
}

// matchTrackArray matches a bare captionTracks array anywhere in the page.
// The key is located without its quoting so escaped payloads
// (\"captionTracks\":) anchor too.
func matchTrackArray(html string) ([]CaptionTrack, bool) {
	idx := strings.Index(html, `captionTracks`)
	if idx == -1 {
		return nil, false
	}
	after := html[idx+len(`captionTracks`):]
	open := strings.IndexByte(after, '[')
	if open == -1 || open > 8 {
		return nil, false
	}
	rest := after[open:]
	arr, ok := balancedSlice(rest, '[', ']')
	if !ok {
		// Escaped payloads hide the closing bracket from the string-aware
		// scan; retry on the unescaped text.
		arr, ok = balancedSlice(unescapeFragment(rest), '[', ']')
	}
	if !ok {
		return nil, false
	}
	var tracks []CaptionTrack
	if !parseEscapedJSON(arr, &tracks) {
		return nil, false
	}
	return tracks, true
}

// matchBaseURLLiteral matches a direct timed-text endpoint URL literal and
// wraps it as a single anonymous track.
func matchBaseURLLiteral(html string) ([]CaptionTrack, bool) {
	const marker = `"baseUrl":"https://www.youtube.com/api/timedtext`
	idx := strings.Index(html, marker)
	if idx == -1 {
		return nil, false
	}
	rest := html[idx+len(`"baseUrl":"`):]
	end := strings.IndexByte(rest, '"')
	if end == -1 {
		return nil, false
	}
	return []CaptionTrack{{BaseURL: unescapeFragment(rest[:end])}}, true
}

// matchTimedTextScan is the last resort: any substring shaped like a
// timed-text endpoint URL, wherever it appears.
func matchTimedTextScan(html string) ([]CaptionTrack, bool) {
	idx := strings.Index(html, "/api/timedtext")
	if idx == -1 {
		return nil, false
	}
	start := idx
	for start > 0 && !strings.ContainsRune(`"'\ <>`, rune(html[start-1])) {
		start--
	}
	end := idx
	for end < len(html) && !strings.ContainsRune(`"'\ <>`, rune(html[end])) {
		end++
	}
	raw := unescapeFragment(html[start:end])
	if raw == "" {
		return nil, false
	}
	return []CaptionTrack{{BaseURL: raw}}, true
}

// cutBetween returns the substring after the first occurrence of start, up to
// the next occurrence of end.
func cutBetween(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i == -1 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j == -1 {
		return "", false
	}
	return rest[:j], true
}

// balancedSlice returns the balanced opening..closing run at the front of s,
// string-aware like the player-response brace walk.
func balancedSlice(s string, opening, closing byte) (string, bool) {
	if len(s) == 0 || s[0] != opening {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == opening:
			depth++
		case ch == closing:
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

func unescapeFragment(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	s = strings.ReplaceAll(s, `\u0026`, "&")
	s = strings.ReplaceAll(s, `\/`, "/")
	return s
}

// parseEscapedJSON parses a regex-matched fragment as JSON, retrying with
// progressively more aggressive unescaping. Watch pages nest JSON inside JSON
// inside HTML, so fragments arrive with anywhere from zero to two layers of
// backslash escaping.
func parseEscapedJSON(fragment string, into any) bool {
	attempts := []string{
		fragment,
		unescapeFragment(fragment),
		unescapeFragment(unescapeFragment(fragment)),
	}
	for _, attempt := range attempts {
		if err := json.Unmarshal([]byte(attempt), into); err == nil {
			return true
		}
	}
	return false
}

// resolveTrackURLs makes every track URL absolute and strips residual JSON
// escaping from it.
func resolveTrackURLs(tracks []CaptionTrack) []CaptionTrack {
	out := make([]CaptionTrack, 0, len(tracks))
	for _, t := range tracks {
		t.BaseURL = unescapeFragment(t.BaseURL)
		if strings.HasPrefix(t.BaseURL, "/") {
			t.BaseURL = "https://www.youtube.com" + t.BaseURL
		}
		if t.BaseURL == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
