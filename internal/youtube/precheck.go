package youtube

import (
	"context"
	"strings"
)

// unavailableMarkers are explicit negative signals a watch page carries when
// a video has no captions: an empty track array literal, the not-crawlable
// flag on unlisted/blocked videos, and the player config hiding the
// subtitles button entirely.
var unavailableMarkers = []string{
	`"captionTracks":[]`,
	`"isCrawlable":false`,
	`"subtitlesButtonVisible":false`,
}

// looksUnavailable is a cheap heuristic run before the expensive
// multi-strategy sequence. A true result is definitive enough to short-
// circuit with a "no captions" classification; false is inconclusive — the
// page may simply not carry the signal — and never a guarantee captions
// exist. Page fetch failures are inconclusive too: the strategies get their
// own chance at the network.
func (c *Client) looksUnavailable(ctx context.Context, s *Session, videoID string) bool {
	html, err := s.watchPage(ctx, videoID)
	if err != nil {
		return false
	}
	// A page that advertises tracks is never "unavailable", whatever other
	// markers it carries.
	if strings.Contains(html, `"captionTracks":[{`) {
		return false
	}
	for _, marker := range unavailableMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}
