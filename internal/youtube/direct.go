package youtube

import (
	"context"
)

// fetchDirect is the highest-priority strategy: scrape the watch page with
// browser-like headers and follow the caption-track URL embedded in it.
// Mutates the session's cookie jar and page cache as side effects.
func (c *Client) fetchDirect(ctx context.Context, s *Session, videoID string) ([]TranscriptLine, error) {
	html, err := s.watchPage(ctx, videoID)
	if err != nil {
		return nil, extractErr("direct", "fetch video page", err)
	}

	tracks := Locate(html, videoID)
	if len(tracks) == 0 {
		return nil, extractErr("direct", "no captions data found in video page", nil)
	}

	return c.fetchFromTracks(ctx, s, "direct", videoID, tracks)
}
