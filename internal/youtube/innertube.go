package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
)

// The internal-API strategy drives the same JSON endpoint the player itself
// uses. The key and client version aren't documented anywhere; both are
// scraped out of the watch page and can disappear in any rollout, so every
// miss here degrades to the page-scraping locator before giving up.

var (
	innertubeKeyRes = []*regexp.Regexp{
		regexp.MustCompile(`"INNERTUBE_API_KEY"\s*:\s*"([a-zA-Z0-9_-]+)"`),
		regexp.MustCompile(`"innertubeApiKey"\s*:\s*"([a-zA-Z0-9_-]+)"`),
	}
	clientVersionRe = regexp.MustCompile(`"clientVersion"\s*:\s*"([^"]+)"`)
)

type innertubeRequest struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
			HL            string `json:"hl"`
			GL            string `json:"gl"`
		} `json:"client"`
	} `json:"context"`
	VideoID string `json:"videoId"`
}

type playerResponse struct {
	Captions          captionsRenderer `json:"captions"`
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

// fetchViaInnertube posts the video id to the internal player endpoint using
// a key and client version scraped from the watch page. When extraction or
// the endpoint itself comes up empty, the already-fetched HTML is handed to
// the locator instead of failing outright — the two strategies share a final
// mile once a track URL is known.
func (c *Client) fetchViaInnertube(ctx context.Context, s *Session, videoID string) ([]TranscriptLine, error) {
	html, err := s.watchPage(ctx, videoID)
	if err != nil {
		return nil, extractErr("innertube", "fetch video page", err)
	}

	tracks, itErr := c.innertubeTracks(ctx, s, html, videoID)
	if itErr != nil {
		log.Printf("[youtube] [%s] innertube endpoint unusable (%v), falling back to page locator", videoID, itErr)
		tracks = Locate(html, videoID)
	}
	if len(tracks) == 0 {
		if itErr != nil {
			return nil, extractErr("innertube", "no caption tracks via endpoint or page", itErr)
		}
		return nil, extractErr("innertube", "no caption tracks found in player response", nil)
	}

	return c.fetchFromTracks(ctx, s, "innertube", videoID, tracks)
}

func (c *Client) innertubeTracks(ctx context.Context, s *Session, html, videoID string) ([]CaptionTrack, error) {
	apiKey := matchFirst(innertubeKeyRes, html)
	if apiKey == "" {
		return nil, errors.New("could not extract innertube API key")
	}
	cv := clientVersionRe.FindStringSubmatch(html)
	if len(cv) != 2 {
		return nil, errors.New("could not extract client version")
	}

	var payload innertubeRequest
	payload.Context.Client.ClientName = "WEB"
	payload.Context.Client.ClientVersion = cv[1]
	payload.Context.Client.HL = "en"
	payload.Context.Client.GL = "US"
	payload.VideoID = videoID

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal player request: %w", err)
	}

	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	reqCtx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/youtubei/v1/player?key=%s", c.rootURL, apiKey)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", acceptLanguage)
	if s.cookies != "" {
		req.Header.Set("Cookie", s.cookies)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("player request timed out after %s: %w", pageTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	s.absorbCookies(resp)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("request blocked by platform (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player request failed: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read player response: %w", err)
	}

	var pr playerResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("parse player response: %w", err)
	}
	if st := pr.PlayabilityStatus.Status; st != "" && st != "OK" {
		return nil, fmt.Errorf("video unplayable: %s %s", st, pr.PlayabilityStatus.Reason)
	}

	return resolveTrackURLs(pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks), nil
}

func matchFirst(res []*regexp.Regexp, s string) string {
	for _, re := range res {
		if m := re.FindStringSubmatch(s); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}
