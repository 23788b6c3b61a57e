package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
)

// The official Data API strategy runs last and only when a credential is
// configured. Caption downloads through it frequently require owner OAuth;
// with a plain key they work for public tracks only, which is why this is a
// fallback rather than the primary path.

type captionListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Language string `json:"language"`
		} `json:"snippet"`
	} `json:"items"`
}

// downloadFormats are tried in order; srt and vtt parse into real timings,
// ttml goes through the shared timed-text parser.
var downloadFormats = []string{"srt", "vtt", "ttml"}

func (c *Client) fetchViaDataAPI(ctx context.Context, _ *Session, videoID string) ([]TranscriptLine, error) {
	key := c.apiKey()
	if key == "" {
		return nil, extractErr("data-api", "no API credential configured", nil)
	}

	listURL := fmt.Sprintf("%s/captions?part=snippet&videoId=%s&key=%s", c.dataAPIURL, videoID, key)
	body, status, err := c.apiGet(ctx, listURL)
	if err != nil {
		return nil, extractErr("data-api", "list captions", err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, extractErr("data-api", "captions disabled or private (API 403)", nil)
	case http.StatusNotFound:
		return nil, extractErr("data-api", "video or captions not found (API 404)", nil)
	default:
		return nil, extractErr("data-api", fmt.Sprintf("caption list request failed: %d", status), nil)
	}

	var list captionListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, extractErr("data-api", "parse caption list", err)
	}
	if len(list.Items) == 0 {
		return nil, extractErr("data-api", "no caption tracks listed by API", nil)
	}

	captionID := list.Items[0].ID
	for _, item := range list.Items {
		if item.Snippet.Language == "en" {
			captionID = item.ID
			break
		}
	}

	for _, format := range downloadFormats {
		downloadURL := fmt.Sprintf("%s/captions/%s?key=%s&tfmt=%s", c.dataAPIURL, captionID, key, format)
		content, status, err := c.apiGet(ctx, downloadURL)
		if err != nil || status != http.StatusOK {
			log.Printf("[youtube] [%s] data-api download format %s unavailable (status %d, err %v)", videoID, format, status, err)
			continue
		}

		var lines []TranscriptLine
		if format == "ttml" {
			lines = ParseCaptionFile(string(content))
		} else {
			lines = ParseSubtitleFile(string(content))
		}
		if len(lines) > 0 {
			return lines, nil
		}
	}

	return nil, extractErr("data-api", "failed to download caption track in any format", nil)
}

func (c *Client) apiGet(ctx context.Context, rawURL string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, captionTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("request to %s timed out after %s: %w", rawURL, captionTimeout, err)
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
