package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// Metadata describes a video for display purposes. It intentionally carries
// no transcript data.
type Metadata struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Thumbnail    string `json:"thumbnail"`
	Duration     string `json:"duration,omitempty"`
	PublishedAt  string `json:"publishedAt,omitempty"`
}

// Store caches metadata payloads keyed by video ID
type Store interface {
	GetCachedMetadata(videoID string) (string, time.Time, error)
	SaveCachedMetadata(videoID, payload string) error
}

const (
	cacheTTL       = time.Hour
	requestTimeout = 10 * time.Second

	defaultDataAPIURL = "https://www.googleapis.com/youtube/v3"
	defaultOEmbedURL  = "https://www.youtube.com/oembed"
)

type Service struct {
	httpClient *http.Client
	store      Store
	apiKey     func() string

	dataAPIURL string
	oembedURL  string
}

// NewService creates a metadata service. apiKey is resolved per request so a
// key saved through settings takes effect without a restart. store may be nil
// to disable caching.
func NewService(store Store, apiKey func() string) *Service {
	if apiKey == nil {
		apiKey = func() string { return "" }
	}
	return &Service{
		httpClient: &http.Client{Timeout: requestTimeout},
		store:      store,
		apiKey:     apiKey,
		dataAPIURL: defaultDataAPIURL,
		oembedURL:  defaultOEmbedURL,
	}
}

// Get returns metadata for a video, serving from the cache when fresh. It
// tries the Data API first when a key is configured and falls back to the
// public oEmbed endpoint otherwise.
func (s *Service) Get(ctx context.Context, videoID string) (*Metadata, error) {
	if s.store != nil {
		if payload, fetchedAt, err := s.store.GetCachedMetadata(videoID); err == nil {
			if time.Since(fetchedAt) < cacheTTL {
				m := &Metadata{}
				if err := json.Unmarshal([]byte(payload), m); err == nil {
					return m, nil
				}
			}
		}
	}

	var m *Metadata
	var err error
	if key := s.apiKey(); key != "" {
		m, err = s.fetchFromDataAPI(ctx, videoID, key)
		if err != nil {
			log.Printf("[metadata] data api lookup failed for %s, falling back to oembed: %v", videoID, err)
		}
	}
	if m == nil {
		m, err = s.fetchFromOEmbed(ctx, videoID)
		if err != nil {
			return nil, err
		}
	}

	if s.store != nil {
		if payload, jerr := json.Marshal(m); jerr == nil {
			if serr := s.store.SaveCachedMetadata(videoID, string(payload)); serr != nil {
				log.Printf("[metadata] failed to cache metadata for %s: %v", videoID, serr)
			}
		}
	}
	return m, nil
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (s *Service) fetchFromDataAPI(ctx context.Context, videoID, key string) (*Metadata, error) {
	u := fmt.Sprintf("%s/videos?part=snippet,contentDetails&id=%s&key=%s",
		s.dataAPIURL, url.QueryEscape(videoID), url.QueryEscape(key))

	body, err := s.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}

	var list videoListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode video list: %w", err)
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", videoID)
	}

	item := list.Items[0]
	return &Metadata{
		VideoID:      videoID,
		Title:        item.Snippet.Title,
		ChannelTitle: item.Snippet.ChannelTitle,
		Thumbnail:    pickThumbnail(item.Snippet.Thumbnails),
		Duration:     FormatISODuration(item.ContentDetails.Duration),
		PublishedAt:  item.Snippet.PublishedAt,
	}, nil
}

func pickThumbnail(thumbs map[string]struct {
	URL string `json:"url"`
}) string {
	for _, size := range []string{"maxres", "high", "medium", "default"} {
		if t, ok := thumbs[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (s *Service) fetchFromOEmbed(ctx context.Context, videoID string) (*Metadata, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	u := fmt.Sprintf("%s?url=%s&format=json", s.oembedURL, url.QueryEscape(watchURL))

	body, err := s.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}

	var oe oembedResponse
	if err := json.Unmarshal(body, &oe); err != nil {
		return nil, fmt.Errorf("decode oembed: %w", err)
	}
	return &Metadata{
		VideoID:      videoID,
		Title:        oe.Title,
		ChannelTitle: oe.AuthorName,
		Thumbnail:    oe.ThumbnailURL,
	}, nil
}

func (s *Service) getJSON(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// FormatISODuration converts an ISO 8601 duration like PT1H2M3S into a
// display string ("1:02:03", or "2:03" when under an hour). Unparseable
// input returns an empty string.
func FormatISODuration(iso string) string {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil {
		return ""
	}
	h := atoiDefault(m[1])
	min := atoiDefault(m[2])
	sec := atoiDefault(m[3])
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, min, sec)
	}
	return fmt.Sprintf("%d:%02d", min, sec)
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
