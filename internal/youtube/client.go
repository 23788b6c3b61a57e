package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRootURL    = "https://www.youtube.com"
	defaultDataAPIURL = "https://www.googleapis.com/youtube/v3"

	// Advisory spacing between platform requests; see Session.pace.
	requestSpacing = 500 * time.Millisecond
)

// Client fetches transcripts from the platform's externally observable web
// surfaces. None of those surfaces is a documented contract, so the client
// runs an ordered battery of independent strategies and only reports failure
// once all of them are exhausted.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     func() string

	rootURL    string
	dataAPIURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sets a fixed Data API credential, enabling the official-API
// strategy.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = func() string { return key } }
}

// WithAPIKeyResolver sets a resolver consulted on every fetch, so the
// credential can live in mutable settings storage. An empty result disables
// the official-API strategy; that is not an error.
func WithAPIKeyResolver(resolve func() string) Option {
	return func(c *Client) { c.apiKey = resolve }
}

// NewClient creates a transcript client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Every(requestSpacing), 1),
		apiKey:     func() string { return "" },
		rootURL:    defaultRootURL,
		dataAPIURL: defaultDataAPIURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newSession binds a fresh per-request Session to the client's shared HTTP
// client and pacing limiter.
func (c *Client) newSession() *Session {
	return &Session{
		httpClient: c.httpClient,
		limiter:    c.limiter,
		rootURL:    c.rootURL,
		watchURL:   c.rootURL + "/watch?v=%s",
	}
}

type strategy struct {
	name string
	run  func(ctx context.Context, s *Session, videoID string) ([]TranscriptLine, error)
}

// FetchTranscript returns the ordered caption cues for videoID.
//
// The pre-check runs first; a positive result short-circuits with
// *CaptionsUnavailableError before any fetch strategy spends requests. The
// strategies then run strictly sequentially in fixed priority order — they
// share the session's cookie jar and page cache, and parallel requests would
// only invite throttling. The first non-empty result wins. When every
// strategy is exhausted the retained last error is classified: "no
// captions/tracks/disabled" signatures map to *CaptionsUnavailableError,
// everything else to *TranscriptFetchError wrapping the last cause. An empty
// line list is never returned as success.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) ([]TranscriptLine, error) {
	s := c.newSession()

	if c.looksUnavailable(ctx, s, videoID) {
		log.Printf("[youtube] [%s] pre-check: captions unavailable, skipping fetch strategies", videoID)
		return nil, &CaptionsUnavailableError{VideoID: videoID}
	}

	strategies := []strategy{
		{name: "direct", run: c.fetchDirect},
		{name: "innertube", run: c.fetchViaInnertube},
	}
	if key := c.apiKey(); key != "" {
		strategies = append(strategies, strategy{name: "data-api", run: c.fetchViaDataAPI})
	}

	var lastErr error
	for _, st := range strategies {
		lines, err := st.run(ctx, s, videoID)
		if err != nil {
			log.Printf("[youtube] [%s] %s strategy failed: %v", videoID, st.name, err)
			lastErr = err
			continue
		}
		if len(lines) == 0 {
			lastErr = extractErr(st.name, "no cues produced", nil)
			log.Printf("[youtube] [%s] %s strategy produced no cues", videoID, st.name)
			continue
		}
		log.Printf("[youtube] [%s] transcript fetched via %s strategy: %d segments", videoID, st.name, len(lines))
		return lines, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no fetch strategies available")
	}
	if isUnavailableSignature(lastErr) {
		return nil, &CaptionsUnavailableError{VideoID: videoID}
	}
	return nil, &TranscriptFetchError{VideoID: videoID, Cause: lastErr}
}

// fetchFromTracks is the final mile every page-based strategy shares once a
// track list is known: pick a track, download the timed-text file, parse it.
func (c *Client) fetchFromTracks(ctx context.Context, s *Session, name, videoID string, tracks []CaptionTrack) ([]TranscriptLine, error) {
	track := SelectTrack(tracks)
	if track.BaseURL == "" {
		return nil, extractErr(name, "no valid transcript URL found in caption tracks", nil)
	}
	log.Printf("[youtube] [%s] using caption track lang=%q url=%.60s...", videoID, track.LanguageCode, track.BaseURL)

	content, err := s.fetchCaptionFile(ctx, track.BaseURL)
	if err != nil {
		return nil, extractErr(name, "fetch caption file", err)
	}

	lines := ParseCaptionFile(content)
	if len(lines) == 0 {
		// Parsed nothing out of a fetched body: don't let the next strategy
		// retry-parse the same stale page.
		s.invalidateCache()
		return nil, extractErr(name, "failed to parse transcript content", fmt.Errorf("no cues in %d bytes", len(content)))
	}
	return lines, nil
}
