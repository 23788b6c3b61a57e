package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newTestClient points a Client at the test server and removes the
// inter-request pacing.
func newTestClient(serverURL string, opts ...Option) *Client {
	c := NewClient(opts...)
	c.rootURL = serverURL
	c.limiter = rate.NewLimiter(rate.Inf, 0)
	return c
}

func playerResponsePageFor(timedtextURL string) string {
	return fmt.Sprintf(`<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s","languageCode":"en"}]}},"videoDetails":{}};</script></html>`,
		timedtextURL) + pagePadding
}

const timedtextBody = `<transcript>
<text start="0.5" dur="1.5">first cue of the test</text>
<text start="2.0" dur="1.0">second cue</text>
</transcript>`

func TestFetchTranscriptDirect(t *testing.T) {
	var timedtextHits int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>root</html>"+pagePadding)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playerResponsePageFor(srv.URL+"/api/timedtext?v=abc"))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&timedtextHits, 1)
		fmt.Fprint(w, timedtextBody)
	})

	c := newTestClient(srv.URL)
	lines, err := c.FetchTranscript(context.Background(), "abc12345678")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "first cue of the test", lines[0].Text)
	assert.InDelta(t, 0.5, lines[0].Offset, 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&timedtextHits))
}

func TestFetchTranscriptPrecheckShortCircuits(t *testing.T) {
	var strategyHits int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>root</html>"+pagePadding)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script>{"captionTracks":[],"subtitlesButtonVisible":false}</script></html>`+pagePadding)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&strategyHits, 1)
	})
	mux.HandleFunc("/youtubei/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&strategyHits, 1)
	})

	c := newTestClient(srv.URL)
	_, err := c.FetchTranscript(context.Background(), "abc12345678")

	var unavailable *CaptionsUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "abc12345678", unavailable.VideoID)
	// No fetch strategy spent a single request.
	assert.Equal(t, int32(0), atomic.LoadInt32(&strategyHits))
}

func TestFetchTranscriptInnertubeFallback(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Page carries innertube credentials but no scrapeable track data, so the
	// direct strategy misses and the internal-API one succeeds.
	watchPage := `<html><script>ytcfg = {"INNERTUBE_API_KEY":"testkey123","clientVersion":"2.20240101.00.00"};</script></html>` + pagePadding

	var playerHits int32
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>root</html>"+pagePadding)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&playerHits, 1)
		assert.Equal(t, "testkey123", r.URL.Query().Get("key"))
		fmt.Fprintf(w, `{"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s/caps","languageCode":"en"}]}}}`, srv.URL)
	})
	mux.HandleFunc("/caps", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, timedtextBody)
	})

	c := newTestClient(srv.URL)
	lines, err := c.FetchTranscript(context.Background(), "abc12345678")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&playerHits))
}

func TestFetchTranscriptDataAPIFallback(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>root</html>"+pagePadding)
	})
	// Page-based strategies get nothing to work with.
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/v3/captions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"items":[{"id":"cap1","snippet":{"language":"fr"}},{"id":"cap2","snippet":{"language":"en"}}]}`)
	})
	mux.HandleFunc("/v3/captions/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/captions/cap2", r.URL.Path)
		fmt.Fprint(w, "1\n00:00:01,000 --> 00:00:02,000\nvia the official api\n")
	})

	c := newTestClient(srv.URL, WithAPIKey("secret"))
	c.dataAPIURL = srv.URL + "/v3"

	lines, err := c.FetchTranscript(context.Background(), "abc12345678")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "via the official api", lines[0].Text)
}

func TestFetchTranscriptAllStrategiesFail(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>root</html>"+pagePadding)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	})

	c := newTestClient(srv.URL)
	_, err := c.FetchTranscript(context.Background(), "abc12345678")

	var fetchErr *TranscriptFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "abc12345678", fetchErr.VideoID)
	assert.NotNil(t, fetchErr.Cause)
}

func TestFetchTranscriptExhaustionMeansUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>root</html>"+pagePadding)
	})
	// A perfectly healthy page that simply carries no caption data at all.
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>a video page without captions anywhere</body></html>"+pagePadding)
	})

	c := newTestClient(srv.URL)
	_, err := c.FetchTranscript(context.Background(), "abc12345678")

	var unavailable *CaptionsUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestIsUnavailableSignature(t *testing.T) {
	assert.True(t, isUnavailableSignature(errors.New("direct: no captions data found in video page")))
	assert.True(t, isUnavailableSignature(errors.New("data-api: captions disabled or private (API 403)")))
	assert.True(t, isUnavailableSignature(fmt.Errorf("wrap: %w", errors.New("No Caption Tracks listed"))))
	assert.False(t, isUnavailableSignature(errors.New("connection refused")))
	assert.False(t, isUnavailableSignature(nil))
}

func TestTranscriptFetchErrorUnwrap(t *testing.T) {
	cause := extractErr("direct", "fetch video page", errors.New("boom"))
	err := &TranscriptFetchError{VideoID: "v", Cause: cause}
	assert.ErrorContains(t, err, "direct: fetch video page: boom")
	assert.Equal(t, cause, errors.Unwrap(err))
}
