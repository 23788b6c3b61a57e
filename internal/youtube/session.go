package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	xhtml "golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	acceptLanguage = "en-US,en;q=0.9"
	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

	pageTimeout    = 15 * time.Second
	captionTimeout = 10 * time.Second
	htmlCacheTTL   = 60 * time.Second

	// Minimum useful sizes; anything smaller is an error page or a stub.
	minPageSize    = 500
	minCaptionSize = 50

	paceJitter = 150 * time.Millisecond
)

// Session models a browser-like visit to the platform: a cookie jar
// accumulated across responses, a one-shot consent interstitial solver and a
// short-lived cache of the watch page so strategies within one orchestration
// run don't re-fetch it. One Session is created per FetchTranscript call; the
// pacing limiter is shared across sessions by the owning Client.
type Session struct {
	httpClient *http.Client
	limiter    *rate.Limiter

	rootURL  string // platform root, e.g. https://www.youtube.com
	watchURL string // watch page format with one %s for the video id

	cookies     string
	established bool

	cachedVideoID string
	cachedHTML    string
	fetchedAt     time.Time
}

// MergeCookies folds newHeader into existing. Both sides are parsed as
// "name=value; name=value" lists; later values win per name, and first-seen
// name order is preserved so the jar stays stable across merges.
func MergeCookies(existing, newHeader string) string {
	values := make(map[string]string)
	var order []string

	add := func(raw string) {
		for _, part := range strings.Split(raw, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, ok := strings.Cut(part, "=")
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			// Set-Cookie attributes are not cookies.
			switch strings.ToLower(name) {
			case "path", "domain", "expires", "max-age", "samesite", "secure", "httponly", "priority":
				continue
			}
			if _, seen := values[name]; !seen {
				order = append(order, name)
			}
			values[name] = strings.TrimSpace(value)
		}
	}

	add(existing)
	add(newHeader)

	pairs := make([]string, 0, len(order))
	for _, name := range order {
		pairs = append(pairs, name+"="+values[name])
	}
	return strings.Join(pairs, "; ")
}

func (s *Session) absorbCookies(resp *http.Response) {
	for _, sc := range resp.Header.Values("Set-Cookie") {
		// Only the leading name=value pair matters for the jar.
		if pair, _, _ := strings.Cut(sc, ";"); pair != "" {
			s.cookies = MergeCookies(s.cookies, pair)
		}
	}
}

// pace enforces the advisory inter-request spacing before hitting the
// platform. Jitter keeps the cadence from looking mechanical. Best effort
// only: a cancelled context aborts the wait.
func (s *Session) pace(ctx context.Context) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	jitter := time.Duration(rand.Int63n(int64(paceJitter)))
	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// get performs a paced, browser-headed GET carrying the current cookie jar,
// and folds any Set-Cookie response headers back into it. Timeouts are
// reported distinctly from HTTP failures.
func (s *Session) get(ctx context.Context, rawURL string, timeout time.Duration) (*http.Response, error) {
	if err := s.pace(ctx); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Referer", s.rootURL+"/")
	if s.cookies != "" {
		req.Header.Set("Cookie", s.cookies)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request to %s timed out after %s: %w", rawURL, timeout, err)
		}
		return nil, err
	}
	// Tie the body's lifetime to the request context.
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	s.absorbCookies(resp)
	return resp, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// establish visits the platform root once to pick up initial cookies,
// solving the consent interstitial if one appears. Lazy: the first watch-page
// fetch triggers it.
func (s *Session) establish(ctx context.Context) error {
	if s.established {
		return nil
	}
	resp, err := s.get(ctx, s.rootURL+"/", pageTimeout)
	if err != nil {
		return fmt.Errorf("establish session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("establish session: read body: %w", err)
	}
	if isConsentPage(resp, string(body)) {
		if err := s.solveConsent(ctx, string(body), resp.Request.URL); err != nil {
			log.Printf("[youtube] consent interstitial at session setup not solved: %v", err)
		}
	}
	s.established = true
	return nil
}

// watchPage returns the watch-page HTML for videoID, serving from the
// session cache when fresh. A consent interstitial is solved transparently
// and the original request retried once.
func (s *Session) watchPage(ctx context.Context, videoID string) (string, error) {
	if s.cachedVideoID == videoID && time.Since(s.fetchedAt) < htmlCacheTTL && s.cachedHTML != "" {
		return s.cachedHTML, nil
	}
	if err := s.establish(ctx); err != nil {
		return "", err
	}

	pageURL := fmt.Sprintf(s.watchURL, videoID)
	html, err := s.fetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}

	s.cachedVideoID = videoID
	s.cachedHTML = html
	s.fetchedAt = time.Now()
	return html, nil
}

func (s *Session) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	html, consent, finalURL, err := s.fetchHTMLOnce(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if consent {
		if err := s.solveConsent(ctx, html, finalURL); err != nil {
			return "", fmt.Errorf("consent interstitial: %w", err)
		}
		// One retry with the consent cookies in the jar.
		html, consent, _, err = s.fetchHTMLOnce(ctx, pageURL)
		if err != nil {
			return "", err
		}
		if consent {
			return "", fmt.Errorf("consent interstitial persisted after form submission")
		}
	}
	return html, nil
}

func (s *Session) fetchHTMLOnce(ctx context.Context, pageURL string) (html string, consent bool, finalURL *url.URL, err error) {
	resp, err := s.get(ctx, pageURL, pageTimeout)
	if err != nil {
		return "", false, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, nil, fmt.Errorf("failed to fetch page: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		// YouTube occasionally answers JSON on a page URL when blocking.
		if strings.Contains(contentType, "application/json") {
			log.Printf("[youtube] got JSON instead of HTML from %s, content may be blocked", pageURL)
		} else {
			return "", false, nil, fmt.Errorf("invalid content type returned: %s", contentType)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, nil, fmt.Errorf("read page body: %w", err)
	}
	if len(body) < minPageSize {
		return "", false, nil, fmt.Errorf("empty or too short response from platform (length %d)", len(body))
	}

	page := string(body)
	return page, isConsentPage(resp, page), resp.Request.URL, nil
}

func isConsentPage(resp *http.Response, body string) bool {
	if resp != nil && resp.Request != nil && strings.Contains(resp.Request.URL.Host, "consent.") {
		return true
	}
	return strings.Contains(body, `action="https://consent.youtube.com/s"`)
}

// solveConsent reconstructs the interstitial's form from its hidden fields,
// submits it, and folds the resulting cookies into the jar. A "v" token, when
// present, additionally becomes a CONSENT=YES+ cookie, which some regions
// accept in place of the form round-trip.
func (s *Session) solveConsent(ctx context.Context, page string, pageURL *url.URL) error {
	action, fields, err := parseConsentForm(page)
	if err != nil {
		return err
	}

	if v := fields.Get("v"); v != "" {
		s.cookies = MergeCookies(s.cookies, "CONSENT=YES+"+v)
	}

	target, err := resolveURL(pageURL, action)
	if err != nil {
		return fmt.Errorf("resolve form action: %w", err)
	}

	if err := s.pace(ctx); err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, strings.NewReader(fields.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", acceptLanguage)
	if s.cookies != "" {
		req.Header.Set("Cookie", s.cookies)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit consent form: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	s.absorbCookies(resp)

	log.Printf("[youtube] consent interstitial solved, jar now holds %d cookies", strings.Count(s.cookies, "="))
	return nil
}

// parseConsentForm finds the interstitial's consent form and collects its
// hidden inputs.
func parseConsentForm(page string) (action string, fields url.Values, err error) {
	doc, err := xhtml.Parse(strings.NewReader(page))
	if err != nil {
		return "", nil, fmt.Errorf("parse interstitial html: %w", err)
	}

	var form *xhtml.Node
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if form != nil {
			return
		}
		if n.Type == xhtml.ElementNode && n.Data == "form" {
			if a := attrVal(n, "action"); strings.Contains(a, "consent") {
				form = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if form == nil {
		return "", nil, fmt.Errorf("no consent form found in interstitial page")
	}

	fields = url.Values{}
	var collect func(*xhtml.Node)
	collect = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode && n.Data == "input" {
			if name := attrVal(n, "name"); name != "" {
				fields.Set(name, attrVal(n, "value"))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(form)

	return attrVal(form, "action"), fields, nil
}

func attrVal(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolveURL(base *url.URL, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if refURL.IsAbs() || base == nil {
		return refURL.String(), nil
	}
	return base.ResolveReference(refURL).String(), nil
}

// fetchCaptionFile downloads a timed-text document from a track URL chosen by
// the locator.
func (s *Session) fetchCaptionFile(ctx context.Context, captionURL string) (string, error) {
	resp, err := s.get(ctx, captionURL, captionTimeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch transcript data: %d %s", resp.StatusCode, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcript data: %w", err)
	}
	if len(body) < minCaptionSize {
		return "", fmt.Errorf("invalid or empty transcript data received (length %d)", len(body))
	}
	content := string(body)
	if !strings.Contains(content, "<text") && !strings.Contains(content, "<p") {
		log.Printf("[youtube] transcript content may be invalid (missing cue tags): %.80s", content)
	}
	return content, nil
}

// invalidateCache drops the cached watch page so the next strategy re-fetches
// instead of retry-parsing stale bytes.
func (s *Session) invalidateCache() {
	s.cachedVideoID = ""
	s.cachedHTML = ""
}
