// Copyright 2026 The listing-harvester Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpclient implements fetch.Fetcher over a plain pooled HTTP
// client: no JS execution, cheaper and faster than the browser variant,
// used as the default transport whenever the browser driver is not
// configured.
package httpclient

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/corralejo/listing-harvester/internal/fetch"
)

// userAgents is a fixed pool of realistic desktop Chrome/Edge strings;
// one is chosen at random whenever a session is (re)built.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// bypassCookies are injected into every fresh session ahead of the
// first request, working around the GDPR consent wall so the scraper
// never has to click through it.
var bypassCookies = map[string]string{
	"OptanonAlertBoxClosed": "2024-01-01T00:00:00.000Z",
	"OptanonConsent":        "isGpcEnabled=0&datestamp=Mon+Jan+01+2024&version=202401.1.0&groups=C0001%3A1%2CC0002%3A1%2CC0003%3A1%2CC0004%3A1",
	"bkng_sso_ses":          "e30=",
	"cors":                  "1",
	"selectedCurrency":      "EUR",
}

// poisonedSessionThreshold is how many consecutive blocks a session
// tolerates before the next attempt forces a fresh cookie jar and
// user agent.
const poisonedSessionThreshold = 2

const maxBackoff = 25 * time.Second

// Config collects the knobs the Fetcher needs from the process
// configuration, kept narrow and decoupled from internal/config so
// this package stays independently testable.
type Config struct {
	CookieScheme    string
	CookieHost      string
	CookieDomain    string
	LocaleCookie    map[string]string
	LocaleAccept    map[string]string
	MaxRetries      int
	MinRequestDelay time.Duration
	MaxRequestDelay time.Duration
	Timeout         time.Duration
	DebugHTMLRoot   string
}

// Fetcher retrieves listing pages with a pooled net/http client,
// resetting its cookie jar and user agent whenever the session has
// taken two or more consecutive blocks — a poisoned cookie jar
// otherwise keeps failing every subsequent request.
type Fetcher struct {
	cfg    Config
	client *http.Client
	jar    http.CookieJar

	currentUserAgent string
	blockedCount     int
	logger           log.Logger
}

// New builds a Fetcher. No network call happens until the first Fetch.
func New(cfg Config, logger log.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CookieScheme == "" {
		cfg.CookieScheme = "https"
	}
	if cfg.CookieHost == "" {
		cfg.CookieHost = "www.booking.com"
	}
	if cfg.CookieDomain == "" {
		cfg.CookieDomain = ".booking.com"
	}

	f := &Fetcher{cfg: cfg, logger: logger}
	if err := f.resetSession(); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the underlying transport's idle connections.
func (f *Fetcher) Close() error {
	if t, ok := f.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}

func (f *Fetcher) resetSession() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return errors.Wrap(err, "building cookie jar")
	}

	transport := cleanhttp.DefaultPooledTransport()
	f.client = &http.Client{Transport: transport, Jar: jar, Timeout: f.cfg.Timeout}
	f.jar = jar
	f.blockedCount = 0

	ua := userAgents[rand.Intn(len(userAgents))]
	f.seedCookies(ua)
	level.Debug(f.logger).Log("msg", "http session reset", "user_agent", ua[:minInt(60, len(ua))])
	return nil
}

func (f *Fetcher) seedCookies(userAgent string) {
	u := &url.URL{Scheme: f.cfg.CookieScheme, Host: f.cfg.CookieHost}
	cookies := make([]*http.Cookie, 0, len(bypassCookies)+1)
	for name, value := range bypassCookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Domain: f.cfg.CookieDomain})
	}
	cookies = append(cookies, &http.Cookie{Name: "selectedLanguage", Value: "en-gb", Domain: f.cfg.CookieDomain})
	f.jar.SetCookies(u, cookies)
	f.currentUserAgent = userAgent
}

// setLocaleCookie overwrites selectedLanguage with the locale's
// Booking.com-recognized value — resetSession always seeds "en-gb",
// so every non-English locale needs this override before the request
// goes out.
func (f *Fetcher) setLocaleCookie(locale string) {
	value, ok := f.cfg.LocaleCookie[locale]
	if !ok {
		value = locale
	}
	u := &url.URL{Scheme: f.cfg.CookieScheme, Host: f.cfg.CookieHost}
	f.jar.SetCookies(u, []*http.Cookie{{Name: "selectedLanguage", Value: value, Domain: f.cfg.CookieDomain}})
}

// Fetch retrieves target rendered in locale, retrying transient
// failures via a cenkalti/backoff/v4 exponential policy up to
// cfg.MaxRetries attempts. A 404 returns fetch.ErrNotFound immediately
// as a permanent (non-retried) error; every other failure mode backs
// off and retries, forcing a fresh session once this Fetcher has
// accumulated two or more consecutive blocks.
func (f *Fetcher) Fetch(ctx context.Context, target, locale string) (fetch.Result, error) {
	maxRetries := f.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if err := sleepCtx(ctx, f.throttleDelay()); err != nil {
		return fetch.Result{}, err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), uint64(maxRetries-1)), ctx)

	attempt := 0
	var result fetch.Result
	retryErr := backoff.Retry(func() error {
		attempt++
		if attempt > 1 && f.blockedCount >= poisonedSessionThreshold {
			if err := f.resetSession(); err != nil {
				return backoff.Permanent(err)
			}
		}

		res, err := f.attempt(ctx, target, locale)
		if errors.Is(err, fetch.ErrNotFound) {
			return backoff.Permanent(fetch.ErrNotFound)
		}
		if err != nil {
			level.Warn(f.logger).Log("msg", "fetch attempt failed", "url", target, "attempt", attempt, "err", err)
			return err
		}

		switch res.Outcome {
		case fetch.OutcomeBlocked:
			f.blockedCount++
			fetch.DumpDebugHTML(f.cfg.DebugHTMLRoot, target, "blocked", res.HTML, time.Now())
			return errors.New("blocked or consent page detected")
		case fetch.OutcomeNotHotelPage:
			fetch.DumpDebugHTML(f.cfg.DebugHTMLRoot, target, "not_hotel", res.HTML, time.Now())
			if attempt < maxRetries {
				return errors.New("response did not look like a listing page")
			}
		}
		f.blockedCount = 0
		result = res
		return nil
	}, policy)

	if errors.Is(retryErr, fetch.ErrNotFound) {
		return fetch.Result{}, fetch.ErrNotFound
	}
	if retryErr != nil {
		return fetch.Result{}, errors.Wrapf(retryErr, "fetching %s after %d attempts", target, maxRetries)
	}
	return result, nil
}

// attempt issues exactly one HTTP request and classifies the body.
// HTTP-level conditions (429, 5xx, short bodies) are handled inline —
// 429 sleeps for Retry-After (default 90s) and returns a retryable
// error, 5xx returns a retryable error at once, short bodies fold
// into OutcomeNotHotelPage so Fetch's retry rules apply uniformly.
func (f *Fetcher) attempt(ctx context.Context, target, locale string) (fetch.Result, error) {
	f.setLocaleCookie(locale)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fetch.Result{}, errors.Wrap(err, "building request")
	}
	req.Header.Set("User-Agent", f.currentUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.acceptLanguage(locale))
	req.Header.Set("Referer", "https://www.google.com/search?q=booking+hotel")

	resp, err := f.client.Do(req)
	if err != nil {
		return fetch.Result{}, errors.Wrap(err, "http request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fetch.Result{}, fetch.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfterSeconds(resp.Header.Get("Retry-After"), 90)
		if err := sleepCtx(ctx, time.Duration(wait)*time.Second); err != nil {
			return fetch.Result{}, err
		}
		return fetch.Result{}, errors.New("rate limited")
	case resp.StatusCode == http.StatusForbidden:
		f.blockedCount++
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		fetch.DumpDebugHTML(f.cfg.DebugHTMLRoot, target, "403", string(body), time.Now())
		return fetch.Result{}, errors.New("http 403")
	case resp.StatusCode >= 500:
		return fetch.Result{}, errors.Errorf("server error %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fetch.Result{}, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fetch.Result{}, errors.Wrap(err, "reading response body")
	}
	html := string(body)
	outcome := fetch.Classify(html)
	if outcome == fetch.OutcomeOK {
		f.blockedCount = 0
	}
	return fetch.Result{HTML: html, StatusCode: resp.StatusCode, Outcome: outcome}, nil
}

func (f *Fetcher) acceptLanguage(locale string) string {
	if v, ok := f.cfg.LocaleAccept[locale]; ok {
		return v
	}
	return "en-US,en;q=0.9"
}

func retryAfterSeconds(header string, def int) int {
	if header == "" {
		return def
	}
	n, err := strconv.Atoi(header)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// throttleDelay jitters within [MinRequestDelay, MaxRequestDelay], the
// politeness delay applied once before the retry sequence starts.
func (f *Fetcher) throttleDelay() time.Duration {
	minD, maxD := f.cfg.MinRequestDelay, f.cfg.MaxRequestDelay
	if minD <= 0 {
		minD = 2 * time.Second
	}
	if maxD <= minD {
		maxD = minD + 3*time.Second
	}
	return minD + time.Duration(rand.Int63n(int64(maxD-minD)+1))
}

// newBackOff builds the per-Fetch retry policy: an exponential backoff
// seeded at throttleDelay, scaling by 1.5x per retry and capped at
// maxBackoff, matching the reference scraper's retry-delay curve.
func (f *Fetcher) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.throttleDelay()
	b.Multiplier = 1.5
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
