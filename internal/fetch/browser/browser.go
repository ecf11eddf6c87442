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

// Package browser implements fetch.Fetcher by driving a real Chromium-
// family browser through go-rod, for listing pages whose content only
// materializes after JS runs (lazy-loaded photo galleries, client-side
// rendered review widgets). It is heavier and slower than the
// httpclient variant and is only selected when the process
// configuration asks for it.
package browser

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/pkg/errors"

	"github.com/corralejo/listing-harvester/internal/fetch"
)

// candidateBinaries lists real browser install locations in
// preference order, Brave first: Brave ships a cleaner automation
// fingerprint than stock Chrome. go-rod's own managed download is
// tried last, only if none of these exist.
var candidateBinaries = []string{
	`C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
	`C:\Program Files (x86)\BraveSoftware\Brave-Browser\Application\brave.exe`,
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
	`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
	`C:\Program Files\Opera\opera.exe`,
	"/usr/bin/brave-browser",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/microsoft-edge",
	"/usr/bin/opera",
}

// gallerySelector is the Booking.com full photo gallery modal; once
// it's in the DOM, the extractor's own gallery fallback picks up every
// lazily-loaded <img> inside it instead of just the ~8 shown on the
// base page.
const gallerySelector = "[data-testid='GalleryGridViewModal-wrapper']"

var galleryTriggers = []string{
	"[data-testid='bui-gallery-modal-trigger']",
	"[data-testid='hp-gallery-open-bui']",
	"button[data-testid*='photo']",
}

// hotelContentSelectors are tried, most reliable first, to decide the
// page has actually rendered listing content before scraping the HTML.
var hotelContentSelectors = []string{
	"[data-testid='title']",
	"[data-testid='property-description']",
	"[data-testid='review-score-component']",
	"#hp_facilities_box",
	"#maxotelRoomArea",
	"#b2hotelPage",
}

// Config collects the knobs the Fetcher needs from the process
// configuration.
type Config struct {
	Headless      bool
	NavTimeout    time.Duration
	ContentWait   time.Duration
	LocaleCookie  map[string]string
	LocaleAccept  map[string]string
	CookieDomain  string
	DebugHTMLRoot string
}

// Fetcher drives one long-lived browser instance and page across
// however many Fetch calls the caller makes, matching the reference
// scraper's one-driver-per-locale-loop lifecycle.
type Fetcher struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
	logger  log.Logger
}

// New launches a browser from the first candidate binary found on
// disk, falling back to go-rod's managed download when none exist.
func New(cfg Config, logger log.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.NavTimeout == 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	if cfg.ContentWait == 0 {
		cfg.ContentWait = 30 * time.Second
	}
	if cfg.CookieDomain == "" {
		cfg.CookieDomain = ".booking.com"
	}

	l := launcher.New().Headless(cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage")

	if bin := findBrowserBinary(); bin != "" {
		l = l.Bin(bin)
		level.Debug(logger).Log("msg", "using browser binary", "path", bin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launching browser")
	}

	b := rod.New().ControlURL(u).Timeout(cfg.NavTimeout)
	if err := b.Connect(); err != nil {
		return nil, errors.Wrap(err, "connecting to browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		b.Close()
		return nil, errors.Wrap(err, "opening stealth page")
	}

	return &Fetcher{cfg: cfg, browser: b, page: page, logger: logger}, nil
}

// findBrowserBinary returns the first candidate path that exists on
// disk, or "" if none do (go-rod then manages its own download).
func findBrowserBinary() string {
	for _, path := range candidateBinaries {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Close shuts down the underlying browser process.
func (f *Fetcher) Close() error {
	if f.browser == nil {
		return nil
	}
	return f.browser.Close()
}

// Fetch navigates to target, waits for listing content to render,
// dismisses consent/overlay popups, scrolls to trigger lazy-loaded
// content and opens the full photo gallery, then returns the rendered
// HTML. On any navigation error it relaunches the whole browser and
// page via recoverSession and retries the navigation once before giving
// up, mirroring the reference driver's invalid-session-id recovery.
func (f *Fetcher) Fetch(ctx context.Context, target, locale string) (fetch.Result, error) {
	if err := f.applyLocale(locale); err != nil {
		level.Debug(f.logger).Log("msg", "locale cookie/header setup failed", "err", err)
	}

	page := f.page.Context(ctx)
	if err := page.Timeout(f.cfg.NavTimeout).Navigate(target); err != nil {
		if recoverErr := f.recoverSession(); recoverErr != nil {
			return fetch.Result{}, errors.Wrap(err, "navigating (recovery also failed)")
		}
		page = f.page.Context(ctx)
		if err := page.Timeout(f.cfg.NavTimeout).Navigate(target); err != nil {
			return fetch.Result{}, errors.Wrap(err, "navigating after session recovery")
		}
	}

	f.waitForContent(page)
	f.dismissOverlays(page)
	f.scrollPage(page)
	f.openGallery(page)

	html, err := page.HTML()
	if err != nil {
		return fetch.Result{}, errors.Wrap(err, "reading rendered HTML")
	}

	outcome := fetch.Classify(html)
	if label := debugLabel(outcome); label != "" {
		fetch.DumpDebugHTML(f.cfg.DebugHTMLRoot, target, label, html, time.Now())
	}
	return fetch.Result{HTML: html, StatusCode: 200, Outcome: outcome}, nil
}

func debugLabel(o fetch.Outcome) string {
	switch o {
	case fetch.OutcomeBlocked:
		return "browser_blocked"
	case fetch.OutcomeNotHotelPage:
		return "browser_not_hotel"
	default:
		return ""
	}
}

// applyLocale sets the Accept-Language header for every subsequent
// request and overwrites the selectedLanguage cookie, matching the
// reference driver's CDP header override plus delete-then-add cookie
// dance (a shared page can otherwise keep serving a stale locale).
func (f *Fetcher) applyLocale(locale string) error {
	accept := "en-US,en;q=0.9"
	if v, ok := f.cfg.LocaleAccept[locale]; ok {
		accept = v
	}
	if _, err := f.page.SetExtraHeaders([]string{"Accept-Language", accept}); err != nil {
		return err
	}

	cookieLocale := locale
	if v, ok := f.cfg.LocaleCookie[locale]; ok {
		cookieLocale = v
	}
	_ = proto.NetworkDeleteCookies{Name: "selectedLanguage", Domain: f.cfg.CookieDomain}.Call(f.page)
	return f.page.SetCookies([]*proto.NetworkCookieParam{{
		Name:   "selectedLanguage",
		Value:  cookieLocale,
		Domain: f.cfg.CookieDomain,
		Path:   "/",
	}})
}

// recoverSession closes and relaunches the browser + page in place,
// for the "invalid session id" class of failure where the browser
// process itself has died mid-scrape.
func (f *Fetcher) recoverSession() error {
	level.Warn(f.logger).Log("msg", "recovering dead browser session")
	_ = f.browser.Close()

	l := launcher.New().Headless(f.cfg.Headless)
	if bin := findBrowserBinary(); bin != "" {
		l = l.Bin(bin)
	}
	u, err := l.Launch()
	if err != nil {
		return errors.Wrap(err, "relaunching browser")
	}
	b := rod.New().ControlURL(u).Timeout(f.cfg.NavTimeout)
	if err := b.Connect(); err != nil {
		return errors.Wrap(err, "reconnecting to browser")
	}
	page, err := stealth.Page(b)
	if err != nil {
		b.Close()
		return errors.Wrap(err, "reopening stealth page")
	}
	f.browser = b
	f.page = page
	return nil
}

// waitForContent looks up hotelContentSelectors one at a time, in
// order, each lookup bounded by whatever remains of cfg.ContentWait,
// and returns true as soon as one is found. It does not wait on the
// selectors together: a lookup that times out uses the whole remaining
// budget, so a later selector is tried only when an earlier lookup
// fails before the deadline.
func (f *Fetcher) waitForContent(page *rod.Page) bool {
	deadline := time.Now().Add(f.cfg.ContentWait)
	for _, sel := range hotelContentSelectors {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		el, err := page.Timeout(remaining).Element(sel)
		if err == nil && el != nil {
			time.Sleep(1500 * time.Millisecond)
			return true
		}
	}
	return false
}

// dismissOverlays clicks through any cookie-consent or promo overlay
// that would otherwise sit on top of the content the gallery-open
// step needs to click through.
func (f *Fetcher) dismissOverlays(page *rod.Page) {
	selectors := []string{
		"#onetrust-accept-btn-handler",
		"[aria-label='Dismiss sign in information.']",
		"[data-testid='modal-close-button']",
	}
	for _, sel := range selectors {
		if el, err := page.Timeout(2 * time.Second).Element(sel); err == nil && el != nil {
			_ = el.Click("left", 1)
		}
	}
}

// scrollPage scrolls to the bottom in a few steps so lazily-loaded
// sections (facilities, reviews, map) attach to the DOM.
func (f *Fetcher) scrollPage(page *rod.Page) {
	for i := 0; i < 6; i++ {
		_ = page.Mouse.Scroll(0, 1200, 1)
		time.Sleep(time.Duration(300+rand.Intn(300)) * time.Millisecond)
	}
}

// openGallery clicks the first available gallery trigger and scrolls
// the resulting modal so every lazy-loaded photo attaches to the DOM
// before the caller reads page.HTML().
func (f *Fetcher) openGallery(page *rod.Page) {
	var opened bool
	for _, sel := range galleryTriggers {
		if el, err := page.Timeout(2 * time.Second).Element(sel); err == nil && el != nil {
			if err := el.Click("left", 1); err == nil {
				opened = true
				break
			}
		}
	}
	if !opened {
		return
	}

	modal, err := page.Timeout(5 * time.Second).Element(gallerySelector)
	if err != nil || modal == nil {
		return
	}
	for i := 0; i < 10; i++ {
		_ = page.Mouse.Scroll(0, 1500, 1)
		time.Sleep(400 * time.Millisecond)
	}
}
