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

// Package worker implements the per-listing unit of work: fetch every
// enabled locale, authenticate the extracted language, store
// successful extractions, and download the listing's photos once.
package worker

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/corralejo/listing-harvester/internal/config"
	"github.com/corralejo/listing-harvester/internal/extract"
	"github.com/corralejo/listing-harvester/internal/fetch"
	"github.com/corralejo/listing-harvester/internal/images"
	"github.com/corralejo/listing-harvester/internal/queue"
	"github.com/corralejo/listing-harvester/internal/records"
	"github.com/corralejo/listing-harvester/internal/scrapelog"
	"github.com/corralejo/listing-harvester/internal/stats"
	"github.com/corralejo/listing-harvester/internal/vpn"
)

// ErrLocaleMismatch is logged, never returned to the caller: a
// detected-language mismatch is a per-locale outcome the worker handles
// inline, not a failure that aborts ScrapeOne.
var ErrLocaleMismatch = errors.New("worker: extracted text does not match requested locale")

// maxLangRetries bounds how many times the default locale is retried
// after a language-authentication failure. Each retry builds a new
// fetcher, and so a fresh session, for the HTTP variant; the browser
// variant retries on the browser it already has.
const maxLangRetries = 2

// langMismatchRotateThreshold is the cumulative lang_mismatch count
// that triggers a VPN rotation with reason=mismatch.
const langMismatchRotateThreshold = 3

// consecutiveFailureRotateThreshold forces a VPN rotation once this
// many listings in a row have stored no locale at all, whether
// SetRetryableFailure returned them to pending or marked them failed.
const consecutiveFailureRotateThreshold = 3

// localeSuffixRe strips an existing two-to-four-letter locale suffix
// (".es.html", ".en-gb.html", ...) from a canonical URL so the correct
// suffix for the locale being fetched can be substituted; without this
// an ".es.html" URL would otherwise turn into ".es.de.html" (404) or
// stay Spanish forever.
var localeSuffixRe = regexp.MustCompile(`(?i)\.[a-z]{2}(-[a-z]{2,4})?\.html$`)

// FetcherFactory builds a new fetch.Fetcher. The worker calls it once
// per listing for the browser-driver variant (one driver reused across
// every locale and retry) and once per fetch attempt otherwise (a new
// client for each locale and for each language retry).
type FetcherFactory func() (fetch.Fetcher, error)

// Deps is the root context threaded through one worker's ScrapeOne
// calls: every collaborator a listing scrape needs, built once in
// cmd/scraper/main.go and never mutated afterward.
type Deps struct {
	Config          *config.Config
	VPN             *vpn.Controller
	Queue           queue.Store
	Records         records.Store
	ScrapeLog       scrapelog.Store
	Counters        *stats.Counters
	Logger          log.Logger
	NewFetcher      FetcherFactory
	ImageClient     *http.Client
	ImageDownloader *images.Downloader
}

// logger returns Deps.Logger, defaulting to a no-op so a zero-value
// Deps (as in tests) never panics on a nil logger.
func (d *Deps) logger() log.Logger {
	if d.Logger == nil {
		return log.NewNopLogger()
	}
	return d.Logger
}

// ScrapeOne runs the full per-listing algorithm for qID: build the
// locale list, fetch and extract each locale in order, gate on
// language authentication, upsert successful records, download images
// once, and resolve the listing's queue status: completed when at
// least one locale was stored, otherwise SetRetryableFailure (back to
// pending while retries remain, failed after that).
func ScrapeOne(ctx context.Context, d *Deps, qID int64) error {
	listing, err := d.Queue.Get(ctx, qID)
	if err != nil {
		return errors.Wrapf(err, "loading listing %d", qID)
	}

	if err := d.VPN.ReconnectIfDisconnected(ctx); err != nil {
		level.Warn(d.logger()).Log("msg", "vpn reconnect check failed", "qid", qID, "err", err)
	}

	locales := orderedLocales(d.Config.LocalesEnabled, d.Config.DefaultLocale, d.logger())

	var browserFetcher fetch.Fetcher
	if d.Config.UseBrowserDriver {
		browserFetcher, err = d.NewFetcher()
		if err != nil {
			return errors.Wrap(err, "constructing browser fetcher")
		}
		defer browserFetcher.Close()
	}

	var (
		imagesDownloaded bool
		langRetryCount   int
		storedAny        bool
	)

	for _, locale := range locales {
		storedLocale, err := d.scrapeLocale(ctx, qID, listing.URL, locale, d.Config.DefaultLocale,
			browserFetcher, &imagesDownloaded, &langRetryCount)
		switch {
		case errors.Is(err, ErrLocaleMismatch):
			level.Info(d.logger()).Log("msg", "locale mismatch, not stored", "qid", qID, "locale", locale)
		case err != nil:
			level.Error(d.logger()).Log("msg", "locale scrape failed", "qid", qID, "locale", locale, "err", err)
		case storedLocale:
			storedAny = true
		}
	}

	if storedAny {
		if err := d.Queue.SetTerminal(ctx, qID, queue.StatusCompleted, ""); err != nil {
			level.Error(d.logger()).Log("msg", "failed to mark listing completed", "qid", qID, "err", err)
		}
		listingsSinceRotate := d.Counters.OnListingSuccess()
		d.maybeRotatePeriodic(ctx, listingsSinceRotate)
		return nil
	}

	if err := d.Queue.SetRetryableFailure(ctx, qID, "no locale produced a stored record"); err != nil {
		level.Error(d.logger()).Log("msg", "failed to mark listing failed", "qid", qID, "err", err)
	}
	consecutiveFailures := d.Counters.OnListingFailure()
	if consecutiveFailures >= consecutiveFailureRotateThreshold {
		d.rotateNow(ctx, vpn.ReasonBlockIP)
	}
	return nil
}

// orderedLocales moves the default locale to the front, prepending it
// if the configured list omits it.
func orderedLocales(enabled []string, def string, logger log.Logger) []string {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	out := make([]string, 0, len(enabled)+1)
	found := false
	for _, l := range enabled {
		if l == def {
			found = true
			continue
		}
	}
	if !found {
		level.Warn(logger).Log("msg", "default locale missing from LOCALES_ENABLED, prepending", "locale", def)
	}
	out = append(out, def)
	for _, l := range enabled {
		if l != def {
			out = append(out, l)
		}
	}
	return out
}

// scrapeLocale fetches and extracts a single locale, applying the
// language-authentication gate and, on the default locale's first
// authenticated success, downloading the listing's images. It returns
// true when a record was stored for this locale.
func (d *Deps) scrapeLocale(
	ctx context.Context,
	qID int64,
	canonicalURL, locale, defaultLocale string,
	browserFetcher fetch.Fetcher,
	imagesDownloaded *bool,
	langRetryCount *int,
) (bool, error) {
	start := time.Now()
	url := buildLocaleURL(canonicalURL, d.Config.LocaleURLSuffix[locale])

	for {
		f := browserFetcher
		var owned fetch.Fetcher
		if f == nil {
			var err error
			owned, err = d.NewFetcher()
			if err != nil {
				return false, errors.Wrap(err, "constructing fetcher")
			}
			f = owned
		}

		res, err := f.Fetch(ctx, url, locale)
		if owned != nil {
			owned.Close()
		}
		if err != nil {
			d.logAttempt(ctx, qID, locale, scrapelog.StatusError, time.Since(start), 0, err.Error())
			return false, err
		}

		rec, err := extract.Extract(res.HTML, locale)
		if err != nil {
			d.logAttempt(ctx, qID, locale, scrapelog.StatusNoData, time.Since(start), 0, err.Error())
			return false, nil
		}

		detected := detectedLocale(rec, locale)
		if detected != locale {
			d.Counters.BumpLangMismatchBlocked()
			mismatchCount := d.Counters.BumpLangMismatch()
			d.logAttempt(ctx, qID, locale, scrapelog.StatusLangMismatch, time.Since(start), 0,
				"detected="+detected)

			if locale == defaultLocale && *langRetryCount < maxLangRetries {
				*langRetryCount++
				level.Info(d.logger()).Log("msg", "retrying default locale with fresh session",
					"qid", qID, "attempt", *langRetryCount)
				if err := sleepCtx(ctx, 3*time.Second); err != nil {
					return false, err
				}
				continue
			}

			if mismatchCount >= langMismatchRotateThreshold {
				d.rotateNow(ctx, vpn.ReasonMismatch)
				d.Counters.ResetLangMismatch()
			}
			return false, ErrLocaleMismatch
		}

		d.Counters.ResetLangMismatch()
		*langRetryCount = 0

		rec.QID = qID
		rec.URL = url
		rec.Locale = locale
		if _, err := d.Records.Upsert(ctx, rec); err != nil {
			d.logAttempt(ctx, qID, locale, scrapelog.StatusError, time.Since(start), 0, err.Error())
			return false, errors.Wrap(err, "storing record")
		}
		d.Counters.BumpScraped()
		d.logAttempt(ctx, qID, locale, scrapelog.StatusCompleted, time.Since(start), 1, "")

		if locale == defaultLocale && detected == defaultLocale && !*imagesDownloaded && d.Config.DownloadImages {
			d.downloadImages(ctx, qID, rec.ImageURLs)
			*imagesDownloaded = true
		}
		return true, nil
	}
}

func (d *Deps) downloadImages(ctx context.Context, qID int64, urls []string) {
	if d.ImageDownloader == nil || len(urls) == 0 {
		return
	}
	_, imgStats, err := d.ImageDownloader.Download(ctx, qID, urls, nil)
	if err != nil {
		level.Warn(d.logger()).Log("msg", "image download failed", "qid", qID, "err", err)
		return
	}
	if imgStats.Success > 0 {
		if err := d.Records.UpdateImagesCount(ctx, qID, d.Config.DefaultLocale, imgStats.Success); err != nil {
			level.Warn(d.logger()).Log("msg", "updating images_count failed", "qid", qID, "err", err)
		}
	}
}

func (d *Deps) logAttempt(ctx context.Context, qID int64, locale string, status scrapelog.Status, dur time.Duration, items int, errMsg string) {
	if d.ScrapeLog == nil {
		return
	}
	if err := d.ScrapeLog.Append(ctx, scrapelog.Entry{
		QID: qID, Locale: locale, Status: status, Duration: dur, Items: items, Error: errMsg,
	}); err != nil {
		level.Warn(d.logger()).Log("msg", "scrape log append failed", "qid", qID, "err", err)
	}
}

func (d *Deps) maybeRotatePeriodic(ctx context.Context, listingsSinceRotate int) {
	if d.Config.VPNRotateEveryN <= 0 || !d.Config.VPNEnabled {
		return
	}
	if listingsSinceRotate >= d.Config.VPNRotateEveryN {
		d.rotateNow(ctx, vpn.ReasonPeriodic)
	}
}

func (d *Deps) rotateNow(ctx context.Context, reason vpn.Reason) {
	if !d.Config.VPNEnabled {
		return
	}
	if err := d.VPN.Rotate(ctx, reason); err != nil {
		level.Warn(d.logger()).Log("msg", "vpn rotation failed", "reason", reason, "err", err)
		return
	}
	d.Counters.ResetSinceRotate()
}

// detectedLocale reports the locale the extracted text actually
// authenticates as. extract.Extract already ran the extraction; here
// we only need to know whether the requested locale's signals accept
// the extracted description/name text.
func detectedLocale(rec records.Record, requested string) string {
	text := ""
	if rec.Description != nil {
		text = *rec.Description
	} else if rec.Name != nil {
		text = *rec.Name
	}
	if extract.ValidateLang(text, requested) {
		return requested
	}
	return "unknown"
}

// buildLocaleURL strips any existing locale suffix from canonical and
// inserts suffix (e.g. ".es", "" for English) before the trailing
// ".html".
func buildLocaleURL(canonical, suffix string) string {
	base := localeSuffixRe.ReplaceAllString(canonical, ".html")
	if !strings.HasSuffix(base, ".html") {
		base += ".html"
	}
	withoutExt := strings.TrimSuffix(base, ".html")
	return withoutExt + suffix + ".html"
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
