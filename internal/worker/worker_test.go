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

package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralejo/listing-harvester/internal/config"
	"github.com/corralejo/listing-harvester/internal/fetch"
	"github.com/corralejo/listing-harvester/internal/queue"
	"github.com/corralejo/listing-harvester/internal/records"
	"github.com/corralejo/listing-harvester/internal/scrapelog"
	"github.com/corralejo/listing-harvester/internal/stats"
	"github.com/corralejo/listing-harvester/internal/vpn"
)

const enPageHTML = `<html><body>` +
	`<div data-testid="title">Seaside Grand Hotel</div>` +
	`<div data-testid="property-description">The hotel offers free breakfast and features an outdoor swimming pool with beach access for guests touring the resort district, with spacious rooms and fine views of the property.</div>` +
	`</body></html>`

const esPageHTML = `<html><body>` +
	`<div data-testid="title">Gran Hotel Costa</div>` +
	`<div data-testid="property-description">El hotel dispone de desayuno gratuito y ofrece una piscina exterior con acceso a la playa para los huespedes que visitan la zona, con habitaciones amplias y vistas magnificas del alojamiento.</div>` +
	`</body></html>`

// fakeFetcher returns a canned page per locale and counts Fetch calls.
type fakeFetcher struct {
	pages  map[string]string
	closed bool
	calls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, _, locale string) (fetch.Result, error) {
	f.calls++
	html, ok := f.pages[locale]
	if !ok {
		return fetch.Result{}, fetch.ErrNotFound
	}
	return fetch.Result{HTML: html, StatusCode: 200, Outcome: fetch.OutcomeOK}, nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

type noopCLI struct{}

func (noopCLI) Disconnect(context.Context) error      { return nil }
func (noopCLI) Connect(context.Context, string) error { return nil }

type fixedProber struct{ ip string }

func (p fixedProber) CurrentIP(context.Context) (string, error) { return p.ip, nil }

func testConfig() *config.Config {
	return &config.Config{
		LocalesEnabled:    []string{"en", "es"},
		DefaultLocale:     "en",
		LocaleURLSuffix:   map[string]string{"en": "", "es": ".es"},
		LocaleCookieValue: map[string]string{"en": "en-gb", "es": "es"},
		LocaleAcceptLang:  map[string]string{"en": "en-US,en;q=0.9", "es": "es-ES,es;q=0.9,en;q=0.8"},
		DownloadImages:    false,
		VPNEnabled:        false,
	}
}

func newTestDeps(t *testing.T, pages map[string]string) (*Deps, *queue.MemStore, *records.MemStore) {
	t.Helper()
	q := queue.NewMemStore()
	r := records.NewMemStore()

	ctrl := vpn.New(context.Background(), noopCLI{}, fixedProber{"1.2.3.4"}, nil, nil, nil)

	return &Deps{
		Config:    testConfig(),
		VPN:       ctrl,
		Queue:     q,
		Records:   r,
		ScrapeLog: scrapelog.NewMemStore(),
		Counters:  stats.New(),
		Logger:    nil,
		NewFetcher: func() (fetch.Fetcher, error) {
			return &fakeFetcher{pages: pages}, nil
		},
	}, q, r
}

func TestScrapeOneStoresBothLocalesOnSuccess(t *testing.T) {
	d, q, r := newTestDeps(t, map[string]string{"en": enPageHTML, "es": esPageHTML})
	ctx := context.Background()

	qID, err := q.Insert(ctx, "https://www.booking.com/hotel/es/seaside.html", 0, 3)
	require.NoError(t, err)

	require.NoError(t, ScrapeOne(ctx, d, qID))

	listing, err := q.Get(ctx, qID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, listing.Status)

	enRec, ok, err := r.Get(ctx, qID, "en")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Seaside Grand Hotel", *enRec.Name)

	esRec, ok, err := r.Get(ctx, qID, "es")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Gran Hotel Costa", *esRec.Name)
}

func TestScrapeOneMarksFailedWhenNoLocaleAuthenticates(t *testing.T) {
	d, q, _ := newTestDeps(t, map[string]string{"en": esPageHTML, "es": enPageHTML})
	ctx := context.Background()

	qID, err := q.Insert(ctx, "https://www.booking.com/hotel/seaside.html", 0, 1)
	require.NoError(t, err)

	require.NoError(t, ScrapeOne(ctx, d, qID))

	listing, err := q.Get(ctx, qID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, listing.Status)
}

func TestScrapeOneMismatchDoesNotStoreRecord(t *testing.T) {
	d, q, r := newTestDeps(t, map[string]string{"en": enPageHTML, "es": enPageHTML})
	ctx := context.Background()

	qID, err := q.Insert(ctx, "https://www.booking.com/hotel/seaside.html", 0, 1)
	require.NoError(t, err)

	require.NoError(t, ScrapeOne(ctx, d, qID))

	_, ok, err := r.Get(ctx, qID, "es")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := d.Counters.Snapshot()
	assert.Greater(t, snap.LangMismatchBlocked, 0)
}

func TestBuildLocaleURLStripsExistingSuffix(t *testing.T) {
	got := buildLocaleURL("https://www.booking.com/hotel/es/seaside.es.html", ".de")
	assert.Equal(t, "https://www.booking.com/hotel/es/seaside.de.html", got)
}

func TestBuildLocaleURLEnglishHasNoSuffix(t *testing.T) {
	got := buildLocaleURL("https://www.booking.com/hotel/es/seaside.es.html", "")
	assert.Equal(t, "https://www.booking.com/hotel/es/seaside.html", got)
}

func TestOrderedLocalesMovesDefaultFirst(t *testing.T) {
	got := orderedLocales([]string{"es", "en", "de"}, "en", nil)
	assert.Equal(t, []string{"en", "es", "de"}, got)
}

func TestOrderedLocalesPrependsMissingDefault(t *testing.T) {
	got := orderedLocales([]string{"es", "de"}, "en", nil)
	assert.Equal(t, []string{"en", "es", "de"}, got)
}
