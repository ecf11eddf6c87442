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

package dispatch

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
	"github.com/corralejo/listing-harvester/internal/worker"
)

const pageHTML = `<html><body>` +
	`<div data-testid="title">Seaside Grand Hotel</div>` +
	`<div data-testid="property-description">The hotel offers free breakfast and features an outdoor swimming pool with beach access for guests touring the resort district, with spacious rooms and fine views of the property.</div>` +
	`</body></html>`

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, _, _ string) (fetch.Result, error) {
	return fetch.Result{HTML: pageHTML, StatusCode: 200, Outcome: fetch.OutcomeOK}, nil
}

func (fakeFetcher) Close() error { return nil }

type noopCLI struct{}

func (noopCLI) Disconnect(context.Context) error      { return nil }
func (noopCLI) Connect(context.Context, string) error { return nil }

type fixedProber struct{ ip string }

func (p fixedProber) CurrentIP(context.Context) (string, error) { return p.ip, nil }

func testDeps(q *queue.MemStore) *worker.Deps {
	return &worker.Deps{
		Config: &config.Config{
			LocalesEnabled:    []string{"en"},
			DefaultLocale:     "en",
			LocaleURLSuffix:   map[string]string{"en": ""},
			LocaleCookieValue: map[string]string{"en": "en-gb"},
			LocaleAcceptLang:  map[string]string{"en": "en-US,en;q=0.9"},
		},
		VPN:        vpn.New(context.Background(), noopCLI{}, fixedProber{"1.2.3.4"}, nil, nil, nil),
		Queue:      q,
		Records:    records.NewMemStore(),
		ScrapeLog:  scrapelog.NewMemStore(),
		Counters:   stats.New(),
		NewFetcher: func() (fetch.Fetcher, error) { return fakeFetcher{}, nil },
	}
}

func TestDispatchNowClaimsAndCompletesListings(t *testing.T) {
	q := queue.NewMemStore()
	ctx := context.Background()

	qID, err := q.Insert(ctx, "https://www.booking.com/hotel/seaside.html", 0, 3)
	require.NoError(t, err)

	d := New(Config{BatchSize: 5, WorkerPoolSize: 2}, q, nil, testDeps(q), nil)
	require.NoError(t, d.DispatchNow(ctx))

	d.wg.Wait()

	listing, err := q.Get(ctx, qID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, listing.Status)
	assert.Equal(t, 0, d.ActiveCount())
}

func TestMarkActiveRejectsDuplicate(t *testing.T) {
	d := New(Config{}, queue.NewMemStore(), nil, nil, nil)
	assert.False(t, d.markActive(1))
	assert.True(t, d.markActive(1))
	d.clearActive(1)
	assert.False(t, d.markActive(1))
}
