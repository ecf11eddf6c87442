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

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralejo/listing-harvester/internal/queue"
	"github.com/corralejo/listing-harvester/internal/records"
	"github.com/corralejo/listing-harvester/internal/stats"
)

func strp(s string) *string { return &s }

func TestHandleHealthReturnsOK(t *testing.T) {
	d := &Deps{Counters: stats.New()}
	srv := httptest.NewServer(NewHandler(d))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/-/healthy")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleStatsReturnsCounters(t *testing.T) {
	d := &Deps{Counters: stats.New()}
	d.Counters.BumpScraped()
	srv := httptest.NewServer(NewHandler(d))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleResetFailedRequiresPost(t *testing.T) {
	q := queue.NewMemStore()
	d := &Deps{Queue: q, Counters: stats.New()}
	srv := httptest.NewServer(NewHandler(d))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/reset-failed?q_id=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleListingLookupReturnsListing(t *testing.T) {
	q := queue.NewMemStore()
	ctx := context.Background()
	qID, err := q.Insert(ctx, "https://www.booking.com/hotel/seaside.html", 0, 3)
	require.NoError(t, err)

	d := &Deps{Queue: q, Counters: stats.New()}
	srv := httptest.NewServer(NewHandler(d))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/listings/" + strconv.FormatInt(qID, 10))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleExportWritesCSV(t *testing.T) {
	r := records.NewMemStore()
	_, err := r.Upsert(context.Background(), records.Record{QID: 1, Locale: "en", Name: strp("Seaside Grand Hotel")})
	require.NoError(t, err)

	d := &Deps{Records: r, Counters: stats.New()}
	srv := httptest.NewServer(NewHandler(d))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/export?name=Seaside&format=csv")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
}
