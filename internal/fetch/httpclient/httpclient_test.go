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

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralejo/listing-harvester/internal/fetch"
)

func hotelPageBody() string {
	return "<html><body>" + strings.Repeat("x", 6000) + ` <div class="property-description">great place</div></body></html>`
}

func testConfig(root string) Config {
	return Config{
		LocaleCookie:    map[string]string{"en": "en-gb", "de": "de"},
		LocaleAccept:    map[string]string{"en": "en-US,en;q=0.9", "de": "de-DE,de;q=0.9,en;q=0.8"},
		MaxRetries:      3,
		MinRequestDelay: time.Millisecond,
		MaxRequestDelay: 2 * time.Millisecond,
		Timeout:         5 * time.Second,
		DebugHTMLRoot:   root,
	}
}

func TestFetchReturnsOKOnHotelPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(hotelPageBody()))
	}))
	defer srv.Close()

	f, err := New(testConfig(t.TempDir()), nil)
	require.NoError(t, err)

	res, err := f.Fetch(context.Background(), srv.URL, "en")
	require.NoError(t, err)
	assert.Equal(t, fetch.OutcomeOK, res.Outcome)
}

func TestFetchReturnsErrNotFoundOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := New(testConfig(t.TempDir()), nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL, "en")
	assert.ErrorIs(t, err, fetch.ErrNotFound)
}

func TestFetchResetsSessionAfterRepeatedBlocks(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits <= 2 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(hotelPageBody()))
	}))
	defer srv.Close()

	cfg := testConfig(t.TempDir())
	cfg.MaxRetries = 4
	f, err := New(cfg, nil)
	require.NoError(t, err)

	res, err := f.Fetch(context.Background(), srv.URL, "en")
	require.NoError(t, err)
	assert.Equal(t, fetch.OutcomeOK, res.Outcome)
	assert.Equal(t, 3, hits)
}

func TestFetchUsesLocaleAcceptLanguageHeader(t *testing.T) {
	var gotAcceptLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAcceptLang = r.Header.Get("Accept-Language")
		w.Write([]byte(hotelPageBody()))
	}))
	defer srv.Close()

	f, err := New(testConfig(t.TempDir()), nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL, "de")
	require.NoError(t, err)
	assert.Equal(t, "de-DE,de;q=0.9,en;q=0.8", gotAcceptLang)
}

func TestFetchExhaustsRetriesOnPersistentBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig(t.TempDir())
	cfg.MaxRetries = 2
	f, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL, "en")
	assert.Error(t, err)
}
