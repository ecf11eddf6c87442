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

// Package fetch defines the contract both scrape transports — the
// httpclient variant and the browser variant — implement, plus the
// HTML classification and debug-dump helpers both share.
package fetch

import (
	"context"
	"errors"
)

// ErrNotFound means the origin returned 404: the URL does not exist
// and retrying will not help.
var ErrNotFound = errors.New("fetch: page not found")

// Outcome classifies a fetched document.
type Outcome int

const (
	// OutcomeOK means the document looks like a real listing page.
	OutcomeOK Outcome = iota
	// OutcomeBlocked means a consent wall, CAPTCHA or bot-challenge
	// page was served instead of the listing.
	OutcomeBlocked
	// OutcomeNotHotelPage means the document loaded without any
	// transport-level error but doesn't carry any of the signals a
	// real listing page always carries.
	OutcomeNotHotelPage
)

// Result is one successful fetch: the raw HTML plus enough metadata
// for the caller to log and classify it.
type Result struct {
	HTML       string
	StatusCode int
	Outcome    Outcome
}

// Fetcher retrieves a listing page rendered in locale. The HTTP variant
// retries transient failures (rate limits, server errors, bot
// challenges) internally and returns once it has succeeded, hit
// ErrNotFound, or exhausted its retry budget. The browser variant
// retries only a failed navigation, once, after relaunching the
// browser; it returns blocked or non-listing pages with a nil error
// and Result.Outcome set.
type Fetcher interface {
	Fetch(ctx context.Context, url, locale string) (Result, error)
	Close() error
}
