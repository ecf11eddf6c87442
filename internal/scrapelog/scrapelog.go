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

// Package scrapelog holds the append-only per-(listing, locale) attempt
// log (L in SPEC_FULL.md §3).
package scrapelog

import (
	"context"
	"time"
)

// Status is the outcome of one scrape attempt.
type Status string

const (
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
	StatusNoData       Status = "no_data"
	StatusLangMismatch Status = "lang_mismatch"
)

// Entry is one row of the L table.
type Entry struct {
	QID      int64
	Locale   string
	Status   Status
	Duration time.Duration
	Items    int
	Error    string
	At       time.Time
}

// Store is the Log Store contract (§4.4). Failures to log are warnings,
// never fatal — callers must not treat a Store error as a reason to
// abort the scrape.
type Store interface {
	Append(ctx context.Context, e Entry) error

	// Purge deletes entries older than the retention window.
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}
