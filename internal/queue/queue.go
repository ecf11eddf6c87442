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

// Package queue defines the listing-URL queue (Q in SPEC_FULL.md §3):
// the durable state machine the dispatcher claims work from and the
// worker resolves to a terminal status.
package queue

import (
	"context"
	"time"
)

// Status is the lifecycle state of a queued listing URL.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Listing is one row of the Q table.
type Listing struct {
	QID        int64
	URL        string
	Status     Status
	Priority   int
	RetryCount int
	MaxRetries int
	LastError  *string
	ScrapedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Eligible reports whether the listing may currently be dispatched:
// status=pending and retry_count < max_retries (SPEC_FULL.md §3).
func (l Listing) Eligible() bool {
	return l.Status == StatusPending && l.RetryCount < l.MaxRetries
}

// Store is the durable Queue Store contract (§4.2). Implementations must
// make ClaimPending safe under concurrent dispatchers.
type Store interface {
	// ClaimPending atomically flips up to n eligible rows to "processing"
	// and returns their ids, ordered by (priority DESC, created_at ASC).
	ClaimPending(ctx context.Context, n int) ([]int64, error)

	// Get returns the current row for qID.
	Get(ctx context.Context, qID int64) (Listing, error)

	// SetTerminal moves qID to a terminal status (completed or failed),
	// recording lastErr if non-empty.
	SetTerminal(ctx context.Context, qID int64, status Status, lastErr string) error

	// SetRetryableFailure increments retry_count and flips the row back
	// to pending if still under the cap, else to failed.
	SetRetryableFailure(ctx context.Context, qID int64, lastErr string) error

	// Insert idempotently inserts a canonical URL, returning its qID.
	Insert(ctx context.Context, canonicalURL string, priority int, maxRetries int) (int64, error)

	// ResetFailed flips a failed row back to pending with retry_count
	// reset to zero, the operator control surface's reset-failed action
	// (SPEC_FULL.md §6). It is a no-op, not an error, if qID isn't
	// currently failed.
	ResetFailed(ctx context.Context, qID int64) error
}
