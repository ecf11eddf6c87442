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

package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/corralejo/listing-harvester/internal/queue"
)

// QueueStore is a Postgres-backed queue.Store.
type QueueStore struct {
	db *sql.DB
}

// NewQueueStore wraps db as a queue.Store.
func NewQueueStore(db *sql.DB) *QueueStore {
	return &QueueStore{db: db}
}

// ClaimPending flips up to n eligible rows to "processing" in one
// statement using FOR UPDATE SKIP LOCKED, the Postgres equivalent of
// the spec's "pessimistic row lock or equivalent conditional update" —
// safe under concurrent dispatchers without a separate advisory lock.
func (s *QueueStore) ClaimPending(ctx context.Context, n int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE listing_queue
		SET status = 'processing', updated_at = now()
		WHERE q_id IN (
			SELECT q_id FROM listing_queue
			WHERE status = 'pending' AND retry_count < max_retries
			ORDER BY priority DESC, created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING q_id`, n)
	if err != nil {
		return nil, errors.Wrap(err, "claiming pending listings")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scanning claimed id")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "iterating claimed listings")
}

// Get returns the current row for qID.
func (s *QueueStore) Get(ctx context.Context, qID int64) (queue.Listing, error) {
	var l queue.Listing
	err := s.db.QueryRowContext(ctx, `
		SELECT q_id, url, status, priority, retry_count, max_retries,
		       last_error, scraped_at, created_at, updated_at
		FROM listing_queue WHERE q_id = $1`, qID).Scan(
		&l.QID, &l.URL, &l.Status, &l.Priority, &l.RetryCount, &l.MaxRetries,
		&l.LastError, &l.ScrapedAt, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return queue.Listing{}, queue.ErrNotFound
	}
	return l, errors.Wrap(err, "loading listing")
}

// SetTerminal moves qID to a terminal status.
func (s *QueueStore) SetTerminal(ctx context.Context, qID int64, status queue.Status, lastErr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE listing_queue
		SET status = $2, last_error = NULLIF($3, ''), scraped_at = now(), updated_at = now()
		WHERE q_id = $1`, qID, status, lastErr)
	return errors.Wrap(err, "setting terminal status")
}

// SetRetryableFailure increments retry_count, flipping back to pending
// if still under the cap, else to failed.
func (s *QueueStore) SetRetryableFailure(ctx context.Context, qID int64, lastErr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE listing_queue
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 < max_retries THEN 'pending' ELSE 'failed' END,
		    last_error = NULLIF($2, ''),
		    updated_at = now()
		WHERE q_id = $1`, qID, lastErr)
	return errors.Wrap(err, "setting retryable failure")
}

// ResetFailed flips a failed row back to pending with retry_count reset
// to zero; a no-op if qID isn't currently failed.
func (s *QueueStore) ResetFailed(ctx context.Context, qID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE listing_queue
		SET status = 'pending', retry_count = 0, last_error = NULL, updated_at = now()
		WHERE q_id = $1 AND status = 'failed'`, qID)
	return errors.Wrap(err, "resetting failed listing")
}

// Insert idempotently inserts a canonical URL, returning its qID
// whether freshly inserted or already present.
func (s *QueueStore) Insert(ctx context.Context, canonicalURL string, priority, maxRetries int) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO listing_queue (url, priority, max_retries)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
		RETURNING q_id`, canonicalURL, priority, maxRetries).Scan(&id)
	return id, errors.Wrap(err, "inserting listing")
}
