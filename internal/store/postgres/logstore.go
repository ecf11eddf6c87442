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
	"time"

	"github.com/pkg/errors"

	"github.com/corralejo/listing-harvester/internal/scrapelog"
)

// LogStore is a Postgres-backed scrapelog.Store.
type LogStore struct {
	db *sql.DB
}

// NewLogStore wraps db as a scrapelog.Store.
func NewLogStore(db *sql.DB) *LogStore {
	return &LogStore{db: db}
}

func (s *LogStore) Append(ctx context.Context, e scrapelog.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_log (q_id, locale, status, duration_seconds, items_extracted, error_message)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
		e.QID, e.Locale, e.Status, e.Duration.Seconds(), e.Items, e.Error)
	return errors.Wrap(err, "appending scrape log entry")
}

// Purge deletes log entries older than olderThan, the retention policy
// named in SPEC_FULL.md §4.4.
func (s *LogStore) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scrape_log WHERE at < now() - ($1 || ' seconds')::interval`,
		olderThan.Seconds())
	if err != nil {
		return 0, errors.Wrap(err, "purging scrape log")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting purged rows")
}
