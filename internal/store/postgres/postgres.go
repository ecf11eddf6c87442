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

// Package postgres backs the Queue, Record, and Log Stores with a
// single Postgres database, mirroring the reference SQLAlchemy models
// (url_queue, hotels, scraping_logs, vpn_rotations) under new table
// names (schema.sql).
package postgres

import (
	"database/sql"
	_ "embed"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var Schema string

// Open opens a Postgres connection pool via lib/pq and verifies it with
// a ping.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres connection")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging postgres")
	}
	return db, nil
}

// CreateTables executes schema.sql against db, the Go equivalent of
// original_source/scripts/create_tables.py's Base.metadata.create_all.
func CreateTables(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return errors.Wrap(err, "applying schema")
}

// tables lists every table schema.sql creates, in drop order (dependents
// before the tables they reference).
var tables = []string{"scrape_log", "vpn_rotations", "records", "listing_queue"}

// DropTables drops every table schema.sql creates, the Go equivalent of
// original_source/scripts/create_tables.py's drop_all_tables. Callers
// are expected to gate this behind an explicit operator confirmation, as
// the Python original does.
func DropTables(db *sql.DB) error {
	for _, t := range tables {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + t + " CASCADE"); err != nil {
			return errors.Wrapf(err, "dropping table %s", t)
		}
	}
	return nil
}
