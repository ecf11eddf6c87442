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

// Package records holds the extracted, per-(listing, locale) record (R
// in SPEC_FULL.md §3) and its Store contract.
package records

import (
	"context"
	"time"
)

// Room is one entry of a listing's room list.
type Room struct {
	Name     string
	Price    *string
	Capacity *string
	BedInfo  *string
}

// Record is one row of the R table, keyed on (QID, Locale).
type Record struct {
	RID    int64
	QID    int64
	URL    string
	Locale string

	Name        *string
	Address     *string
	Description *string

	Rating         *float64
	ReviewCount    *int
	RatingCategory *string
	SubScores      map[string]float64

	Services   []string
	Facilities map[string][]string

	HouseRules    *string
	ImportantInfo *string

	Rooms []Room

	ImageURLs  []string
	ImageCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the Record Store contract (§4.3).
type Store interface {
	// Upsert inserts or, on (q_id, locale) conflict, fully updates a
	// record including updated_at.
	Upsert(ctx context.Context, r Record) (int64, error)

	// UpdateImagesCount narrows a write to the images_count column.
	UpdateImagesCount(ctx context.Context, qID int64, locale string, n int) error

	// Get returns the stored record for (qID, locale), if any.
	Get(ctx context.Context, qID int64, locale string) (Record, bool, error)

	// CountForListing returns the number of distinct locales stored for qID.
	CountForListing(ctx context.Context, qID int64) (int, error)

	// Search returns records whose name matches a case-insensitive substring.
	Search(ctx context.Context, nameQuery string, limit int) ([]Record, error)
}
