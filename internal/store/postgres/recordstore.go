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
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/corralejo/listing-harvester/internal/records"
)

// RecordStore is a Postgres-backed records.Store. Sub-scores,
// facilities, rooms and image URLs are JSON-encoded into JSONB columns
// (encoding/json, stdlib — no ecosystem JSON library is exercised
// elsewhere in the pack for this narrow need).
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore wraps db as a records.Store.
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Upsert(ctx context.Context, r records.Record) (int64, error) {
	subScores, err := json.Marshal(r.SubScores)
	if err != nil {
		return 0, errors.Wrap(err, "encoding sub_scores")
	}
	services, err := json.Marshal(r.Services)
	if err != nil {
		return 0, errors.Wrap(err, "encoding services")
	}
	facilities, err := json.Marshal(r.Facilities)
	if err != nil {
		return 0, errors.Wrap(err, "encoding facilities")
	}
	rooms, err := json.Marshal(r.Rooms)
	if err != nil {
		return 0, errors.Wrap(err, "encoding rooms")
	}
	imageURLs, err := json.Marshal(r.ImageURLs)
	if err != nil {
		return 0, errors.Wrap(err, "encoding image_urls")
	}

	var rid int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO records (
			q_id, url, locale, name, address, description,
			rating, review_count, rating_category, sub_scores,
			services, facilities, house_rules, important_info,
			rooms, image_urls, image_count, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, now()
		)
		ON CONFLICT (q_id, locale) DO UPDATE SET
			url = EXCLUDED.url,
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			description = EXCLUDED.description,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			rating_category = EXCLUDED.rating_category,
			sub_scores = EXCLUDED.sub_scores,
			services = EXCLUDED.services,
			facilities = EXCLUDED.facilities,
			house_rules = EXCLUDED.house_rules,
			important_info = EXCLUDED.important_info,
			rooms = EXCLUDED.rooms,
			image_urls = EXCLUDED.image_urls,
			image_count = EXCLUDED.image_count,
			updated_at = now()
		RETURNING r_id`,
		r.QID, r.URL, r.Locale, r.Name, r.Address, r.Description,
		r.Rating, r.ReviewCount, r.RatingCategory, subScores,
		services, facilities, r.HouseRules, r.ImportantInfo,
		rooms, imageURLs, r.ImageCount).Scan(&rid)
	return rid, errors.Wrap(err, "upserting record")
}

func (s *RecordStore) UpdateImagesCount(ctx context.Context, qID int64, locale string, n int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE records SET image_count = $3, updated_at = now()
		WHERE q_id = $1 AND locale = $2`, qID, locale, n)
	return errors.Wrap(err, "updating images_count")
}

func (s *RecordStore) Get(ctx context.Context, qID int64, locale string) (records.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r_id, q_id, url, locale, name, address, description,
		       rating, review_count, rating_category, sub_scores,
		       services, facilities, house_rules, important_info,
		       rooms, image_urls, image_count, created_at, updated_at
		FROM records WHERE q_id = $1 AND locale = $2`, qID, locale)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, false, nil
	}
	if err != nil {
		return records.Record{}, false, errors.Wrap(err, "loading record")
	}
	return r, true, nil
}

func (s *RecordStore) CountForListing(ctx context.Context, qID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE q_id = $1`, qID).Scan(&n)
	return n, errors.Wrap(err, "counting records for listing")
}

func (s *RecordStore) Search(ctx context.Context, nameQuery string, limit int) ([]records.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r_id, q_id, url, locale, name, address, description,
		       rating, review_count, rating_category, sub_scores,
		       services, facilities, house_rules, important_info,
		       rooms, image_urls, image_count, created_at, updated_at
		FROM records WHERE name ILIKE '%' || $1 || '%'
		ORDER BY r_id LIMIT $2`, nameQuery, limit)
	if err != nil {
		return nil, errors.Wrap(err, "searching records")
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning search result")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterating search results")
}

// rowScanner abstracts *sql.Row and *sql.Rows so scanRecord serves both
// Get (single row) and Search (many rows).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (records.Record, error) {
	var (
		r                               records.Record
		subScores, services, facilities []byte
		rooms, imageURLs                []byte
		name, address, description      sql.NullString
		ratingCategory, houseRulesStr   sql.NullString
		importantInfo                   sql.NullString
		rating                          sql.NullFloat64
		reviewCount                     sql.NullInt64
	)

	err := row.Scan(
		&r.RID, &r.QID, &r.URL, &r.Locale, &name, &address, &description,
		&rating, &reviewCount, &ratingCategory, &subScores,
		&services, &facilities, &houseRulesStr, &importantInfo,
		&rooms, &imageURLs, &r.ImageCount, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return records.Record{}, err
	}

	if name.Valid {
		r.Name = &name.String
	}
	if address.Valid {
		r.Address = &address.String
	}
	if description.Valid {
		r.Description = &description.String
	}
	if ratingCategory.Valid {
		r.RatingCategory = &ratingCategory.String
	}
	if houseRulesStr.Valid {
		r.HouseRules = &houseRulesStr.String
	}
	if importantInfo.Valid {
		r.ImportantInfo = &importantInfo.String
	}
	if rating.Valid {
		r.Rating = &rating.Float64
	}
	if reviewCount.Valid {
		n := int(reviewCount.Int64)
		r.ReviewCount = &n
	}

	if err := json.Unmarshal(subScores, &r.SubScores); err != nil {
		return records.Record{}, errors.Wrap(err, "decoding sub_scores")
	}
	if err := json.Unmarshal(services, &r.Services); err != nil {
		return records.Record{}, errors.Wrap(err, "decoding services")
	}
	if err := json.Unmarshal(facilities, &r.Facilities); err != nil {
		return records.Record{}, errors.Wrap(err, "decoding facilities")
	}
	if err := json.Unmarshal(rooms, &r.Rooms); err != nil {
		return records.Record{}, errors.Wrap(err, "decoding rooms")
	}
	if err := json.Unmarshal(imageURLs, &r.ImageURLs); err != nil {
		return records.Record{}, errors.Wrap(err, "decoding image_urls")
	}
	return r, nil
}
