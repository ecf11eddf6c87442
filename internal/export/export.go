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

// Package export writes flat-file CSV or JSON snapshots of the Record
// Store, for the operator control surface's export endpoint (spec.md
// §6).
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/corralejo/listing-harvester/internal/records"
)

// csvHeader is the column order written by WriteCSV.
var csvHeader = []string{
	"q_id", "locale", "url", "name", "address", "rating", "review_count",
	"rating_category", "house_rules", "important_info", "image_count",
}

// WriteCSV writes one row per record to w.
func WriteCSV(w io.Writer, recs []records.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, r := range recs {
		row := []string{
			strconv.FormatInt(r.QID, 10),
			r.Locale,
			r.URL,
			deref(r.Name),
			deref(r.Address),
			derefFloat(r.Rating),
			derefInt(r.ReviewCount),
			deref(r.RatingCategory),
			deref(r.HouseRules),
			deref(r.ImportantInfo),
			strconv.Itoa(r.ImageCount),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// WriteJSON writes recs to w as a JSON array, one call, no
// per-record streaming — export runs are operator-triggered and
// bounded by the Search/listing-lookup limit, never unbounded.
func WriteJSON(w io.Writer, recs []records.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(recs), "encoding json export")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 1, 64)
}

func derefInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// Format names an export file format, validated at the API boundary.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates an operator-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("export: unsupported format %q", s)
	}
}

// Write dispatches to WriteCSV or WriteJSON by format, for a Record
// Store's Search results, the lookup-and-export path named in §6.
func Write(ctx context.Context, w io.Writer, store records.Store, nameQuery string, limit int, format Format) error {
	recs, err := store.Search(ctx, nameQuery, limit)
	if err != nil {
		return errors.Wrap(err, "searching records for export")
	}
	switch format {
	case FormatJSON:
		return WriteJSON(w, recs)
	default:
		return WriteCSV(w, recs)
	}
}
