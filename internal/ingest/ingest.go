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

// Package ingest reads operator-supplied URL lists (plain text, one URL
// per line, or CSV with a `url` header column and optional `language`/
// `priority` columns) and inserts them into the Queue Store, stripping
// any locale suffix so every row lands as a canonical URL.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/corralejo/listing-harvester/internal/queue"
)

// localeSuffixRe strips an existing two-to-four-letter locale suffix
// before ".html", matching the canonical-URL rule in spec.md §6.
var localeSuffixRe = regexp.MustCompile(`(?i)\.[a-z]{2}(-[a-z]{2,4})?\.html$`)

// Canonicalize strips any trailing locale suffix from a listing URL.
func Canonicalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if localeSuffixRe.MatchString(rawURL) {
		return localeSuffixRe.ReplaceAllString(rawURL, ".html")
	}
	return rawURL
}

// Result tallies one ingestion run.
type Result struct {
	Inserted int
	Skipped  int
}

// Ingester inserts canonical URLs into a Queue Store.
type Ingester struct {
	Queue      queue.Store
	MaxRetries int
	Logger     log.Logger
}

func (in *Ingester) logger() log.Logger {
	if in.Logger == nil {
		return log.NewNopLogger()
	}
	return in.Logger
}

// IngestLines reads one URL per line from r, blank lines and lines
// starting with "#" are skipped.
func (in *Ingester) IngestLines(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := in.insertOne(ctx, line, 0, &res); err != nil {
			return res, err
		}
	}
	return res, errors.Wrap(scanner.Err(), "reading url list")
}

// IngestCSV reads a CSV with a header row. The `url` column is
// required; `priority` is optional (defaults to 0) and `language` is
// accepted but not stored, matching the reference URLQueue.language
// column's role as an informational hint rather than a dispatch key in
// this schema.
func (in *Ingester) IngestCSV(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return res, errors.Wrap(err, "reading csv header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	urlCol, ok := col["url"]
	if !ok {
		return res, errors.New("ingest: csv missing required 'url' column")
	}
	priorityCol, hasPriority := col["priority"]

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, errors.Wrap(err, "reading csv row")
		}
		if urlCol >= len(row) || row[urlCol] == "" {
			res.Skipped++
			continue
		}

		priority := 0
		if hasPriority && priorityCol < len(row) && row[priorityCol] != "" {
			p, err := strconv.Atoi(strings.TrimSpace(row[priorityCol]))
			if err != nil {
				level.Warn(in.logger()).Log("msg", "invalid priority, defaulting to 0", "value", row[priorityCol])
			} else {
				priority = p
			}
		}

		if err := in.insertOne(ctx, row[urlCol], priority, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (in *Ingester) insertOne(ctx context.Context, rawURL string, priority int, res *Result) error {
	canonical := Canonicalize(rawURL)
	if canonical == "" {
		res.Skipped++
		return nil
	}
	maxRetries := in.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if _, err := in.Queue.Insert(ctx, canonical, priority, maxRetries); err != nil {
		return errors.Wrapf(err, "inserting %q", canonical)
	}
	res.Inserted++
	return nil
}
