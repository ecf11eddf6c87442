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

// Command load-urls bulk-ingests a file of listing URLs into the queue,
// either as plain text (one URL per line) or CSV with a url header
// column, via internal/ingest.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/corralejo/listing-harvester/internal/config"
	"github.com/corralejo/listing-harvester/internal/ingest"
	"github.com/corralejo/listing-harvester/internal/store/postgres"
)

func main() {
	path := flag.String("file", "", "path to a URL list (.txt or .csv)")
	csvMode := flag.Bool("csv", false, "treat the file as CSV with a url header column")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	if *path == "" {
		level.Error(logger).Log("msg", "missing required -file flag")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		level.Error(logger).Log("msg", "loading configuration failed", "err", err)
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		level.Error(logger).Log("msg", "connecting to database failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	f, err := os.Open(*path)
	if err != nil {
		level.Error(logger).Log("msg", "opening url file failed", "err", err)
		os.Exit(1)
	}
	defer f.Close()

	in := &ingest.Ingester{
		Queue:      postgres.NewQueueStore(db),
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	}

	ctx := context.Background()
	var res ingest.Result
	if *csvMode {
		res, err = in.IngestCSV(ctx, f)
	} else {
		res, err = in.IngestLines(ctx, f)
	}
	if err != nil {
		level.Error(logger).Log("msg", "ingesting urls failed", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "ingest complete", "inserted", res.Inserted, "skipped", res.Skipped)
}
