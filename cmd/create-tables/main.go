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

// Command create-tables applies schema.sql to the configured database,
// and optionally drops every table first, mirroring
// original_source/scripts/create_tables.py's create/--drop pair.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/corralejo/listing-harvester/internal/config"
	"github.com/corralejo/listing-harvester/internal/store/postgres"
)

func main() {
	drop := flag.Bool("drop", false, "drop all tables before recreating them (destructive)")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

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

	if *drop {
		fmt.Println("This will drop ALL tables and ALL data.")
		fmt.Print("Type CONFIRM to continue: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if answer := trimNewline(answer); answer != "CONFIRM" {
			fmt.Println("cancelled")
			return
		}
		if err := postgres.DropTables(db); err != nil {
			level.Error(logger).Log("msg", "dropping tables failed", "err", err)
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "all tables dropped")
	}

	if err := postgres.CreateTables(db); err != nil {
		level.Error(logger).Log("msg", "creating tables failed", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "tables created")
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
