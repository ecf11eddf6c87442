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

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/corralejo/listing-harvester/internal/vpn"
)

// VPNLog is a Postgres-backed vpn.Log. Append never blocks the VPN
// controller's critical section: it writes in its own goroutine and
// only logs a failure, per the vpn.Log contract.
type VPNLog struct {
	db     *sql.DB
	logger log.Logger
}

// NewVPNLog wraps db as a vpn.Log.
func NewVPNLog(db *sql.DB, logger log.Logger) *VPNLog {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &VPNLog{db: db, logger: logger}
}

func (l *VPNLog) Append(_ context.Context, e vpn.RotationEntry) {
	go func() {
		_, err := l.db.ExecContext(context.Background(), `
			INSERT INTO vpn_rotations (old_ip, new_ip, country, reason, success, rotated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.OldIP, e.NewIP, e.Country, e.Reason, e.Success, e.At)
		if err != nil {
			level.Warn(l.logger).Log("msg", "vpn rotation log append failed", "err", err)
		}
	}()
}
