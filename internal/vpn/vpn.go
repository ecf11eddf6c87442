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

// Package vpn owns the outbound egress IP for the whole process. It is a
// process-wide singleton (SPEC_FULL.md §5): every Connect, Rotate and
// ReconnectIfDisconnected call is serialized behind a single mutex, and
// the cached current-IP read is guarded by a second, separate mutex
// (the shared-resource table's "VPN current-IP cache" row).
package vpn

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Reason names why a rotation was requested (V.reason in SPEC_FULL.md §3).
type Reason string

const (
	ReasonManual   Reason = "manual"
	ReasonPeriodic Reason = "periodic"
	ReasonBlockIP  Reason = "block_ip"
	ReasonMismatch Reason = "mismatch"
)

// RotationEntry is one row of the append-only V table.
type RotationEntry struct {
	OldIP   string
	NewIP   string
	Country string
	Reason  Reason
	Success bool
	At      time.Time
}

// Log records VPN rotation entries; implementations must never block the
// controller's critical section (append asynchronously or fire-and-forget).
type Log interface {
	Append(ctx context.Context, e RotationEntry)
}

// CLI is the external VPN client command-line collaborator (§6).
type CLI interface {
	Disconnect(ctx context.Context) error
	Connect(ctx context.Context, country string) error
}

// IPProber returns the current public egress IP.
type IPProber interface {
	CurrentIP(ctx context.Context) (string, error)
}

// Status is a snapshot returned by GetStatus.
type Status struct {
	Country          string
	IP               string
	CountSinceRotate int
}

// Controller is the single-process VPN/egress-IP owner.
type Controller struct {
	cli       CLI
	prober    IPProber
	log       Log
	logger    log.Logger
	countries []string

	originalIP string

	// mu serializes Connect, Rotate and ReconnectIfDisconnected: the
	// process-wide mutex named in SPEC_FULL.md §5's shared-resource
	// table. Concurrent CLI invocations caused observed DNS instability
	// in the reference implementation.
	mu sync.Mutex

	currentIP        string
	currentCountry   string
	countSinceRotate int

	// ipMu guards the cached current-IP read, separately from mu, so a
	// worker merely checking IsActive does not wait on the VPN CLI calls
	// of an in-flight Connect/Rotate; it can still wait while that call
	// probes the new IP under ipMu.
	ipMu       sync.Mutex
	ipCachedAt time.Time
	ipCacheTTL time.Duration
}

// New constructs a Controller and captures original_ip once, by probing
// the current egress IP before any VPN connection is made.
func New(ctx context.Context, cli CLI, prober IPProber, rotLog Log, logger log.Logger, countries []string) *Controller {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &Controller{
		cli:        cli,
		prober:     prober,
		log:        rotLog,
		logger:     logger,
		countries:  countries,
		ipCacheTTL: 30 * time.Second,
	}
	if ip, err := c.refreshIP(ctx); err == nil {
		c.originalIP = ip
	} else {
		level.Warn(logger).Log("msg", "could not probe original IP at startup", "err", err)
	}
	return c
}

// Connect disconnects any existing session then connects to country; if
// country is empty it chooses from the configured country list
// (English-speaking countries first, per Config.VPNCountries ordering).
func (c *Controller) Connect(ctx context.Context, country string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, country, ReasonManual)
}

func (c *Controller) connectLocked(ctx context.Context, country string, reason Reason) error {
	if country == "" {
		country = c.pickCountryLocked("")
	}
	oldIP := c.currentIP

	if err := c.cli.Disconnect(ctx); err != nil {
		level.Warn(c.logger).Log("msg", "vpn disconnect before connect failed", "err", err)
	}
	if err := c.cli.Connect(ctx, country); err != nil {
		c.recordRotation(ctx, oldIP, "", country, reason, false)
		return errors.Wrapf(err, "connecting to %s", country)
	}
	c.currentCountry = country
	c.countSinceRotate = 0
	c.invalidateIPCacheLocked()

	newIP, _ := c.refreshIP(ctx)
	c.recordRotation(ctx, oldIP, newIP, country, reason, true)
	level.Info(c.logger).Log("msg", "vpn connected", "country", country, "ip", newIP)
	return nil
}

// pickCountryLocked returns a country from the configured list, excluding
// exclude if given, preferring the list's existing order (which Config
// already sorted English-speaking-first).
func (c *Controller) pickCountryLocked(exclude string) string {
	var candidates []string
	for _, cc := range c.countries {
		if cc != exclude {
			candidates = append(candidates, cc)
		}
	}
	if len(candidates) == 0 {
		candidates = c.countries
	}
	if len(candidates) == 0 {
		return ""
	}
	if exclude == "" {
		return candidates[0]
	}
	return candidates[rand.Intn(len(candidates))]
}

// Rotate disconnects, picks a country different from the current one,
// and reconnects. On success it resets the since-last-rotation counter.
func (c *Controller) Rotate(ctx context.Context, reason Reason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.pickCountryLocked(c.currentCountry)
	if err := c.connectLocked(ctx, next, reason); err != nil {
		return err
	}
	c.countSinceRotate = 0
	return nil
}

// IsActive reports whether the current egress IP differs from the
// original one. Critical contract: when either IP is unknown (the probe
// services are unreachable), IsActive returns true — assuming "down" in
// that case caused stampede reconnections across workers.
func (c *Controller) IsActive(ctx context.Context) bool {
	ip, err := c.CurrentIP(ctx)
	if err != nil || ip == "" || c.originalIP == "" {
		return true
	}
	return ip != c.originalIP
}

// CurrentIP returns the cached current public IP, refreshing it if the
// cache has expired. Reads and writes of the cache are mutex-protected to
// protect the echo services from thundering-herd queries by parallel
// workers.
func (c *Controller) CurrentIP(ctx context.Context) (string, error) {
	c.ipMu.Lock()
	defer c.ipMu.Unlock()

	if time.Since(c.ipCachedAt) < c.ipCacheTTL && c.currentIP != "" {
		return c.currentIP, nil
	}
	return c.refreshIPLocked(ctx)
}

// refreshIPLocked must be called with ipMu held.
func (c *Controller) refreshIPLocked(ctx context.Context) (string, error) {
	ip, err := c.prober.CurrentIP(ctx)
	if err != nil {
		return c.currentIP, err
	}
	c.currentIP = ip
	c.ipCachedAt = time.Now()
	return ip, nil
}

// refreshIP takes ipMu and refreshes the cached current-IP. Callers that
// do not hold ipMu (connectLocked and activeLocked, which hold mu, and
// New, which holds neither) must go through this rather than
// refreshIPLocked directly, so the cache fields are never written
// without ipMu held.
func (c *Controller) refreshIP(ctx context.Context) (string, error) {
	c.ipMu.Lock()
	defer c.ipMu.Unlock()
	return c.refreshIPLocked(ctx)
}

func (c *Controller) invalidateIPCacheLocked() {
	c.ipMu.Lock()
	defer c.ipMu.Unlock()
	c.ipCachedAt = time.Time{}
}

// ReconnectIfDisconnected is the entire call guarded by the process-wide
// mutex (SPEC_FULL.md §5).
func (c *Controller) ReconnectIfDisconnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeLocked(ctx) {
		return nil
	}
	level.Warn(c.logger).Log("msg", "vpn appears down, reconnecting")
	return c.connectLocked(ctx, c.currentCountry, ReasonManual)
}

func (c *Controller) activeLocked(ctx context.Context) bool {
	ip, err := c.refreshIP(ctx)
	if err != nil || ip == "" || c.originalIP == "" {
		return true
	}
	return ip != c.originalIP
}

// GetStatus returns the current country, IP and rotation counter.
func (c *Controller) GetStatus(ctx context.Context) Status {
	ip, _ := c.CurrentIP(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Country:          c.currentCountry,
		IP:               ip,
		CountSinceRotate: c.countSinceRotate,
	}
}

func (c *Controller) recordRotation(ctx context.Context, oldIP, newIP, country string, reason Reason, success bool) {
	if c.log == nil {
		return
	}
	c.log.Append(ctx, RotationEntry{
		OldIP:   oldIP,
		NewIP:   newIP,
		Country: country,
		Reason:  reason,
		Success: success,
		At:      time.Now(),
	})
}
