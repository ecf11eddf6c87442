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

// Package dispatch runs the periodic claim-and-submit loop: claim
// pending listings from the Queue Store, hand each to a bounded worker
// pool, and keep an in-memory "active set" so a listing already being
// worked is never claimed twice.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/corralejo/listing-harvester/internal/queue"
	"github.com/corralejo/listing-harvester/internal/vpn"
	"github.com/corralejo/listing-harvester/internal/worker"
)

// warmup delays the loop's first claim after process boot, giving the
// VPN controller and stores time to settle.
const warmup = 5 * time.Second

// pollInterval is the sleep between successive claim rounds.
const pollInterval = 30 * time.Second

// Config collects the dispatcher's tunables.
type Config struct {
	BatchSize      int
	WorkerPoolSize int
	VPNEnabled     bool
}

// Dispatcher runs the 5-step claim loop from a bounded worker pool; it
// is wired as one oklog/run.Group actor alongside the signal handler
// and the control-surface/metrics server. Run itself waits for the
// worker pool to drain on shutdown.
type Dispatcher struct {
	cfg   Config
	queue queue.Store
	vpn   *vpn.Controller
	deps  *worker.Deps
	log   log.Logger

	mtx    sync.Mutex
	active map[int64]struct{}

	sem chan struct{}
	wg  sync.WaitGroup
}

// New builds a Dispatcher. cfg.WorkerPoolSize defaults to 1 (the
// reference configuration) when zero or negative, eliminating VPN/DNS/
// DB contention at the cost of throughput.
func New(cfg Config, q queue.Store, ctrl *vpn.Controller, deps *worker.Deps, logger log.Logger) *Dispatcher {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Dispatcher{
		cfg:    cfg,
		queue:  q,
		vpn:    ctrl,
		deps:   deps,
		log:    logger,
		active: make(map[int64]struct{}),
		sem:    make(chan struct{}, cfg.WorkerPoolSize),
	}
}

// Run blocks, claiming and dispatching listings every pollInterval,
// until ctx is canceled. On cancellation it lets already-submitted
// workers run to completion before returning, per the no-per-listing-
// cancellation rule.
func (d *Dispatcher) Run(ctx context.Context) error {
	select {
	case <-time.After(warmup):
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		if err := d.tick(ctx); err != nil && ctx.Err() == nil {
			level.Error(d.log).Log("msg", "dispatch tick failed", "err", err)
		}

		select {
		case <-ctx.Done():
			d.wg.Wait()
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// tick runs one claim-and-submit round: step 1 (VPN reconnect), step 2
// (claim, filtered against the active set), and step 3 (submit).
func (d *Dispatcher) tick(ctx context.Context) error {
	if d.cfg.VPNEnabled && d.vpn != nil {
		if err := d.vpn.ReconnectIfDisconnected(ctx); err != nil {
			level.Warn(d.log).Log("msg", "vpn reconnect attempt failed", "err", err)
		}
	}

	ids, err := d.queue.ClaimPending(ctx, d.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, qID := range ids {
		if d.markActive(qID) {
			continue
		}
		d.submit(ctx, qID)
	}
	return nil
}

// markActive reports whether qID was already in the active set,
// adding it if not.
func (d *Dispatcher) markActive(qID int64) bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if _, ok := d.active[qID]; ok {
		return true
	}
	d.active[qID] = struct{}{}
	return false
}

// clearActive removes qID from the active set, the worker's
// completion hook per step 3.
func (d *Dispatcher) clearActive(qID int64) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	delete(d.active, qID)
}

// submit blocks for a free worker-pool slot, then runs the listing's
// scrape in its own goroutine.
func (d *Dispatcher) submit(ctx context.Context, qID int64) {
	d.wg.Add(1)
	d.sem <- struct{}{}
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()
		defer d.clearActive(qID)

		if err := worker.ScrapeOne(context.WithoutCancel(ctx), d.deps, qID); err != nil {
			level.Error(d.log).Log("msg", "scrape failed", "qid", qID, "err", err)
		}
	}()
}

// ActiveCount reports how many listings are currently claimed and
// in-flight, surfaced at the operator control surface.
func (d *Dispatcher) ActiveCount() int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return len(d.active)
}

// DispatchNow runs one claim-and-submit round immediately, for the
// operator control surface's dispatch-now endpoint.
func (d *Dispatcher) DispatchNow(ctx context.Context) error {
	return d.tick(ctx)
}
