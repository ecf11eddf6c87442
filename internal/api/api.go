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

// Package api is the operator HTTP control surface: health, queue
// statistics, VPN status/rotate/connect, dispatch-now, a per-URL
// diagnostic dry-run, reset-failed, listing lookup/search and export
// (spec.md §6). It is built on stdlib net/http and http.ServeMux,
// matching the teacher's plain net/http usage in cmd/frontend and
// cmd/config-reloader — no web framework is exercised anywhere in the
// pack's Go repos for a control-plane API this small.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/corralejo/listing-harvester/internal/export"
	"github.com/corralejo/listing-harvester/internal/extract"
	"github.com/corralejo/listing-harvester/internal/fetch"
	"github.com/corralejo/listing-harvester/internal/queue"
	"github.com/corralejo/listing-harvester/internal/records"
	"github.com/corralejo/listing-harvester/internal/stats"
	"github.com/corralejo/listing-harvester/internal/vpn"
)

// Dispatcher is the subset of dispatch.Dispatcher the control surface
// needs; declared here so api does not import dispatch (and, through
// it, worker, which the API does not need).
type Dispatcher interface {
	DispatchNow(ctx context.Context) error
	ActiveCount() int
}

// Deps collects every collaborator the handlers need.
type Deps struct {
	Queue      queue.Store
	Records    records.Store
	VPN        *vpn.Controller
	Dispatcher Dispatcher
	Counters   *stats.Counters
	NewFetcher func() (fetch.Fetcher, error)
	Logger     log.Logger
}

func (d *Deps) logger() log.Logger {
	if d.Logger == nil {
		return log.NewNopLogger()
	}
	return d.Logger
}

// NewHandler wires every route onto a fresh http.ServeMux.
func NewHandler(d *Deps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/-/healthy", d.handleHealth)
	mux.HandleFunc("/api/stats", d.handleStats)
	mux.HandleFunc("/api/vpn/status", d.handleVPNStatus)
	mux.HandleFunc("/api/vpn/rotate", d.handleVPNRotate)
	mux.HandleFunc("/api/vpn/connect", d.handleVPNConnect)
	mux.HandleFunc("/api/dispatch-now", d.handleDispatchNow)
	mux.HandleFunc("/api/dry-run", d.handleDryRun)
	mux.HandleFunc("/api/reset-failed", d.handleResetFailed)
	mux.HandleFunc("/api/listings/", d.handleListingLookup)
	mux.HandleFunc("/api/records/search", d.handleRecordSearch)
	mux.HandleFunc("/api/export", d.handleExport)
	return mux
}

func (d *Deps) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (d *Deps) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := d.Counters.Snapshot()
	active := 0
	if d.Dispatcher != nil {
		active = d.Dispatcher.ActiveCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scraped_count":             snap.ScrapedCount,
		"consecutive_failures":      snap.ConsecutiveFailures,
		"listings_since_vpn_rotate": snap.ListingsSinceVPNRotate,
		"lang_mismatch_count":       snap.LangMismatchCount,
		"lang_mismatch_blocked":     snap.LangMismatchBlocked,
		"active_listings":           active,
	})
}

func (d *Deps) handleVPNStatus(w http.ResponseWriter, r *http.Request) {
	if d.VPN == nil {
		writeError(w, http.StatusServiceUnavailable, "vpn controller not configured")
		return
	}
	st := d.VPN.GetStatus(r.Context())
	writeJSON(w, http.StatusOK, st)
}

func (d *Deps) handleVPNRotate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if d.VPN == nil {
		writeError(w, http.StatusServiceUnavailable, "vpn controller not configured")
		return
	}
	if err := d.VPN.Rotate(r.Context(), vpn.ReasonManual); err != nil {
		level.Warn(d.logger()).Log("msg", "manual vpn rotate failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (d *Deps) handleVPNConnect(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if d.VPN == nil {
		writeError(w, http.StatusServiceUnavailable, "vpn controller not configured")
		return
	}
	country := r.URL.Query().Get("country")
	if err := d.VPN.Connect(r.Context(), country); err != nil {
		level.Warn(d.logger()).Log("msg", "manual vpn connect failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (d *Deps) handleDispatchNow(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if d.Dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatcher not configured")
		return
	}
	if err := d.Dispatcher.DispatchNow(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (d *Deps) handleResetFailed(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	qID, err := parseQID(r.URL.Query().Get("q_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.Queue.ResetFailed(r.Context(), qID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleDryRun fetches and extracts a single operator-supplied URL
// without storing anything, a diagnostic path for inspecting how the
// extractor sees a listing page.
func (d *Deps) handleDryRun(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = "en"
	}
	if d.NewFetcher == nil {
		writeError(w, http.StatusServiceUnavailable, "fetcher factory not configured")
		return
	}

	f, err := d.NewFetcher()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	res, err := f.Fetch(r.Context(), target, locale)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	rec, err := extract.Extract(res.HTML, locale)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"outcome":     res.Outcome,
			"status_code": res.StatusCode,
			"extract_err": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":     res.Outcome,
		"status_code": res.StatusCode,
		"record":      rec,
	})
}

func (d *Deps) handleListingLookup(w http.ResponseWriter, r *http.Request) {
	qIDStr := r.URL.Path[len("/api/listings/"):]
	qID, err := parseQID(qIDStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := d.Queue.Get(r.Context(), qID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (d *Deps) handleRecordSearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	limit := parseLimit(r.URL.Query().Get("limit"))

	recs, err := d.Records.Search(r.Context(), name, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (d *Deps) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := r.URL.Query().Get("name")
	limit := parseLimit(r.URL.Query().Get("limit"))

	switch format {
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "text/csv")
	}
	if err := export.Write(r.Context(), w, d.Records, name, limit, format); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func parseQID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 50
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
