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

// Command scraper runs the dispatcher loop and the operator HTTP control
// surface in one process: claim-and-submit listings from the queue,
// scrape each through internal/worker, and expose /api/* and /metrics
// over the same listener, modeled on cmd/config-reloader's run.Group
// wiring.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corralejo/listing-harvester/internal/api"
	"github.com/corralejo/listing-harvester/internal/config"
	"github.com/corralejo/listing-harvester/internal/dispatch"
	"github.com/corralejo/listing-harvester/internal/fetch"
	"github.com/corralejo/listing-harvester/internal/fetch/browser"
	"github.com/corralejo/listing-harvester/internal/fetch/httpclient"
	"github.com/corralejo/listing-harvester/internal/images"
	"github.com/corralejo/listing-harvester/internal/stats"
	"github.com/corralejo/listing-harvester/internal/store/postgres"
	"github.com/corralejo/listing-harvester/internal/vpn"
	"github.com/corralejo/listing-harvester/internal/worker"
)

func main() {
	listenAddress := flag.String("listen-address", ":9090", "address on which to expose /api and /metrics")
	vpnBinary := flag.String("vpn-binary", "nordvpn", "VPN client executable on PATH")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)

	cfg, err := config.Load()
	if err != nil {
		level.Error(logger).Log("msg", "loading configuration failed", "err", err)
		os.Exit(1)
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		level.Error(logger).Log("msg", "connecting to database failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.CreateTables(db); err != nil {
		level.Error(logger).Log("msg", "creating tables failed", "err", err)
		os.Exit(1)
	}

	queueStore := postgres.NewQueueStore(db)
	recordStore := postgres.NewRecordStore(db)
	logStore := postgres.NewLogStore(db)
	vpnLog := postgres.NewVPNLog(db, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vpnCtrl := vpn.New(ctx, vpn.NewExecCLI(*vpnBinary), vpn.NewHTTPProber(), vpnLog, logger, cfg.VPNCountries)

	newFetcher := func() (fetch.Fetcher, error) {
		if cfg.UseBrowserDriver {
			return browser.New(browser.Config{
				LocaleCookie:  cfg.LocaleCookieValue,
				LocaleAccept:  cfg.LocaleAcceptLang,
				CookieDomain:  "booking.com",
				DebugHTMLRoot: cfg.DebugHTMLRoot,
			}, logger)
		}
		return httpclient.New(httpclient.Config{
			CookieScheme:    "https",
			CookieHost:      "www.booking.com",
			CookieDomain:    "booking.com",
			LocaleCookie:    cfg.LocaleCookieValue,
			LocaleAccept:    cfg.LocaleAcceptLang,
			MaxRetries:      cfg.MaxRetries,
			MinRequestDelay: cfg.MinRequestDelay,
			MaxRequestDelay: cfg.MaxRequestDelay,
			DebugHTMLRoot:   cfg.DebugHTMLRoot,
		}, logger)
	}

	imageClient := cleanhttp.DefaultPooledClient()
	imageDownloader := images.New(cfg.ImagesRoot, imageClient, logger)
	imageDownloader.Quality = cfg.ImageQuality
	imageDownloader.MaxWidth = cfg.ImageMaxW
	imageDownloader.MaxHeight = cfg.ImageMaxH
	imageDownloader.MinWidth = cfg.ImageMinW
	imageDownloader.MinHeight = cfg.ImageMinH

	workerDeps := &worker.Deps{
		Config:          cfg,
		VPN:             vpnCtrl,
		Queue:           queueStore,
		Records:         recordStore,
		ScrapeLog:       logStore,
		Counters:        stats.New(),
		Logger:          logger,
		NewFetcher:      newFetcher,
		ImageClient:     imageClient,
		ImageDownloader: imageDownloader,
	}

	disp := dispatch.New(dispatch.Config{
		BatchSize:      cfg.BatchSize,
		WorkerPoolSize: cfg.DispatchWorkerPoolSize,
		VPNEnabled:     cfg.VPNEnabled,
	}, queueStore, vpnCtrl, workerDeps, logger)

	handler := api.NewHandler(&api.Deps{
		Queue:      queueStore,
		Records:    recordStore,
		VPN:        vpnCtrl,
		Dispatcher: disp,
		Counters:   workerDeps.Counters,
		NewFetcher: newFetcher,
		Logger:     logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{Registry: metrics}))

	var g run.Group
	{
		g.Add(func() error {
			return disp.Run(ctx)
		}, func(error) {
			cancel()
		})
	}
	{
		term := make(chan os.Signal, 1)
		done := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-term:
				level.Info(logger).Log("msg", "received SIGTERM, exiting gracefully...")
			case <-done:
			}
			return nil
		}, func(err error) {
			close(done)
		})
	}
	{
		server := &http.Server{Addr: *listenAddress, Handler: mux}
		g.Add(func() error {
			level.Info(logger).Log("msg", "starting control-surface server", "listen", *listenAddress)
			return server.ListenAndServe()
		}, func(err error) {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Minute)
			defer shutdownCancel()
			server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "running scraper failed", "err", err)
		os.Exit(1)
	}
}
