package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/takraw/internal/adapters/repository"
	"github.com/okian/takraw/internal/config"
	"github.com/okian/takraw/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestOpenStore(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then an empty store path selects the in-memory store", func() {
			store, err := openStore(cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("Then a store path selects SQLite", func() {
			cfg.StorePath = filepath.Join(t.TempDir(), "takraw.db")
			store, err := openStore(cfg)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()
			_, ok := store.(*repository.SQLiteStore)
			convey.So(ok, convey.ShouldBeTrue)
		})
	})
}

func TestWiring(t *testing.T) {
	convey.Convey("Given a service built from configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.WorkerCount = 2
		cfg.Rules.WinPoints, cfg.Rules.CapPoints = 11, 13

		store := repository.NewMemoryStore()
		svc := newService(cfg, store, logger.Nop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		mux := newMux(ctx, svc)

		convey.Convey("Then the configured rules reach the service", func() {
			stats := svc.GetStats()
			convey.So(stats["winPoints"], convey.ShouldEqual, 11)
			convey.So(stats["workerCount"], convey.ShouldEqual, 2)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the API and its reference are routed", func() {
			for _, path := range []string{"/healthz", "/stats", "/teams", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a team created over HTTP lands in the store", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/teams", strings.NewReader(`{"name":"Harimau"}`)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

			teams, err := store.ListTeams(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(teams, convey.ShouldHaveLength, 1)
			convey.So(teams[0].Name, convey.ShouldEqual, "Harimau")
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metric updaters", t, func() {
		convey.Convey("Then sampling runtime metrics does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updaters return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				convey.So("updater still running", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	convey.Convey("Given a configuration on a free port", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = "127.0.0.1:0"
		cfg.StorePath = filepath.Join(t.TempDir(), "run.db")

		convey.Convey("Then run returns cleanly when its context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			convey.So(run(ctx, cfg, logger.Nop()), convey.ShouldBeNil)
		})
	})
}
