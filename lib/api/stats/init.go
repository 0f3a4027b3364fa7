package stats

import (
	"time"

	"github.com/ether/revlog/lib"
	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/history"
	"github.com/ether/revlog/lib/settings"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	revlogTrackedCollections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "revlog",
			Name:      "tracked_collections",
			Help:      "Number of collections with an open change-set log",
		},
	)

	revlogCachedSnapshots = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "revlog",
			Name:      "cached_snapshots",
			Help:      "Number of reconstructed snapshots held in memory",
		},
	)
)

func Init(store *lib.InitStore) {
	checks := []Checker{
		DBChecker{store.Store},
		HistoryChecker{store.Manager},
	}

	version, releaseID := settings.BuildInfo()
	store.C.Get("/health", Handler(
		version,
		releaseID,
		"revlog-api",
		checks,
	))

	store.C.Get("/api/settings", func(ctx *fiber.Ctx) error {
		return ctx.JSON(store.RetrievedSettings.GetPublicSettings())
	})

	if store.RetrievedSettings.EnableMetrics {
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()

			for range ticker.C {
				stats := store.Manager.Stats()

				revlogTrackedCollections.Set(float64(stats.Collections))
				revlogCachedSnapshots.Set(float64(stats.CachedSnapshots))
			}
		}()
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			revlogTrackedCollections,
			revlogCachedSnapshots,
		)
		reg.MustRegister(history.Collectors()...)
		if provider, ok := store.Store.(db.MetricsProvider); ok {
			reg.MustRegister(provider.Collector())
		}
		handler := promhttp.HandlerFor(
			reg,
			promhttp.HandlerOpts{},
		)
		store.C.Get("/metrics", adaptor.HTTPHandler(handler))
	}
}
