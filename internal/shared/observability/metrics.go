package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lattice_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ScopesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_scopes_built_total",
		Help: "Total number of lexical scopes built, by language.",
	}, []string{"language"})

	SymbolsIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_symbols_indexed_total",
		Help: "Total number of symbol entries registered in scope tables.",
	}, []string{"language"})

	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_resolutions_total",
		Help: "Reference resolution outcomes by source and confidence.",
	}, []string{"source", "confidence"})

	UnresolvedReferences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lattice_unresolved_references",
		Help: "Unresolved references observed in the latest resolve pass.",
	})

	UnresolvedImports = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lattice_unresolved_imports",
		Help: "Import specifiers without an on-disk target in the latest resolve pass.",
	})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lattice_resolve_pass_seconds",
		Help:    "Wall time of a full resolve pass over the snapshot.",
		Buckets: prometheus.DefBuckets,
	})

	MemoCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lattice_memo_cache_hits_total",
		Help: "Resolution memo cache hits.",
	})

	MemoCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lattice_memo_cache_misses_total",
		Help: "Resolution memo cache misses.",
	})

	MemoCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lattice_memo_cache_invalidations_total",
		Help: "Memo cache entries dropped after file changes.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lattice_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	FilesIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lattice_files_indexed",
		Help: "Files currently held in the resolution snapshot.",
	})
)
