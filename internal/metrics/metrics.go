// Package metrics exposes Prometheus collectors for the playlist service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transform results
const (
	ResultOK       = "ok"
	ResultBadInput = "bad_input"
	ResultRange    = "range"

	// ResultCached is a response served from the cache without running the transform
	ResultCached = "cached"
)

var (
	transforms = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsfilter_transforms_total",
		Help: "Playlist transforms by playlist kind and result",
	}, []string{"kind", "result"})

	renditionsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsfilter_renditions_removed_total",
		Help: "Variant streams removed from master playlists",
	})

	segmentsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsfilter_segments_removed_total",
		Help: "Segments removed from media playlists",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsfilter_cache_lookups_total",
		Help: "Response cache lookups by result (hit, miss)",
	}, []string{"result"})
)

// RecordTransform counts one transform of the given kind ("master" or
// "media"). removed is the number of renditions or segments dropped.
func RecordTransform(kind, result string, removed int) {
	transforms.WithLabelValues(kind, result).Inc()
	if removed <= 0 {
		return
	}
	switch kind {
	case "master":
		renditionsRemoved.Add(float64(removed))
	case "media":
		segmentsRemoved.Add(float64(removed))
	}
}

// RecordCacheLookup counts a cache hit or miss
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}
