// Package metric exposes Prometheus metrics for refmap instances.
//
// Maps register themselves as Sources under a name; the Collector
// turns each source's counter snapshot into labeled const metrics at
// scrape time, so collection never touches a map lock beyond the
// atomic counter reads inside Stats.
package metric

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/refmap-go/pkg/refmap"
)

// Source exposes a map's counters for collection. All refmap variants
// satisfy it through their Stats method.
type Source interface {
	Stats() refmap.Stats
}

// Collector collects per-map metrics from registered sources.
// It implements prometheus.Collector.
type Collector struct {
	mu      sync.RWMutex
	sources map[string]Source

	descLive      *prometheus.Desc
	descInserts   *prometheus.Desc
	descReplaced  *prometheus.Desc
	descHits      *prometheus.Desc
	descMisses    *prometheus.Desc
	descRemovals  *prometheus.Desc
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	labels := []string{"map"}
	return &Collector{
		sources: make(map[string]Source),
		descLive: prometheus.NewDesc(
			"refmap_entries_live",
			"Number of live entries (keys with at least one outstanding handle).",
			labels, nil,
		),
		descInserts: prometheus.NewDesc(
			"refmap_inserts_total",
			"Total Insert calls, including replacements.",
			labels, nil,
		),
		descReplaced: prometheus.NewDesc(
			"refmap_replacements_total",
			"Inserts that displaced an existing entry.",
			labels, nil,
		),
		descHits: prometheus.NewDesc(
			"refmap_get_hits_total",
			"Get calls that returned a handle.",
			labels, nil,
		),
		descMisses: prometheus.NewDesc(
			"refmap_get_misses_total",
			"Get calls for absent keys.",
			labels, nil,
		),
		descRemovals: prometheus.NewDesc(
			"refmap_removals_total",
			"Entries removed by final handle release.",
			labels, nil,
		),
	}
}

// Register adds a source under name, replacing any previous source
// with the same name.
func (c *Collector) Register(name string, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = src
}

// Unregister removes the source registered under name.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, name)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.descLive
	ch <- c.descInserts
	ch <- c.descReplaced
	ch <- c.descHits
	ch <- c.descMisses
	ch <- c.descRemovals
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, src := range c.sources {
		st := src.Stats()
		ch <- prometheus.MustNewConstMetric(
			c.descLive, prometheus.GaugeValue, float64(st.Size), name)
		ch <- prometheus.MustNewConstMetric(
			c.descInserts, prometheus.CounterValue, float64(st.Inserts), name)
		ch <- prometheus.MustNewConstMetric(
			c.descReplaced, prometheus.CounterValue, float64(st.Replaced), name)
		ch <- prometheus.MustNewConstMetric(
			c.descHits, prometheus.CounterValue, float64(st.Hits), name)
		ch <- prometheus.MustNewConstMetric(
			c.descMisses, prometheus.CounterValue, float64(st.Misses), name)
		ch <- prometheus.MustNewConstMetric(
			c.descRemovals, prometheus.CounterValue, float64(st.Removals), name)
	}
}
