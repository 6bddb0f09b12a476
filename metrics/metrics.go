// Package metrics exports isoal sink counters to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rigado/isoal"
)

const namespace = "isoal"

// StatsSource is anything that can report sink counters, typically an
// *isoal.Sink.
type StatsSource interface {
	Stats() isoal.Stats
}

// Collector is a prometheus.Collector reading the counters of every watched
// sink at scrape time. Sinks are labelled by the given label and their
// connection handle.
type Collector struct {
	mu      sync.Mutex
	sources map[string]StatsSource

	pdus      *prometheus.Desc
	rejected  *prometheus.Desc
	sdus      *prometheus.Desc
	buffers   *prometheus.Desc
	seqErrors *prometheus.Desc
	pduErrors *prometheus.Desc
}

// NewCollector creates the collector and registers it with reg. If reg is nil
// the collector is not registered.
func NewCollector(reg prometheus.Registerer) *Collector {
	labels := []string{"sink"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "sink", name), help, labels, nil)
	}

	c := &Collector{
		sources:   map[string]StatsSource{},
		pdus:      desc("pdus_total", "PDUs consumed by enabled sinks"),
		rejected:  desc("rejected_pdus_total", "PDUs offered to disabled sinks"),
		sdus:      desc("sdus_emitted_total", "SDU fragments emitted to the host"),
		buffers:   desc("buffers_allocated_total", "SDU buffers allocated from the host"),
		seqErrors: desc("sequence_errors_total", "Gaps in the PDU payload number"),
		pduErrors: desc("pdu_errors_total", "PDUs received with errors or lost"),
	}

	if reg != nil {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	return c
}

// Watch starts exporting src under label, replacing any source with the same
// label.
func (c *Collector) Watch(label string, src StatsSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[label] = src
}

// Unwatch stops exporting label.
func (c *Collector) Unwatch(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, label)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pdus
	ch <- c.rejected
	ch <- c.sdus
	ch <- c.buffers
	ch <- c.seqErrors
	ch <- c.pduErrors
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for label, src := range c.sources {
		st := src.Stats()
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), label)
		}
		counter(c.pdus, st.PDUs)
		counter(c.rejected, st.Rejected)
		counter(c.sdus, st.SDUs)
		counter(c.buffers, st.Buffers)
		counter(c.seqErrors, st.SeqErrors)
		counter(c.pduErrors, st.PDUErrors)
	}
}
