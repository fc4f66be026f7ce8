package main

import (
	"time"

	"github.com/hupe1980/versebase"
	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics exports table operations to Prometheus, labeled by table.
type promMetrics struct {
	opLatency   *prometheus.HistogramVec
	ops         *prometheus.CounterVec
	selectRows  *prometheus.CounterVec
	rebuilds    *prometheus.CounterVec
	rebuildRows *prometheus.GaugeVec
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "versebase_operation_latency_seconds",
			Help:    "Latency of table operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"table", "op"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "versebase_operations_total",
			Help: "Table operations by outcome",
		}, []string{"table", "op", "status"}),
		selectRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "versebase_select_rows_total",
			Help: "Rows returned by select",
		}, []string{"table"}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "versebase_index_rebuilds_total",
			Help: "Full index rebuilds",
		}, []string{"table"}),
		rebuildRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "versebase_index_rows",
			Help: "Rows indexed by the last rebuild",
		}, []string{"table"}),
	}
	reg.MustRegister(m.opLatency, m.ops, m.selectRows, m.rebuilds, m.rebuildRows)
	return m
}

// forTable returns a collector for one table.
func (m *promMetrics) forTable(name string) versebase.MetricsCollector {
	return &tableMetrics{m: m, table: name}
}

type tableMetrics struct {
	m     *promMetrics
	table string
}

var _ versebase.MetricsCollector = (*tableMetrics)(nil)

func (t *tableMetrics) observe(op string, d time.Duration, err error) {
	t.m.opLatency.WithLabelValues(t.table, op).Observe(d.Seconds())
	t.m.ops.WithLabelValues(t.table, op, status(err)).Inc()
}

func status(err error) string {
	switch versebase.KindOf(err) {
	case versebase.KindNone:
		return "ok"
	case versebase.KindNotFound:
		return "not_found"
	case versebase.KindAlreadyExists:
		return "exists"
	default:
		return "error"
	}
}

func (t *tableMetrics) RecordCreate(d time.Duration, err error) { t.observe("create", d, err) }
func (t *tableMetrics) RecordGet(d time.Duration, err error)    { t.observe("get", d, err) }
func (t *tableMetrics) RecordDelete(d time.Duration, err error) { t.observe("delete", d, err) }
func (t *tableMetrics) RecordUpdate(d time.Duration, err error) { t.observe("update", d, err) }

func (t *tableMetrics) RecordSelect(matched int, d time.Duration, err error) {
	t.observe("select", d, err)
	t.m.selectRows.WithLabelValues(t.table).Add(float64(matched))
}

func (t *tableMetrics) RecordRebuild(rows int, d time.Duration) {
	t.m.opLatency.WithLabelValues(t.table, "rebuild").Observe(d.Seconds())
	t.m.rebuilds.WithLabelValues(t.table).Inc()
	t.m.rebuildRows.WithLabelValues(t.table).Set(float64(rows))
}
