// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics exposes no-op meters by default. Call
// InitializePrometheusMetrics to switch every meter created afterwards to
// the prometheus backend.
package metrics

import "net/http"

// Metrics defines the interface of a metrics backend.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateGaugeVecMeter(name string, labels []string) GaugeVecMeter
	GetOrCreateHistogramMeter(name string, buckets []int64) HistogramMeter
	GetOrCreateHistogramVecMeter(name string, labels []string, buckets []int64) HistogramVecMeter
	GetOrCreateHandler() http.Handler
}

var metrics = defaultNoopMetrics()

// Bucket10s covers durations up to 10 seconds, in milliseconds.
var Bucket10s = []int64{0, 500, 1000, 2000, 3000, 4000, 5000, 7500, 10_000}

// HTTPHandler returns the handler of the active backend.
func HTTPHandler() http.Handler {
	return metrics.GetOrCreateHandler()
}

// HistogramMeter aggregates reported measurements as a histogram.
type HistogramMeter interface {
	Observe(i int64)
}

// Histogram returns a histogram meter with the given name.
func Histogram(name string, buckets []int64) HistogramMeter {
	return metrics.GetOrCreateHistogramMeter(name, buckets)
}

// LazyLoadHistogram returns a function that resolves the meter on first call.
func LazyLoadHistogram(name string, buckets []int64) func() HistogramMeter {
	var meter HistogramMeter
	return func() HistogramMeter {
		if meter == nil {
			meter = Histogram(name, buckets)
		}
		return meter
	}
}

// HistogramVecMeter is a HistogramMeter partitioned by labels.
type HistogramVecMeter interface {
	ObserveWithLabels(i int64, labels map[string]string)
}

// HistogramVec returns a labeled histogram meter with the given name.
func HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return metrics.GetOrCreateHistogramVecMeter(name, labels, buckets)
}

// LazyLoadHistogramVec returns a function that resolves the meter on first call.
func LazyLoadHistogramVec(name string, labels []string, buckets []int64) func() HistogramVecMeter {
	var meter HistogramVecMeter
	return func() HistogramVecMeter {
		if meter == nil {
			meter = HistogramVec(name, labels, buckets)
		}
		return meter
	}
}

// CountMeter is a monotonically increasing counter.
type CountMeter interface {
	Add(i int64)
}

// Counter returns a count meter with the given name.
func Counter(name string) CountMeter {
	return metrics.GetOrCreateCountMeter(name)
}

// LazyLoadCounter returns a function that resolves the meter on first call.
func LazyLoadCounter(name string) func() CountMeter {
	var meter CountMeter
	return func() CountMeter {
		if meter == nil {
			meter = Counter(name)
		}
		return meter
	}
}

// CountVecMeter is a CountMeter partitioned by labels.
type CountVecMeter interface {
	AddWithLabel(i int64, labels map[string]string)
}

// CounterVec returns a labeled count meter with the given name.
func CounterVec(name string, labels []string) CountVecMeter {
	return metrics.GetOrCreateCountVecMeter(name, labels)
}

// LazyLoadCounterVec returns a function that resolves the meter on first call.
func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	var meter CountVecMeter
	return func() CountVecMeter {
		if meter == nil {
			meter = CounterVec(name, labels)
		}
		return meter
	}
}

// GaugeMeter is a value that can go up and down.
type GaugeMeter interface {
	Add(i int64)
	Set(i int64)
}

// Gauge returns a gauge meter with the given name.
func Gauge(name string) GaugeMeter {
	return metrics.GetOrCreateGaugeMeter(name)
}

// LazyLoadGauge returns a function that resolves the meter on first call.
func LazyLoadGauge(name string) func() GaugeMeter {
	var meter GaugeMeter
	return func() GaugeMeter {
		if meter == nil {
			meter = Gauge(name)
		}
		return meter
	}
}

// GaugeVecMeter is a GaugeMeter partitioned by labels.
type GaugeVecMeter interface {
	AddWithLabel(i int64, labels map[string]string)
	SetWithLabel(i int64, labels map[string]string)
}

// GaugeVec returns a labeled gauge meter with the given name.
func GaugeVec(name string, labels []string) GaugeVecMeter {
	return metrics.GetOrCreateGaugeVecMeter(name, labels)
}

// LazyLoadGaugeVec returns a function that resolves the meter on first call.
func LazyLoadGaugeVec(name string, labels []string) func() GaugeVecMeter {
	var meter GaugeVecMeter
	return func() GaugeVecMeter {
		if meter == nil {
			meter = GaugeVec(name, labels)
		}
		return meter
	}
}
