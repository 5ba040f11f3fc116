// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// noopMetrics is the backend used before metrics are initialized. Meters
// swallow every measurement and the handler answers 404.
type noopMetrics struct{}

func defaultNoopMetrics() Metrics { return &noopMetrics{} }

func (n *noopMetrics) GetOrCreateCountMeter(string) CountMeter { return &noopMeters{} }

func (n *noopMetrics) GetOrCreateCountVecMeter(string, []string) CountVecMeter {
	return &noopMeters{}
}

func (n *noopMetrics) GetOrCreateGaugeMeter(string) GaugeMeter { return &noopMeters{} }

func (n *noopMetrics) GetOrCreateGaugeVecMeter(string, []string) GaugeVecMeter {
	return &noopMeters{}
}

func (n *noopMetrics) GetOrCreateHistogramMeter(string, []int64) HistogramMeter {
	return &noopMeters{}
}

func (n *noopMetrics) GetOrCreateHistogramVecMeter(string, []string, []int64) HistogramVecMeter {
	return &noopMeters{}
}

func (n *noopMetrics) GetOrCreateHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "metrics not enabled", http.StatusNotFound)
	})
}

type noopMeters struct{}

func (n *noopMeters) Add(int64) {}

func (n *noopMeters) AddWithLabel(int64, map[string]string) {}

func (n *noopMeters) Set(int64) {}

func (n *noopMeters) SetWithLabel(int64, map[string]string) {}

func (n *noopMeters) Observe(int64) {}

func (n *noopMeters) ObserveWithLabels(int64, map[string]string) {}
