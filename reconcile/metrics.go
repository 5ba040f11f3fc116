// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reconcile

import "github.com/BancambiosDeFi/stake-o-matic/metrics"

var (
	metricPhaseDuration  = metrics.LazyLoadHistogramVec("reconcile_phase_duration_ms", []string{"phase"}, metrics.Bucket10s)
	metricReserveBalance = metrics.LazyLoadGauge("reconcile_reserve_lamports")
)
