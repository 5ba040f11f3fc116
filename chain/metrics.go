// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import "github.com/BancambiosDeFi/stake-o-matic/metrics"

var (
	metricReads  = metrics.LazyLoadCounterVec("gateway_read_count", []string{"op"})
	metricWrites = metrics.LazyLoadCounterVec("gateway_write_count", []string{"op"})
)
