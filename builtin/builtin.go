// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin names the well-known on-chain programs the driver
// interacts with.
package builtin

import "github.com/BancambiosDeFi/stake-o-matic/sol"

// Well-known program addresses.
var (
	// System owns plain accounts and handles account creation.
	System = sol.BytesToAddress([]byte("system-program"))

	// Stake owns every stake account and handles delegation.
	Stake = sol.BytesToAddress([]byte("stake-program"))

	// StakePool the stake pool program the driver is a client of.
	StakePool = sol.BytesToAddress([]byte("stake-pool-program"))
)
