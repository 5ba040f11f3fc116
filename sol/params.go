// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sol

// Constants of the chain and of the stake pool driver.
const (
	// LamportsPerSOL number of lamports in one SOL.
	LamportsPerSOL uint64 = 1e9

	// MinValidatorBalance minimum amount of lamports in a validator stake
	// account, on top of the rent-exempt amount.
	MinValidatorBalance = LamportsPerSOL

	// MinReserve minimum amount of lamports in the stake pool reserve, on
	// top of the rent-exempt amount.
	MinReserve uint64 = 1

	// MinStakeChange no stake adjustment smaller than this amount is ever
	// issued (must be >= MinValidatorBalance).
	MinStakeChange = MinValidatorBalance

	// StakeStateSize serialized size of a stake account state, the input
	// to rent-exemption sizing.
	StakeStateSize uint64 = 200
)
