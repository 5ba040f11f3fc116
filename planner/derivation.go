// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package planner

import (
	"github.com/BancambiosDeFi/stake-o-matic/builtin"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

// TransientStakeSeed derives the create-with-seed seed of the driver's
// transient stake account for a vote address: the first 32 hex characters
// of the address text. The truncation is deterministic, the same vote
// always yields the same seed.
func TransientStakeSeed(vote sol.Address) string {
	return vote.String()[2:34]
}

// TransientStakeAddress derives the driver's transient stake account for a
// vote address.
//
// When adding a new validator to the pool, the driver creates a validator
// stake account holding rent-exemption plus the minimum validator balance
// and delegates it. The pool enforces exactly that balance at admission,
// but an account staked for a full epoch has earned rewards beyond it. The
// surplus is split off into the account derived here, deactivated, and
// reclaimed next epoch.
func TransientStakeAddress(staker, vote sol.Address) sol.Address {
	return sol.DeriveAddress(staker, TransientStakeSeed(vote), builtin.Stake)
}
