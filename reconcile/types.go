// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reconcile

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

// Tier the funding level a validator is entitled to.
type Tier byte

const (
	// TierNone the validator receives no stake.
	TierNone Tier = iota

	// TierBaseline the validator receives the configured baseline amount.
	TierBaseline

	// TierBonus the validator receives an equal share of the stake left
	// after all baselines are funded.
	TierBonus
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierBaseline:
		return "baseline"
	case TierBonus:
		return "bonus"
	default:
		return "unknown"
	}
}

// DesiredEntry names a validator and the tier it should be funded at.
type DesiredEntry struct {
	// Identity names the physical validator.
	Identity sol.Address

	// Vote is the validator's on-chain vote account.
	Vote sol.Address

	Tier Tier
}

// Report the outcome of one reconciliation run.
type Report struct {
	Notes []string
	AllOK bool
}

// Construction and run errors.
var (
	ErrBaselineTooSmall     = errors.New("baseline stake amount too small")
	ErrInvalidPool          = errors.New("invalid stake pool")
	ErrInvalidValidatorList = errors.New("invalid validator list")
	ErrInsufficientStake    = errors.New("not enough stake to cover the baseline")
	ErrUnsupported          = errors.New("dry run not supported")
)

// TxFailedError reports a phase whose batch left failed transactions. The
// run aborts, the next invocation re-observes chain state and retries.
type TxFailedError struct {
	Phase string
}

func (e *TxFailedError) Error() string {
	return fmt.Sprintf("%s failed: one or more transactions not executed", e.Phase)
}
