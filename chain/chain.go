// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chain provides the read/write facade over the RPC client used by
// the reconciliation engine. All reads return the latest confirmed state at
// the client's commitment level.
package chain

import (
	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

var (
	// ErrNetwork tags failures of the underlying RPC transport.
	ErrNetwork = errors.New("network unreachable")

	// ErrDecode tags account payloads that do not parse.
	ErrDecode = errors.New("account decode")
)

// IsNetwork returns true if err originates from the RPC transport.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsDecode returns true if err originates from account decoding.
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}

// ActivationState the lifecycle state of a stake account. State changes are
// epoch-boundary triggered: a newly delegated account stays Activating for
// the remainder of the current epoch.
type ActivationState byte

const (
	StakeActivating ActivationState = iota
	StakeActive
	StakeDeactivating
	StakeInactive
)

func (s ActivationState) String() string {
	switch s {
	case StakeActivating:
		return "activating"
	case StakeActive:
		return "active"
	case StakeDeactivating:
		return "deactivating"
	case StakeInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Account the chain-held state of an account.
type Account struct {
	Lamports uint64
	Owner    sol.Address
	Data     []byte
}

// Activation the stake activation breakdown of a stake account.
type Activation struct {
	State    ActivationState
	Active   uint64
	Inactive uint64
}

// EpochInfo describes the chain's epoch progress.
type EpochInfo struct {
	Epoch        uint64
	SlotIndex    uint64
	SlotsInEpoch uint64
}

// Client is the RPC collaborator the gateway wraps. Implementations map
// transport failures to ErrNetwork.
type Client interface {
	// Account returns nil without error when the account does not exist.
	Account(addr sol.Address) (*Account, error)
	Balance(addr sol.Address) (uint64, error)
	// StakeActivation reports activation at the given epoch, or at the
	// current epoch when epoch is nil.
	StakeActivation(addr sol.Address, epoch *uint64) (Activation, error)
	MinimumBalanceForRentExemption(size uint64) (uint64, error)
	// StakeAccountsByAuthority enumerates stake accounts whose withdraw
	// authority equals the given address.
	StakeAccountsByAuthority(authority sol.Address) ([]sol.Address, error)
	EpochInfo() (EpochInfo, error)
	Submit(raw []byte) (sol.Signature, error)
	Confirm(sig sol.Signature) error
}

// Reader is the read-only subset of Client used by snapshot loading.
type Reader interface {
	Account(addr sol.Address) (*Account, error)
	Balance(addr sol.Address) (uint64, error)
}

// Submitter is the write subset of Client used by the batch executor.
type Submitter interface {
	Submit(raw []byte) (sol.Signature, error)
	Confirm(sig sol.Signature) error
}
