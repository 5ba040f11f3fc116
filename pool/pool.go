// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pool provides the typed view of the on-chain stake pool: the pool
// header and the per-validator list.
package pool

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

var (
	// ErrNotPool the account body does not parse as a pool header.
	ErrNotPool = errors.New("not a stake pool")

	// ErrNotList the account body does not parse as a validator list.
	ErrNotList = errors.New("not a validator list")
)

// Status of a validator entry within the pool.
type Status byte

const (
	// StatusActive the entry is fully managed by the pool.
	StatusActive Status = iota

	// StatusDeactivatingTransient the entry still has transient stake
	// cooling down.
	StatusDeactivatingTransient

	// StatusReadyForRemoval the entry can be dropped from the list.
	StatusReadyForRemoval
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDeactivatingTransient:
		return "deactivating-transient"
	case StatusReadyForRemoval:
		return "ready-for-removal"
	default:
		return "unknown"
	}
}

// Header the pool metadata account. The validator list is a separate
// account the header points at; always read the header first.
type Header struct {
	Manager            sol.Address
	Staker             sol.Address
	ReserveStake       sol.Address
	ValidatorList      sol.Address
	TotalStakeLamports uint64
}

// DecodeHeader parses a pool header account body.
func DecodeHeader(data []byte) (*Header, error) {
	var h Header
	if err := rlp.DecodeBytes(data, &h); err != nil {
		return nil, errors.WithMessage(ErrNotPool, err.Error())
	}
	return &h, nil
}

// Encode serializes the header, as stored on chain.
func (h *Header) Encode() []byte {
	data, err := rlp.EncodeToBytes(h)
	if err != nil {
		panic(errors.Wrap(err, "encode pool header"))
	}
	return data
}

// ValidatorEntry one validator tracked by the pool.
type ValidatorEntry struct {
	Vote          sol.Address
	StakeLamports uint64
	Status        Status
}

// ValidatorList the ordered set of validators in the pool.
type ValidatorList struct {
	MaxValidators uint32
	Entries       []ValidatorEntry
}

// DecodeValidatorList parses a validator list account body.
func DecodeValidatorList(data []byte) (*ValidatorList, error) {
	var l ValidatorList
	if err := rlp.DecodeBytes(data, &l); err != nil {
		return nil, errors.WithMessage(ErrNotList, err.Error())
	}
	return &l, nil
}

// Encode serializes the list, as stored on chain.
func (l *ValidatorList) Encode() []byte {
	data, err := rlp.EncodeToBytes(l)
	if err != nil {
		panic(errors.Wrap(err, "encode validator list"))
	}
	return data
}

// Find returns the entry of the given vote account, nil when absent.
// The list is small, linear scan is fine.
func (l *ValidatorList) Find(vote sol.Address) *ValidatorEntry {
	for i := range l.Entries {
		if l.Entries[i].Vote == vote {
			return &l.Entries[i]
		}
	}
	return nil
}

// Contains reports whether the vote account is in the list.
func (l *ValidatorList) Contains(vote sol.Address) bool {
	return l.Find(vote) != nil
}

// Votes returns the vote addresses of all entries.
func (l *ValidatorList) Votes() []sol.Address {
	votes := make([]sol.Address, 0, len(l.Entries))
	for i := range l.Entries {
		votes = append(votes, l.Entries[i].Vote)
	}
	return votes
}
