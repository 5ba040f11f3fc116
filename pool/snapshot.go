// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/chain"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

// Snapshot a point-in-time view of the pool header and validator list.
// Refresh re-reads both; the two reads may straddle a chain update, callers
// needing stronger consistency refresh again after their next barrier.
type Snapshot struct {
	addr   sol.Address
	client chain.Reader

	Header *Header
	List   *ValidatorList
}

// LoadSnapshot reads the pool header, then the validator list it names.
func LoadSnapshot(client chain.Reader, poolAddr sol.Address) (*Snapshot, error) {
	s := &Snapshot{addr: poolAddr, client: client}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Addr returns the pool account address.
func (s *Snapshot) Addr() sol.Address {
	return s.addr
}

// Refresh re-reads the header and the list from the chain.
func (s *Snapshot) Refresh() error {
	acc, err := s.client.Account(s.addr)
	if err != nil {
		return errors.WithMessagef(err, "read pool %v", s.addr)
	}
	if acc == nil {
		return errors.WithMessagef(ErrNotPool, "no account at %v", s.addr)
	}
	header, err := DecodeHeader(acc.Data)
	if err != nil {
		return errors.WithMessagef(err, "invalid stake pool %v", s.addr)
	}

	listAcc, err := s.client.Account(header.ValidatorList)
	if err != nil {
		return errors.WithMessagef(err, "read validator list %v", header.ValidatorList)
	}
	if listAcc == nil {
		return errors.WithMessagef(ErrNotList, "no account at %v", header.ValidatorList)
	}
	list, err := DecodeValidatorList(listAcc.Data)
	if err != nil {
		return errors.WithMessagef(err, "invalid validator list %v", header.ValidatorList)
	}

	s.Header = header
	s.List = list
	return nil
}
