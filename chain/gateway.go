// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/cache"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

// Gateway wraps a Client with caching of immutable lookups and read/write
// metrics.
//
// It's thread-safe.
type Gateway struct {
	client    Client
	rentCache *cache.LRU
}

// NewGateway creates a gateway over the given client.
func NewGateway(client Client) *Gateway {
	return &Gateway{
		client:    client,
		rentCache: cache.NewLRU(16),
	}
}

// Account fetches the account at addr, nil when absent.
func (g *Gateway) Account(addr sol.Address) (*Account, error) {
	metricReads().AddWithLabel(1, map[string]string{"op": "account"})
	return g.client.Account(addr)
}

// Balance fetches the lamport balance of addr.
func (g *Gateway) Balance(addr sol.Address) (uint64, error) {
	metricReads().AddWithLabel(1, map[string]string{"op": "balance"})
	return g.client.Balance(addr)
}

// StakeActivation queries the activation state of the stake account at addr.
func (g *Gateway) StakeActivation(addr sol.Address, epoch *uint64) (Activation, error) {
	metricReads().AddWithLabel(1, map[string]string{"op": "stake_activation"})
	act, err := g.client.StakeActivation(addr, epoch)
	if err != nil {
		return Activation{}, errors.WithMessagef(err, "stake activation of %v", addr)
	}
	return act, nil
}

// RentExemptForStake returns the minimum balance exempting a stake account
// from rent. The value is immutable per cluster, so it is cached.
func (g *Gateway) RentExemptForStake() (uint64, error) {
	val, err := g.rentCache.GetOrLoad(sol.StakeStateSize, func(any) (any, error) {
		metricReads().AddWithLabel(1, map[string]string{"op": "rent_exemption"})
		return g.client.MinimumBalanceForRentExemption(sol.StakeStateSize)
	})
	if err != nil {
		return 0, errors.WithMessage(err, "fetch rent exemption")
	}
	return val.(uint64), nil
}

// StakeAccountsByAuthority enumerates stake accounts under the authority.
func (g *Gateway) StakeAccountsByAuthority(authority sol.Address) ([]sol.Address, error) {
	metricReads().AddWithLabel(1, map[string]string{"op": "stake_accounts"})
	return g.client.StakeAccountsByAuthority(authority)
}

// EpochInfo returns the chain's epoch progress.
func (g *Gateway) EpochInfo() (EpochInfo, error) {
	metricReads().AddWithLabel(1, map[string]string{"op": "epoch_info"})
	return g.client.EpochInfo()
}

// Submit sends one signed, serialized transaction.
func (g *Gateway) Submit(raw []byte) (sol.Signature, error) {
	metricWrites().AddWithLabel(1, map[string]string{"op": "submit"})
	return g.client.Submit(raw)
}

// Confirm blocks until the transaction with the given signature is
// confirmed or rejected.
func (g *Gateway) Confirm(sig sol.Signature) error {
	metricWrites().AddWithLabel(1, map[string]string{"op": "confirm"})
	return g.client.Confirm(sig)
}
