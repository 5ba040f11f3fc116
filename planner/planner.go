// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package planner translates reconciliation intents into signed
// transactions. Builders are pure, the planner holds no chain state.
package planner

import (
	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/builtin/stakepool"
	"github.com/BancambiosDeFi/stake-o-matic/builtin/stakeprog"
	"github.com/BancambiosDeFi/stake-o-matic/pool"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
	"github.com/BancambiosDeFi/stake-o-matic/tx"
)

// Planner builds and signs the driver's transactions. The staker keypair
// pays for and authorizes every one of them.
type Planner struct {
	staker   *sol.Keypair
	poolAddr sol.Address
}

// New creates a planner for the given staker and pool.
func New(staker *sol.Keypair, poolAddr sol.Address) *Planner {
	return &Planner{staker: staker, poolAddr: poolAddr}
}

func (p *Planner) sign(b *tx.Builder) (*tx.Transaction, error) {
	trx := b.Build()
	if err := trx.Sign(p.staker); err != nil {
		return nil, errors.WithMessage(err, "sign transaction")
	}
	return trx, nil
}

func (p *Planner) newBuilder() *tx.Builder {
	return tx.NewBuilder().Payer(p.staker.Address())
}

// PoolUpdate builds the epoch update sequence: one transaction per list
// chunk, plus the final balance transaction. The chunk transactions are
// independent of each other; the balance transaction must only be
// submitted once every chunk has confirmed.
func (p *Planner) PoolUpdate(header *pool.Header, list *pool.ValidatorList) (chunks []*tx.Transaction, balance *tx.Transaction, err error) {
	for _, instr := range stakepool.UpdateValidatorList(header, list, p.poolAddr) {
		trx, err := p.sign(p.newBuilder().Instr(instr))
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, trx)
	}

	balance, err = p.sign(p.newBuilder().Instr(stakepool.UpdateStakeBalance(header, p.poolAddr)))
	if err != nil {
		return nil, nil, err
	}
	return chunks, balance, nil
}

// WithdrawInactive withdraws the full balance of an inactive stake account
// back to the staker.
func (p *Planner) WithdrawInactive(stakeAddr sol.Address, lamports uint64) (*tx.Transaction, error) {
	staker := p.staker.Address()
	return p.sign(p.newBuilder().
		Instr(stakeprog.Withdraw(stakeAddr, staker, staker, lamports)))
}

// RemoveValidator removes a validator from the pool. When the entry's
// adjustable stake exceeds rent-exemption, all of it is first decreased
// back to the reserve, leaving the stake account at the enforced minimum.
// Then the account is handed to the staker and deactivated, to be
// reclaimed next epoch.
func (p *Planner) RemoveValidator(header *pool.Header, entry *pool.ValidatorEntry, rentExempt uint64) (*tx.Transaction, error) {
	staker := p.staker.Address()
	b := p.newBuilder()
	if entry.StakeLamports > rentExempt {
		b.Instr(stakepool.DecreaseValidatorStake(header, p.poolAddr, entry.Vote, entry.StakeLamports))
	}
	b.Instr(stakepool.RemoveValidator(header, p.poolAddr, entry.Vote, staker))
	b.Instr(stakeprog.Deactivate(stakepool.FindStakeAddress(entry.Vote, p.poolAddr), staker))
	return p.sign(b)
}

// AddValidator admits an active stake account into the pool. When the
// account holds more than rent-exemption plus the minimum validator
// balance (epoch rewards), the surplus is split into the driver's
// transient stake account and deactivated first.
func (p *Planner) AddValidator(header *pool.Header, vote sol.Address, accountLamports, rentExempt uint64) (*tx.Transaction, error) {
	staker := p.staker.Address()
	stakeAddr := stakepool.FindStakeAddress(vote, p.poolAddr)
	minBalance := rentExempt + sol.MinValidatorBalance

	b := p.newBuilder()
	if accountLamports > minBalance {
		splitLamports := accountLamports - minBalance
		transient := TransientStakeAddress(staker, vote)
		b.Instr(stakeprog.CreateAccountWithSeed(staker, transient, staker, TransientStakeSeed(vote), rentExempt))
		b.Instr(stakeprog.Split(stakeAddr, staker, transient, splitLamports))
		b.Instr(stakeprog.Deactivate(transient, staker))
	}
	b.Instr(stakepool.AddValidator(header, p.poolAddr, vote))
	return p.sign(b)
}

// CreateStakeAccount creates and delegates the pool-derived stake account
// of a validator, funded by the staker.
func (p *Planner) CreateStakeAccount(vote sol.Address) (*tx.Transaction, error) {
	return p.sign(p.newBuilder().
		Instr(stakepool.CreateValidatorStake(p.poolAddr, p.staker.Address(), vote)))
}

// Delegate re-delegates an inactive pool-derived stake account to its
// validator.
func (p *Planner) Delegate(stakeAddr, vote sol.Address) (*tx.Transaction, error) {
	return p.sign(p.newBuilder().
		Instr(stakeprog.Delegate(stakeAddr, p.staker.Address(), vote)))
}

// Increase moves lamports from the reserve to a validator's stake.
func (p *Planner) Increase(header *pool.Header, vote sol.Address, lamports uint64) (*tx.Transaction, error) {
	return p.sign(p.newBuilder().
		Instr(stakepool.IncreaseValidatorStake(header, p.poolAddr, vote, lamports)))
}

// Decrease moves lamports from a validator's stake back to the reserve.
func (p *Planner) Decrease(header *pool.Header, vote sol.Address, lamports uint64) (*tx.Transaction, error) {
	return p.sign(p.newBuilder().
		Instr(stakepool.DecreaseValidatorStake(header, p.poolAddr, vote, lamports)))
}
