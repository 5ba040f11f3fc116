// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package planner

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BancambiosDeFi/stake-o-matic/builtin"
	"github.com/BancambiosDeFi/stake-o-matic/builtin/stakepool"
	"github.com/BancambiosDeFi/stake-o-matic/builtin/stakeprog"
	"github.com/BancambiosDeFi/stake-o-matic/pool"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
	"github.com/BancambiosDeFi/stake-o-matic/tx"
)

const rentExempt = 2_282_880

func newTestPlanner(t *testing.T) (*Planner, *sol.Keypair, sol.Address) {
	staker, err := sol.GenerateKeypair()
	require.NoError(t, err)
	poolAddr := sol.BytesToAddress([]byte("pool"))
	return New(staker, poolAddr), staker, poolAddr
}

func testHeader() *pool.Header {
	return &pool.Header{
		Staker:        sol.BytesToAddress([]byte("staker-auth")),
		ReserveStake:  sol.BytesToAddress([]byte("reserve")),
		ValidatorList: sol.BytesToAddress([]byte("list")),
	}
}

func opOf(t *testing.T, instr tx.Instruction) byte {
	var probe struct {
		Op   byte
		Rest []rlp.RawValue `rlp:"tail"`
	}
	require.NoError(t, rlp.DecodeBytes(instr.Data, &probe))
	return probe.Op
}

func TestTransientStakeSeed(t *testing.T) {
	vote := sol.BytesToAddress([]byte("some-vote-address"))

	seed := TransientStakeSeed(vote)
	assert.Len(t, seed, 32)
	assert.Equal(t, vote.String()[2:34], seed)
	// deterministic
	assert.Equal(t, seed, TransientStakeSeed(vote))

	staker := sol.BytesToAddress([]byte("staker"))
	addr := TransientStakeAddress(staker, vote)
	assert.Equal(t, addr, TransientStakeAddress(staker, vote))
	assert.Equal(t, addr, sol.DeriveAddress(staker, seed, builtin.Stake))
}

func TestPoolUpdatePlan(t *testing.T) {
	p, staker, _ := newTestPlanner(t)
	header := testHeader()

	list := &pool.ValidatorList{}
	for i := range 7 {
		list.Entries = append(list.Entries, pool.ValidatorEntry{
			Vote: sol.BytesToAddress([]byte{byte(i + 1)}),
		})
	}

	chunks, balance, err := p.PoolUpdate(header, list)
	require.NoError(t, err)

	// 7 entries, 5 per chunk
	require.Len(t, chunks, 2)
	for _, trx := range chunks {
		require.True(t, trx.Signed())
		assert.Equal(t, staker.Address(), trx.Payer())
		require.Len(t, trx.Instructions(), 1)
		assert.Equal(t, stakepool.OpUpdateValidatorListChunk, opOf(t, trx.Instructions()[0]))
	}
	require.True(t, balance.Signed())
	require.Len(t, balance.Instructions(), 1)
	assert.Equal(t, stakepool.OpUpdateStakeBalance, opOf(t, balance.Instructions()[0]))
}

func TestPoolUpdateEmptyList(t *testing.T) {
	p, _, _ := newTestPlanner(t)

	chunks, balance, err := p.PoolUpdate(testHeader(), &pool.ValidatorList{})
	require.NoError(t, err)
	assert.Empty(t, chunks)
	require.NotNil(t, balance)
}

func TestRemoveValidatorPlan(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	header := testHeader()
	vote := sol.BytesToAddress([]byte("vote"))

	// stake above rent-exemption: decrease first
	trx, err := p.RemoveValidator(header, &pool.ValidatorEntry{Vote: vote, StakeLamports: 10 * sol.LamportsPerSOL}, rentExempt)
	require.NoError(t, err)
	instrs := trx.Instructions()
	require.Len(t, instrs, 3)
	assert.Equal(t, stakepool.OpDecreaseValidatorStake, opOf(t, instrs[0]))
	assert.Equal(t, stakepool.OpRemoveValidator, opOf(t, instrs[1]))
	assert.Equal(t, stakeprog.OpDeactivate, opOf(t, instrs[2]))

	// nothing to decrease
	trx, err = p.RemoveValidator(header, &pool.ValidatorEntry{Vote: vote}, rentExempt)
	require.NoError(t, err)
	instrs = trx.Instructions()
	require.Len(t, instrs, 2)
	assert.Equal(t, stakepool.OpRemoveValidator, opOf(t, instrs[0]))
	assert.Equal(t, stakeprog.OpDeactivate, opOf(t, instrs[1]))
}

func TestAddValidatorPlan(t *testing.T) {
	p, staker, _ := newTestPlanner(t)
	header := testHeader()
	vote := sol.BytesToAddress([]byte("vote"))
	minBalance := uint64(rentExempt) + sol.MinValidatorBalance

	// exact balance: a bare admission
	trx, err := p.AddValidator(header, vote, minBalance, rentExempt)
	require.NoError(t, err)
	require.Len(t, trx.Instructions(), 1)
	assert.Equal(t, stakepool.OpAddValidator, opOf(t, trx.Instructions()[0]))

	// reward surplus: split preamble into the driver transient
	trx, err = p.AddValidator(header, vote, minBalance+30, rentExempt)
	require.NoError(t, err)
	instrs := trx.Instructions()
	require.Len(t, instrs, 4)
	assert.Equal(t, stakeprog.OpCreateWithSeed, opOf(t, instrs[0]))
	assert.Equal(t, stakeprog.OpSplit, opOf(t, instrs[1]))
	assert.Equal(t, stakeprog.OpDeactivate, opOf(t, instrs[2]))
	assert.Equal(t, stakepool.OpAddValidator, opOf(t, instrs[3]))

	// the split destination is the driver transient account
	transient := TransientStakeAddress(staker.Address(), vote)
	assert.Equal(t, transient, instrs[1].Accounts[2].Address)
}

func TestStakeMovementPlans(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	header := testHeader()
	vote := sol.BytesToAddress([]byte("vote"))

	inc, err := p.Increase(header, vote, 5*sol.LamportsPerSOL)
	require.NoError(t, err)
	require.Len(t, inc.Instructions(), 1)
	assert.Equal(t, stakepool.OpIncreaseValidatorStake, opOf(t, inc.Instructions()[0]))

	dec, err := p.Decrease(header, vote, 5*sol.LamportsPerSOL)
	require.NoError(t, err)
	require.Len(t, dec.Instructions(), 1)
	assert.Equal(t, stakepool.OpDecreaseValidatorStake, opOf(t, dec.Instructions()[0]))

	del, err := p.Delegate(sol.BytesToAddress([]byte("stake")), vote)
	require.NoError(t, err)
	assert.Equal(t, stakeprog.OpDelegate, opOf(t, del.Instructions()[0]))

	wd, err := p.WithdrawInactive(sol.BytesToAddress([]byte("stake")), 42)
	require.NoError(t, err)
	assert.Equal(t, stakeprog.OpWithdraw, opOf(t, wd.Instructions()[0]))

	cr, err := p.CreateStakeAccount(vote)
	require.NoError(t, err)
	assert.Equal(t, stakepool.OpCreateValidatorStake, opOf(t, cr.Instructions()[0]))
}
