// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reconcile_test

import (
	"crypto/rand"
	"sort"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/BancambiosDeFi/stake-o-matic/builtin"
	"github.com/BancambiosDeFi/stake-o-matic/builtin/stakepool"
	"github.com/BancambiosDeFi/stake-o-matic/builtin/stakeprog"
	"github.com/BancambiosDeFi/stake-o-matic/chain"
	"github.com/BancambiosDeFi/stake-o-matic/pool"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
	"github.com/BancambiosDeFi/stake-o-matic/tx"
)

// rentExempt a fixed rent-exemption amount for stake-sized accounts.
const rentExempt = 2_282_880

// simAccount mirrors a chain-held account.
type simAccount struct {
	lamports uint64
	owner    sol.Address
	data     []byte
}

// simStake tracks the delegation state of a stake account.
type simStake struct {
	vote      sol.Address
	authority sol.Address
	state     chain.ActivationState
}

// simTransient a pool-internal transient stake created by an
// increase/decrease, merged at the next epoch boundary.
type simTransient struct {
	increase   bool
	lamports   uint64
	mergeEpoch uint64
}

// chainSim is an in-memory chain plus a minimal stake pool program. It
// implements chain.Client and applies the driver's transactions to its
// own state.
type chainSim struct {
	t  *testing.T
	mu sync.Mutex

	epoch        uint64
	poolAddr     sol.Address
	listAddr     sol.Address
	reserveAddr  sol.Address
	withdrawAuth sol.Address
	staker       *sol.Keypair

	accounts   map[sol.Address]*simAccount
	stakes     map[sol.Address]*simStake
	transients map[sol.Address]*simTransient
	header     pool.Header
	list       pool.ValidatorList

	// counters for assertions
	increases uint64
	decreases uint64
	// failSubmit makes the next n submissions report failure
	failSubmit int
}

func randAddress(t *testing.T) sol.Address {
	var b [sol.AddressLength]byte
	_, err := rand.Read(b[:])
	require.NoError(t, err)
	return sol.Address(b)
}

func newChainSim(t *testing.T) *chainSim {
	staker, err := sol.GenerateKeypair()
	require.NoError(t, err)

	sim := &chainSim{
		t:           t,
		epoch:       1,
		poolAddr:    randAddress(t),
		listAddr:    randAddress(t),
		reserveAddr: randAddress(t),
		staker:      staker,
		accounts:    make(map[sol.Address]*simAccount),
		stakes:      make(map[sol.Address]*simStake),
		transients:  make(map[sol.Address]*simTransient),
	}
	sim.withdrawAuth = stakepool.FindWithdrawAuthority(sim.poolAddr)

	sim.header = pool.Header{
		Manager:       staker.Address(),
		Staker:        staker.Address(),
		ReserveStake:  sim.reserveAddr,
		ValidatorList: sim.listAddr,
	}
	sim.list = pool.ValidatorList{MaxValidators: 100}

	sim.accounts[sim.reserveAddr] = &simAccount{lamports: rentExempt + sol.MinReserve, owner: builtin.Stake}
	sim.stakes[sim.reserveAddr] = &simStake{authority: sim.withdrawAuth, state: chain.StakeInactive}
	sim.accounts[staker.Address()] = &simAccount{lamports: 100 * sol.LamportsPerSOL, owner: builtin.System}

	sim.writeState()
	return sim
}

func (s *chainSim) minBalance() uint64 {
	return rentExempt + sol.MinValidatorBalance
}

// writeState re-encodes the header and list accounts.
func (s *chainSim) writeState() {
	s.accounts[s.poolAddr] = &simAccount{lamports: rentExempt, owner: builtin.StakePool, data: s.header.Encode()}
	s.accounts[s.listAddr] = &simAccount{lamports: rentExempt, owner: builtin.StakePool, data: s.list.Encode()}
}

// fundReserve adds spendable lamports to the reserve.
func (s *chainSim) fundReserve(lamports uint64) {
	s.accounts[s.reserveAddr].lamports += lamports
}

// advanceEpoch crosses an epoch boundary, settling activation changes.
func (s *chainSim) advanceEpoch() {
	s.epoch++
	for _, stake := range s.stakes {
		switch stake.state {
		case chain.StakeActivating:
			stake.state = chain.StakeActive
		case chain.StakeDeactivating:
			stake.state = chain.StakeInactive
		}
	}
}

// reward simulates epoch rewards landing on a stake account.
func (s *chainSim) reward(addr sol.Address, lamports uint64) {
	s.accounts[addr].lamports += lamports
}

func (s *chainSim) reserveAvailable() uint64 {
	return s.accounts[s.reserveAddr].lamports - rentExempt - sol.MinReserve
}

// validatorStake returns the adjustable stake of a validator: the pool
// stake account balance above the enforced minimum.
func (s *chainSim) validatorStake(vote sol.Address) uint64 {
	acc := s.accounts[stakepool.FindStakeAddress(vote, s.poolAddr)]
	if acc == nil {
		return 0
	}
	return acc.lamports - s.minBalance()
}

// stakerStakeAccounts counts stake accounts under the staker's authority.
func (s *chainSim) stakerStakeAccounts() int {
	n := 0
	for _, stake := range s.stakes {
		if stake.authority == s.staker.Address() {
			n++
		}
	}
	return n
}

//
// chain.Client implementation
//

func (s *chainSim) Account(addr sol.Address) (*chain.Account, error) {
	acc, ok := s.accounts[addr]
	if !ok {
		return nil, nil
	}
	return &chain.Account{Lamports: acc.lamports, Owner: acc.owner, Data: acc.data}, nil
}

func (s *chainSim) Balance(addr sol.Address) (uint64, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc.lamports, nil
	}
	return 0, nil
}

func (s *chainSim) StakeActivation(addr sol.Address, _ *uint64) (chain.Activation, error) {
	stake, ok := s.stakes[addr]
	if !ok {
		return chain.Activation{}, errors.WithMessagef(chain.ErrDecode, "no stake account at %v", addr)
	}
	act := chain.Activation{State: stake.state}
	lamports := s.accounts[addr].lamports
	if stake.state == chain.StakeInactive {
		act.Inactive = lamports
	} else {
		act.Active = lamports
	}
	return act, nil
}

func (s *chainSim) MinimumBalanceForRentExemption(uint64) (uint64, error) {
	return rentExempt, nil
}

func (s *chainSim) StakeAccountsByAuthority(authority sol.Address) ([]sol.Address, error) {
	var addrs []sol.Address
	for addr, stake := range s.stakes {
		if stake.authority == authority {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i].Bytes()) < string(addrs[j].Bytes())
	})
	return addrs, nil
}

func (s *chainSim) EpochInfo() (chain.EpochInfo, error) {
	return chain.EpochInfo{Epoch: s.epoch, SlotsInEpoch: 432000}, nil
}

// Submit is hit by the batch executor's parallel fan-out.
func (s *chainSim) Submit(raw []byte) (sol.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trx, err := tx.Decode(raw)
	require.NoError(s.t, err)
	hash := trx.SigningHash()
	require.True(s.t, sol.Verify(trx.Payer(), hash[:], trx.Signature()), "bad signature")

	if s.failSubmit > 0 {
		s.failSubmit--
		return trx.Signature(), errors.New("transaction rejected")
	}

	for _, instr := range trx.Instructions() {
		s.apply(instr)
	}
	s.writeState()
	return trx.Signature(), nil
}

func (s *chainSim) Confirm(sol.Signature) error {
	return nil
}

//
// instruction interpreter
//

type instrProbe struct {
	Op   byte
	Rest []rlp.RawValue `rlp:"tail"`
}

func decodeRest[T any](t *testing.T, raw rlp.RawValue) T {
	var v T
	require.NoError(t, rlp.DecodeBytes(raw, &v))
	return v
}

func (s *chainSim) apply(instr tx.Instruction) {
	var probe instrProbe
	require.NoError(s.t, rlp.DecodeBytes(instr.Data, &probe))

	switch instr.Program {
	case builtin.System:
		s.applySystem(instr, probe)
	case builtin.Stake:
		s.applyStake(instr, probe)
	case builtin.StakePool:
		s.applyStakePool(instr, probe)
	default:
		s.t.Fatalf("unknown program %v", instr.Program)
	}
}

func (s *chainSim) applySystem(instr tx.Instruction, probe instrProbe) {
	require.Equal(s.t, stakeprog.OpCreateWithSeed, probe.Op)
	funder := instr.Accounts[0].Address
	newAddr := instr.Accounts[1].Address
	lamports := decodeRest[uint64](s.t, probe.Rest[1])

	require.GreaterOrEqual(s.t, s.accounts[funder].lamports, lamports, "funder balance")
	s.accounts[funder].lamports -= lamports
	s.accounts[newAddr] = &simAccount{lamports: lamports, owner: builtin.Stake}
	s.stakes[newAddr] = &simStake{authority: funder, state: chain.StakeInactive}
}

func (s *chainSim) applyStake(instr tx.Instruction, probe instrProbe) {
	stakeAddr := instr.Accounts[0].Address
	stake := s.stakes[stakeAddr]
	require.NotNil(s.t, stake, "no stake account at %v", stakeAddr)

	switch probe.Op {
	case stakeprog.OpDelegate:
		stake.vote = instr.Accounts[2].Address
		stake.state = chain.StakeActivating

	case stakeprog.OpDeactivate:
		stake.state = chain.StakeDeactivating

	case stakeprog.OpWithdraw:
		require.Equal(s.t, chain.StakeInactive, stake.state, "withdraw from non-inactive stake")
		lamports := decodeRest[uint64](s.t, probe.Rest[0])
		recipient := instr.Accounts[2].Address
		require.GreaterOrEqual(s.t, s.accounts[stakeAddr].lamports, lamports)
		s.accounts[stakeAddr].lamports -= lamports
		s.accounts[recipient].lamports += lamports
		if s.accounts[stakeAddr].lamports == 0 {
			delete(s.accounts, stakeAddr)
			delete(s.stakes, stakeAddr)
		}

	case stakeprog.OpSplit:
		lamports := decodeRest[uint64](s.t, probe.Rest[0])
		dst := instr.Accounts[2].Address
		require.GreaterOrEqual(s.t, s.accounts[stakeAddr].lamports, lamports)
		s.accounts[stakeAddr].lamports -= lamports
		s.accounts[dst].lamports += lamports
		// the split destination inherits the source delegation
		s.stakes[dst].vote = stake.vote
		s.stakes[dst].state = stake.state

	default:
		s.t.Fatalf("unknown stake op %d", probe.Op)
	}
}

func (s *chainSim) applyStakePool(instr tx.Instruction, probe instrProbe) {
	switch probe.Op {
	case stakepool.OpUpdateValidatorListChunk:
		s.mergeTransients()

	case stakepool.OpUpdateStakeBalance:
		s.mergeTransients()
		total := s.reserveAvailable()
		for i := range s.list.Entries {
			total += s.list.Entries[i].StakeLamports
		}
		s.header.TotalStakeLamports = total

	case stakepool.OpIncreaseValidatorStake:
		vote := instr.Accounts[5].Address
		lamports := decodeRest[uint64](s.t, probe.Rest[0])
		require.GreaterOrEqual(s.t, s.reserveAvailable(), lamports, "reserve oversubscribed")
		s.accounts[s.reserveAddr].lamports -= lamports
		s.addTransient(vote, true, lamports)
		s.increases++

	case stakepool.OpDecreaseValidatorStake:
		stakeAddr := instr.Accounts[3].Address
		vote := s.stakes[stakeAddr].vote
		lamports := decodeRest[uint64](s.t, probe.Rest[0])
		require.GreaterOrEqual(s.t, s.accounts[stakeAddr].lamports-s.minBalance(), lamports, "decrease beyond adjustable stake")
		s.accounts[stakeAddr].lamports -= lamports
		s.addTransient(vote, false, lamports)
		s.decreases++

	case stakepool.OpAddValidator:
		stakeAddr := instr.Accounts[3].Address
		vote := instr.Accounts[4].Address
		require.Equal(s.t, s.minBalance(), s.accounts[stakeAddr].lamports,
			"validator stake account balance must be exactly the enforced minimum at admission")
		require.Equal(s.t, chain.StakeActive, s.stakes[stakeAddr].state)
		s.stakes[stakeAddr].authority = s.withdrawAuth
		s.list.Entries = append(s.list.Entries, pool.ValidatorEntry{Vote: vote, Status: pool.StatusActive})

	case stakepool.OpRemoveValidator:
		newAuth := instr.Accounts[2].Address
		stakeAddr := instr.Accounts[4].Address
		vote := s.stakes[stakeAddr].vote
		for i := range s.list.Entries {
			if s.list.Entries[i].Vote == vote {
				s.list.Entries = append(s.list.Entries[:i], s.list.Entries[i+1:]...)
				break
			}
		}
		s.stakes[stakeAddr].authority = newAuth

	case stakepool.OpCreateValidatorStake:
		funder := instr.Accounts[1].Address
		stakeAddr := instr.Accounts[2].Address
		vote := instr.Accounts[3].Address
		require.GreaterOrEqual(s.t, s.accounts[funder].lamports, s.minBalance())
		s.accounts[funder].lamports -= s.minBalance()
		s.accounts[stakeAddr] = &simAccount{lamports: s.minBalance(), owner: builtin.Stake}
		s.stakes[stakeAddr] = &simStake{vote: vote, authority: s.withdrawAuth, state: chain.StakeActivating}

	default:
		s.t.Fatalf("unknown stake pool op %d", probe.Op)
	}
}

func (s *chainSim) addTransient(vote sol.Address, increase bool, lamports uint64) {
	addr := stakepool.FindTransientAddress(vote, s.poolAddr)
	require.Nil(s.t, s.transients[addr], "transient already in flight for %v", vote)
	s.transients[addr] = &simTransient{increase: increase, lamports: lamports, mergeEpoch: s.epoch + 1}
	s.accounts[addr] = &simAccount{lamports: lamports, owner: builtin.Stake}
}

// mergeTransients settles every transient whose cooldown has passed:
// increases land on the validator stake account, decreases land on the
// reserve. Afterwards entry balances track the stake accounts.
func (s *chainSim) mergeTransients() {
	for i := range s.list.Entries {
		entry := &s.list.Entries[i]
		addr := stakepool.FindTransientAddress(entry.Vote, s.poolAddr)
		if tr, ok := s.transients[addr]; ok && tr.mergeEpoch <= s.epoch {
			if tr.increase {
				s.accounts[stakepool.FindStakeAddress(entry.Vote, s.poolAddr)].lamports += tr.lamports
			} else {
				s.accounts[s.reserveAddr].lamports += tr.lamports
			}
			delete(s.transients, addr)
			delete(s.accounts, addr)
		}
		entry.StakeLamports = s.validatorStake(entry.Vote)
	}
	// transients of already-removed validators drain to the reserve
	for addr, tr := range s.transients {
		if tr.mergeEpoch <= s.epoch && !tr.increase {
			found := false
			for i := range s.list.Entries {
				if stakepool.FindTransientAddress(s.list.Entries[i].Vote, s.poolAddr) == addr {
					found = true
					break
				}
			}
			if !found {
				s.accounts[s.reserveAddr].lamports += tr.lamports
				delete(s.transients, addr)
				delete(s.accounts, addr)
			}
		}
	}
}
