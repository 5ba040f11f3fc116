// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reconcile drives a stake pool toward a desired per-validator
// funding assignment, one run per epoch. Runs are idempotent: every run
// re-reads authoritative state from the chain and a partially failed run is
// repaired by the next one.
package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/BancambiosDeFi/stake-o-matic/batch"
	"github.com/BancambiosDeFi/stake-o-matic/builtin/stakepool"
	"github.com/BancambiosDeFi/stake-o-matic/chain"
	"github.com/BancambiosDeFi/stake-o-matic/log"
	"github.com/BancambiosDeFi/stake-o-matic/planner"
	"github.com/BancambiosDeFi/stake-o-matic/pool"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
	"github.com/BancambiosDeFi/stake-o-matic/tx"
)

var logger = log.WithContext("pkg", "reconcile")

// reclaimConcurrency bounds the parallel activation reads of phase 1.
const reclaimConcurrency = 8

// Engine reconciles the pool once per epoch.
//
// Not thread-safe, runs are strictly sequential.
type Engine struct {
	gateway  *chain.Gateway
	staker   *sol.Keypair
	baseline uint64

	planner  *planner.Planner
	executor *batch.Executor
	snapshot *pool.Snapshot
}

// New creates an engine for the pool at poolAddr. The baseline amount must
// be at least the minimum stake change.
func New(gateway *chain.Gateway, staker *sol.Keypair, poolAddr sol.Address, baseline uint64) (*Engine, error) {
	if baseline < sol.MinStakeChange {
		return nil, errors.WithMessagef(ErrBaselineTooSmall, "%v", sol.SOL(baseline))
	}

	snapshot, err := pool.LoadSnapshot(gateway, poolAddr)
	if err != nil {
		switch {
		case errors.Is(err, pool.ErrNotPool):
			return nil, errors.WithMessage(ErrInvalidPool, err.Error())
		case errors.Is(err, pool.ErrNotList):
			return nil, errors.WithMessage(ErrInvalidValidatorList, err.Error())
		default:
			return nil, err
		}
	}

	return &Engine{
		gateway:  gateway,
		staker:   staker,
		baseline: baseline,
		planner:  planner.New(staker, poolAddr),
		executor: batch.NewExecutor(gateway),
		snapshot: snapshot,
	}, nil
}

// Refresh re-reads the pool header and validator list.
func (e *Engine) Refresh() error {
	return e.snapshot.Refresh()
}

// Snapshot returns the engine's current pool view.
func (e *Engine) Snapshot() *pool.Snapshot {
	return e.snapshot
}

// Reconcile performs one epoch reconciliation toward the desired
// assignment. It returns per-run notes and whether every stake movement of
// the final phase succeeded.
func (e *Engine) Reconcile(desired []DesiredEntry, dryRun bool) (*Report, error) {
	if dryRun {
		return nil, ErrUnsupported
	}

	var (
		baselineCount uint64
		bonusCount    uint64
		inuse         = make(map[sol.Address]bool, len(desired))
	)
	for _, entry := range desired {
		inuse[entry.Vote] = true
		switch entry.Tier {
		case TierBaseline:
			baselineCount++
		case TierBonus:
			bonusCount++
		}
	}

	logger.Info("withdraw inactive stake accounts to the staker")
	if err := e.phase("reclaim", e.reclaimInactiveStakes); err != nil {
		return nil, err
	}

	logger.Info("update the stake pool, merging transient stakes and orphaned accounts")
	if err := e.phase("pool update", e.EpochUpdate); err != nil {
		return nil, err
	}

	logger.Info("remove validators no longer present in the desired list")
	if err := e.phase("prune", func() error { return e.removeStaleValidators(inuse) }); err != nil {
		return nil, err
	}

	logger.Info("add new validators to pool if active")
	if err := e.phase("admit", func() error { return e.addNewValidators(desired) }); err != nil {
		return nil, err
	}
	if err := e.snapshot.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("mark busy validators and provision stake accounts")
	var busy map[sol.Address]bool
	if err := e.phase("provision", func() (err error) {
		busy, err = e.markBusyAndProvision(desired)
		return err
	}); err != nil {
		return nil, err
	}

	totalStake := e.snapshot.Header.TotalStakeLamports
	totalBaseline := baselineCount * e.baseline
	logger.Info("pool stake accounting",
		"total", sol.SOL(totalStake),
		"baselineNodes", baselineCount,
		"baseline", sol.SOL(e.baseline),
		"totalBaseline", sol.SOL(totalBaseline))

	if totalStake < totalBaseline {
		return nil, errors.WithMessagef(ErrInsufficientStake,
			"total %v, baseline requires %v", sol.SOL(totalStake), sol.SOL(totalBaseline))
	}

	totalBonus := totalStake - totalBaseline
	var bonusAmount uint64
	if bonusCount > 0 {
		bonusAmount = totalBonus / bonusCount
	}
	logger.Info("bonus stake accounting",
		"bonusNodes", bonusCount,
		"totalBonus", sol.SOL(totalBonus),
		"bonus", sol.SOL(bonusAmount))

	eligible := make([]DesiredEntry, 0, len(desired))
	for _, entry := range desired {
		if !busy[entry.Identity] {
			eligible = append(eligible, entry)
		}
	}

	logger.Info("distribute stake", "eligible", len(eligible), "busy", len(desired)-len(eligible))
	var allOK bool
	if err := e.phase("distribute", func() (err error) {
		allOK, err = e.distributeStake(eligible, bonusAmount)
		return err
	}); err != nil {
		return nil, err
	}

	return &Report{
		Notes: []string{
			fmt.Sprintf("Baseline stake amount: %v", sol.SOL(e.baseline)),
			fmt.Sprintf("Bonus stake amount: %v", sol.SOL(bonusAmount)),
		},
		AllOK: allOK,
	}, nil
}

// phase times a phase and records its duration.
func (e *Engine) phase(name string, fn func() error) error {
	started := time.Now()
	err := fn()
	metricPhaseDuration().ObserveWithLabels(time.Since(started).Milliseconds(), map[string]string{"phase": name})
	return err
}

// reclaimInactiveStakes withdraws every inactive stake account owned by
// the staker back to the staker: transients left over from validator
// additions, and accounts handed back by validator removal.
func (e *Engine) reclaimInactiveStakes() error {
	addrs, err := e.gateway.StakeAccountsByAuthority(e.staker.Address())
	if err != nil {
		return errors.WithMessage(err, "enumerate staker stake accounts")
	}

	type candidate struct {
		lamports uint64
		inactive bool
	}
	candidates := make([]candidate, len(addrs))

	var group errgroup.Group
	group.SetLimit(reclaimConcurrency)
	for i, addr := range addrs {
		group.Go(func() error {
			acc, err := e.gateway.Account(addr)
			if err != nil || acc == nil {
				return err
			}
			activation, err := e.gateway.StakeActivation(addr, nil)
			if err != nil {
				return err
			}
			candidates[i] = candidate{
				lamports: acc.Lamports,
				inactive: activation.State == chain.StakeInactive,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	var txs []*tx.Transaction
	for i, addr := range addrs {
		if !candidates[i].inactive {
			logger.Debug("staker's stake not inactive, skipping", "addr", addr)
			continue
		}
		trx, err := e.planner.WithdrawInactive(addr, candidates[i].lamports)
		if err != nil {
			return err
		}
		txs = append(txs, trx)
	}

	return e.runBatch("reclaim inactive stake", txs)
}

// EpochUpdate performs the double update required at the start of an
// epoch: the pool program's accounting update, then a snapshot refresh.
// Every list chunk must confirm before the balance transaction is sent.
func (e *Engine) EpochUpdate() error {
	chunks, balance, err := e.planner.PoolUpdate(e.snapshot.Header, e.snapshot.List)
	if err != nil {
		return err
	}

	if err := e.runBatch("update stake pool", chunks); err != nil {
		return err
	}
	if err := e.runBatch("update stake pool balance", []*tx.Transaction{balance}); err != nil {
		return err
	}

	return e.snapshot.Refresh()
}

// removeStaleValidators removes every in-pool validator missing from the
// desired set. Entries in a non-active status are already on their way
// out and are skipped.
func (e *Engine) removeStaleValidators(inuse map[sol.Address]bool) error {
	rentExempt, err := e.gateway.RentExemptForStake()
	if err != nil {
		return err
	}

	var txs []*tx.Transaction
	for _, entry := range e.snapshot.List.Entries {
		if inuse[entry.Vote] {
			continue
		}
		if entry.Status != pool.StatusActive {
			logger.Debug("validator already being removed, ignoring", "vote", entry.Vote, "status", entry.Status)
			continue
		}
		trx, err := e.planner.RemoveValidator(e.snapshot.Header, &entry, rentExempt)
		if err != nil {
			return err
		}
		logger.Info("removing validator from the pool", "vote", entry.Vote, "stake", sol.SOL(entry.StakeLamports))
		txs = append(txs, trx)
	}

	return e.runBatch("remove validators from the stake pool", txs)
}

// addNewValidators admits desired validators whose stake account exists
// and is fully active. Candidates not yet active are retried next epoch.
func (e *Engine) addNewValidators(desired []DesiredEntry) error {
	rentExempt, err := e.gateway.RentExemptForStake()
	if err != nil {
		return err
	}

	var txs []*tx.Transaction
	for _, entry := range desired {
		if e.snapshot.List.Contains(entry.Vote) {
			continue
		}
		stakeAddr := stakepool.FindStakeAddress(entry.Vote, e.snapshot.Addr())
		acc, err := e.gateway.Account(stakeAddr)
		if err != nil {
			return err
		}
		if acc == nil {
			continue
		}
		activation, err := e.gateway.StakeActivation(stakeAddr, nil)
		if err != nil {
			return err
		}
		if activation.State != chain.StakeActive {
			continue
		}

		logger.Info("adding validator to the pool", "identity", entry.Identity, "vote", entry.Vote)
		trx, err := e.planner.AddValidator(e.snapshot.Header, entry.Vote, acc.Lamports, rentExempt)
		if err != nil {
			return err
		}
		txs = append(txs, trx)
	}

	return e.runBatch("add validators to the stake pool", txs)
}

// markBusyAndProvision builds the busy set, keyed by validator identity,
// and provisions missing or undelegated stake accounts. A validator is
// busy when an earlier operation still holds its stake account, so no
// stake-amount adjustment may touch it this epoch.
func (e *Engine) markBusyAndProvision(desired []DesiredEntry) (map[sol.Address]bool, error) {
	busy := make(map[sol.Address]bool)
	poolAddr := e.snapshot.Addr()

	// unmerged transient stake from a prior epoch's increase/decrease
	for _, entry := range desired {
		acc, err := e.gateway.Account(stakepool.FindTransientAddress(entry.Vote, poolAddr))
		if err != nil {
			return nil, err
		}
		if acc != nil {
			logger.Warn("validator busy due to unmerged transient stake", "identity", entry.Identity)
			busy[entry.Identity] = true
		}
	}

	rentExempt, err := e.gateway.RentExemptForStake()
	if err != nil {
		return nil, err
	}
	minBalance := rentExempt + sol.MinValidatorBalance

	stakerBalance, err := e.gateway.Balance(e.staker.Address())
	if err != nil {
		return nil, err
	}
	logger.Info("staker available balance", "balance", sol.SOL(stakerBalance))

	var txs []*tx.Transaction
	for _, entry := range desired {
		stakeAddr := stakepool.FindStakeAddress(entry.Vote, poolAddr)
		acc, err := e.gateway.Account(stakeAddr)
		if err != nil {
			return nil, err
		}

		if acc == nil {
			if stakerBalance < minBalance {
				// try again next epoch
				logger.Warn("insufficient staker funds to create stake account",
					"required", sol.SOL(minBalance), "balance", sol.SOL(stakerBalance))
			} else {
				stakerBalance -= minBalance
				trx, err := e.planner.CreateStakeAccount(entry.Vote)
				if err != nil {
					return nil, err
				}
				txs = append(txs, trx)
				logger.Info("creating stake account", "identity", entry.Identity, "addr", stakeAddr)
			}
			logger.Warn("validator busy due to no stake account", "identity", entry.Identity)
			busy[entry.Identity] = true
			continue
		}

		activation, err := e.gateway.StakeActivation(stakeAddr, nil)
		if err != nil {
			return nil, err
		}
		switch activation.State {
		case chain.StakeActivating, chain.StakeDeactivating:
			logger.Warn("validator busy due to stake activation change",
				"identity", entry.Identity, "addr", stakeAddr, "state", activation.State)
			busy[entry.Identity] = true
		case chain.StakeActive:
		case chain.StakeInactive:
			logger.Warn("validator busy due to inactive stake", "identity", entry.Identity, "addr", stakeAddr)
			trx, err := e.planner.Delegate(stakeAddr, entry.Vote)
			if err != nil {
				return nil, err
			}
			txs = append(txs, trx)
			logger.Debug("activating stake account", "identity", entry.Identity, "addr", stakeAddr)
			busy[entry.Identity] = true
		}
	}

	if err := e.runBatch("create validator stake accounts", txs); err != nil {
		return nil, err
	}
	return busy, nil
}

// availableReserveBalance returns the reserve lamports spendable by phase
// 6, excluding rent-exemption and the minimum reserve.
func (e *Engine) availableReserveBalance() (uint64, error) {
	reserveAddr := e.snapshot.Header.ReserveStake
	balance, err := e.gateway.Balance(reserveAddr)
	if err != nil {
		return 0, errors.WithMessagef(err, "reserve stake balance of %v", reserveAddr)
	}
	rentExempt, err := e.gateway.RentExemptForStake()
	if err != nil {
		return 0, err
	}
	floor := rentExempt + sol.MinReserve
	if balance < floor {
		return 0, errors.Errorf("reserve stake %v balance too low: %v, minimum %v",
			reserveAddr, sol.SOL(balance), sol.SOL(floor))
	}
	return balance - floor, nil
}

// distributeStake issues the increases and decreases moving every
// non-busy validator toward its tier target. Validators are processed
// none-tier first and smallest balance first, so freed lamports reach the
// reserve before tier-ups draw on it and a thin reserve funds as many
// accounts as possible.
func (e *Engine) distributeStake(eligible []DesiredEntry, bonusAmount uint64) (bool, error) {
	reserveAvailable, err := e.availableReserveBalance()
	if err != nil {
		return false, err
	}
	logger.Info("reserve stake available before updates", "balance", sol.SOL(reserveAvailable))
	metricReserveBalance().Set(int64(reserveAvailable))

	type pending struct {
		balance uint64
		entry   DesiredEntry
	}
	var noneStake, baselineStake, bonusStake []pending
	for _, entry := range eligible {
		listEntry := e.snapshot.List.Find(entry.Vote)
		if listEntry == nil {
			logger.Warn("desired validator not in stake pool", "vote", entry.Vote)
			continue
		}
		p := pending{balance: listEntry.StakeLamports, entry: entry}
		switch entry.Tier {
		case TierNone:
			noneStake = append(noneStake, p)
		case TierBaseline:
			baselineStake = append(baselineStake, p)
		case TierBonus:
			bonusStake = append(bonusStake, p)
		}
	}
	for _, list := range [][]pending{noneStake, baselineStake, bonusStake} {
		sort.SliceStable(list, func(i, j int) bool { return list[i].balance < list[j].balance })
	}

	var txs []*tx.Transaction
	ordered := append(append(noneStake, baselineStake...), bonusStake...)
	for _, p := range ordered {
		var target uint64
		switch p.entry.Tier {
		case TierBaseline:
			target = e.baseline
		case TierBonus:
			target = bonusAmount
		}

		var opMsg string
		switch {
		case p.balance > target:
			amount := p.balance - target
			if amount < sol.MinStakeChange {
				opMsg = fmt.Sprintf("not removing %v (amount too small)", sol.SOL(amount))
			} else {
				trx, err := e.planner.Decrease(e.snapshot.Header, p.entry.Vote, amount)
				if err != nil {
					return false, err
				}
				txs = append(txs, trx)
				opMsg = fmt.Sprintf("removing %v", sol.SOL(amount))
			}
		case p.balance < target:
			amount := target - p.balance
			if amount < sol.MinStakeChange {
				opMsg = fmt.Sprintf("not adding %v (amount too small)", sol.SOL(amount))
				break
			}
			if amount > reserveAvailable {
				logger.Trace("capping stake addition to reserve headroom",
					"want", sol.SOL(amount), "available", sol.SOL(reserveAvailable))
				amount = reserveAvailable
			}
			if amount < sol.MinStakeChange {
				opMsg = "reserve depleted"
				break
			}
			reserveAvailable -= amount
			trx, err := e.planner.Increase(e.snapshot.Header, p.entry.Vote, amount)
			if err != nil {
				return false, err
			}
			txs = append(txs, trx)
			opMsg = fmt.Sprintf("adding %v", sol.SOL(amount))
		default:
			opMsg = "no change"
		}

		logger.Debug("stake target",
			"identity", p.entry.Identity,
			"tier", p.entry.Tier,
			"target", sol.SOL(target),
			"current", sol.SOL(p.balance),
			"op", opMsg)
	}
	logger.Info("reserve stake available after updates", "balance", sol.SOL(reserveAvailable))

	result, err := e.executor.Run(txs)
	if err != nil {
		return false, err
	}
	if !result.OK() {
		logger.Error("one or more stake movements failed to execute", "failed", len(result.Failed))
	}
	return result.OK(), nil
}

// runBatch submits the batch and converts per-transaction failures into a
// phase error.
func (e *Engine) runBatch(phase string, txs []*tx.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	result, err := e.executor.Run(txs)
	if err != nil {
		return errors.WithMessage(err, phase)
	}
	if !result.OK() {
		return &TxFailedError{Phase: phase}
	}
	return nil
}
