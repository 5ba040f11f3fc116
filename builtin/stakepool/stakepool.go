// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakepool is the client binding of the stake pool program:
// program-derived addresses and instruction builders.
package stakepool

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/builtin"
	"github.com/BancambiosDeFi/stake-o-matic/cache"
	"github.com/BancambiosDeFi/stake-o-matic/pool"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
	"github.com/BancambiosDeFi/stake-o-matic/tx"
)

// Instruction opcodes of the stake pool program.
const (
	OpUpdateValidatorListChunk byte = iota + 1
	OpUpdateStakeBalance
	OpIncreaseValidatorStake
	OpDecreaseValidatorStake
	OpAddValidator
	OpRemoveValidator
	OpCreateValidatorStake
)

// updateChunkSize number of validator entries covered by one update
// instruction.
const updateChunkSize = 5

var derived = cache.NewLRU(1024)

func mustEncode(val any) []byte {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		panic(errors.Wrap(err, "encode instruction data"))
	}
	return data
}

func findAddress(kind string, vote, poolAddr sol.Address) sol.Address {
	key := kind + string(vote.Bytes()) + string(poolAddr.Bytes())
	addr, _ := derived.GetOrLoad(key, func(any) (any, error) {
		return sol.ProgramAddress(builtin.StakePool, []byte(kind), vote.Bytes(), poolAddr.Bytes()), nil
	})
	return addr.(sol.Address)
}

// FindStakeAddress derives the pool-owned stake account of a validator.
func FindStakeAddress(vote, poolAddr sol.Address) sol.Address {
	return findAddress("stake", vote, poolAddr)
}

// FindTransientAddress derives the pool-internal transient stake account
// used while stake of a validator is being increased or decreased.
func FindTransientAddress(vote, poolAddr sol.Address) sol.Address {
	return findAddress("transient", vote, poolAddr)
}

// FindWithdrawAuthority derives the pool's withdraw authority.
func FindWithdrawAuthority(poolAddr sol.Address) sol.Address {
	return findAddress("withdraw", sol.Address{}, poolAddr)
}

// UpdateValidatorList builds the chunked list-update instructions. Every
// chunk is independent of the others and may be submitted in parallel.
func UpdateValidatorList(header *pool.Header, list *pool.ValidatorList, poolAddr sol.Address) []tx.Instruction {
	var instructions []tx.Instruction
	for start := 0; start < len(list.Entries); start += updateChunkSize {
		end := min(start+updateChunkSize, len(list.Entries))

		accounts := []tx.AccountMeta{
			{Address: poolAddr, Writable: true},
			{Address: header.ValidatorList, Writable: true},
			{Address: header.ReserveStake, Writable: true},
		}
		for _, entry := range list.Entries[start:end] {
			accounts = append(accounts,
				tx.AccountMeta{Address: FindStakeAddress(entry.Vote, poolAddr), Writable: true},
				tx.AccountMeta{Address: FindTransientAddress(entry.Vote, poolAddr), Writable: true},
			)
		}
		instructions = append(instructions, tx.Instruction{
			Program:  builtin.StakePool,
			Accounts: accounts,
			Data: mustEncode(struct {
				Op         byte
				StartIndex uint32
			}{OpUpdateValidatorListChunk, uint32(start)}),
		})
	}
	return instructions
}

// UpdateStakeBalance builds the balance-update instruction. The pool
// program only accepts it after every list chunk of the epoch has been
// applied.
func UpdateStakeBalance(header *pool.Header, poolAddr sol.Address) tx.Instruction {
	return tx.Instruction{
		Program: builtin.StakePool,
		Accounts: []tx.AccountMeta{
			{Address: poolAddr, Writable: true},
			{Address: header.ValidatorList},
			{Address: header.ReserveStake},
		},
		Data: mustEncode(struct{ Op byte }{OpUpdateStakeBalance}),
	}
}

// IncreaseValidatorStake moves lamports from the reserve to the
// validator's stake via the pool transient account. The move settles at
// the next epoch boundary.
func IncreaseValidatorStake(header *pool.Header, poolAddr, vote sol.Address, lamports uint64) tx.Instruction {
	return tx.Instruction{
		Program: builtin.StakePool,
		Accounts: []tx.AccountMeta{
			{Address: poolAddr},
			{Address: header.Staker, Signer: true},
			{Address: header.ValidatorList, Writable: true},
			{Address: header.ReserveStake, Writable: true},
			{Address: FindTransientAddress(vote, poolAddr), Writable: true},
			{Address: vote},
		},
		Data: mustEncode(struct {
			Op       byte
			Lamports uint64
		}{OpIncreaseValidatorStake, lamports}),
	}
}

// DecreaseValidatorStake moves lamports from the validator's stake back to
// the reserve via the pool transient account.
func DecreaseValidatorStake(header *pool.Header, poolAddr, vote sol.Address, lamports uint64) tx.Instruction {
	return tx.Instruction{
		Program: builtin.StakePool,
		Accounts: []tx.AccountMeta{
			{Address: poolAddr},
			{Address: header.Staker, Signer: true},
			{Address: header.ValidatorList, Writable: true},
			{Address: FindStakeAddress(vote, poolAddr), Writable: true},
			{Address: FindTransientAddress(vote, poolAddr), Writable: true},
		},
		Data: mustEncode(struct {
			Op       byte
			Lamports uint64
		}{OpDecreaseValidatorStake, lamports}),
	}
}

// AddValidator admits the validator's stake account into the pool. The
// pool program enforces that the account balance is exactly rent-exemption
// plus the minimum validator balance.
func AddValidator(header *pool.Header, poolAddr, vote sol.Address) tx.Instruction {
	return tx.Instruction{
		Program: builtin.StakePool,
		Accounts: []tx.AccountMeta{
			{Address: poolAddr, Writable: true},
			{Address: header.Staker, Signer: true},
			{Address: header.ValidatorList, Writable: true},
			{Address: FindStakeAddress(vote, poolAddr), Writable: true},
			{Address: vote},
		},
		Data: mustEncode(struct{ Op byte }{OpAddValidator}),
	}
}

// RemoveValidator drops the validator from the pool, handing its stake
// account over to newAuthority.
func RemoveValidator(header *pool.Header, poolAddr, vote, newAuthority sol.Address) tx.Instruction {
	return tx.Instruction{
		Program: builtin.StakePool,
		Accounts: []tx.AccountMeta{
			{Address: poolAddr, Writable: true},
			{Address: header.Staker, Signer: true},
			{Address: newAuthority},
			{Address: header.ValidatorList, Writable: true},
			{Address: FindStakeAddress(vote, poolAddr), Writable: true},
		},
		Data: mustEncode(struct{ Op byte }{OpRemoveValidator}),
	}
}

// CreateValidatorStake creates and delegates the pool-derived stake
// account of a validator, funded by the funder with rent-exemption plus
// the minimum validator balance.
func CreateValidatorStake(poolAddr, funder, vote sol.Address) tx.Instruction {
	return tx.Instruction{
		Program: builtin.StakePool,
		Accounts: []tx.AccountMeta{
			{Address: poolAddr},
			{Address: funder, Signer: true, Writable: true},
			{Address: FindStakeAddress(vote, poolAddr), Writable: true},
			{Address: vote},
		},
		Data: mustEncode(struct{ Op byte }{OpCreateValidatorStake}),
	}
}
