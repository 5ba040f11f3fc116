// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakeprog builds instructions of the chain's native stake program.
package stakeprog

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/builtin"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
	"github.com/BancambiosDeFi/stake-o-matic/tx"
)

// Instruction opcodes of the stake program.
const (
	OpDelegate byte = iota + 1
	OpDeactivate
	OpWithdraw
	OpSplit
)

// OpCreateWithSeed is handled by the system program; it lives here because
// every account the driver creates with it is stake-program owned.
const OpCreateWithSeed byte = 0x10

func mustEncode(val any) []byte {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		panic(errors.Wrap(err, "encode instruction data"))
	}
	return data
}

// Delegate delegates the stake account to the given vote account.
func Delegate(stake, authority, vote sol.Address) tx.Instruction {
	return tx.Instruction{
		Program: builtin.Stake,
		Accounts: []tx.AccountMeta{
			{Address: stake, Writable: true},
			{Address: authority, Signer: true},
			{Address: vote},
		},
		Data: mustEncode(struct {
			Op   byte
			Vote sol.Address
		}{OpDelegate, vote}),
	}
}

// Deactivate begins undelegating the stake account. The stake turns
// inactive at the next epoch boundary.
func Deactivate(stake, authority sol.Address) tx.Instruction {
	return tx.Instruction{
		Program: builtin.Stake,
		Accounts: []tx.AccountMeta{
			{Address: stake, Writable: true},
			{Address: authority, Signer: true},
		},
		Data: mustEncode(struct{ Op byte }{OpDeactivate}),
	}
}

// Withdraw moves lamports out of an inactive stake account.
func Withdraw(stake, authority, recipient sol.Address, lamports uint64) tx.Instruction {
	return tx.Instruction{
		Program: builtin.Stake,
		Accounts: []tx.AccountMeta{
			{Address: stake, Writable: true},
			{Address: authority, Signer: true},
			{Address: recipient, Writable: true},
		},
		Data: mustEncode(struct {
			Op       byte
			Lamports uint64
		}{OpWithdraw, lamports}),
	}
}

// Split moves lamports from a stake account into an uninitialized one,
// keeping the delegation of the source.
func Split(stake, authority, destination sol.Address, lamports uint64) tx.Instruction {
	return tx.Instruction{
		Program: builtin.Stake,
		Accounts: []tx.AccountMeta{
			{Address: stake, Writable: true},
			{Address: authority, Signer: true},
			{Address: destination, Writable: true},
		},
		Data: mustEncode(struct {
			Op       byte
			Lamports uint64
		}{OpSplit, lamports}),
	}
}

// CreateAccountWithSeed creates a stake-program owned account at the
// address derived from (base, seed, stake program).
func CreateAccountWithSeed(funder, newAccount, base sol.Address, seed string, lamports uint64) tx.Instruction {
	return tx.Instruction{
		Program: builtin.System,
		Accounts: []tx.AccountMeta{
			{Address: funder, Signer: true, Writable: true},
			{Address: newAccount, Writable: true},
			{Address: base, Signer: true},
		},
		Data: mustEncode(struct {
			Op       byte
			Seed     string
			Lamports uint64
			Space    uint64
			Owner    sol.Address
		}{OpCreateWithSeed, seed, lamports, sol.StakeStateSize, builtin.Stake}),
	}
}
