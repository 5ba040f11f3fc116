// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import "github.com/BancambiosDeFi/stake-o-matic/sol"

// Builder to make it easy to build a transaction object.
type Builder struct {
	body body
}

// NewBuilder creates a builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Payer set the fee-paying account.
func (b *Builder) Payer(addr sol.Address) *Builder {
	b.body.Payer = addr
	return b
}

// Instr appends an instruction.
func (b *Builder) Instr(instr Instruction) *Builder {
	b.body.Instructions = append(b.body.Instructions, instr)
	return b
}

// Build builds the transaction object.
func (b *Builder) Build() *Transaction {
	tx := Transaction{body: b.body}
	tx.body.Instructions = append([]Instruction(nil), b.body.Instructions...)
	return &tx
}
