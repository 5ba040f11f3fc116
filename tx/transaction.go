// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tx models the atomically-applied state-transition messages the
// driver submits to the chain. Instruction payloads are opaque here, their
// encoding belongs to the program client packages under builtin.
package tx

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

// AccountMeta names an account an instruction touches.
type AccountMeta struct {
	Address  sol.Address
	Signer   bool
	Writable bool
}

// Instruction a single program invocation within a transaction.
type Instruction struct {
	Program  sol.Address
	Accounts []AccountMeta
	Data     []byte
}

type body struct {
	Payer        sol.Address
	Instructions []Instruction
}

// Transaction an atomically-applied batch of instructions. All instructions
// succeed or the whole transaction is rolled back.
//
// It's immutable once signed.
type Transaction struct {
	body      body
	signature sol.Signature
	signed    bool

	cache struct {
		signingHash atomic.Value
	}
}

// Decode parses a serialized signed transaction.
func Decode(raw []byte) (*Transaction, error) {
	var payload struct {
		Body      body
		Signature []byte
	}
	if err := rlp.DecodeBytes(raw, &payload); err != nil {
		return nil, errors.WithMessage(err, "decode transaction")
	}
	return &Transaction{
		body:      payload.Body,
		signature: sol.BytesToSignature(payload.Signature),
		signed:    true,
	}, nil
}

// Payer returns the fee-paying account.
func (t *Transaction) Payer() sol.Address {
	return t.body.Payer
}

// Instructions returns the instruction list.
func (t *Transaction) Instructions() []Instruction {
	return t.body.Instructions
}

// SigningHash returns the blake2b digest the payer signs.
func (t *Transaction) SigningHash() (hash [32]byte) {
	if cached := t.cache.signingHash.Load(); cached != nil {
		return cached.([32]byte)
	}
	defer func() { t.cache.signingHash.Store(hash) }()

	enc, err := rlp.EncodeToBytes(&t.body)
	if err != nil {
		panic(errors.Wrap(err, "encode tx body"))
	}
	return blake2b.Sum256(enc)
}

// Sign signs the transaction with the given keypair. The keypair address
// must equal the payer.
func (t *Transaction) Sign(key *sol.Keypair) error {
	if key.Address() != t.body.Payer {
		return errors.New("signer is not the payer")
	}
	hash := t.SigningHash()
	t.signature = key.Sign(hash[:])
	t.signed = true
	return nil
}

// Signature returns the payer signature. Zero until signed.
func (t *Transaction) Signature() sol.Signature {
	return t.signature
}

// Signed reports whether the transaction carries a signature.
func (t *Transaction) Signed() bool {
	return t.signed
}

// Encode serializes the signed transaction for submission.
func (t *Transaction) Encode() ([]byte, error) {
	if !t.signed {
		return nil, errors.New("encode unsigned tx")
	}
	return rlp.EncodeToBytes(&struct {
		Body      body
		Signature []byte
	}{t.body, t.signature[:]})
}
