// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sol defines the basic types of the chain the driver talks to:
// account addresses, signatures and lamport amounts.
package sol

import (
	"encoding/hex"
	"fmt"
)

// SignatureLength length of a transaction signature in bytes.
const SignatureLength = 64

// Signature a transaction signature.
type Signature [SignatureLength]byte

// String implements the stringer interface.
func (s Signature) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// BytesToSignature converts bytes slice into signature, aligned to the right.
func BytesToSignature(b []byte) Signature {
	var sig Signature
	if len(b) > SignatureLength {
		b = b[len(b)-SignatureLength:]
	}
	copy(sig[SignatureLength-len(b):], b)
	return sig
}

// SOL wraps a lamport amount for display in whole-SOL units.
type SOL uint64

// String implements the stringer interface.
func (s SOL) String() string {
	return fmt.Sprintf("%d.%09d SOL", uint64(s)/LamportsPerSOL, uint64(s)%LamportsPerSOL)
}
