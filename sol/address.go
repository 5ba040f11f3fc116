// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sol

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// AddressLength length of account address in bytes.
const AddressLength = 32

// Address the unique identity of an on-chain account.
type Address [AddressLength]byte

// String implements the stringer interface.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns true if the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress converts a string presented address into Address type.
func ParseAddress(s string) (Address, error) {
	if len(s) == AddressLength*2+2 {
		if strings.ToLower(s[:2]) != "0x" {
			return Address{}, errors.New("invalid prefix")
		}
		s = s[2:]
	} else if len(s) != AddressLength*2 {
		return Address{}, errors.New("invalid length")
	}

	var addr Address
	if _, err := hex.Decode(addr[:], []byte(s)); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// MustParseAddress convert string presented address into Address type, panic on error.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// BytesToAddress converts bytes slice into address.
// If b is larger than address legal length, b will be cropped (from the left).
// If b is smaller, b will be aligned to the right.
func BytesToAddress(b []byte) Address {
	var addr Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(addr[AddressLength-len(b):], b)
	return addr
}

// DeriveAddress computes the address of an account created with a seed:
// blake2b-256 over base address, the literal seed and the owner program.
// The derivation is pure, the same triple always yields the same address.
func DeriveAddress(base Address, seed string, owner Address) Address {
	h := blake2b.Sum256(append(append(base.Bytes(), seed...), owner.Bytes()...))
	return Address(h)
}

// ProgramAddress computes a program-derived address from the given seeds.
// Program-derived accounts are owned by the program itself and have no
// private key.
func ProgramAddress(program Address, seeds ...[]byte) Address {
	var buf []byte
	for _, seed := range seeds {
		buf = append(buf, seed...)
	}
	buf = append(buf, program.Bytes()...)
	h := blake2b.Sum256(buf)
	return Address(h)
}
