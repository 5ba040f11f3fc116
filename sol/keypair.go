// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sol

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/pkg/errors"
)

// Keypair holds the ed25519 key material of an account. The account address
// is the public key.
type Keypair struct {
	priv ed25519.PrivateKey
	addr Address
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate keypair")
	}
	return &Keypair{priv: priv, addr: BytesToAddress(pub)}, nil
}

// KeypairFromSeed derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Errorf("invalid seed length %d, want %d", len(seed), ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{priv: priv, addr: BytesToAddress(pub)}, nil
}

// Address returns the account address of the keypair.
func (k *Keypair) Address() Address {
	return k.addr
}

// Sign signs the message digest.
func (k *Keypair) Sign(msg []byte) Signature {
	return BytesToSignature(ed25519.Sign(k.priv, msg))
}

// Verify checks sig over msg against the given address.
func Verify(addr Address, msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(addr.Bytes()), msg, sig[:])
}
