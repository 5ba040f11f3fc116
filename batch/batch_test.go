// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package batch

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BancambiosDeFi/stake-o-matic/chain"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
	"github.com/BancambiosDeFi/stake-o-matic/tx"
)

// fakeSubmitter fails transactions whose first instruction data byte is in
// the reject set, and can simulate a dead transport.
type fakeSubmitter struct {
	mu        sync.Mutex
	reject    map[byte]bool
	dead      bool
	submitted int
}

func (f *fakeSubmitter) Submit(raw []byte) (sol.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead {
		return sol.Signature{}, errors.WithMessage(chain.ErrNetwork, "connection refused")
	}
	trx, err := tx.Decode(raw)
	if err != nil {
		return sol.Signature{}, err
	}
	f.submitted++
	if f.reject[trx.Instructions()[0].Data[0]] {
		return trx.Signature(), errors.New("transaction rejected")
	}
	return trx.Signature(), nil
}

func (f *fakeSubmitter) Confirm(sol.Signature) error {
	return nil
}

func makeTxs(t *testing.T, n int) []*tx.Transaction {
	key, err := sol.GenerateKeypair()
	require.NoError(t, err)

	txs := make([]*tx.Transaction, n)
	for i := range txs {
		trx := tx.NewBuilder().
			Payer(key.Address()).
			Instr(tx.Instruction{
				Program: sol.BytesToAddress([]byte("prog")),
				Data:    []byte{byte(i)},
			}).
			Build()
		require.NoError(t, trx.Sign(key))
		txs[i] = trx
	}
	return txs
}

func TestRunAllSucceed(t *testing.T) {
	submitter := &fakeSubmitter{}
	txs := makeTxs(t, 20)

	result, err := NewExecutor(submitter).Run(txs)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Len(t, result.Succeeded, 20)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 20, submitter.submitted)
}

func TestRunPartialFailure(t *testing.T) {
	submitter := &fakeSubmitter{reject: map[byte]bool{3: true, 7: true}}
	txs := makeTxs(t, 10)

	result, err := NewExecutor(submitter).Run(txs)
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Len(t, result.Succeeded, 8)
	assert.Len(t, result.Failed, 2)
}

func TestRunEmptyBatch(t *testing.T) {
	result, err := NewExecutor(&fakeSubmitter{}).Run(nil)
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestRunTransportError(t *testing.T) {
	submitter := &fakeSubmitter{dead: true}
	txs := makeTxs(t, 3)

	_, err := NewExecutor(submitter).Run(txs)
	require.Error(t, err)
	assert.True(t, chain.IsNetwork(err))
}
