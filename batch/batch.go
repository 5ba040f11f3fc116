// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package batch submits sets of independent transactions. Submission and
// confirmation fan out in parallel; Run only returns once every
// transaction of the batch has settled one way or the other.
package batch

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/chain"
	"github.com/BancambiosDeFi/stake-o-matic/co"
	"github.com/BancambiosDeFi/stake-o-matic/log"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
	"github.com/BancambiosDeFi/stake-o-matic/tx"
)

var logger = log.WithContext("pkg", "batch")

// Result the per-transaction outcome of one batch.
type Result struct {
	Succeeded []sol.Signature
	Failed    []sol.Signature
}

// OK reports whether every transaction of the batch succeeded.
func (r *Result) OK() bool {
	return len(r.Failed) == 0
}

// Executor submits transaction batches through a chain submitter.
type Executor struct {
	client chain.Submitter
}

// NewExecutor creates an executor over the given submitter.
func NewExecutor(client chain.Submitter) *Executor {
	return &Executor{client: client}
}

// Run submits every transaction of the batch, confirms each one and
// reports per-transaction success or failure. Transactions within a batch
// must be independent of each other; confirmation order is not defined.
// A transport failure aborts the whole run with an error.
func (e *Executor) Run(txs []*tx.Transaction) (*Result, error) {
	var (
		mu        sync.Mutex
		result    Result
		transport error
	)

	<-co.Parallel(func(queue chan<- func()) {
		for _, trx := range txs {
			queue <- func() {
				sig, err := e.submitOne(trx)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					result.Succeeded = append(result.Succeeded, sig)
				case chain.IsNetwork(err):
					transport = err
				default:
					logger.Warn("transaction failed", "sig", sig, "err", err)
					result.Failed = append(result.Failed, sig)
				}
			}
		}
	})

	if transport != nil {
		return nil, errors.WithMessage(transport, "submit batch")
	}

	metricTxCount().AddWithLabel(int64(len(result.Succeeded)), map[string]string{"outcome": "succeeded"})
	metricTxCount().AddWithLabel(int64(len(result.Failed)), map[string]string{"outcome": "failed"})
	return &result, nil
}

func (e *Executor) submitOne(trx *tx.Transaction) (sol.Signature, error) {
	raw, err := trx.Encode()
	if err != nil {
		return sol.Signature{}, err
	}
	sig, err := e.client.Submit(raw)
	if err != nil {
		return trx.Signature(), err
	}
	if err := e.client.Confirm(sig); err != nil {
		return sig, err
	}
	return sig, nil
}
