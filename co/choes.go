// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "sync"

// Choes manages goroutines that can be stopped cooperatively via a shared
// stop channel.
type Choes struct {
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewChoes creates a new Choes instance.
func NewChoes() *Choes {
	return &Choes{stopChan: make(chan struct{})}
}

// Go runs f in a new goroutine. f should return promptly once the passed
// stop channel is closed.
func (c *Choes) Go(f func(stopChan chan struct{})) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		f(c.stopChan)
	}()
}

// Stop closes the stop channel. Safe to call more than once.
func (c *Choes) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

// Wait waits for all goroutines started by 'Go' to finish.
func (c *Choes) Wait() {
	c.wg.Wait()
}
