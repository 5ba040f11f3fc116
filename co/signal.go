// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "sync"

// Signal a rendezvous point for goroutines waiting for or announcing the
// occurrence of an event.
type Signal struct {
	l  sync.Mutex
	ch chan struct{}
}

func (s *Signal) init() {
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
}

// Broadcast wakes all goroutines waiting on s.
func (s *Signal) Broadcast() {
	s.l.Lock()
	defer s.l.Unlock()
	s.init()
	close(s.ch)
	s.ch = make(chan struct{})
}

// NewWaiter creates a waiter for once use.
func (s *Signal) NewWaiter() Waiter {
	s.l.Lock()
	defer s.l.Unlock()
	s.init()
	return Waiter{s.ch}
}

// Waiter provides channel to wait for.
type Waiter struct {
	ch chan struct{}
}

// C returns the channel to wait for. It's closed once the associated signal
// is broadcast.
func (w Waiter) C() <-chan struct{} {
	return w.ch
}
