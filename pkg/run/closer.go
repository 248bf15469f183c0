// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package run

import (
	"sync"
)

// Closer tracks the tasks of a service so that it can refuse new ones and
// wait for those in flight when it stops.
type Closer struct {
	closeCh chan struct{}
	running sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewCloser returns a Closer already tracking initial tasks.
func NewCloser(initial int) *Closer {
	c := &Closer{closeCh: make(chan struct{})}
	c.running.Add(initial)
	return c
}

// AddRunning registers a task. It returns false once the Closer is closed, in
// which case the task must not start.
func (c *Closer) AddRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.running.Add(1)
	return true
}

// Done marks a task registered by AddRunning as finished.
func (c *Closer) Done() {
	c.running.Done()
}

// CloseNotify is closed by CloseThenWait.
func (c *Closer) CloseNotify() <-chan struct{} {
	return c.closeCh
}

// CloseThenWait refuses new tasks, then blocks until the running ones are done.
// Calling it again only waits.
func (c *Closer) CloseThenWait() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.closeCh)
	}
	c.mu.Unlock()
	c.running.Wait()
}

// Closed reports whether CloseThenWait was called.
func (c *Closer) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
