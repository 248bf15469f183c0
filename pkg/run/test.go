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

var _ Service = (*Tester)(nil)

// Tester is a service that runs until Stop is called. It lets tests and one shot
// commands end a Group programmatically.
type Tester struct {
	started chan struct{}
	stopCh  chan struct{}
	id      string
	once    sync.Once
}

// NewTester returns a Tester named id.
func NewTester(id string) *Tester {
	return &Tester{
		id:      id,
		started: make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
}

// Started is closed once the group serves the tester.
func (t *Tester) Started() <-chan struct{} {
	return t.started
}

// Name implements Unit.
func (t *Tester) Name() string {
	return t.id
}

// Serve implements Service.
func (t *Tester) Serve() StopNotify {
	close(t.started)
	return t.stopCh
}

// GracefulStop implements Service.
func (t *Tester) GracefulStop() {
	t.once.Do(func() {
		close(t.stopCh)
	})
}

// Stop ends the tester and with it the group.
func (t *Tester) Stop() {
	t.GracefulStop()
}
