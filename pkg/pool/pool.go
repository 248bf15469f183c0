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

// Package pool keeps named object pools and counts the objects borrowed from them.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var registry sync.Map

// Synced is a pool that is safe for concurrent use.
type Synced[T any] struct {
	newFn    func() T
	name     string
	pool     sync.Pool
	borrowed atomic.Int64
}

// Register creates the pool name. newFn allocates an object when the pool is
// empty. A name can only be registered once.
func Register[T any](name string, newFn func() T) *Synced[T] {
	p := &Synced[T]{name: name, newFn: newFn}
	if _, dup := registry.LoadOrStore(name, p); dup {
		panic(fmt.Sprintf("pool %s is registered twice", name))
	}
	return p
}

// Outstanding returns, for every pool, the objects borrowed and not put back.
func Outstanding() map[string]int {
	out := make(map[string]int)
	registry.Range(func(key, value any) bool {
		out[key.(string)] = value.(interface{ Borrowed() int }).Borrowed()
		return true
	})
	return out
}

// Name returns the name the pool is registered under.
func (p *Synced[T]) Name() string {
	return p.name
}

// Get borrows an object.
func (p *Synced[T]) Get() T {
	p.borrowed.Add(1)
	if v, ok := p.pool.Get().(T); ok {
		return v
	}
	return p.newFn()
}

// Put returns an object borrowed with Get.
func (p *Synced[T]) Put(v T) {
	p.borrowed.Add(-1)
	p.pool.Put(v)
}

// Borrowed returns the number of objects out of the pool.
func (p *Synced[T]) Borrowed() int {
	return int(p.borrowed.Load())
}
