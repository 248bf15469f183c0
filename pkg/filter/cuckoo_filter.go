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

package filter

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	maxSegments       = 64
	defaultLoadFactor = 0.9
)

type victimCache struct {
	bucket uint64
	tag    uint64
	used   bool
}

// CuckooFilter is a general purpose membership filter safe for concurrent use.
// Bucket pairs are guarded by striped locks which are always acquired in ascending
// segment order. A tag that cannot be placed is kept in a single slot victim cache.
type CuckooFilter struct {
	table    *BitTable
	locks    []sync.RWMutex
	ix       CuckooIndexer
	victim   victimCache
	count    atomic.Int64
	victimMu sync.RWMutex
}

// NewCuckooFilter creates a filter able to hold about capacity items.
func NewCuckooFilter(capacity uint64) (*CuckooFilter, error) {
	bucketNum := nextPowerOfTwo(uint64(float64(capacity)/SlotsPerBucket/defaultLoadFactor) + 1)
	table, err := NewBitTable(LayoutPlain16, bucketNum)
	if err != nil {
		return nil, err
	}
	segments := bucketNum
	if segments > maxSegments {
		segments = maxSegments
	}
	return &CuckooFilter{
		table: table,
		ix:    NewCuckooIndexer(LayoutPlain16, bucketNum),
		locks: make([]sync.RWMutex, segments),
	}, nil
}

func (f *CuckooFilter) segments(i1, i2 uint64) (int, int) {
	s1 := int(i1 % uint64(len(f.locks)))
	s2 := int(i2 % uint64(len(f.locks)))
	if s1 > s2 {
		s1, s2 = s2, s1
	}
	return s1, s2
}

func (f *CuckooFilter) lockPair(i1, i2 uint64) func() {
	s1, s2 := f.segments(i1, i2)
	f.locks[s1].Lock()
	if s2 != s1 {
		f.locks[s2].Lock()
	}
	return func() {
		if s2 != s1 {
			f.locks[s2].Unlock()
		}
		f.locks[s1].Unlock()
	}
}

func (f *CuckooFilter) rlockPair(i1, i2 uint64) func() {
	s1, s2 := f.segments(i1, i2)
	f.locks[s1].RLock()
	if s2 != s1 {
		f.locks[s2].RLock()
	}
	return func() {
		if s2 != s1 {
			f.locks[s2].RUnlock()
		}
		f.locks[s1].RUnlock()
	}
}

func (f *CuckooFilter) lockAll() func() {
	for i := range f.locks {
		f.locks[i].Lock()
	}
	return func() {
		for i := len(f.locks) - 1; i >= 0; i-- {
			f.locks[i].Unlock()
		}
	}
}

// Insert adds an item. It returns false when the table and the victim cache are both full.
func (f *CuckooFilter) Insert(item []byte) bool {
	i1, fp := f.ix.Generate(item)
	i2 := f.ix.AltIndex(i1, fp)
	tag := f.table.layout.MakeTag(fp, 0, 0)

	unlock := f.lockPair(i1, i2)
	if f.table.InsertToBucket(i1, tag) || f.table.InsertToBucket(i2, tag) {
		unlock()
		f.count.Add(1)
		return true
	}
	unlock()

	f.victimMu.Lock()
	defer f.victimMu.Unlock()
	if f.victim.used {
		return false
	}
	unlockAll := f.lockAll()
	defer unlockAll()
	bucket, left, ok := f.table.Place(f.ix, i1, tag)
	f.count.Add(1)
	if !ok {
		f.victim = victimCache{bucket: bucket, tag: left, used: true}
	}
	return true
}

// Contains reports whether the item may have been inserted.
func (f *CuckooFilter) Contains(item []byte) bool {
	i1, fp := f.ix.Generate(item)
	i2 := f.ix.AltIndex(i1, fp)
	tag := f.table.layout.MakeTag(fp, 0, 0)

	unlock := f.rlockPair(i1, i2)
	found := f.table.FindTag(i1, i2, tag)
	unlock()
	if found {
		return true
	}
	f.victimMu.RLock()
	defer f.victimMu.RUnlock()
	return f.victim.used && f.victim.tag == tag &&
		(f.victim.bucket == i1 || f.victim.bucket == i2)
}

// Delete removes one occurrence of the item.
func (f *CuckooFilter) Delete(item []byte) bool {
	i1, fp := f.ix.Generate(item)
	i2 := f.ix.AltIndex(i1, fp)
	tag := f.table.layout.MakeTag(fp, 0, 0)

	f.victimMu.Lock()
	defer f.victimMu.Unlock()
	if f.victim.used && f.victim.tag == tag && (f.victim.bucket == i1 || f.victim.bucket == i2) {
		f.victim = victimCache{}
		f.count.Add(-1)
		return true
	}
	unlock := f.lockPair(i1, i2)
	deleted := f.table.DeleteFromBucket(i1, fp) || f.table.DeleteFromBucket(i2, fp)
	unlock()
	if !deleted {
		return false
	}
	f.count.Add(-1)
	if f.victim.used {
		v := f.victim
		f.victim = victimCache{}
		unlockAll := f.lockAll()
		if bucket, left, ok := f.table.Place(f.ix, v.bucket, v.tag); !ok {
			f.victim = victimCache{bucket: bucket, tag: left, used: true}
		}
		unlockAll()
	}
	return true
}

// Count returns the number of items held.
func (f *CuckooFilter) Count() int {
	return int(f.count.Load())
}

// LoadFactor returns the share of occupied slots.
func (f *CuckooFilter) LoadFactor() float64 {
	return float64(f.Count()) / float64(f.table.BucketNum()*SlotsPerBucket)
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return uint64(1) << bits.Len64(n-1)
}
