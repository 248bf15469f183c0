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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const altIndexMix = 0x5bd1e995

// CuckooIndexer derives the fingerprint and the candidate buckets of an item from one hash.
type CuckooIndexer struct {
	layout Layout
	mask   uint64
}

// NewCuckooIndexer returns an indexer for a table of bucketNum buckets.
func NewCuckooIndexer(layout Layout, bucketNum uint64) CuckooIndexer {
	return CuckooIndexer{layout: layout, mask: bucketNum - 1}
}

// Generate returns the primary bucket and the fingerprint of key.
func (ix CuckooIndexer) Generate(key []byte) (uint64, uint64) {
	return ix.fromHash(xxhash.Sum64(key))
}

// GenerateUint64 is Generate for a big-endian encoded integer key.
func (ix CuckooIndexer) GenerateUint64(key uint64) (uint64, uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], key)
	return ix.fromHash(xxhash.Sum64(b[:]))
}

func (ix CuckooIndexer) fromHash(h uint64) (uint64, uint64) {
	fp := h & ix.layout.FingerprintMask()
	// zero means empty in plain tables
	if fp == 0 && !ix.layout.Windowed() {
		fp = 1
	}
	return (h >> 32) & ix.mask, fp
}

// AltIndex returns the other candidate bucket. Applying it twice yields the original bucket.
func (ix CuckooIndexer) AltIndex(bucket uint64, fp uint64) uint64 {
	return (bucket ^ (fp * altIndexMix)) & ix.mask
}
