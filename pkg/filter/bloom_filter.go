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

// Package filter defines the probabilistic membership structures used to prune candidate events.
package filter

import (
	"encoding/binary"
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

const (
	k = 7
	// B specifies the number of bits allocated for each item.
	B = 10

	windowSeedMix = 0x9e3779b97f4a7c15
)

// BloomFilter is a probabilistic data structure designed to test whether an element is a member of a set.
// Bits only ever go from 0 to 1, so concurrent writers set them with compare-and-swap.
type BloomFilter struct {
	bits []uint64
	n    int
	k    int
}

// NewBloomFilter creates a new Bloom filter for n items with B bits per item.
func NewBloomFilter(n int) *BloomFilter {
	return NewBloomFilterWithBits(uint64(n*B), n)
}

// NewBloomFilterWithFPR sizes the filter for n items at the false positive rate fpr.
func NewBloomFilterWithFPR(n int, fpr float64) *BloomFilter {
	m, _ := BloomGeometry(n, fpr)
	return NewBloomFilterWithBits(m, n)
}

// NewBloomFilterWithBits creates a filter of bitSize bits expecting n items.
func NewBloomFilterWithBits(bitSize uint64, n int) *BloomFilter {
	if bitSize < 64 {
		bitSize = 64
	}
	if n < 1 {
		n = 1
	}
	words := (bitSize + 63) / 64
	return &BloomFilter{
		bits: make([]uint64, words),
		n:    n,
		k:    hashCount(words*64, n),
	}
}

// BloomGeometry returns the optimal number of bits and hash functions for n items at rate fpr.
func BloomGeometry(n int, fpr float64) (uint64, int) {
	if n < 1 {
		n = 1
	}
	if fpr <= 0 || fpr >= 1 {
		return uint64(n * B), k
	}
	m := uint64(math.Ceil(-float64(n) * math.Log(fpr) / (math.Ln2 * math.Ln2)))
	if m < 64 {
		m = 64
	}
	words := (m + 63) / 64
	return words * 64, hashCount(words*64, n)
}

func hashCount(m uint64, n int) int {
	h := int(math.Round(float64(m) / float64(n) * math.Ln2))
	if h < 1 {
		return 1
	}
	if h > 30 {
		return 30
	}
	return h
}

// Reset resets the Bloom filter.
func (bf *BloomFilter) Reset() {
	clear(bf.bits)
}

// Add adds an item to the Bloom filter.
func (bf *BloomFilter) Add(item []byte) bool {
	return bf.add(xxhash.Sum64(item))
}

// MightContain checks if an item might be in the Bloom filter.
func (bf *BloomFilter) MightContain(item []byte) bool {
	return bf.contains(xxhash.Sum64(item))
}

// AddWithWindow adds the item as seen in window wid. The same item in another window
// sets different bits.
func (bf *BloomFilter) AddWithWindow(item []byte, wid int64) bool {
	return bf.add(windowSeed(item, wid))
}

// MightContainWithWindow checks if the item might have been added in window wid.
func (bf *BloomFilter) MightContainWithWindow(item []byte, wid int64) bool {
	return bf.contains(windowSeed(item, wid))
}

func windowSeed(item []byte, wid int64) uint64 {
	return xxhash.Sum64(item) + (uint64(wid)+1)*windowSeedMix
}

func (bf *BloomFilter) probes(seed uint64) (uint64, uint64, uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	h1 := xxhash.Sum64(b[:])
	h2 := bits.RotateLeft64(h1, 32) | 1
	return h1, h2, uint64(len(bf.bits)) * 64
}

func (bf *BloomFilter) add(seed uint64) bool {
	h1, h2, maxBits := bf.probes(seed)
	isNew := false
	for i := 0; i < bf.k; i++ {
		idx := (h1 + uint64(i)*h2) % maxBits
		w, mask := idx/64, uint64(1)<<(idx%64)
		cur := atomic.LoadUint64(&bf.bits[w])
		for cur&mask == 0 {
			if atomic.CompareAndSwapUint64(&bf.bits[w], cur, cur|mask) {
				isNew = true
				break
			}
			cur = atomic.LoadUint64(&bf.bits[w])
		}
	}
	return isNew
}

func (bf *BloomFilter) contains(seed uint64) bool {
	h1, h2, maxBits := bf.probes(seed)
	for i := 0; i < bf.k; i++ {
		idx := (h1 + uint64(i)*h2) % maxBits
		if atomic.LoadUint64(&bf.bits[idx/64])&(uint64(1)<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// Merge ORs other into bf. Both filters must share their geometry.
func (bf *BloomFilter) Merge(other *BloomFilter) error {
	if len(bf.bits) != len(other.bits) || bf.k != other.k {
		return errors.Errorf("bloom filter geometry mismatch: %d words/%d hashes vs %d words/%d hashes",
			len(bf.bits), bf.k, len(other.bits), other.k)
	}
	for i := range other.bits {
		w := atomic.LoadUint64(&other.bits[i])
		for {
			cur := atomic.LoadUint64(&bf.bits[i])
			if cur|w == cur || atomic.CompareAndSwapUint64(&bf.bits[i], cur, cur|w) {
				break
			}
		}
	}
	return nil
}

// Marshal appends the bitset in the word buffer format.
func (bf *BloomFilter) Marshal(dst []byte) []byte {
	return MarshalWords(dst, bf.bits)
}

// UnmarshalBloomFilter decodes a filter whose geometry was agreed on as (bitSize, n).
func UnmarshalBloomFilter(src []byte, bitSize uint64, n int) (*BloomFilter, error) {
	words, err := UnmarshalWords(src)
	if err != nil {
		return nil, err
	}
	bf := NewBloomFilterWithBits(bitSize, n)
	if len(words) != len(bf.bits) {
		return nil, errors.Wrapf(ErrMalformedWords, "want %d bloom words, got %d", len(bf.bits), len(words))
	}
	bf.bits = words
	return bf, nil
}

// Bits returns the underlying bitset.
func (bf *BloomFilter) Bits() []uint64 {
	return bf.bits
}

// N returns the number of items.
func (bf *BloomFilter) N() int {
	return bf.n
}

// K returns the number of hash functions.
func (bf *BloomFilter) K() int {
	return bf.k
}

// SetBits sets the underlying bitset.
func (bf *BloomFilter) SetBits(bits []uint64) {
	bf.bits = bits
}

// SetN sets the number of items.
func (bf *BloomFilter) SetN(n int) {
	bf.n = n
}
