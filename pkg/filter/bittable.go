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
	"fmt"
	"math/bits"
	"math/rand/v2"

	"github.com/pkg/errors"
)

const (
	// SlotsPerBucket is the number of tags stored in a bucket.
	SlotsPerBucket = 4
	// MaxKicks bounds the cuckoo eviction loop. Slots are evicted uniformly at random,
	// so a few more rounds than the classical 500 are needed for the same load factor.
	MaxKicks = 550
)

var (
	// ErrBucketNumNotPowerOfTwo is returned when a table is sized with an invalid bucket count.
	ErrBucketNumNotPowerOfTwo = errors.New("bucket number must be a power of two")
	// ErrBucketNumMismatch is returned when merging tables of different geometry.
	ErrBucketNumMismatch = errors.New("bucket number mismatch")
)

type wordChange struct {
	idx int
	old uint64
}

// BitTable is a fixed capacity array of buckets, each holding SlotsPerBucket tags.
// A tag never straddles two words because its width divides 64.
type BitTable struct {
	words     []uint64
	journal   []wordChange
	layout    Layout
	bucketNum uint64
	tagMask   uint64
	tagBits   uint
	recording bool
}

// NewBitTable allocates a zeroed table.
func NewBitTable(layout Layout, bucketNum uint64) (*BitTable, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if bucketNum == 0 || bucketNum&(bucketNum-1) != 0 {
		return nil, errors.Wrapf(ErrBucketNumNotPowerOfTwo, "got %d", bucketNum)
	}
	t := &BitTable{
		layout:    layout,
		bucketNum: bucketNum,
		tagBits:   layout.TagBits(),
		tagMask:   layout.TagMask(),
	}
	t.words = make([]uint64, bucketNum*uint64(t.WordsPerBucket()))
	return t, nil
}

// NewBitTableFromWords wraps words previously obtained from Words.
func NewBitTableFromWords(layout Layout, words []uint64) (*BitTable, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	wpb := int(SlotsPerBucket * layout.TagBits() / 64)
	if len(words) == 0 || len(words)%wpb != 0 {
		return nil, errors.Wrapf(ErrBucketNumNotPowerOfTwo, "%d words for layout %s", len(words), layout)
	}
	bucketNum := uint64(len(words) / wpb)
	if bucketNum&(bucketNum-1) != 0 {
		return nil, errors.Wrapf(ErrBucketNumNotPowerOfTwo, "got %d", bucketNum)
	}
	return &BitTable{
		layout:    layout,
		bucketNum: bucketNum,
		tagBits:   layout.TagBits(),
		tagMask:   layout.TagMask(),
		words:     words,
	}, nil
}

// Layout returns the tag layout.
func (t *BitTable) Layout() Layout {
	return t.layout
}

// BucketNum returns the number of buckets.
func (t *BitTable) BucketNum() uint64 {
	return t.bucketNum
}

// WordsPerBucket returns 1 for 16-bit tags and 2 for 32-bit tags.
func (t *BitTable) WordsPerBucket() int {
	return int(SlotsPerBucket * t.tagBits / 64)
}

// Words exposes the raw words.
func (t *BitTable) Words() []uint64 {
	return t.words
}

// Clone returns a deep copy without the journal.
func (t *BitTable) Clone() *BitTable {
	c := *t
	c.words = append([]uint64(nil), t.words...)
	c.journal = nil
	c.recording = false
	return &c
}

func (t *BitTable) position(bucket uint64, slot int) (int, uint) {
	if bucket >= t.bucketNum || slot < 0 || slot >= SlotsPerBucket {
		panic(fmt.Sprintf("filter: slot (%d,%d) out of range, bucket number %d", bucket, slot, t.bucketNum))
	}
	bit := (bucket*SlotsPerBucket + uint64(slot)) * uint64(t.tagBits)
	return int(bit / 64), uint(bit % 64)
}

// ReadTag returns the tag stored at a slot.
func (t *BitTable) ReadTag(bucket uint64, slot int) uint64 {
	w, shift := t.position(bucket, slot)
	return (t.words[w] >> shift) & t.tagMask
}

// WriteTag stores a tag at a slot. A tag wider than the layout panics.
func (t *BitTable) WriteTag(bucket uint64, slot int, tag uint64) {
	if tag&^t.tagMask != 0 {
		panic(fmt.Sprintf("filter: malformed tag %#x for layout %s", tag, t.layout))
	}
	w, shift := t.position(bucket, slot)
	if t.recording {
		t.journal = append(t.journal, wordChange{idx: w, old: t.words[w]})
	}
	t.words[w] = t.words[w]&^(t.tagMask<<shift) | tag<<shift
}

// InsertToBucket stores the tag in the bucket. A live slot with the same fingerprint
// absorbs the tag's markers when the layout is windowed. It returns false if the
// bucket is full.
func (t *BitTable) InsertToBucket(bucket uint64, tag uint64) bool {
	l := t.layout
	if l.Windowed() {
		fp := l.Fingerprint(tag)
		for s := 0; s < SlotsPerBucket; s++ {
			cur := t.ReadTag(bucket, s)
			if l.Live(cur) && l.Fingerprint(cur) == fp {
				t.WriteTag(bucket, s, cur|tag)
				return true
			}
		}
	}
	for s := 0; s < SlotsPerBucket; s++ {
		if !l.Live(t.ReadTag(bucket, s)) {
			t.WriteTag(bucket, s, tag)
			return true
		}
	}
	return false
}

// FindSlot returns the slot of the live entry holding fp in the bucket.
func (t *BitTable) FindSlot(bucket uint64, fp uint64) (int, bool) {
	l := t.layout
	for s := 0; s < SlotsPerBucket; s++ {
		cur := t.ReadTag(bucket, s)
		if l.Live(cur) && l.Fingerprint(cur) == fp {
			return s, true
		}
	}
	return -1, false
}

// FindTag reports whether either bucket holds the tag's fingerprint and, for
// windowed layouts, shares at least one interval marker bit with it.
func (t *BitTable) FindTag(i1, i2 uint64, tag uint64) bool {
	return t.findInBucket(i1, tag) || (i2 != i1 && t.findInBucket(i2, tag))
}

func (t *BitTable) findInBucket(bucket uint64, tag uint64) bool {
	l := t.layout
	fp := l.Fingerprint(tag)
	for s := 0; s < SlotsPerBucket; s++ {
		cur := t.ReadTag(bucket, s)
		if !l.Live(cur) || l.Fingerprint(cur) != fp {
			continue
		}
		if !l.Windowed() || l.Marker(cur)&l.Marker(tag) != 0 {
			return true
		}
	}
	return false
}

// DeleteFromBucket clears one live slot holding fp.
func (t *BitTable) DeleteFromBucket(bucket uint64, fp uint64) bool {
	if s, ok := t.FindSlot(bucket, fp); ok {
		t.WriteTag(bucket, s, 0)
		return true
	}
	return false
}

// SwapRandomTagInBucket writes the tag into a uniformly chosen slot and returns the previous tag.
func (t *BitTable) SwapRandomTagInBucket(bucket uint64, tag uint64) uint64 {
	s := rand.IntN(SlotsPerBucket)
	old := t.ReadTag(bucket, s)
	t.WriteTag(bucket, s, tag)
	return old
}

// Place inserts the tag using cuckoo eviction starting at the primary bucket.
// On failure the returned tag is the one left without a slot together with the
// bucket it was last evicted from.
func (t *BitTable) Place(ix CuckooIndexer, i1 uint64, tag uint64) (uint64, uint64, bool) {
	fp := t.layout.Fingerprint(tag)
	i2 := ix.AltIndex(i1, fp)
	if t.layout.Windowed() {
		for _, b := range [2]uint64{i1, i2} {
			if s, ok := t.FindSlot(b, fp); ok {
				t.WriteTag(b, s, t.ReadTag(b, s)|tag)
				return 0, 0, true
			}
		}
	}
	if t.InsertToBucket(i1, tag) || t.InsertToBucket(i2, tag) {
		return 0, 0, true
	}
	i := i1
	if rand.IntN(2) == 1 {
		i = i2
	}
	cur := tag
	for n := 0; n < MaxKicks; n++ {
		cur = t.SwapRandomTagInBucket(i, cur)
		i = ix.AltIndex(i, t.layout.Fingerprint(cur))
		if t.InsertToBucket(i, cur) {
			return 0, 0, true
		}
	}
	return i, cur, false
}

// LiveCount returns the number of live slots.
func (t *BitTable) LiveCount() int {
	n := 0
	t.Range(func(_ uint64, _ int, _ uint64) bool {
		n++
		return true
	})
	return n
}

// Range calls fn for every live slot until fn returns false.
func (t *BitTable) Range(fn func(bucket uint64, slot int, tag uint64) bool) {
	for b := uint64(0); b < t.bucketNum; b++ {
		for s := 0; s < SlotsPerBucket; s++ {
			tag := t.ReadTag(b, s)
			if t.layout.Live(tag) && !fn(b, s, tag) {
				return
			}
		}
	}
}

// MarkerPopCount sums the number of set interval marker bits over live slots.
func (t *BitTable) MarkerPopCount() int {
	n := 0
	t.Range(func(_ uint64, _ int, tag uint64) bool {
		n += bits.OnesCount64(t.layout.Marker(tag))
		return true
	})
	return n
}

// Or merges other into t word by word.
func (t *BitTable) Or(other *BitTable) error {
	if other.layout != t.layout {
		return errors.Wrapf(ErrInvalidLayout, "merge %s into %s", other.layout, t.layout)
	}
	if other.bucketNum != t.bucketNum {
		return errors.Wrapf(ErrBucketNumMismatch, "merge %d buckets into %d", other.bucketNum, t.bucketNum)
	}
	for i, w := range other.words {
		t.words[i] |= w
	}
	return nil
}

// Reset clears every slot.
func (t *BitTable) Reset() {
	clear(t.words)
}

// BeginJournal starts recording overwritten words so that Rollback can undo them.
func (t *BitTable) BeginJournal() {
	t.journal = t.journal[:0]
	t.recording = true
}

// Commit stops recording and keeps the changes.
func (t *BitTable) Commit() {
	t.journal = t.journal[:0]
	t.recording = false
}

// Rollback restores every word written since BeginJournal.
func (t *BitTable) Rollback() {
	for i := len(t.journal) - 1; i >= 0; i-- {
		c := t.journal[i]
		t.words[c.idx] = c.old
	}
	t.journal = t.journal[:0]
	t.recording = false
}
