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

// Package shrink implements windowed membership filters that shrink round after round
// as query variables discard the time ranges holding no match.
package shrink

import (
	"math"

	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
)

const (
	// DefaultLoadFactor is the occupancy a filter is sized for.
	DefaultLoadFactor = 0.9
	minBucketNum      = 1
)

var (
	// ErrFilterFull is returned when an insertion exceeds the cuckoo kick budget.
	// The caller should size a bigger filter and insert the whole batch again.
	ErrFilterFull = errors.New("shrink filter is full")
	// ErrIncompatible is returned when two filters or a filter and its markers disagree on geometry.
	ErrIncompatible = errors.New("incompatible shrink filters")
	// ErrInvalidWindow is returned for a non positive window length.
	ErrInvalidWindow = errors.New("window must be positive")
)

type options struct {
	loadFactor float64
}

// Option tunes a filter.
type Option func(*options)

// WithLoadFactor sets the target load factor used for sizing and compaction.
func WithLoadFactor(lf float64) Option {
	return func(o *options) {
		if lf > 0 && lf <= 1 {
			o.loadFactor = lf
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{loadFactor: DefaultLoadFactor}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BucketNumFor returns the smallest power of two bucket count holding keys at the load factor.
func BucketNumFor(keys int, loadFactor float64) uint64 {
	if loadFactor <= 0 || loadFactor > 1 {
		loadFactor = DefaultLoadFactor
	}
	need := uint64(math.Ceil(float64(keys) / filter.SlotsPerBucket / loadFactor))
	n := uint64(minBucketNum)
	for n < need {
		n <<= 1
	}
	return n
}

type slotRef struct {
	bucket uint64
	slot   int
}

// core holds what the plain and the ultra filter share: a table keyed by window id.
type core struct {
	table      *filter.BitTable
	ix         filter.CuckooIndexer
	layout     filter.Layout
	window     int64
	loadFactor float64
}

func newCore(layout filter.Layout, window int64, bucketNum uint64, o options) (core, error) {
	c := core{layout: layout, window: window, loadFactor: o.loadFactor}
	if window <= 0 {
		return c, errors.Wrapf(ErrInvalidWindow, "got %d", window)
	}
	if !layout.Windowed() {
		return c, errors.Wrapf(filter.ErrInvalidLayout, "%s has no interval marker", layout)
	}
	t, err := filter.NewBitTable(layout, bucketNum)
	if err != nil {
		return c, err
	}
	c.table = t
	c.ix = filter.NewCuckooIndexer(layout, bucketNum)
	return c, nil
}

func (c *core) setTable(t *filter.BitTable) {
	c.table = t
	c.ix = filter.NewCuckooIndexer(c.layout, t.BucketNum())
}

// insert places every window tag of [start, end]. Either all tags land or none does.
func (c *core) insert(start, end int64) error {
	tags := splitInterval(start, end, c.window, c.layout.IntervalBits)
	c.table.BeginJournal()
	for _, wt := range tags {
		i1, fp := c.ix.GenerateUint64(uint64(wt.wid))
		if _, _, ok := c.table.Place(c.ix, i1, c.layout.MakeTag(fp, wt.marker, 0)); !ok {
			c.table.Rollback()
			return errors.Wrapf(ErrFilterFull, "interval [%d, %d] in %d buckets", start, end, c.table.BucketNum())
		}
	}
	c.table.Commit()
	return nil
}

func (c *core) query(ts int64) bool {
	wt := pointTag(ts, c.window, c.layout.IntervalBits)
	i1, fp := c.ix.GenerateUint64(uint64(wt.wid))
	i2 := c.ix.AltIndex(i1, fp)
	return c.table.FindTag(i1, i2, c.layout.MakeTag(fp, wt.marker, 0))
}

// matches returns every live slot holding the fingerprint of window wid.
func (c *core) matches(wid int64) []slotRef {
	i1, fp := c.ix.GenerateUint64(uint64(wid))
	i2 := c.ix.AltIndex(i1, fp)
	var refs []slotRef
	for _, b := range [2]uint64{i1, i2} {
		for s := 0; s < filter.SlotsPerBucket; s++ {
			tag := c.table.ReadTag(b, s)
			if c.layout.Live(tag) && c.layout.Fingerprint(tag) == fp {
				refs = append(refs, slotRef{bucket: b, slot: s})
			}
		}
		if i2 == i1 {
			break
		}
	}
	return refs
}

func (c *core) compact() bool {
	compacted := false
	for c.table.BucketNum() > minBucketNum {
		capacity := float64(c.table.BucketNum() * filter.SlotsPerBucket)
		if float64(c.table.LiveCount()) >= capacity*c.loadFactor/2 {
			break
		}
		if !c.halve() {
			break
		}
		compacted = true
	}
	return compacted
}

// halve folds the upper half of the buckets into the lower half. Lower half entries
// stay where they are because masking a bucket index keeps both candidates of a key
// consistent. On any failed reinsertion the table is left untouched.
func (c *core) halve() bool {
	oldNum := c.table.BucketNum()
	newNum := oldNum / 2
	next, err := filter.NewBitTable(c.layout, newNum)
	if err != nil {
		return false
	}
	copy(next.Words(), c.table.Words()[:int(newNum)*c.table.WordsPerBucket()])
	ix := filter.NewCuckooIndexer(c.layout, newNum)
	ok := true
	c.table.Range(func(bucket uint64, _ int, tag uint64) bool {
		if bucket < newNum {
			return true
		}
		if _, _, placed := next.Place(ix, bucket&(newNum-1), tag); !placed {
			ok = false
		}
		return ok
	})
	if !ok {
		return false
	}
	c.setTable(next)
	return true
}

func (c *core) merge(other *core) error {
	if c.layout != other.layout || c.window != other.window {
		return errors.Wrapf(ErrIncompatible, "layout %s/%s window %d/%d", c.layout, other.layout, c.window, other.window)
	}
	return c.table.Or(other.table)
}

func (c *core) windowCount() float64 {
	return float64(c.table.MarkerPopCount()) / float64(c.layout.IntervalBits)
}

func unmarshalCore(layout filter.Layout, window int64, src []byte, o options) (core, error) {
	words, err := filter.UnmarshalWords(src)
	if err != nil {
		return core{}, err
	}
	t, err := filter.NewBitTableFromWords(layout, words)
	if err != nil {
		return core{}, err
	}
	c, err := newCore(layout, window, t.BucketNum(), o)
	if err != nil {
		return core{}, err
	}
	c.setTable(t)
	return c, nil
}

// Window returns the window length.
func (c *core) Window() int64 {
	return c.window
}

// Layout returns the tag layout.
func (c *core) Layout() filter.Layout {
	return c.layout
}

// BucketNum returns the current number of buckets.
func (c *core) BucketNum() uint64 {
	return c.table.BucketNum()
}

// KeyCount returns the number of live entries.
func (c *core) KeyCount() int {
	return c.table.LiveCount()
}

// LoadFactor returns the share of occupied slots.
func (c *core) LoadFactor() float64 {
	return float64(c.KeyCount()) / float64(c.table.BucketNum()*filter.SlotsPerBucket)
}

// WindowCount approximates how many whole windows are still covered.
func (c *core) WindowCount() float64 {
	return c.windowCount()
}

// Query reports whether ts may fall into an inserted interval.
func (c *core) Query(ts int64) bool {
	return c.query(ts)
}

// Insert adds the interval [start, end]. On ErrFilterFull nothing of the interval is kept.
func (c *core) Insert(start, end int64) error {
	return c.insert(start, end)
}

// Compact halves the table while it is less than half as full as targeted.
// It reports whether the table shrank. A failed halving keeps the table unchanged.
func (c *core) Compact() bool {
	return c.compact()
}

// Marshal appends the table words.
func (c *core) Marshal(dst []byte) []byte {
	return filter.MarshalWords(dst, c.table.Words())
}
