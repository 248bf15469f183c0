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

package shrink

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
)

const testWindow = 100

func TestWindowID(t *testing.T) {
	tests := []struct {
		ts   int64
		want int64
	}{
		{ts: 0, want: 0},
		{ts: 99, want: 0},
		{ts: 100, want: 1},
		{ts: -1, want: -1},
		{ts: -100, want: -1},
		{ts: -101, want: -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WindowID(tt.ts, testWindow), "ts=%d", tt.ts)
	}
}

func TestSplitInterval(t *testing.T) {
	tags := splitInterval(35, 254, testWindow, 10)
	require.Len(t, tags, 3)
	assert.Equal(t, windowTag{wid: 0, marker: 0b1111111000}, tags[0])
	assert.Equal(t, windowTag{wid: 1, marker: 0b1111111111}, tags[1])
	assert.Equal(t, windowTag{wid: 2, marker: 0b0000111111}, tags[2])

	tags = splitInterval(10, 10, testWindow, 4)
	require.Len(t, tags, 1)
	assert.Equal(t, uint64(1), tags[0].marker)
	assert.Empty(t, splitInterval(11, 10, testWindow, 4))
}

func TestNewRejectsBadArguments(t *testing.T) {
	_, err := New(filter.LayoutUltra, testWindow, 16)
	assert.ErrorIs(t, err, filter.ErrInvalidLayout)
	_, err = New(filter.Layout8x4x4, 0, 16)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = New(filter.LayoutPlain16, testWindow, 16)
	assert.ErrorIs(t, err, filter.ErrInvalidLayout)
}

func TestFilterNoFalseNegatives(t *testing.T) {
	for _, l := range []filter.Layout{filter.Layout8x4x4, filter.Layout16x8x8, filter.Layout8x12x12, filter.Layout12x10x10} {
		t.Run(l.String(), func(t *testing.T) {
			f, err := New(l, testWindow, 2048)
			require.NoError(t, err)
			r := rand.New(rand.NewPCG(1, uint64(l.FingerprintBits)))
			type iv struct{ start, end int64 }
			var ivs []iv
			for i := 0; i < 300; i++ {
				start := r.Int64N(1_000_000) - 500_000
				end := start + r.Int64N(3*testWindow)
				require.NoError(t, f.Insert(start, end))
				ivs = append(ivs, iv{start, end})
			}
			for _, v := range ivs {
				for ts := v.start; ts <= v.end; ts += 7 {
					require.True(t, f.Query(ts), "ts %d in [%d, %d]", ts, v.start, v.end)
				}
				require.True(t, f.Query(v.end))
			}
		})
	}
}

func TestFilterQueryOutsideSubWindow(t *testing.T) {
	f, err := New(filter.Layout12x10x10, testWindow, 16)
	require.NoError(t, err)
	require.NoError(t, f.Insert(0, 9))
	assert.True(t, f.Query(5))
	assert.False(t, f.Query(55))
	assert.Equal(t, 1, f.KeyCount())
	assert.InDelta(t, 0.1, f.WindowCount(), 1e-9)
}

func TestFilterUpdateRangeOnAbsentWindow(t *testing.T) {
	f, err := New(filter.Layout16x8x8, testWindow, 16)
	require.NoError(t, err)
	require.NoError(t, f.Insert(0, 99))
	before := f.Marshal(nil)
	assert.False(t, f.UpdateRange(10_000, 10_050))
	assert.Equal(t, before, f.Marshal(nil))
}

func TestFilterRebuild(t *testing.T) {
	f, err := New(filter.Layout12x10x10, testWindow, 16)
	require.NoError(t, err)
	require.NoError(t, f.Insert(0, 99))
	require.NoError(t, f.Insert(500, 599))
	assert.Equal(t, 2, f.KeyCount())

	assert.Equal(t, 2, f.Rebuild(), "rebuild without hits keeps the filter")

	require.True(t, f.UpdateRange(20, 29))
	assert.Equal(t, 1, f.Rebuild())
	assert.True(t, f.Query(25))
	assert.False(t, f.Query(55))
	assert.False(t, f.Query(550))

	snapshot := f.Marshal(nil)
	assert.Equal(t, 1, f.Rebuild())
	assert.Equal(t, snapshot, f.Marshal(nil), "a second rebuild is a no op")
}

func TestFilterRebuildShrinksMonotonically(t *testing.T) {
	f, err := New(filter.Layout16x8x8, testWindow, 512)
	require.NoError(t, err)
	for w := int64(0); w < 200; w++ {
		require.NoError(t, f.Insert(w*testWindow, w*testWindow+testWindow-1))
	}
	r := rand.New(rand.NewPCG(7, 7))
	prev := f.WindowCount()
	for round := 0; round < 5; round++ {
		for i := 0; i < 100; i++ {
			ts := r.Int64N(200 * testWindow)
			f.UpdateRange(ts, ts+30)
		}
		f.Rebuild()
		cur := f.WindowCount()
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestFilterMergeCommutes(t *testing.T) {
	base, err := New(filter.Layout12x10x10, testWindow, 256)
	require.NoError(t, err)
	for w := int64(0); w < 40; w++ {
		require.NoError(t, base.Insert(w*testWindow, w*testWindow+testWindow-1))
	}
	a, b := base.Clone(), base.Clone()
	a.UpdateRange(0, 150)
	b.UpdateRange(2_000, 2_350)

	ab := a.Clone()
	require.NoError(t, ab.Merge(b))
	ba := b.Clone()
	require.NoError(t, ba.Merge(a))
	assert.Equal(t, ab.Marshal(nil), ba.Marshal(nil))

	ab.Rebuild()
	assert.True(t, ab.Query(120))
	assert.True(t, ab.Query(2_300))
	assert.False(t, ab.Query(1_000))

	other, err := New(filter.Layout12x10x10, testWindow*2, 256)
	require.NoError(t, err)
	assert.ErrorIs(t, a.Merge(other), ErrIncompatible)
}

func TestFilterMergeEqualsUnionOfUpdates(t *testing.T) {
	build := func() *Filter {
		f, err := New(filter.Layout16x8x8, testWindow, 256)
		require.NoError(t, err)
		for w := int64(0); w < 40; w++ {
			require.NoError(t, f.Insert(w*testWindow, w*testWindow+testWindow-1))
		}
		return f
	}
	// two builds from the same intervals share every slot position
	a, b := build(), build()
	require.Equal(t, a.Marshal(nil), b.Marshal(nil))

	a.UpdateRange(0, 150)
	b.UpdateRange(2_000, 2_350)
	require.NoError(t, a.Merge(b))

	union := build()
	union.UpdateRange(0, 150)
	union.UpdateRange(2_000, 2_350)
	assert.Equal(t, union.Marshal(nil), a.Marshal(nil))
	assert.Equal(t, union.Rebuild(), a.Rebuild())
	assert.Equal(t, union.Marshal(nil), a.Marshal(nil))
}

func TestFilterRebuildWithoutRoundKeepsEntries(t *testing.T) {
	f, err := New(filter.Layout12x10x10, testWindow, 16)
	require.NoError(t, err)
	require.NoError(t, f.Insert(0, 50))
	before := f.Marshal(nil)

	assert.Equal(t, 1, f.Rebuild())
	assert.Equal(t, before, f.Marshal(nil))
	assert.True(t, f.Query(25))

	g, err := Unmarshal(filter.Layout12x10x10, testWindow, before)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Rebuild(), "a decoded filter comes back from a round")

	f.UpdateRange(200, 210)
	assert.Equal(t, 0, f.Rebuild(), "a round without a hit on the entry drops it")
}

func TestFilterInsertIsAtomic(t *testing.T) {
	f, err := New(filter.Layout8x4x4, testWindow, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), f.BucketNum())
	require.NoError(t, f.Insert(0, 10))
	before := f.Marshal(nil)

	err = f.Insert(10_000, 10_000+64*testWindow)
	require.ErrorIs(t, err, ErrFilterFull)
	assert.Equal(t, before, f.Marshal(nil))
	assert.Equal(t, 1, f.KeyCount())
	assert.True(t, f.Query(5))
}

func TestFilterCompact(t *testing.T) {
	f, err := New(filter.Layout16x8x8, testWindow, 4096)
	require.NoError(t, err)
	before := f.BucketNum()
	for w := int64(0); w < 20; w++ {
		require.NoError(t, f.Insert(w*testWindow*3, w*testWindow*3+50))
	}
	require.True(t, f.Compact())
	assert.Less(t, f.BucketNum(), before)
	assert.GreaterOrEqual(t, f.LoadFactor(), DefaultLoadFactor/2)
	for w := int64(0); w < 20; w++ {
		assert.True(t, f.Query(w*testWindow*3+25))
	}
	assert.Equal(t, 20, f.KeyCount())
	assert.False(t, f.Compact(), "a compacted filter stays put")
}

// fillUntilFull inserts one interval per distinct window until the table reports
// ErrFilterFull and returns a point inside every interval that was kept.
func fillUntilFull(t *testing.T, insert func(start, end int64) error) []int64 {
	var points []int64
	for w := int64(0); w < 100_000; w++ {
		start := w * testWindow * 3
		err := insert(start, start+50)
		if err != nil {
			require.ErrorIs(t, err, ErrFilterFull)
			return points
		}
		points = append(points, start+25)
	}
	require.FailNow(t, "the filter never filled up")
	return nil
}

func TestFilterHalveRollsBack(t *testing.T) {
	f, err := New(filter.Layout8x4x4, testWindow, 60)
	require.NoError(t, err)
	points := fillUntilFull(t, f.Insert)
	buckets := f.BucketNum()
	snapshot := f.Marshal(nil)

	assert.False(t, f.halve())
	assert.Equal(t, buckets, f.BucketNum())
	assert.Equal(t, snapshot, f.Marshal(nil))
	for _, ts := range points {
		assert.True(t, f.Query(ts), "ts %d", ts)
	}
	assert.False(t, f.Compact())
	assert.Equal(t, snapshot, f.Marshal(nil))
}

func TestFilterMarshalRoundTrip(t *testing.T) {
	f, err := New(filter.Layout8x12x12, testWindow, 64)
	require.NoError(t, err)
	require.NoError(t, f.Insert(40, 260))
	f.UpdateRange(50, 60)

	g, err := Unmarshal(filter.Layout8x12x12, testWindow, f.Marshal(nil))
	require.NoError(t, err)
	assert.Equal(t, f.BucketNum(), g.BucketNum())
	g.Rebuild()
	assert.True(t, g.Query(55))
	assert.False(t, g.Query(150))

	_, err = Unmarshal(filter.Layout8x12x12, testWindow, []byte{0, 0})
	assert.Error(t, err)
}

func TestBucketNumFor(t *testing.T) {
	assert.Equal(t, uint64(1), BucketNumFor(0, 0.9))
	assert.Equal(t, uint64(1), BucketNumFor(3, 0.9))
	assert.Equal(t, uint64(2), BucketNumFor(4, 0.9))
	assert.Equal(t, uint64(256), BucketNumFor(900, 0.9))
	assert.Equal(t, uint64(1024), BucketNumFor(900, 0.4))
}
