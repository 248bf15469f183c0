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

	"github.com/Josehokec/TemporaryCode-sub000/pkg/convert"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
)

func newTestUltra(t *testing.T, windows int) *UltraFilter {
	f, err := NewUltra(testWindow, windows)
	require.NoError(t, err)
	for w := int64(0); w < int64(windows); w++ {
		require.NoError(t, f.Insert(w*testWindow, w*testWindow+testWindow-1))
	}
	return f
}

func TestUltraQueryWindowID(t *testing.T) {
	f := newTestUltra(t, 8)
	for w := int64(0); w < 8; w++ {
		b, s, ok := f.QueryWindowID(w)
		require.True(t, ok)
		tag := f.table.ReadTag(b, s)
		assert.Equal(t, filter.LayoutUltra.MarkerMask(), filter.LayoutUltra.Marker(tag))
	}
	_, _, ok := f.QueryWindowID(1_000_000)
	assert.False(t, ok)
}

func TestUltraMarkRangeAndRebuild(t *testing.T) {
	f := newTestUltra(t, 16)
	m := f.NewUpdatedMarkers()
	assert.Equal(t, f.SlotCount(), m.SlotCount())

	require.True(t, f.MarkRange(m, 210, 219))
	require.True(t, f.MarkRange(m, 1_450, 1_560))
	assert.False(t, f.MarkRange(m, 90_000, 90_010))
	m.AddFilteredEvents(2)

	snapshot := f.Marshal(nil)
	n, err := f.Rebuild(m)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NotEqual(t, snapshot, f.Marshal(nil))
	assert.True(t, f.Query(215))
	assert.False(t, f.Query(250))
	assert.True(t, f.Query(1_470))
	assert.True(t, f.Query(1_505))
	assert.False(t, f.Query(1_570))
	assert.False(t, f.Query(700))

	after := f.Marshal(nil)
	n, err = f.Rebuild(m)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, after, f.Marshal(nil), "rebuilding twice with the same markers is a no op")
}

func TestUltraRebuildRejectsForeignMarkers(t *testing.T) {
	f := newTestUltra(t, 16)
	_, err := f.Rebuild(NewUpdatedMarkers(f.SlotCount()*2, filter.LayoutUltra.IntervalBits))
	assert.ErrorIs(t, err, ErrIncompatible)
	_, err = f.Rebuild(NewUpdatedMarkers(f.SlotCount(), 10))
	assert.ErrorIs(t, err, ErrIncompatible)
}

func TestUltraMarkersMergeCommutes(t *testing.T) {
	f := newTestUltra(t, 32)
	a, b := f.NewUpdatedMarkers(), f.NewUpdatedMarkers()
	f.MarkRange(a, 0, 450)
	f.MarkRange(b, 300, 1_900)
	a.AddFilteredEvents(3)
	b.AddFilteredEvents(5)

	ab := f.NewUpdatedMarkers()
	require.NoError(t, ab.Merge(a))
	require.NoError(t, ab.Merge(b))
	ba := f.NewUpdatedMarkers()
	require.NoError(t, ba.Merge(b))
	require.NoError(t, ba.Merge(a))
	assert.True(t, ab.Equal(ba))
	assert.Equal(t, 8, ab.FilteredEventNum())

	g1, g2 := f.Clone(), f.Clone()
	_, err := g1.Rebuild(ab)
	require.NoError(t, err)
	_, err = g2.Rebuild(ba)
	require.NoError(t, err)
	assert.Equal(t, g1.Marshal(nil), g2.Marshal(nil))
}

func TestUltraCompactAfterRebuild(t *testing.T) {
	f := newTestUltra(t, 256)
	before := f.BucketNum()
	m := f.NewUpdatedMarkers()
	for w := int64(0); w < 256; w += 16 {
		f.MarkRange(m, w*testWindow+10, w*testWindow+20)
	}
	n, err := f.Rebuild(m)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	require.True(t, f.Compact())
	assert.Less(t, f.BucketNum(), before)
	for w := int64(0); w < 256; w += 16 {
		assert.True(t, f.Query(w*testWindow+15))
	}

	g, err := UnmarshalUltra(testWindow, f.Marshal(nil))
	require.NoError(t, err)
	assert.Equal(t, f.BucketNum(), g.BucketNum())
	assert.True(t, g.Query(testWindow*16+12))
}

func TestUpdatedMarkersRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 9))
	for _, markerBits := range []uint{4, 10, 20} {
		slotCount := 1 + r.IntN(500)
		m := NewUpdatedMarkers(slotCount, markerBits)
		for i := 0; i < slotCount/3; i++ {
			m.Or(r.IntN(slotCount), 1+r.Uint64N(uint64(1)<<markerBits-1))
		}
		m.AddFilteredEvents(r.IntN(1000))
		got, err := UnmarshalUpdatedMarkers(m.Marshal(nil), markerBits)
		require.NoError(t, err)
		assert.True(t, m.Equal(got), "marker bits %d", markerBits)
		assert.Equal(t, m.Positions(), got.Positions())
	}
}

func TestUpdatedMarkersEncodingSize(t *testing.T) {
	m := NewUpdatedMarkers(2, 20)
	assert.Len(t, m.Marshal(nil), markersHeaderSize+1)
	m.Or(1, 0x3)
	// 1 absent bit, 1 presence bit and 20 marker bits.
	assert.Len(t, m.Marshal(nil), markersHeaderSize+3)
	m.Or(1, 0)
	assert.Equal(t, 1, m.Len())
	assert.Panics(t, func() { m.Or(2, 1) })
	assert.Panics(t, func() { m.Or(0, 1<<20) })
}

func TestUnmarshalUpdatedMarkersRejectsMalformedInput(t *testing.T) {
	header := func(filtered, slots int32) []byte {
		return convert.AppendInt32(convert.AppendInt32(nil, filtered), slots)
	}
	tests := []struct {
		name string
		src  []byte
	}{
		{name: "short header", src: []byte{0, 0, 0}},
		{name: "negative slot count", src: header(0, -1)},
		{name: "truncated", src: header(0, 16)},
		{name: "trailing bytes", src: append(header(0, 1), 0x00, 0x00)},
		{name: "dirty padding", src: append(header(0, 1), 0x01)},
		{name: "present empty marker", src: append(header(0, 1), 0x80, 0x00, 0x00)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalUpdatedMarkers(tt.src, 20)
			assert.ErrorIs(t, err, ErrMalformedMarkers)
		})
	}
	m, err := UnmarshalUpdatedMarkers(append(header(4, 1), 0x00), 20)
	require.NoError(t, err)
	assert.Equal(t, 4, m.FilteredEventNum())
	assert.Equal(t, 0, m.Len())
}

func TestUltraHalveRollsBack(t *testing.T) {
	f, err := NewUltra(testWindow, 60)
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
}
