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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Ultra ")
	require.NoError(t, err)
	assert.Equal(t, ModeUltra, m)
	m, err = ParseMode("basic")
	require.NoError(t, err)
	assert.Equal(t, ModeBasic, m)
	_, err = ParseMode("fast")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, Settings{Mode: ModeUltra, Window: 1}.Validate())
	assert.ErrorIs(t, Settings{Mode: ModeUltra}.Validate(), ErrInvalidWindow)
	assert.ErrorIs(t, Settings{Mode: ModeBasic, Window: 1, Layout: filter.LayoutUltra}.Validate(), filter.ErrInvalidLayout)
	assert.ErrorIs(t, Settings{Mode: "x", Window: 1}.Validate(), ErrInvalidMode)
}

func TestDriverRound(t *testing.T) {
	for _, s := range []Settings{
		{Mode: ModeUltra, Window: testWindow},
		{Mode: ModeBasic, Layout: filter.Layout12x10x10, Window: testWindow},
	} {
		t.Run(string(s.Mode), func(t *testing.T) {
			d, err := s.NewDriver(8)
			require.NoError(t, err)
			require.NoError(t, d.Insert(0, 250))
			assert.Equal(t, 3, d.KeyCount())

			var results [][]byte
			for _, span := range [][2]int64{{0, 49}, {10_000, 10_100}} {
				p, pErr := s.OpenProbe(d.Marshal(nil))
				require.NoError(t, pErr)
				require.True(t, p.Query(40))
				p.Mark(span[0], span[1])
				assert.Equal(t, 1, p.Filtered())
				results = append(results, p.Result(nil))
			}
			kept, err := d.Apply(results)
			require.NoError(t, err)
			assert.Equal(t, 1, kept)
			assert.True(t, d.Query(40))
			assert.False(t, d.Query(60))
			assert.False(t, d.Query(150))
		})
	}
}

func TestDriverApplyWithoutResults(t *testing.T) {
	for _, s := range []Settings{
		{Mode: ModeUltra, Window: testWindow},
		{Mode: ModeBasic, Layout: filter.Layout8x4x4, Window: testWindow},
	} {
		d, err := s.NewDriver(4)
		require.NoError(t, err)
		require.NoError(t, d.Insert(0, 99))
		kept, err := d.Apply(nil)
		require.NoError(t, err)
		assert.Zero(t, kept)
		assert.False(t, d.Query(0))
	}
}

func TestDriverApplyRejectsForeignResults(t *testing.T) {
	s := Settings{Mode: ModeBasic, Layout: filter.Layout16x8x8, Window: testWindow}
	d, err := s.NewDriver(4)
	require.NoError(t, err)
	big, err := s.NewDriver(4096)
	require.NoError(t, err)
	_, err = d.Apply([][]byte{big.Marshal(nil)})
	assert.ErrorIs(t, err, ErrIncompatible)

	u := Settings{Mode: ModeUltra, Window: testWindow}
	du, err := u.NewDriver(4)
	require.NoError(t, err)
	_, err = du.Apply([][]byte{{0, 0, 0}})
	assert.ErrorIs(t, err, ErrMalformedMarkers)
}

func TestProbeCountsFilteredEvents(t *testing.T) {
	s := Settings{Mode: ModeUltra, Window: testWindow}
	d, err := s.NewDriver(4)
	require.NoError(t, err)
	require.NoError(t, d.Insert(0, 99))
	p, err := s.OpenProbe(d.Marshal(nil))
	require.NoError(t, err)
	p.Mark(0, 10)
	p.Mark(20, 30)
	m, err := UnmarshalUpdatedMarkers(p.Result(nil), s.MarkerBits())
	require.NoError(t, err)
	assert.Equal(t, 2, m.FilteredEventNum())
}
