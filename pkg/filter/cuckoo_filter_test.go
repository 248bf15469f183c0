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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCuckooFilter(t *testing.T) {
	cf, err := NewCuckooFilter(1000)
	require.NoError(t, err)
	data := generateTestData(1000)
	for _, d := range data {
		require.True(t, cf.Insert(d))
	}
	assert.Equal(t, 1000, cf.Count())
	for _, d := range data {
		assert.True(t, cf.Contains(d))
	}
	for _, d := range data[:500] {
		assert.True(t, cf.Delete(d))
	}
	assert.Equal(t, 500, cf.Count())
	for _, d := range data[500:] {
		assert.True(t, cf.Contains(d))
	}
}

func TestCuckooFilterVictimCache(t *testing.T) {
	cf, err := NewCuckooFilter(4)
	require.NoError(t, err)
	data := generateTestData(64)
	inserted := make([][]byte, 0, len(data))
	for _, d := range data {
		if !cf.Insert(d) {
			break
		}
		inserted = append(inserted, d)
	}
	require.Less(t, len(inserted), len(data), "a tiny filter must eventually refuse")
	assert.True(t, cf.victim.used)
	for _, d := range inserted {
		assert.True(t, cf.Contains(d), "no inserted item may be lost")
	}
}

func TestCuckooFilterConcurrent(t *testing.T) {
	const n = 20000
	cf, err := NewCuckooFilter(n)
	require.NoError(t, err)
	data := generateTestData(n)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < n; i += 8 {
				cf.Insert(data[i])
				cf.Contains(data[(i*7)%n])
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, n, cf.Count())
	for _, d := range data {
		assert.True(t, cf.Contains(d))
	}
}
