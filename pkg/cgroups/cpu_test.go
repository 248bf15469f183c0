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

package cgroups

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/logger"
)

func TestAdjustMaxProcs(t *testing.T) {
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(-1))
	t.Setenv("GOMAXPROCS", "1")
	runtime.GOMAXPROCS(1)
	assert.Equal(t, 1, AdjustMaxProcs(logger.GetLogger("test")))
}

func TestAdjustMaxProcs_Quota(t *testing.T) {
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(-1))
	n := AdjustMaxProcs(logger.GetLogger("test"))
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, runtime.NumCPU())
	assert.Equal(t, n, CPUs())
}

func TestMemory(t *testing.T) {
	m, err := Memory()
	require.NoError(t, err)
	assert.Positive(t, m.Total)
	assert.LessOrEqual(t, m.Available, m.Total)
	assert.InDelta(t, 50, m.UsedPercent, 50)
}
