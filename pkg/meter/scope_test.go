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

package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope(t *testing.T) {
	dfilter := RootScope.SubScope("dfilter").ConstLabels(LabelPairs{"mode": "ultra"})
	round := dfilter.SubScope("round").ConstLabels(LabelPairs{"mode": "basic", "node": "n1"})

	assert.Equal(t, "seqf", RootScope.Namespace())
	assert.Empty(t, RootScope.Labels())
	assert.Equal(t, "seqf_dfilter", dfilter.Namespace())
	assert.Equal(t, LabelPairs{"mode": "ultra"}, dfilter.Labels())
	assert.Equal(t, "seqf_dfilter_round", round.Namespace())
	assert.Equal(t, LabelPairs{"mode": "basic", "node": "n1"}, round.Labels())
}
