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

package data

import (
	"github.com/Josehokec/TemporaryCode-sub000/pkg/query/plan"
)

// InitialRequest opens a query session on a node.
type InitialRequest struct {
	Plan    *plan.Plan
	QueryID string
}

// InitialResponse carries the number of candidates per variable.
type InitialResponse struct {
	Counts map[string]int
}

// ReplayIntervalsRequest asks for the replay intervals of the candidates of Variable.
type ReplayIntervalsRequest struct {
	QueryID  string
	Variable string
	Window   int64
	Position plan.Position
}

// ReplayIntervalsResponse carries intervals encoded by interval.Marshal.
type ReplayIntervalsResponse struct {
	Intervals []byte
}

// WindowFilterRequest checks the candidates of Variable against Filter, the
// encoded filter in the deployment's mode.
type WindowFilterRequest struct {
	QueryID  string
	Variable string
	Filter   []byte
}

// FilterResponse answers both window and join filtering. In ultra mode Payload
// is an encoded UpdatedMarkers, in basic mode the filter carrying the hit markers.
type FilterResponse struct {
	Payload          []byte
	FilteredEventNum int
}

// BuildJoinBloomRequest asks for a Bloom filter over the surviving events of
// Variable keyed by Operand. The geometry is fixed by the caller so that the
// filters of all nodes can be ORed.
type BuildJoinBloomRequest struct {
	Operand  plan.Operand
	QueryID  string
	Variable string
	Filter   []byte
	BitSize  uint64
	KeyNum   int
}

// BuildJoinBloomResponse carries the Bloom filter words.
type BuildJoinBloomResponse struct {
	Bloom []byte
}

// JoinBloom is the merged Bloom filter of a visited variable together with
// the equality predicate it checks.
type JoinBloom struct {
	Predicate plan.DependentPredicate
	Other     string
	Bloom     []byte
	BitSize   uint64
	KeyNum    int
}

// JoinFilterRequest checks the candidates of Variable against Filter and every Bloom.
type JoinFilterRequest struct {
	QueryID  string
	Variable string
	Filter   []byte
	Blooms   []JoinBloom
}

// PullRecordsRequest asks for the records of every variable still matching Filter.
type PullRecordsRequest struct {
	QueryID string
	Filter  []byte
}

// PullRecordsResponse carries concatenated fixed width records, zstd compressed.
// Records is empty when no row survives.
type PullRecordsResponse struct {
	Records []byte
	Count   int
}

// ReleaseRequest drops the session of a query.
type ReleaseRequest struct {
	QueryID string
}

// ReleaseResponse reports whether the node still held the session.
type ReleaseResponse struct {
	Released bool
}
