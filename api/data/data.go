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

// Package data contains the topics and payloads exchanged between the filter
// orchestrator and the storage nodes.
package data

import (
	"github.com/Josehokec/TemporaryCode-sub000/api/common"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/bus"
)

var (
	// InitialKindVersion is the version tag of the initial count kind.
	InitialKindVersion = common.KindVersion{Version: "v1", Kind: "seqf-initial"}
	// TopicInitial counts the candidates of every variable.
	TopicInitial = bus.BiTopic(InitialKindVersion.String())

	// ReplayIntervalsKindVersion is the version tag of the replay interval kind.
	ReplayIntervalsKindVersion = common.KindVersion{Version: "v1", Kind: "seqf-replay-intervals"}
	// TopicReplayIntervals collects the replay intervals of a variable.
	TopicReplayIntervals = bus.BiTopic(ReplayIntervalsKindVersion.String())

	// WindowFilterKindVersion is the version tag of the window filter kind.
	WindowFilterKindVersion = common.KindVersion{Version: "v1", Kind: "seqf-window-filter"}
	// TopicWindowFilter checks the candidates of a variable against the filter.
	TopicWindowFilter = bus.BiTopic(WindowFilterKindVersion.String())

	// BuildJoinBloomKindVersion is the version tag of the Bloom build kind.
	BuildJoinBloomKindVersion = common.KindVersion{Version: "v1", Kind: "seqf-build-join-bloom"}
	// TopicBuildJoinBloom builds the Bloom filter of a visited variable.
	TopicBuildJoinBloom = bus.BiTopic(BuildJoinBloomKindVersion.String())

	// JoinFilterKindVersion is the version tag of the join filter kind.
	JoinFilterKindVersion = common.KindVersion{Version: "v1", Kind: "seqf-join-filter"}
	// TopicJoinFilter checks the candidates of a variable against the filter and the Bloom filters.
	TopicJoinFilter = bus.BiTopic(JoinFilterKindVersion.String())

	// PullRecordsKindVersion is the version tag of the record pull kind.
	PullRecordsKindVersion = common.KindVersion{Version: "v1", Kind: "seqf-pull-records"}
	// TopicPullRecords ships the surviving records.
	TopicPullRecords = bus.BiTopic(PullRecordsKindVersion.String())

	// ReleaseKindVersion is the version tag of the session release kind.
	ReleaseKindVersion = common.KindVersion{Version: "v1", Kind: "seqf-release"}
	// TopicRelease drops the state a node keeps for a query.
	TopicRelease = bus.BiTopic(ReleaseKindVersion.String())
)

// Topics lists every topic a storage node serves.
var Topics = []bus.Topic{
	TopicInitial,
	TopicReplayIntervals,
	TopicWindowFilter,
	TopicBuildJoinBloom,
	TopicJoinFilter,
	TopicPullRecords,
	TopicRelease,
}
