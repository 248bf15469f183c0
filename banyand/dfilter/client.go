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

package dfilter

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/api/data"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/queue"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/bus"
)

// ErrUnexpectedReply is returned when a node answers with the wrong payload.
var ErrUnexpectedReply = errors.New("unexpected reply")

// NodeClient calls the protocol steps on one storage node.
//
//go:generate mockgen -destination=./node_client_mock.go -package=dfilter . NodeClient
type NodeClient interface {
	Node() string
	Initial(ctx context.Context, req *data.InitialRequest) (*data.InitialResponse, error)
	ReplayIntervals(ctx context.Context, req *data.ReplayIntervalsRequest) (*data.ReplayIntervalsResponse, error)
	WindowFilter(ctx context.Context, req *data.WindowFilterRequest) (*data.FilterResponse, error)
	BuildJoinBloom(ctx context.Context, req *data.BuildJoinBloomRequest) (*data.BuildJoinBloomResponse, error)
	JoinFilter(ctx context.Context, req *data.JoinFilterRequest) (*data.FilterResponse, error)
	PullRecords(ctx context.Context, req *data.PullRecordsRequest) (*data.PullRecordsResponse, error)
	Release(ctx context.Context, req *data.ReleaseRequest) (*data.ReleaseResponse, error)
}

// NodeRegistry lists the storage nodes a query is sent to.
type NodeRegistry interface {
	Nodes() []NodeClient
}

// StaticNodes is a NodeRegistry over a fixed set of nodes.
type StaticNodes []NodeClient

// Nodes implements NodeRegistry.
func (s StaticNodes) Nodes() []NodeClient {
	return s
}

type queueClient struct {
	c   queue.Client
	seq atomic.Uint64
}

// NewNodeClient returns a NodeClient publishing on the queue of a node.
func NewNodeClient(c queue.Client) NodeClient {
	return &queueClient{c: c}
}

func call[Resp any](ctx context.Context, qc *queueClient, topic bus.Topic, req any) (*Resp, error) {
	r, err := queue.Request(ctx, qc.c, topic, bus.MessageID(qc.seq.Add(1)), req)
	if err != nil {
		return nil, err
	}
	resp, ok := r.(*Resp)
	if !ok {
		return nil, errors.Wrapf(ErrUnexpectedReply, "%T from %s on %s", r, qc.c.Node(), topic)
	}
	return resp, nil
}

func (qc *queueClient) Node() string {
	return qc.c.Node()
}

func (qc *queueClient) Initial(ctx context.Context, req *data.InitialRequest) (*data.InitialResponse, error) {
	return call[data.InitialResponse](ctx, qc, data.TopicInitial, req)
}

func (qc *queueClient) ReplayIntervals(ctx context.Context, req *data.ReplayIntervalsRequest) (*data.ReplayIntervalsResponse, error) {
	return call[data.ReplayIntervalsResponse](ctx, qc, data.TopicReplayIntervals, req)
}

func (qc *queueClient) WindowFilter(ctx context.Context, req *data.WindowFilterRequest) (*data.FilterResponse, error) {
	return call[data.FilterResponse](ctx, qc, data.TopicWindowFilter, req)
}

func (qc *queueClient) BuildJoinBloom(ctx context.Context, req *data.BuildJoinBloomRequest) (*data.BuildJoinBloomResponse, error) {
	return call[data.BuildJoinBloomResponse](ctx, qc, data.TopicBuildJoinBloom, req)
}

func (qc *queueClient) JoinFilter(ctx context.Context, req *data.JoinFilterRequest) (*data.FilterResponse, error) {
	return call[data.FilterResponse](ctx, qc, data.TopicJoinFilter, req)
}

func (qc *queueClient) PullRecords(ctx context.Context, req *data.PullRecordsRequest) (*data.PullRecordsResponse, error) {
	return call[data.PullRecordsResponse](ctx, qc, data.TopicPullRecords, req)
}

func (qc *queueClient) Release(ctx context.Context, req *data.ReleaseRequest) (*data.ReleaseResponse, error) {
	return call[data.ReleaseResponse](ctx, qc, data.TopicRelease, req)
}
