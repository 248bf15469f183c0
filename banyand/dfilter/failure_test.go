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

package dfilter_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"go.uber.org/mock/gomock"

	"github.com/Josehokec/TemporaryCode-sub000/api/common"
	"github.com/Josehokec/TemporaryCode-sub000/api/data"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/dfilter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/interval"
)

var _ = Describe("Node failures", func() {
	var (
		ctrl  *gomock.Controller
		good  *dfilter.MockNodeClient
		bad   *dfilter.MockNodeClient
		nodes []dfilter.NodeClient
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		good = dfilter.NewMockNodeClient(ctrl)
		bad = dfilter.NewMockNodeClient(ctrl)
		good.EXPECT().Node().Return("node-1").AnyTimes()
		bad.EXPECT().Node().Return("node-2").AnyTimes()
		nodes = []dfilter.NodeClient{good, bad}
	})

	expectRelease := func() {
		for _, n := range []*dfilter.MockNodeClient{good, bad} {
			n.EXPECT().Release(gomock.Any(), gomock.Any()).Return(&data.ReleaseResponse{Released: true}, nil).Times(1)
		}
	}

	It("fails the query when a node fails the initial round", func() {
		expectRelease()
		good.EXPECT().Initial(gomock.Any(), gomock.Any()).Return(&data.InitialResponse{Counts: map[string]int{"A": 1}}, nil).AnyTimes()
		bad.EXPECT().Initial(gomock.Any(), gomock.Any()).Return(nil, common.NewNodeError("node-2", errors.New("disk is gone")))

		_, err := dfilter.New(nodes).Run(context.Background(), abcPlan(false), nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("node node-2"))
		Expect(err.Error()).To(ContainSubstring("init"))
		var ce *common.Error
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Node()).To(Equal("node-2"))
	})

	It("fails the query on malformed replay intervals", func() {
		expectRelease()
		for _, n := range []*dfilter.MockNodeClient{good, bad} {
			n.EXPECT().Initial(gomock.Any(), gomock.Any()).Return(&data.InitialResponse{Counts: map[string]int{"A": 1, "B": 3, "C": 3}}, nil)
		}
		good.EXPECT().ReplayIntervals(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *data.ReplayIntervalsRequest) (*data.ReplayIntervalsResponse, error) {
				Expect(req.Variable).To(Equal("A"))
				return &data.ReplayIntervalsResponse{Intervals: interval.Marshal(nil, []interval.Interval{{Start: 0, End: window}})}, nil
			})
		bad.EXPECT().ReplayIntervals(gomock.Any(), gomock.Any()).Return(&data.ReplayIntervalsResponse{Intervals: []byte{1}}, nil)

		_, err := dfilter.New(nodes).Run(context.Background(), abcPlan(false), nil)
		Expect(err).To(MatchError(interval.ErrMalformed))
		Expect(err.Error()).To(ContainSubstring("node node-2"))
	})

	It("ignores release failures", func() {
		n := dfilter.NewMockNodeClient(ctrl)
		n.EXPECT().Node().Return("node-3").AnyTimes()
		n.EXPECT().Initial(gomock.Any(), gomock.Any()).Return(&data.InitialResponse{Counts: map[string]int{"A": 0, "B": 0, "C": 0}}, nil)
		n.EXPECT().ReplayIntervals(gomock.Any(), gomock.Any()).Return(&data.ReplayIntervalsResponse{Intervals: interval.Marshal(nil, nil)}, nil)
		n.EXPECT().WindowFilter(gomock.Any(), gomock.Any()).Return(nil, errors.New("lost")).Times(1)
		n.EXPECT().Release(gomock.Any(), gomock.Any()).Return(nil, errors.New("lost"))

		_, err := dfilter.New([]dfilter.NodeClient{n}).Run(context.Background(), abcPlan(false), nil)
		Expect(err).To(MatchError(ContainSubstring("window_filter B")))
		Expect(err.Error()).To(ContainSubstring("lost"))
	})

	It("fails the query on a corrupted record batch", func() {
		c := newCluster(allSettings[0], shardA, shardB)
		c.nodes[1] = garbledRecords{NodeClient: c.nodes[1]}
		_, err := dfilter.New(c.nodes, dfilter.WithSettings(allSettings[0])).
			Run(context.Background(), abcPlan(false), dfilter.NewRecordCollector(schema))
		Expect(err).To(MatchError(ContainSubstring("pull_records")))
		Expect(err.Error()).To(ContainSubstring("node node-2: records"))
	})
})

// garbledRecords replaces the record batch of a node with bytes that are not a zstd frame.
type garbledRecords struct {
	dfilter.NodeClient
}

func (g garbledRecords) PullRecords(ctx context.Context, req *data.PullRecordsRequest) (*data.PullRecordsResponse, error) {
	resp, err := g.NodeClient.PullRecords(ctx, req)
	if err != nil {
		return nil, err
	}
	return &data.PullRecordsResponse{Records: []byte("garbled"), Count: resp.Count}, nil
}
