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

	"github.com/Josehokec/TemporaryCode-sub000/api/data"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/dfilter"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/queue"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/bus"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter/shrink"
)

var _ = Describe("Service", func() {
	It("pins the settings given on the command line", func() {
		svc := dfilter.NewService(dfilter.StaticNodes(nil))
		Expect(svc.FlagSet().Parse([]string{"--filter-mode=basic", "--filter-layout=16/8/8", "--target-load-factor=0.8"})).To(Succeed())
		Expect(svc.Validate()).To(Succeed())
		Expect(*svc.Settings()).To(Equal(shrink.Settings{Mode: shrink.ModeBasic, Layout: filter.Layout16x8x8, LoadFactor: 0.8}))
	})

	It("reports every invalid flag", func() {
		svc := dfilter.NewService(dfilter.StaticNodes(nil))
		Expect(svc.FlagSet().Parse([]string{"--filter-mode=fancy", "--bloom-fpr=2", "--window=soon"})).To(Succeed())
		err := svc.Validate()
		Expect(err).To(MatchError(shrink.ErrInvalidMode))
		Expect(err.Error()).To(And(ContainSubstring("bloom fpr"), ContainSubstring("soon")))
	})

	It("refuses to run before PreRun", func() {
		svc := dfilter.NewService(dfilter.StaticNodes(nil))
		_, err := svc.Run(context.Background(), abcPlan(false), nil)
		Expect(err).To(HaveOccurred())
		Expect(svc.PreRun(context.Background())).To(MatchError(dfilter.ErrNoNode))
	})

	It("overrides the window of a plan", func() {
		c := newCluster(shrink.Settings{}, shardA, shardB)
		svc := dfilter.NewService(dfilter.StaticNodes(c.nodes))
		Expect(svc.FlagSet().Parse([]string{"--window=200ms"})).To(Succeed())
		Expect(svc.Validate()).To(Succeed())
		c.settings = *svc.Settings()
		Expect(svc.PreRun(context.Background())).To(Succeed())

		collector := dfilter.NewRecordCollector(schema)
		p := abcPlan(false)
		result, err := svc.Run(context.Background(), p, collector)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Window).To(Equal(int64(window)))
		Expect(result.Count).To(BeZero())
	})
})

var _ = Describe("NodeClient", func() {
	It("rejects a reply of the wrong type", func() {
		q := queue.Local("node-9")
		DeferCleanup(q.GracefulStop)
		Expect(q.Subscribe(data.TopicRelease, bus.ListenerFunc(func(_ context.Context, m bus.Message) bus.Message {
			return bus.NewMessage(m.ID(), &data.InitialResponse{})
		}))).To(Succeed())
		_, err := dfilter.NewNodeClient(q).Release(context.Background(), &data.ReleaseRequest{QueryID: "q"})
		Expect(err).To(MatchError(dfilter.ErrUnexpectedReply))
	})

	It("carries the node name", func() {
		q := queue.Local("node-9")
		DeferCleanup(q.GracefulStop)
		Expect(dfilter.NewNodeClient(q).Node()).To(Equal("node-9"))
	})
})
