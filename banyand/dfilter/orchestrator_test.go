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
	"fmt"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Josehokec/TemporaryCode-sub000/banyand/datanode"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/dfilter"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/queue"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter/shrink"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/meter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/meter/prom"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/query/plan"
)

const window = 1800

var schema = func() *event.Schema {
	s, err := event.NewSchema("trades", []event.Column{
		{Name: "venue", Type: event.TypeString, Size: 4},
		{Name: "district", Type: event.TypeInt},
	})
	if err != nil {
		panic(err)
	}
	return s
}()

func row(ts int64, venue string, district int64) event.Event {
	return event.Event{Timestamp: ts, Values: []event.Value{event.Str(venue), event.Int(district)}}
}

var (
	shardA = []event.Event{row(1_000, "a", 5), row(100_000, "b", 5), row(2_100, "c", 7)}
	shardB = []event.Event{row(1_500, "b", 5), row(2_000, "c", 5), row(1_200, "z", 5)}
)

func abcPlan(joined bool) *plan.Plan {
	v := func(name, venue string) plan.Variable {
		return plan.Variable{Name: name, Predicates: []event.Predicate{{Column: "venue", Op: event.OpEQ, Value: venue}}}
	}
	p := &plan.Plan{
		Table:     "trades",
		Window:    window,
		Variables: []plan.Variable{v("A", "a"), v("B", "b"), v("C", "c")},
	}
	if joined {
		p.Dependent = []plan.DependentPredicate{{
			Op:    event.OpEQ,
			Left:  plan.Operand{Variable: "A", Column: "district"},
			Right: plan.Operand{Variable: "C", Column: "district"},
		}}
	}
	return p
}

type cluster struct {
	nodes    []dfilter.NodeClient
	settings shrink.Settings
}

// newCluster starts one in-process node per shard. The nodes are stopped
// when the test ends.
func newCluster(settings shrink.Settings, shards ...[]event.Event) *cluster {
	c := &cluster{settings: settings}
	for i, rows := range shards {
		name := fmt.Sprintf("node-%d", i+1)
		store, err := datanode.NewStore(schema, rows)
		Expect(err).NotTo(HaveOccurred())
		q := queue.Local(name)
		svc := datanode.NewService(name, q, store, &c.settings)
		Expect(svc.PreRun(context.Background())).To(Succeed())
		c.nodes = append(c.nodes, dfilter.NewNodeClient(q))
		DeferCleanup(func() {
			svc.GracefulStop()
			q.GracefulStop()
		})
	}
	return c
}

func timestamps(events []event.Event) []int64 {
	ts := make([]int64, len(events))
	for i, ev := range events {
		ts[i] = ev.Timestamp
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

var allSettings = []shrink.Settings{
	{Mode: shrink.ModeUltra, LoadFactor: shrink.DefaultLoadFactor},
	{Mode: shrink.ModeBasic, Layout: filter.Layout12x10x10, LoadFactor: shrink.DefaultLoadFactor},
	{Mode: shrink.ModeBasic, Layout: filter.Layout16x8x8, LoadFactor: shrink.DefaultLoadFactor},
}

var _ = Describe("Orchestrator", func() {
	for _, settings := range allSettings {
		Context(string(settings.Mode)+" "+settings.Layout.String(), func() {
			It("prunes the events outside every window", func() {
				c := newCluster(settings, shardA, shardB)
				o := dfilter.New(c.nodes, dfilter.WithSettings(settings))
				collector := dfilter.NewRecordCollector(schema)
				result, err := o.Run(context.Background(), abcPlan(false), collector)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.QueryID).NotTo(BeEmpty())
				Expect(result.Order).To(Equal([]string{"A", "B", "C"}))
				Expect(timestamps(collector.Events())).To(Equal([]int64{1_000, 1_500, 2_000, 2_100}))
				Expect(result.Count).To(Equal(4))

				states := make([]dfilter.State, 0, len(result.Rounds))
				for _, r := range result.Rounds {
					states = append(states, r.State)
				}
				Expect(states).To(Equal([]dfilter.State{
					dfilter.StateInit, dfilter.StateBuildFirst,
					dfilter.StateWindowFilter, dfilter.StateWindowFilter,
					dfilter.StatePullRecords,
				}))
				Expect(result.Rounds[2].Variable).To(Equal("B"))
				Expect(result.Rounds[2].Survivors).To(Equal(1))
			})

			It("joins on equal districts", func() {
				for _, shards := range [][][]event.Event{{shardA, shardB}, {shardB, shardA}} {
					c := newCluster(settings, shards...)
					o := dfilter.New(c.nodes, dfilter.WithSettings(settings))
					collector := dfilter.NewRecordCollector(schema)
					result, err := o.Run(context.Background(), abcPlan(true), collector)
					Expect(err).NotTo(HaveOccurred())
					Expect(timestamps(collector.Events())).To(Equal([]int64{1_000, 1_500, 2_000}))
					last := result.Rounds[len(result.Rounds)-2]
					Expect(last.State).To(Equal(dfilter.StateJoinFilter))
					Expect(last.Variable).To(Equal("C"))
					Expect(last.Survivors).To(Equal(1))
				}
			})

			It("returns nothing when a variable has no candidate", func() {
				c := newCluster(settings, shardA, shardB)
				p := abcPlan(true)
				p.Variables[1].Predicates[0].Value = "q"
				o := dfilter.New(c.nodes, dfilter.WithSettings(settings))
				result, err := o.Run(context.Background(), p, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Order[0]).To(Equal("B"))
				Expect(result.Count).To(BeZero())
				Expect(result.Records).To(BeEmpty())
			})
		})
	}

	It("reports rounds to the meter provider", func() {
		c := newCluster(allSettings[0], shardA, shardB)
		reg := prometheus.NewRegistry()
		p := prom.NewProvider(meter.RootScope.SubScope("dfilter"), reg)
		o := dfilter.New(c.nodes, dfilter.WithMeter(p))
		_, err := o.Run(context.Background(), abcPlan(true), nil)
		Expect(err).NotTo(HaveOccurred())
		n, err := testutil.GatherAndCount(reg, "seqf_dfilter_rounds_total")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(5))
	})

	It("rejects an invalid plan", func() {
		c := newCluster(allSettings[0], shardA)
		p := abcPlan(false)
		p.Window = 0
		_, err := dfilter.New(c.nodes).Run(context.Background(), p, nil)
		Expect(err).To(MatchError(plan.ErrInvalidPlan))
	})

	It("needs a node", func() {
		_, err := dfilter.New(nil).Run(context.Background(), abcPlan(false), nil)
		Expect(err).To(MatchError(dfilter.ErrNoNode))
	})
})
