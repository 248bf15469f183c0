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

// Package dfilter drives the distributed filtering protocol: it builds a
// windowed filter from the replay intervals of the most selective variable
// and shrinks it round after round with the other variables before pulling
// the surviving events from every storage node.
package dfilter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/Josehokec/TemporaryCode-sub000/api/data"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/compress/zstd"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/estimate"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter/shrink"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/interval"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/logger"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/meter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/query/plan"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/timestamp"
)

const (
	// DefaultBloomFPR is the false positive rate join Bloom filters are sized for.
	DefaultBloomFPR = 0.01

	maxBuildAttempts = 10
)

// ErrNoNode is returned when the orchestrator has no storage node to talk to.
var ErrNoNode = errors.New("no storage node")

// State is a step of the protocol.
type State uint8

// The states, in the order a query walks through them. WindowFilter and
// JoinFilter repeat once per remaining variable.
const (
	StateInit State = iota
	StateBuildFirst
	StateWindowFilter
	StateJoinFilter
	StatePullRecords
	StateDone
)

var stateNames = [...]string{"init", "build_first", "window_filter", "join_filter", "pull_records", "done"}

// String implements fmt.Stringer.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Round describes one finished step of a query.
type Round struct {
	Variable    string
	Elapsed     time.Duration
	WindowCount float64
	KeyCount    int
	Survivors   int
	State       State
}

// Result is the outcome of a query.
type Result struct {
	QueryID string
	Order   []string
	Rounds  []Round
	Records []byte
	Count   int
}

// Option tunes an Orchestrator.
type Option func(*Orchestrator)

// WithSettings sets the filter encoding. The window is taken from each plan.
func WithSettings(s shrink.Settings) Option {
	return func(o *Orchestrator) {
		o.settings = s
	}
}

// WithBloomFPR sets the false positive rate of join Bloom filters.
func WithBloomFPR(fpr float64) Option {
	return func(o *Orchestrator) {
		if fpr > 0 && fpr < 1 {
			o.bloomFPR = fpr
		}
	}
}

// WithEstimator sets the column statistics used to size join Bloom filters.
func WithEstimator(e *estimate.Estimator) Option {
	return func(o *Orchestrator) {
		o.estimator = e
	}
}

// WithMeter reports round metrics to p.
func WithMeter(p meter.Provider) Option {
	return func(o *Orchestrator) {
		o.metrics = newMetrics(p)
	}
}

// WithClock times the rounds on c.
func WithClock(c timestamp.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// Orchestrator runs queries over a fixed set of storage nodes.
type Orchestrator struct {
	clock     timestamp.Clock
	estimator *estimate.Estimator
	metrics   *metrics
	l         *logger.Logger
	nodes     []NodeClient
	settings  shrink.Settings
	bloomFPR  float64
}

// New returns an orchestrator over nodes. Without WithSettings it runs in
// ultra mode.
func New(nodes []NodeClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		nodes:    nodes,
		settings: shrink.Settings{Mode: shrink.ModeUltra, LoadFactor: shrink.DefaultLoadFactor},
		bloomFPR: DefaultBloomFPR,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = timestamp.NewClock()
	}
	if o.estimator == nil {
		o.estimator = estimate.NewEstimator(nil)
	}
	if o.metrics == nil {
		o.metrics = newMetrics(nil)
	}
	o.l = logger.GetLogger("dfilter")
	return o
}

type visit struct {
	events      int
	windowCount float64
}

type query struct {
	plan     *plan.Plan
	filter   *shrink.Driver
	visited  map[string]visit
	result   *Result
	id       string
	settings shrink.Settings
	state    State
}

func (q *query) visitedSet() map[string]bool {
	vs := make(map[string]bool, len(q.visited))
	for name := range q.visited {
		vs[name] = true
	}
	return vs
}

// Run filters the events of p on every node and hands the survivors to m.
// A failure of any node fails the query.
func (o *Orchestrator) Run(ctx context.Context, p *plan.Plan, m Matcher) (*Result, error) {
	if len(o.nodes) == 0 {
		return nil, ErrNoNode
	}
	cp := *p
	if err := cp.Validate(nil); err != nil {
		return nil, err
	}
	settings := o.settings.WithWindow(cp.Window)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	q := &query{
		id:       id,
		plan:     &cp,
		settings: settings,
		visited:  make(map[string]visit, len(cp.Variables)),
		result:   &Result{QueryID: id},
	}
	defer o.release(ctx, q)

	var counts map[string]int
	err := o.step(q, StateInit, "", func() (int, error) {
		var iErr error
		counts, iErr = o.initial(ctx, q)
		return 0, iErr
	})
	if err != nil {
		return nil, err
	}
	order := cp.Order(counts)
	q.result.Order = order
	o.l.Debug().Str("query", q.id).Strs("order", order).Interface("counts", counts).Msg("processing order")

	first := order[0]
	if err = o.step(q, StateBuildFirst, first, func() (int, error) {
		return counts[first], o.buildFirst(ctx, q, first, counts[first])
	}); err != nil {
		return nil, err
	}
	for _, v := range order[1:] {
		if links := cp.EqualityLinks(v, q.visitedSet()); len(links) > 0 {
			err = o.step(q, StateJoinFilter, v, func() (int, error) {
				return o.joinFilter(ctx, q, v, links)
			})
		} else {
			err = o.step(q, StateWindowFilter, v, func() (int, error) {
				return o.windowFilter(ctx, q, v)
			})
		}
		if err != nil {
			return nil, err
		}
	}
	if err = o.step(q, StatePullRecords, "", func() (int, error) {
		return o.pullRecords(ctx, q)
	}); err != nil {
		return nil, err
	}
	if m != nil {
		if err = m.Match(ctx, q.result.Records, q.result.Count); err != nil {
			return nil, errors.WithMessagef(err, "query %s: match", q.id)
		}
	}
	q.state = StateDone
	return q.result, nil
}

// step runs one round and records its outcome.
func (o *Orchestrator) step(q *query, state State, variable string, fn func() (int, error)) error {
	q.state = state
	kind := state.String()
	sw := timestamp.StartStopwatch(o.clock)
	survivors, err := fn()
	elapsed := sw.Elapsed()
	o.metrics.latency.Observe(elapsed.Seconds(), kind)
	if err != nil {
		o.metrics.failures.Inc(1, kind)
		o.l.Error().Err(err).Str("query", q.id).Str("state", kind).Str("variable", variable).Msg("round failed")
		return errors.WithMessagef(err, "query %s: %s %s", q.id, kind, variable)
	}
	o.metrics.rounds.Inc(1, kind)
	r := Round{State: state, Variable: variable, Survivors: survivors, Elapsed: elapsed}
	if q.filter != nil {
		r.WindowCount = q.filter.WindowCount()
		r.KeyCount = q.filter.KeyCount()
		o.metrics.windowCount.Set(r.WindowCount)
		o.metrics.buckets.Set(float64(q.filter.BucketNum()))
	}
	if variable != "" {
		o.metrics.survivors.Set(float64(survivors), variable)
	}
	q.result.Rounds = append(q.result.Rounds, r)
	o.l.Debug().Str("query", q.id).Str("state", kind).Str("variable", variable).
		Int("nodes", len(o.nodes)).Float64("windows", r.WindowCount).Int("keys", r.KeyCount).
		Int("survivors", survivors).Dur("elapsed", elapsed).Msg("round done")
	return nil
}

// fanOut calls fn on every node concurrently and waits for all of them.
// Any failure fails the whole step; the failures of all nodes are reported.
func fanOut[T any](ctx context.Context, nodes []NodeClient, fn func(context.Context, NodeClient) (T, error)) ([]T, error) {
	results := make([]T, len(nodes))
	var (
		mu   sync.Mutex
		errs error
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range nodes {
		g.Go(func() error {
			r, err := fn(gctx, n)
			if err != nil {
				err = errors.WithMessagef(err, "node %s", n.Node())
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return err
			}
			results[i] = r
			return nil
		})
	}
	if g.Wait() != nil {
		return nil, errs
	}
	return results, nil
}

func (o *Orchestrator) initial(ctx context.Context, q *query) (map[string]int, error) {
	resps, err := fanOut(ctx, o.nodes, func(ctx context.Context, n NodeClient) (*data.InitialResponse, error) {
		return n.Initial(ctx, &data.InitialRequest{QueryID: q.id, Plan: q.plan})
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(q.plan.Variables))
	for _, v := range q.plan.Variables {
		counts[v.Name] = 0
	}
	for _, r := range resps {
		for name, c := range r.Counts {
			counts[name] += c
		}
	}
	return counts, nil
}

func (o *Orchestrator) buildFirst(ctx context.Context, q *query, v string, count int) error {
	resps, err := fanOut(ctx, o.nodes, func(ctx context.Context, n NodeClient) (*data.ReplayIntervalsResponse, error) {
		return n.ReplayIntervals(ctx, &data.ReplayIntervalsRequest{
			QueryID:  q.id,
			Variable: v,
			Window:   q.plan.Window,
			Position: q.plan.Position(v),
		})
	})
	if err != nil {
		return err
	}
	set := interval.NewSet()
	for i, r := range resps {
		ivs, uErr := interval.Unmarshal(r.Intervals)
		if uErr != nil {
			return errors.WithMessagef(uErr, "node %s", o.nodes[i].Node())
		}
		set.AddAll(ivs)
	}
	d, err := o.build(q.settings, set)
	if err != nil {
		return err
	}
	q.filter = d
	q.visited[v] = visit{events: count, windowCount: d.WindowCount()}
	return nil
}

// build inserts every interval of set into a new filter, doubling its size
// each time it overflows.
func (o *Orchestrator) build(s shrink.Settings, set *interval.Set) (*shrink.Driver, error) {
	ivs := set.Intervals()
	keys := max(set.WindowCount(s.Window), 1)
	for attempt := 0; attempt < maxBuildAttempts; attempt++ {
		d, err := s.NewDriver(keys)
		if err != nil {
			return nil, err
		}
		if err = insertAll(d, ivs); err == nil {
			return d, nil
		}
		if !errors.Is(err, shrink.ErrFilterFull) {
			return nil, err
		}
		o.l.Debug().Int("keys", keys).Uint64("buckets", d.BucketNum()).Msg("filter is full, resizing")
		keys *= 2
	}
	return nil, errors.Wrapf(shrink.ErrFilterFull, "%d intervals after %d attempts", len(ivs), maxBuildAttempts)
}

func insertAll(d *shrink.Driver, ivs []interval.Interval) error {
	for _, iv := range ivs {
		if err := d.Insert(iv.Start, iv.End); err != nil {
			return err
		}
	}
	return nil
}

// apply folds the node results of a filtering round into the filter.
func (o *Orchestrator) apply(q *query, v string, resps []*data.FilterResponse) (int, error) {
	results := make([][]byte, len(resps))
	filtered := 0
	for i, r := range resps {
		results[i] = r.Payload
		filtered += r.FilteredEventNum
	}
	if _, err := q.filter.Apply(results); err != nil {
		return 0, err
	}
	if q.filter.Compact() {
		o.l.Debug().Str("query", q.id).Uint64("buckets", q.filter.BucketNum()).Msg("filter compacted")
	}
	q.visited[v] = visit{events: filtered, windowCount: q.filter.WindowCount()}
	return filtered, nil
}

func (o *Orchestrator) windowFilter(ctx context.Context, q *query, v string) (int, error) {
	payload := q.filter.Marshal(nil)
	resps, err := fanOut(ctx, o.nodes, func(ctx context.Context, n NodeClient) (*data.FilterResponse, error) {
		return n.WindowFilter(ctx, &data.WindowFilterRequest{QueryID: q.id, Variable: v, Filter: payload})
	})
	if err != nil {
		return 0, err
	}
	return o.apply(q, v, resps)
}

// bloomKeys estimates how many keys of operand still survive: the key count
// at the time its variable was visited, shrunk with the window count since.
func (o *Orchestrator) bloomKeys(q *query, operand plan.Operand) int {
	vis := q.visited[operand.Variable]
	keys := o.estimator.KeyCount(operand.Column, vis.events, vis.windowCount)
	return max(estimate.RescaleKeyCount(keys, vis.windowCount, q.filter.WindowCount()), 1)
}

func (o *Orchestrator) joinFilter(ctx context.Context, q *query, v string, links []plan.DependentPredicate) (int, error) {
	payload := q.filter.Marshal(nil)
	blooms := make([]data.JoinBloom, 0, len(links))
	for _, link := range links {
		_, other := link.Sides(v)
		keyNum := o.bloomKeys(q, other)
		bits, _ := filter.BloomGeometry(keyNum, o.bloomFPR)
		resps, err := fanOut(ctx, o.nodes, func(ctx context.Context, n NodeClient) (*data.BuildJoinBloomResponse, error) {
			return n.BuildJoinBloom(ctx, &data.BuildJoinBloomRequest{
				QueryID:  q.id,
				Variable: other.Variable,
				Operand:  other,
				Filter:   payload,
				BitSize:  bits,
				KeyNum:   keyNum,
			})
		})
		if err != nil {
			return 0, err
		}
		var merged *filter.BloomFilter
		for i, r := range resps {
			bf, uErr := filter.UnmarshalBloomFilter(r.Bloom, bits, keyNum)
			if uErr != nil {
				return 0, errors.WithMessagef(uErr, "node %s", o.nodes[i].Node())
			}
			if merged == nil {
				merged = bf
				continue
			}
			if uErr = merged.Merge(bf); uErr != nil {
				return 0, errors.WithMessagef(uErr, "node %s", o.nodes[i].Node())
			}
		}
		o.l.Debug().Str("query", q.id).Str("variable", other.Variable).Str("column", other.Column).
			Int("keys", keyNum).Uint64("bits", bits).Msg("join bloom filter built")
		blooms = append(blooms, data.JoinBloom{
			Predicate: link,
			Other:     other.Variable,
			Bloom:     merged.Marshal(nil),
			BitSize:   bits,
			KeyNum:    keyNum,
		})
	}
	resps, err := fanOut(ctx, o.nodes, func(ctx context.Context, n NodeClient) (*data.FilterResponse, error) {
		return n.JoinFilter(ctx, &data.JoinFilterRequest{QueryID: q.id, Variable: v, Filter: payload, Blooms: blooms})
	})
	if err != nil {
		return 0, err
	}
	return o.apply(q, v, resps)
}

func (o *Orchestrator) pullRecords(ctx context.Context, q *query) (int, error) {
	payload := q.filter.Marshal(nil)
	resps, err := fanOut(ctx, o.nodes, func(ctx context.Context, n NodeClient) (*data.PullRecordsResponse, error) {
		return n.PullRecords(ctx, &data.PullRecordsRequest{QueryID: q.id, Filter: payload})
	})
	if err != nil {
		return 0, err
	}
	for i, r := range resps {
		if len(r.Records) > 0 {
			if q.result.Records, err = zstd.Decompress(q.result.Records, r.Records); err != nil {
				return 0, errors.Wrapf(err, "node %s: records", o.nodes[i].Node())
			}
		}
		q.result.Count += r.Count
	}
	return q.result.Count, nil
}

// release drops the sessions of q on every node. Failures are only logged.
func (o *Orchestrator) release(ctx context.Context, q *query) {
	ctx = context.WithoutCancel(ctx)
	_, err := fanOut(ctx, o.nodes, func(ctx context.Context, n NodeClient) (*data.ReleaseResponse, error) {
		return n.Release(ctx, &data.ReleaseRequest{QueryID: q.id})
	})
	if err != nil {
		o.l.Warn().Err(err).Str("query", q.id).Str("state", q.state.String()).Msg("failed to release the query")
	}
}
