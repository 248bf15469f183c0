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

package datanode

import (
	"context"
	"runtime"
	"sync"

	"github.com/RoaringBitmap/roaring"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Josehokec/TemporaryCode-sub000/api/common"
	"github.com/Josehokec/TemporaryCode-sub000/api/data"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/queue"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/bus"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/compress/zstd"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter/shrink"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/interval"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/logger"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/query/plan"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/run"
)

const (
	// DefaultSessionCacheSize bounds the number of queries a node keeps state for.
	DefaultSessionCacheSize = 64
	scanChunk               = 4096
)

var (
	// ErrSessionNotFound is returned for a query that was never opened, was
	// released or was evicted.
	ErrSessionNotFound = errors.New("query session not found")
	// ErrUnknownVariable is returned for a variable missing from the plan.
	ErrUnknownVariable = errors.New("unknown variable")

	errClosed = errors.New("node is closing")
)

func errUnknownVariable(name string) error {
	return errors.Wrapf(ErrUnknownVariable, "%s", name)
}

// Service is a storage node.
type Service interface {
	run.PreRunner
	run.Service
}

var _ Service = (*node)(nil)

type node struct {
	pipeline  queue.Server
	store     *Store
	settings  *shrink.Settings
	sessions  *lru.Cache
	closer    *run.Closer
	l         *logger.Logger
	stopCh    chan struct{}
	name      string
	cacheSize int
	once      sync.Once
}

// Option tunes a node.
type Option func(*node)

// WithSessionCacheSize sets how many queries a node keeps state for.
func WithSessionCacheSize(size int) Option {
	return func(n *node) {
		if size > 0 {
			n.cacheSize = size
		}
	}
}

// NewService returns a node serving store on pipeline. The settings are read
// when the node starts, so they may be filled by a configuration unit first.
func NewService(name string, pipeline queue.Server, store *Store, settings *shrink.Settings, opts ...Option) Service {
	n := &node{
		name:      name,
		pipeline:  pipeline,
		store:     store,
		settings:  settings,
		cacheSize: DefaultSessionCacheSize,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *node) Name() string {
	return "data-node-" + n.name
}

func (n *node) PreRun(_ context.Context) error {
	n.l = logger.GetLogger("data-node", n.name)
	sessions, err := lru.NewWithEvict(n.cacheSize, func(key, _ interface{}) {
		n.l.Debug().Str("query", key.(string)).Msg("query session dropped")
	})
	if err != nil {
		return err
	}
	n.sessions = sessions
	n.closer = run.NewCloser(0)
	listeners := map[bus.Topic]bus.MessageListener{
		data.TopicInitial:         handle(n, n.initial),
		data.TopicReplayIntervals: handle(n, n.replayIntervals),
		data.TopicWindowFilter:    handle(n, n.windowFilter),
		data.TopicBuildJoinBloom:  handle(n, n.buildJoinBloom),
		data.TopicJoinFilter:      handle(n, n.joinFilter),
		data.TopicPullRecords:     handle(n, n.pullRecords),
		data.TopicRelease:         handle(n, n.release),
	}
	for _, t := range data.Topics {
		if err = n.pipeline.Subscribe(t, listeners[t]); err != nil {
			return errors.WithMessagef(err, "subscribe %s", t)
		}
	}
	return nil
}

func (n *node) Serve() run.StopNotify {
	return n.stopCh
}

// GracefulStop waits for the requests in flight, then drops every session.
func (n *node) GracefulStop() {
	n.once.Do(func() {
		if n.closer != nil {
			n.closer.CloseThenWait()
		}
		if n.sessions != nil {
			n.sessions.Purge()
		}
		close(n.stopCh)
	})
}

// handle adapts a typed request handler to a listener. Failures are replied
// as a *common.Error naming the node.
func handle[Req any, Resp any](n *node, fn func(context.Context, *Req) (*Resp, error)) bus.MessageListener {
	return bus.ListenerFunc(func(ctx context.Context, m bus.Message) bus.Message {
		if !n.closer.AddRunning() {
			return bus.NewMessage(m.ID(), common.NewNodeError(n.name, errClosed))
		}
		defer n.closer.Done()
		req, ok := m.Data().(*Req)
		if !ok {
			return bus.NewMessage(m.ID(), common.NewNodeError(n.name, errors.Errorf("unexpected payload %T", m.Data())))
		}
		resp, err := fn(ctx, req)
		if err != nil {
			n.l.Error().Err(err).Uint64("msg", uint64(m.ID())).Msg("request failed")
			return bus.NewMessage(m.ID(), common.NewNodeError(n.name, err))
		}
		return bus.NewMessage(m.ID(), resp)
	})
}

func (n *node) session(queryID string) (*session, error) {
	v, ok := n.sessions.Get(queryID)
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "query %s", queryID)
	}
	return v.(*session), nil
}

func (n *node) initial(_ context.Context, req *data.InitialRequest) (*data.InitialResponse, error) {
	if req.Plan == nil {
		return nil, errors.Wrap(plan.ErrInvalidPlan, "no plan")
	}
	p := *req.Plan
	if err := p.Validate(n.store.Schema()); err != nil {
		return nil, err
	}
	s, err := newSession(&p, *n.settings, n.store)
	if err != nil {
		return nil, err
	}
	if err = s.settings.Validate(); err != nil {
		return nil, err
	}
	n.sessions.Add(req.QueryID, s)
	counts := s.counts()
	n.l.Debug().Str("query", req.QueryID).Interface("counts", counts).Msg("session opened")
	return &data.InitialResponse{Counts: counts}, nil
}

func (n *node) replayIntervals(_ context.Context, req *data.ReplayIntervalsRequest) (*data.ReplayIntervalsResponse, error) {
	s, err := n.session(req.QueryID)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows(req.Variable)
	if err != nil {
		return nil, err
	}
	set := interval.NewSet()
	for _, row := range rows {
		set.Add(req.Position.Interval(n.store.Row(row).Timestamp, req.Window))
	}
	return &data.ReplayIntervalsResponse{Intervals: interval.Marshal(nil, set.Intervals())}, nil
}

// mark keeps the rows of variable accepted by ok whose timestamp passes the
// probe, recording their match interval as a hit.
func (n *node) mark(s *session, variable string, probe *shrink.Probe, ok func(ev event.Event) (bool, error)) error {
	rows, err := s.rows(variable)
	if err != nil {
		return err
	}
	pos := s.plan.Position(variable)
	kept := roaring.New()
	for _, row := range rows {
		ev := n.store.Row(row)
		if !probe.Query(ev.Timestamp) {
			continue
		}
		if ok != nil {
			pass, okErr := ok(ev)
			if okErr != nil {
				return okErr
			}
			if !pass {
				continue
			}
		}
		iv := pos.Interval(ev.Timestamp, s.settings.Window)
		probe.Mark(iv.Start, iv.End)
		kept.Add(row)
	}
	s.keep(variable, kept)
	return nil
}

func (n *node) windowFilter(_ context.Context, req *data.WindowFilterRequest) (*data.FilterResponse, error) {
	s, err := n.session(req.QueryID)
	if err != nil {
		return nil, err
	}
	probe, err := s.settings.OpenProbe(req.Filter)
	if err != nil {
		return nil, err
	}
	if err = n.mark(s, req.Variable, probe, nil); err != nil {
		return nil, err
	}
	return &data.FilterResponse{Payload: probe.Result(nil), FilteredEventNum: probe.Filtered()}, nil
}

func (n *node) key(ev event.Event, o plan.Operand) ([]byte, error) {
	v, err := n.store.Schema().Value(ev, o.Column)
	if err != nil {
		return nil, err
	}
	if v, err = o.Apply(v); err != nil {
		return nil, err
	}
	return v.Key(), nil
}

// buildJoinBloom scans the surviving rows in chunks on several goroutines;
// the Bloom filter takes concurrent writers.
func (n *node) buildJoinBloom(ctx context.Context, req *data.BuildJoinBloomRequest) (*data.BuildJoinBloomResponse, error) {
	s, err := n.session(req.QueryID)
	if err != nil {
		return nil, err
	}
	probe, err := s.settings.OpenProbe(req.Filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows(req.Variable)
	if err != nil {
		return nil, err
	}
	bf := filter.NewBloomFilterWithBits(req.BitSize, req.KeyNum)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < len(rows); lo += scanChunk {
		chunk := rows[lo:min(lo+scanChunk, len(rows))]
		g.Go(func() error {
			for _, row := range chunk {
				if err := gctx.Err(); err != nil {
					return err
				}
				ev := n.store.Row(row)
				if !probe.Query(ev.Timestamp) {
					continue
				}
				key, kErr := n.key(ev, req.Operand)
				if kErr != nil {
					return kErr
				}
				bf.AddWithWindow(key, shrink.WindowID(ev.Timestamp, s.settings.Window))
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return &data.BuildJoinBloomResponse{Bloom: bf.Marshal(nil)}, nil
}

type joinCheck struct {
	bf       *filter.BloomFilter
	self     plan.Operand
	neighbor int64
}

func (n *node) joinFilter(_ context.Context, req *data.JoinFilterRequest) (*data.FilterResponse, error) {
	s, err := n.session(req.QueryID)
	if err != nil {
		return nil, err
	}
	probe, err := s.settings.OpenProbe(req.Filter)
	if err != nil {
		return nil, err
	}
	checks := make([]joinCheck, 0, len(req.Blooms))
	for i, jb := range req.Blooms {
		bf, bErr := filter.UnmarshalBloomFilter(jb.Bloom, jb.BitSize, jb.KeyNum)
		if bErr != nil {
			return nil, errors.WithMessagef(bErr, "bloom filter %d", i)
		}
		if !jb.Predicate.Involves(req.Variable) {
			return nil, errors.Wrapf(ErrUnknownVariable, "bloom filter %d does not check %s", i, req.Variable)
		}
		self, _ := jb.Predicate.Sides(req.Variable)
		c := joinCheck{bf: bf, self: self, neighbor: 1}
		if s.plan.Precedes(jb.Other, req.Variable) {
			c.neighbor = -1
		}
		checks = append(checks, c)
	}
	err = n.mark(s, req.Variable, probe, func(ev event.Event) (bool, error) {
		wid := shrink.WindowID(ev.Timestamp, s.settings.Window)
		for _, c := range checks {
			key, kErr := n.key(ev, c.self)
			if kErr != nil {
				return false, kErr
			}
			if !c.bf.MightContainWithWindow(key, wid) && !c.bf.MightContainWithWindow(key, wid+c.neighbor) {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &data.FilterResponse{Payload: probe.Result(nil), FilteredEventNum: probe.Filtered()}, nil
}

func (n *node) pullRecords(_ context.Context, req *data.PullRecordsRequest) (*data.PullRecordsResponse, error) {
	s, err := n.session(req.QueryID)
	if err != nil {
		return nil, err
	}
	probe, err := s.settings.OpenProbe(req.Filter)
	if err != nil {
		return nil, err
	}
	resp := &data.PullRecordsResponse{}
	var raw []byte
	it := s.union().Iterator()
	for it.HasNext() {
		ev := n.store.Row(it.Next())
		if !probe.Query(ev.Timestamp) {
			continue
		}
		if raw, err = n.store.Schema().Append(raw, ev); err != nil {
			return nil, err
		}
		resp.Count++
	}
	if len(raw) > 0 {
		resp.Records = zstd.Compress(nil, raw, zstd.DefaultLevel)
	}
	return resp, nil
}

func (n *node) release(_ context.Context, req *data.ReleaseRequest) (*data.ReleaseResponse, error) {
	return &data.ReleaseResponse{Released: n.sessions.Remove(req.QueryID)}, nil
}
