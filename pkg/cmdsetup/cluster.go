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

package cmdsetup

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/banyand/datanode"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/dfilter"
	"github.com/Josehokec/TemporaryCode-sub000/banyand/queue"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/estimate"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter/shrink"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/logger"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/run"
)

var errNoDataset = errors.New("no dataset")

var (
	_ run.Config    = (*cluster)(nil)
	_ run.PreRunner = (*cluster)(nil)
	_ run.Service   = (*cluster)(nil)
)

type member struct {
	pipeline queue.Queue
	node     datanode.Service
}

// cluster runs in-process storage nodes, each holding a slice of a dataset.
type cluster struct {
	settings  *shrink.Settings
	estimator *estimate.Estimator
	schema    *event.Schema
	l         *logger.Logger
	stopCh    chan struct{}
	path      string
	members   []member
	nodes     dfilter.StaticNodes
	size      int
	cacheSize int
	once      sync.Once
}

// newCluster returns an empty cluster. Its settings must be set before PreRun.
func newCluster(estimator *estimate.Estimator) *cluster {
	return &cluster{
		estimator: estimator,
		stopCh:    make(chan struct{}),
	}
}

func (c *cluster) Name() string {
	return "cluster"
}

func (c *cluster) FlagSet() *run.FlagSet {
	fs := run.NewFlagSet("cluster")
	fs.StringVar(&c.path, "dataset", "", "the YAML file of the event table")
	fs.IntVar(&c.size, "nodes", 3, "the number of storage nodes the events are spread over")
	fs.IntVar(&c.cacheSize, "session-cache-size", datanode.DefaultSessionCacheSize, "the number of queries a node keeps state for")
	return fs
}

func (c *cluster) Validate() error {
	if c.path == "" {
		return errNoDataset
	}
	if c.size < 1 {
		return errors.Errorf("nodes %d must be positive", c.size)
	}
	return nil
}

func (c *cluster) PreRun(ctx context.Context) error {
	c.l = logger.GetLogger("cluster")
	d, err := loadDataset(c.path)
	if err != nil {
		return err
	}
	c.schema = d.schema
	for column, h := range d.histograms() {
		c.estimator.Set(column, h)
	}
	for i, rows := range d.shards(c.size) {
		name := fmt.Sprintf("node-%d", i+1)
		store, sErr := datanode.NewStore(d.schema, rows)
		if sErr != nil {
			return errors.WithMessagef(sErr, "node %s", name)
		}
		pipeline := queue.Local(name)
		node := datanode.NewService(name, pipeline, store, c.settings, datanode.WithSessionCacheSize(c.cacheSize))
		if err = node.PreRun(ctx); err != nil {
			return errors.WithMessagef(err, "node %s", name)
		}
		c.members = append(c.members, member{pipeline: pipeline, node: node})
		c.nodes = append(c.nodes, dfilter.NewNodeClient(pipeline))
		c.l.Debug().Str("node", name).Int("events", store.Len()).Msg("node is ready")
	}
	c.l.Info().Str("table", d.schema.Table()).Int("events", len(d.events)).Int("nodes", c.size).Msg("dataset loaded")
	return nil
}

// Nodes implements dfilter.NodeRegistry.
func (c *cluster) Nodes() []dfilter.NodeClient {
	return c.nodes
}

func (c *cluster) Schema() *event.Schema {
	return c.schema
}

func (c *cluster) Serve() run.StopNotify {
	for _, m := range c.members {
		m.pipeline.Serve()
		m.node.Serve()
	}
	return c.stopCh
}

func (c *cluster) GracefulStop() {
	c.once.Do(func() {
		for _, m := range c.members {
			m.node.GracefulStop()
			m.pipeline.GracefulStop()
		}
		close(c.stopCh)
	})
}
