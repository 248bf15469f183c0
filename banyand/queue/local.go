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

// Package queue implements the data transmission queue.
package queue

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/api/common"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/bus"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/run"
)

var (
	_ bus.Publisher  = (*local)(nil)
	_ bus.Subscriber = (*local)(nil)
)

type local struct {
	local  *bus.Bus
	stopCh chan struct{}
	node   string
	once   sync.Once
}

// Local return a new local Queue delivering to node.
func Local(node string) Queue {
	return &local{
		local:  bus.NewBus(),
		stopCh: make(chan struct{}),
		node:   node,
	}
}

// GracefulStop implements Queue.
func (l *local) GracefulStop() {
	l.once.Do(func() {
		l.local.Close()
		close(l.stopCh)
	})
}

// Serve implements Queue.
func (l *local) Serve() run.StopNotify {
	return l.stopCh
}

func (l *local) Subscribe(topic bus.Topic, listener bus.MessageListener) error {
	return l.local.Subscribe(topic, listener)
}

// Publish stamps the messages with the node name before delivering them.
func (l *local) Publish(ctx context.Context, topic bus.Topic, message ...bus.Message) (bus.Future, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mm := make([]bus.Message, len(message))
	for i := range message {
		mm[i] = bus.NewMessageWithNode(message[i].ID(), l.node, message[i].Data())
	}
	f, err := l.local.Publish(ctx, topic, mm...)
	if err != nil {
		return nil, errors.WithMessagef(err, "publish to %s", l.node)
	}
	return f, nil
}

func (l *local) Node() string {
	return l.node
}

func (l *local) Name() string {
	return "local-pipeline-" + l.node
}

// Request publishes a single message to a bidirectional topic and returns the
// reply. A reply carrying a *common.Error is returned as the error.
func Request(ctx context.Context, c Client, topic bus.Topic, id bus.MessageID, req any) (any, error) {
	f, err := c.Publish(ctx, topic, bus.NewMessage(id, req))
	if err != nil {
		return nil, err
	}
	m, err := f.Get()
	if err != nil {
		return nil, errors.WithMessagef(err, "no reply from %s on %s", c.Node(), topic)
	}
	if ce, ok := m.Data().(*common.Error); ok {
		return nil, ce
	}
	return m.Data(), nil
}
