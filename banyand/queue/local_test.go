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

package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Josehokec/TemporaryCode-sub000/api/common"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/bus"
)

var topicEcho = bus.BiTopic("echo")

func TestLocal_Request(t *testing.T) {
	q := Local("node-1")
	defer q.GracefulStop()
	require.NoError(t, q.Subscribe(topicEcho, bus.ListenerFunc(func(_ context.Context, m bus.Message) bus.Message {
		if m.Data() == "boom" {
			return bus.NewMessage(m.ID(), common.NewNodeError(m.Node(), errors.New("boom")))
		}
		return bus.NewMessage(m.ID(), m.Node()+":"+m.Data().(string))
	})))

	reply, err := Request(context.Background(), q, topicEcho, 1, "ping")
	require.NoError(t, err)
	assert.Equal(t, "node-1:ping", reply)

	_, err = Request(context.Background(), q, topicEcho, 2, "boom")
	var ce *common.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "node-1", ce.Node())
	assert.Equal(t, "node-1: boom", err.Error())
}

func TestLocal_Stop(t *testing.T) {
	q := Local("node-1")
	notify := q.Serve()
	q.GracefulStop()
	q.GracefulStop()
	<-notify
	_, err := q.Publish(context.Background(), topicEcho, bus.NewMessage(1, nil))
	assert.ErrorIs(t, err, bus.ErrClosed)
}

func TestLocal_CanceledContext(t *testing.T) {
	q := Local("node-1")
	defer q.GracefulStop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Publish(ctx, topicEcho, bus.NewMessage(1, nil))
	assert.ErrorIs(t, err, context.Canceled)
}
