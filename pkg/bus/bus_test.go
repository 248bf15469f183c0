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

package bus

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PubAndSub(t *testing.T) {
	type message struct {
		topic      Topic
		messageIDS []MessageID
		wantRet    []MessageID
		wantErr    bool
	}
	type listener struct {
		wantTopic    Topic
		wantMessages []MessageID
		wantErr      bool
	}
	tests := []struct {
		name      string
		messages  []message
		listeners []listener
	}{
		{
			name: "golden path",
			messages: []message{
				{
					topic:      BiTopic("default"),
					messageIDS: []MessageID{12, 33},
					wantRet:    []MessageID{112, 133},
				},
			},
			listeners: []listener{
				{
					wantTopic:    BiTopic("default"),
					wantMessages: []MessageID{12, 33},
				},
			},
		},
		{
			name: "two topics with two listeners",
			messages: []message{
				{
					topic:      UniTopic("t1"),
					messageIDS: []MessageID{12, 33},
				},
				{
					topic:      UniTopic("t2"),
					messageIDS: []MessageID{101, 102},
				},
			},
			listeners: []listener{
				{wantTopic: UniTopic("t1"), wantMessages: []MessageID{12, 33}},
				{wantTopic: UniTopic("t1"), wantMessages: []MessageID{12, 33}},
				{wantTopic: UniTopic("t2"), wantMessages: []MessageID{101, 102}},
			},
		},
		{
			name: "bidirectional replies of every listener",
			messages: []message{
				{
					topic:      BiTopic("both"),
					messageIDS: []MessageID{1},
					wantRet:    []MessageID{101, 101},
				},
			},
			listeners: []listener{
				{wantTopic: BiTopic("both"), wantMessages: []MessageID{1}},
				{wantTopic: BiTopic("both"), wantMessages: []MessageID{1}},
			},
		},
		{
			name: "publish invalid topic",
			messages: []message{
				{topic: UniTopic(""), messageIDS: []MessageID{12, 33}, wantErr: true},
			},
		},
		{
			name: "publish to a topic nobody listens to",
			messages: []message{
				{topic: BiTopic("nobody"), messageIDS: []MessageID{1}, wantErr: true},
			},
		},
		{
			name: "subscribe invalid topic",
			listeners: []listener{
				{wantTopic: UniTopic(""), wantErr: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewBus()
			mll := make([]*mockListener, 0, len(tt.listeners))
			for _, l := range tt.listeners {
				ml := &mockListener{}
				mll = append(mll, ml)
				err := e.Subscribe(l.wantTopic, ml)
				if l.wantErr {
					assert.Error(t, err)
					continue
				}
				require.NoError(t, err)
			}
			for _, m := range tt.messages {
				mm := make([]Message, 0, len(m.messageIDS))
				for _, id := range m.messageIDS {
					mm = append(mm, NewMessage(id, nil))
				}
				f, err := e.Publish(context.Background(), m.topic, mm...)
				if m.wantErr {
					assert.Error(t, err)
					continue
				}
				require.NoError(t, err)
				ret, err := f.GetAll()
				if len(m.wantRet) == 0 {
					assert.ErrorIs(t, err, errEmptyFuture)
					continue
				}
				require.NoError(t, err)
				ids := make([]MessageID, 0, len(ret))
				for i := range ret {
					ids = append(ids, ret[i].ID())
				}
				assert.Equal(t, m.wantRet, sortMessage(ids))
			}
			for i, l := range tt.listeners {
				if l.wantErr {
					continue
				}
				assert.Equal(t, l.wantMessages, mll[i].received())
			}
		})
	}
}

func TestBus_FutureGet(t *testing.T) {
	e := NewBus()
	require.NoError(t, e.Subscribe(BiTopic("echo"), ListenerFunc(func(_ context.Context, m Message) Message {
		return NewMessageWithNode(m.ID(), "node-1", m.Data())
	})))
	f, err := e.Publish(context.Background(), BiTopic("echo"), NewMessage(7, "payload"))
	require.NoError(t, err)
	m, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "payload", m.Data())
	assert.Equal(t, "node-1", m.Node())
	_, err = f.Get()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBus_Close(t *testing.T) {
	e := NewBus()
	require.NoError(t, e.Subscribe(UniTopic("t"), &mockListener{}))
	e.Close()
	_, err := e.Publish(context.Background(), UniTopic("t"), NewMessage(1, nil))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, e.Subscribe(UniTopic("t"), &mockListener{}), ErrClosed)
}

var _ MessageListener = new(mockListener)

type mockListener struct {
	queue []MessageID
	mu    sync.Mutex
}

func (m *mockListener) Rev(_ context.Context, message Message) Message {
	m.mu.Lock()
	m.queue = append(m.queue, message.id)
	m.mu.Unlock()
	return NewMessage(message.id+100, nil)
}

func (m *mockListener) received() []MessageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortMessage(append([]MessageID(nil), m.queue...))
}

func sortMessage(ids []MessageID) []MessageID {
	sort.SliceStable(ids, func(i, j int) bool {
		return uint64(ids[i]) < uint64(ids[j])
	})
	return ids
}
