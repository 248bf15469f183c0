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
	"github.com/Josehokec/TemporaryCode-sub000/pkg/bus"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/run"
)

// Queue builds a data transmission tunnel between subscribers and publishers.
type Queue interface {
	Client
	Server
	run.Service
}

// Client is the interface for publishing data to the queue.
type Client interface {
	run.Unit
	bus.Publisher
	// Node returns the name of the node the queue delivers to.
	Node() string
}

// Server is the interface for receiving data from the queue.
type Server interface {
	run.Unit
	bus.Subscriber
}
