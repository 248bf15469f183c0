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

// Package zstd compresses the record batches shipped by the storage nodes.
package zstd

import (
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// DefaultLevel trades ratio for speed on the query path.
const DefaultLevel = 1

var (
	decoder *zstd.Decoder

	mu       sync.Mutex
	encoders atomic.Pointer[map[int]*zstd.Encoder]
)

func init() {
	encoders.Store(&map[int]*zstd.Encoder{})
	var err error
	if decoder, err = zstd.NewReader(nil); err != nil {
		panic(errors.Wrap(err, "create zstd reader"))
	}
}

// Decompress appends the decompressed src to dst.
func Decompress(dst, src []byte) ([]byte, error) {
	out, err := decoder.DecodeAll(src, dst)
	if err != nil {
		return dst, errors.Wrap(err, "zstd")
	}
	return out, nil
}

// Compress appends the compressed src to dst.
func Compress(dst, src []byte, level int) []byte {
	return encoder(level).EncodeAll(src, dst)
}

func encoder(level int) *zstd.Encoder {
	if e := (*encoders.Load())[level]; e != nil {
		return e
	}
	mu.Lock()
	defer mu.Unlock()
	current := *encoders.Load()
	if e := current[level]; e != nil {
		return e
	}
	e, err := zstd.NewWriter(nil,
		zstd.WithEncoderCRC(false),
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		panic(errors.Wrapf(err, "create zstd writer at level %d", level))
	}
	next := make(map[int]*zstd.Encoder, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[level] = e
	encoders.Store(&next)
	return e
}
