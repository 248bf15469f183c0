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

// Package convert implements helpers to convert numbers to and from big-endian bytes.
package convert

import (
	"encoding/binary"
	"math"
)

// Int64ToBytes encodes i as 8 big-endian bytes.
func Int64ToBytes(i int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(i))
	return buf
}

// BytesToInt64 decodes 8 big-endian bytes.
func BytesToInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// Uint64ToBytes encodes u as 8 big-endian bytes.
func Uint64ToBytes(u uint64) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, u)
	return bs
}

// BytesToUint64 decodes 8 big-endian bytes.
func BytesToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// AppendInt32 appends i as 4 big-endian bytes.
func AppendInt32(dst []byte, i int32) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(i))
}

// AppendInt64 appends i as 8 big-endian bytes.
func AppendInt64(dst []byte, i int64) []byte {
	return binary.BigEndian.AppendUint64(dst, uint64(i))
}

// BytesToInt32 decodes 4 big-endian bytes.
func BytesToInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

// Float64ToBytes encodes the IEEE 754 bits of f.
func Float64ToBytes(f float64) []byte {
	return Uint64ToBytes(math.Float64bits(f))
}

// BytesToFloat64 decodes bytes written by Float64ToBytes.
func BytesToFloat64(b []byte) float64 {
	return math.Float64frombits(BytesToUint64(b))
}
