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

package bit

import (
	"io"
)

// Reader reads bits MSB first from a byte slice written by Writer.
type Reader struct {
	in  []byte
	pos int
}

// NewReader creates a reader over in.
func NewReader(in []byte) *Reader {
	return &Reader{in: in}
}

// ReadBool reads a single bit.
func (r *Reader) ReadBool() (bool, error) {
	if r.pos >= len(r.in)*8 {
		return false, io.ErrUnexpectedEOF
	}
	b := r.in[r.pos/8]&(0x80>>(r.pos%8)) != 0
	r.pos++
	return b, nil
}

// ReadBits reads numBits bits into the low bits of the result.
func (r *Reader) ReadBits(numBits int) (uint64, error) {
	if numBits > 64 || r.Remaining() < numBits {
		return 0, io.ErrUnexpectedEOF
	}
	var u uint64
	for numBits > 0 {
		if r.pos%8 == 0 && numBits >= 8 {
			u = u<<8 | uint64(r.in[r.pos/8])
			r.pos += 8
			numBits -= 8
			continue
		}
		b, _ := r.ReadBool()
		u <<= 1
		if b {
			u |= 1
		}
		numBits--
	}
	return u, nil
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	return len(r.in)*8 - r.pos
}
