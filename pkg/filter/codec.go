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

package filter

import (
	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/convert"
)

// ErrMalformedWords is returned when a word buffer does not match its declared length.
var ErrMalformedWords = errors.New("malformed word buffer")

// MarshalWords appends an int32 word count followed by every word as a big-endian int64.
func MarshalWords(dst []byte, words []uint64) []byte {
	dst = convert.AppendInt32(dst, int32(len(words)))
	for _, w := range words {
		dst = convert.AppendInt64(dst, int64(w))
	}
	return dst
}

// UnmarshalWords decodes a buffer written by MarshalWords. The buffer must be consumed exactly.
func UnmarshalWords(src []byte) ([]uint64, error) {
	if len(src) < 4 {
		return nil, errors.Wrapf(ErrMalformedWords, "header needs 4 bytes, got %d", len(src))
	}
	n := convert.BytesToInt32(src)
	if n < 0 {
		return nil, errors.Wrapf(ErrMalformedWords, "negative word count %d", n)
	}
	src = src[4:]
	if len(src) != int(n)*8 {
		return nil, errors.Wrapf(ErrMalformedWords, "want %d bytes of words, got %d", int(n)*8, len(src))
	}
	words := make([]uint64, n)
	for i := range words {
		words[i] = convert.BytesToUint64(src[i*8:])
	}
	return words, nil
}
