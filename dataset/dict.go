// Copyright 2024 irec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"encoding/binary"
	"io"

	"github.com/juju/errors"

	"github.com/irec-io/irec/base"
	"github.com/irec-io/irec/base/encoding"
)

// FreqDict maps string ids to dense indices. Indices are assigned in first-seen order,
// which fixes the row and column ordering of every matrix built on top of it.
type FreqDict struct {
	si  map[string]int32
	is  []string
	cnt []int32
}

func NewFreqDict() (d *FreqDict) {
	d = &FreqDict{map[string]int32{}, []string{}, []int32{}}
	return
}

func (d *FreqDict) Count() int {
	return len(d.is)
}

// Id returns the index of s, inserting it if unseen, and bumps its frequency.
func (d *FreqDict) Id(s string) (y int32) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y
	}

	y = int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return
}

// Lookup returns the index of s without inserting. Returns base.NotId if unseen.
func (d *FreqDict) Lookup(s string) int32 {
	if y, ok := d.si[s]; ok {
		return y
	}
	return base.NotId
}

func (d *FreqDict) String(id int32) (s string, ok bool) {
	if int(id) >= len(d.is) || id < 0 {
		return "", false
	}
	return d.is[id], true
}

func (d *FreqDict) Freq(id int32) int32 {
	if int(id) >= len(d.cnt) || id < 0 {
		return 0
	}
	return d.cnt[id]
}

// Marshal writes the dictionary to byte stream.
func (d *FreqDict) Marshal(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(d.is))); err != nil {
		return errors.Trace(err)
	}
	for i, s := range d.is {
		if err := encoding.WriteString(w, s); err != nil {
			return errors.Trace(err)
		}
		if err := binary.Write(w, binary.LittleEndian, d.cnt[i]); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Unmarshal reads the dictionary from byte stream.
func (d *FreqDict) Unmarshal(r io.Reader) error {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return errors.Trace(err)
	}
	d.si = make(map[string]int32, n)
	d.is = make([]string, 0, n)
	d.cnt = make([]int32, 0, n)
	for i := int32(0); i < n; i++ {
		s, err := encoding.ReadString(r)
		if err != nil {
			return errors.Trace(err)
		}
		var cnt int32
		if err := binary.Read(r, binary.LittleEndian, &cnt); err != nil {
			return errors.Trace(err)
		}
		d.si[s] = int32(len(d.is))
		d.is = append(d.is, s)
		d.cnt = append(d.cnt, cnt)
	}
	return nil
}
