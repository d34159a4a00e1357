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
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/irec-io/irec/base/log"
)

// LoadCSV loads interactions from a CSV file. The file should be:
//
//	[optional header]
//	<userId 1> <sep> <itemId 1> [<sep> <value 1> [<sep> <timestamp 1>]]
//	<userId 2> <sep> <itemId 2> [<sep> <value 2> [<sep> <timestamp 2>]]
//	...
//
// For example, the `u.data` from MovieLens 100K is:
//
//	196\t242\t3\t881250949
//	186\t302\t3\t891717742
//	22\t377\t1\t878887116
//
// A missing value column defaults to 1. Rows whose timestamp parses to a moment
// before `since` are dropped; pass the zero time to keep everything. Duplicate
// (user, item) pairs accumulate their values.
func LoadCSV(path, sep string, hasHeader bool, since time.Time) (*Dataset, error) {
	d := NewDataset()
	// Open file
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	// Read CSV file
	skipped := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore header
		if hasHeader {
			hasHeader = false
			continue
		}
		fields := strings.Split(line, sep)
		// Ignore empty line
		if len(fields) < 2 {
			continue
		}
		value := float32(1)
		if len(fields) > 2 {
			v, err := strconv.ParseFloat(fields[2], 32)
			if err != nil {
				skipped++
				continue
			}
			value = float32(v)
		}
		if len(fields) > 3 && !since.IsZero() {
			timestamp, err := dateparse.ParseAny(fields[3])
			if err != nil {
				skipped++
				continue
			}
			if timestamp.Before(since) {
				skipped++
				continue
			}
		}
		d.AddFeedback(fields[0], fields[1], value)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load csv",
		zap.String("path", path),
		zap.Int("users", d.Users()),
		zap.Int("items", d.Items()),
		zap.Int("feedback", d.Count()),
		zap.Int("skipped", skipped),
		zap.Int("max_row", lo.Max(append(d.RowCounts(), 0))))
	return d, nil
}
