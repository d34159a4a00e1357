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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedback.csv")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTempCSV(t, "user_id,item_id,count,timestamp\n"+
		"u1,i1,2,2024-01-02\n"+
		"u1,i2,1,2024-01-03\n"+
		"u2,i1,1,2024-01-04\n")
	d, err := LoadCSV(path, ",", true, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, 2, d.Users())
	assert.Equal(t, 2, d.Items())
	assert.Equal(t, 3, d.Count())
	assert.Equal(t, []float32{2, 1}, d.UserValues[0])
}

func TestLoadCSV_NoValueColumn(t *testing.T) {
	path := writeTempCSV(t, "u1\ti1\nu1\ti1\nu2\ti2\n")
	d, err := LoadCSV(path, "\t", false, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, 2, d.Count())
	assert.Equal(t, []float32{2}, d.UserValues[0])
}

func TestLoadCSV_Since(t *testing.T) {
	path := writeTempCSV(t, "u1,i1,1,2023-12-31\nu1,i2,1,2024-01-02\n")
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d, err := LoadCSV(path, ",", false, since)
	assert.NoError(t, err)
	assert.Equal(t, 1, d.Count())
	assert.Equal(t, int32(0), d.ItemIndex.Lookup("i2"))
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV("no/such/file.csv", ",", false, time.Time{})
	assert.Error(t, err)
}
