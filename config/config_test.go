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

package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/irec-io/irec/model"
)

func TestSetDefault(t *testing.T) {
	setDefault()
	viper.SetConfigType("toml")
	err := viper.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), &config)
}

func TestUnmarshal(t *testing.T) {
	setDefault()
	viper.SetConfigType("toml")
	err := viper.ReadConfig(strings.NewReader(`
[data]
path = "ratings.csv"
sep = "::"
header = true
since = "2024-01-01"

[split]
test_users = 100
seed = 42

[fit]
epochs = 20
factors = 32
jobs = 4

[eval]
top_k = 5
`))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)
	// [data]
	assert.Equal(t, "ratings.csv", config.Data.Path)
	assert.Equal(t, "::", config.Data.Sep)
	assert.True(t, config.Data.Header)
	assert.Equal(t, "2024-01-01", config.Data.Since)
	// [split]
	assert.Equal(t, 100, config.Split.TestUsers)
	assert.Equal(t, int64(42), config.Split.Seed)
	// [fit]
	assert.Equal(t, 20, config.Fit.Epochs)
	assert.Equal(t, 32, config.Fit.Factors)
	assert.Equal(t, 4, config.Fit.Jobs)
	assert.Equal(t, 0.06, config.Fit.Reg)
	// [eval]
	assert.Equal(t, 5, config.Eval.TopK)
	assert.Equal(t, 100, config.Eval.Candidates)
	assert.NoError(t, config.Validate())
}

func TestValidate(t *testing.T) {
	config := GetDefaultConfig()
	assert.NoError(t, config.Validate())
	config.Eval.TopK = 0
	assert.Error(t, config.Validate())
	config = GetDefaultConfig()
	config.Fit.Epochs = -1
	assert.Error(t, config.Validate())
	config = GetDefaultConfig()
	config.Data.Sep = ""
	assert.Error(t, config.Validate())
}

func TestGetParams(t *testing.T) {
	config := GetDefaultConfig()
	config.Fit.Factors = 32
	config.Split.Seed = 42
	params := config.GetParams()
	assert.Equal(t, 32, params.GetInt(model.NFactors, 0))
	assert.Equal(t, int64(42), params.GetInt64(model.RandomState, 0))
	assert.Equal(t, float32(0.06), params.GetFloat32(model.Reg, 0))
}

func TestGetFitConfig(t *testing.T) {
	config := GetDefaultConfig()
	config.Fit.Jobs = 4
	config.Eval.TopK = 5
	config.Eval.Candidates = 7
	fitConfig := config.GetFitConfig()
	assert.Equal(t, 4, fitConfig.Jobs)
	assert.Equal(t, 5, fitConfig.TopK)
	assert.Equal(t, 7, fitConfig.Candidates)
}

func TestParseSep(t *testing.T) {
	assert.Equal(t, "\t", ParseSep(`\t`))
	assert.Equal(t, ",", ParseSep(","))
}
