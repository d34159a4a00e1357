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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams(t *testing.T) {
	p := Params{
		NFactors:    32,
		NEpochs:     10,
		Reg:         float32(0.01),
		RandomState: int64(42),
	}
	assert.Equal(t, 32, p.GetInt(NFactors, 16))
	assert.Equal(t, 16, p.GetInt(InitMean, 16))
	assert.Equal(t, int64(42), p.GetInt64(RandomState, 0))
	assert.Equal(t, int64(10), p.GetInt64(NEpochs, 0))
	assert.Equal(t, float32(0.01), p.GetFloat32(Reg, 0.06))
	assert.Equal(t, float32(0.06), p.GetFloat32(Alpha, 0.06))
	// type mismatch falls back to the default
	assert.Equal(t, 16, Params{NFactors: "a"}.GetInt(NFactors, 16))
}

func TestParamsCopyOverwrite(t *testing.T) {
	p := Params{NFactors: 8, Reg: float32(0.1)}
	q := p.Copy()
	q[NFactors] = 16
	assert.Equal(t, 8, p.GetInt(NFactors, 0))
	merged := p.Overwrite(Params{NFactors: 64, NEpochs: 5})
	assert.Equal(t, 64, merged.GetInt(NFactors, 0))
	assert.Equal(t, 5, merged.GetInt(NEpochs, 0))
	assert.Equal(t, float32(0.1), merged.GetFloat32(Reg, 0))
}

func TestParamsGrid(t *testing.T) {
	grid := ParamsGrid{NFactors: {8, 16}}
	grid.Fill(ParamsGrid{NFactors: {32}, Reg: {0.01, 0.1}})
	assert.Equal(t, 2, grid.Len())
	assert.Equal(t, []interface{}{8, 16}, grid[NFactors])
	assert.Equal(t, []interface{}{0.01, 0.1}, grid[Reg])
}

func TestBaseModel(t *testing.T) {
	m := new(BaseModel)
	m.SetParams(Params{RandomState: int64(42)})
	assert.Equal(t, Params{RandomState: int64(42)}, m.GetParams())
	a := m.GetRandomGenerator().UniformVector(10, 0, 1)
	m.SetParams(Params{RandomState: int64(42)})
	b := m.GetRandomGenerator().UniformVector(10, 0, 1)
	assert.Equal(t, a, b)
}
