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

	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/irec-io/irec/model"
	"github.com/irec-io/irec/model/cf"
)

// Config is the configuration for the evaluation pipeline.
type Config struct {
	Data  DataConfig  `mapstructure:"data"`
	Split SplitConfig `mapstructure:"split"`
	Fit   FitConfig   `mapstructure:"fit"`
	Eval  EvalConfig  `mapstructure:"eval"`
}

// DataConfig describes the interaction log to load.
type DataConfig struct {
	Path   string `mapstructure:"path"`
	Sep    string `mapstructure:"sep"`
	Header bool   `mapstructure:"header"`
	Since  string `mapstructure:"since"` // drop interactions before this date
}

// SplitConfig describes the train/test split.
type SplitConfig struct {
	TestUsers int   `mapstructure:"test_users"` // 0 holds out one item for every user
	Seed      int64 `mapstructure:"seed"`
}

// FitConfig describes model training.
type FitConfig struct {
	Epochs     int     `mapstructure:"epochs"`
	Factors    int     `mapstructure:"factors"`
	Jobs       int     `mapstructure:"jobs"`
	Verbose    int     `mapstructure:"verbose"`
	Reg        float64 `mapstructure:"reg"`
	Alpha      float64 `mapstructure:"alpha"`
	InitStdDev float64 `mapstructure:"init_std"`
}

// EvalConfig describes the evaluation.
type EvalConfig struct {
	TopK       int `mapstructure:"top_k"`
	Candidates int `mapstructure:"n_candidates"`
}

// GetDefaultConfig returns a default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Sep: ",",
		},
		Split: SplitConfig{
			TestUsers: 0,
			Seed:      0,
		},
		Fit: FitConfig{
			Epochs:     10,
			Factors:    16,
			Jobs:       1,
			Verbose:    10,
			Reg:        0.06,
			Alpha:      0.001,
			InitStdDev: 0.1,
		},
		Eval: EvalConfig{
			TopK:       10,
			Candidates: 100,
		},
	}
}

// GetParams converts the fit section into model hyper-parameters.
func (config *Config) GetParams() model.Params {
	return model.Params{
		model.NEpochs:     config.Fit.Epochs,
		model.NFactors:    config.Fit.Factors,
		model.Reg:         float32(config.Fit.Reg),
		model.Alpha:       float32(config.Fit.Alpha),
		model.InitStdDev:  float32(config.Fit.InitStdDev),
		model.RandomState: config.Split.Seed,
	}
}

// GetFitConfig converts the fit and eval sections into a fit configuration.
func (config *Config) GetFitConfig() *cf.FitConfig {
	return cf.NewFitConfig().
		SetJobs(config.Fit.Jobs).
		SetVerbose(config.Fit.Verbose).
		SetTopK(config.Eval.TopK).
		SetCandidates(config.Eval.Candidates)
}

// Validate fails fast on configurations that would produce meaningless results.
func (config *Config) Validate() error {
	if config.Data.Sep == "" {
		return errors.NotValidf("empty `data.sep`")
	}
	if config.Split.TestUsers < 0 {
		return errors.NotValidf("`split.test_users` = %v", config.Split.TestUsers)
	}
	if config.Fit.Epochs <= 0 {
		return errors.NotValidf("`fit.epochs` = %v", config.Fit.Epochs)
	}
	if config.Fit.Factors <= 0 {
		return errors.NotValidf("`fit.factors` = %v", config.Fit.Factors)
	}
	if config.Fit.Jobs <= 0 {
		return errors.NotValidf("`fit.jobs` = %v", config.Fit.Jobs)
	}
	if config.Fit.Reg < 0 {
		return errors.NotValidf("`fit.reg` = %v", config.Fit.Reg)
	}
	if config.Fit.Alpha < 0 {
		return errors.NotValidf("`fit.alpha` = %v", config.Fit.Alpha)
	}
	if config.Eval.TopK <= 0 {
		return errors.NotValidf("`eval.top_k` = %v", config.Eval.TopK)
	}
	if config.Eval.Candidates <= 0 {
		return errors.NotValidf("`eval.n_candidates` = %v", config.Eval.Candidates)
	}
	return nil
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [data]
	viper.SetDefault("data.sep", defaultConfig.Data.Sep)
	viper.SetDefault("data.header", defaultConfig.Data.Header)
	// [split]
	viper.SetDefault("split.test_users", defaultConfig.Split.TestUsers)
	viper.SetDefault("split.seed", defaultConfig.Split.Seed)
	// [fit]
	viper.SetDefault("fit.epochs", defaultConfig.Fit.Epochs)
	viper.SetDefault("fit.factors", defaultConfig.Fit.Factors)
	viper.SetDefault("fit.jobs", defaultConfig.Fit.Jobs)
	viper.SetDefault("fit.verbose", defaultConfig.Fit.Verbose)
	viper.SetDefault("fit.reg", defaultConfig.Fit.Reg)
	viper.SetDefault("fit.alpha", defaultConfig.Fit.Alpha)
	viper.SetDefault("fit.init_std", defaultConfig.Fit.InitStdDev)
	// [eval]
	viper.SetDefault("eval.top_k", defaultConfig.Eval.TopK)
	viper.SetDefault("eval.n_candidates", defaultConfig.Eval.Candidates)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads the configuration from a TOML file. Environment variables with the
// IREC_ prefix override values from the file.
func LoadConfig(path string) (*Config, error) {
	setDefault()

	// bind environment variables
	bindings := []configBinding{
		{"data.path", "IREC_DATA_PATH"},
		{"data.sep", "IREC_DATA_SEP"},
		{"split.seed", "IREC_SPLIT_SEED"},
		{"fit.jobs", "IREC_FIT_JOBS"},
		{"eval.top_k", "IREC_EVAL_TOP_K"},
	}
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// load config file
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// ParseSep translates escaped separators from the command line, e.g. `\t`.
func ParseSep(sep string) string {
	return strings.NewReplacer(`\t`, "\t").Replace(sep)
}
