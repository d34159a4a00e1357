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

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/irec-io/irec/base"
	"github.com/irec-io/irec/base/log"
	"github.com/irec-io/irec/config"
	"github.com/irec-io/irec/dataset"
	"github.com/irec-io/irec/eval"
	"github.com/irec-io/irec/model/cf"
)

// Version is set by the build.
var Version = "development"

var rootCmd = &cobra.Command{
	Use:   "irec",
	Short: "Evaluate implicit-feedback recommendations with ranking metrics.",
	Run: func(cmd *cobra.Command, args []string) {
		// show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(Version)
			return
		}

		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)

		// load config
		var conf *config.Config
		var err error
		if cmd.PersistentFlags().Changed("config") {
			configPath, _ := cmd.PersistentFlags().GetString("config")
			log.Logger().Info("load config", zap.String("config", configPath))
			conf, err = config.LoadConfig(configPath)
			if err != nil {
				log.Logger().Fatal("failed to load config", zap.Error(err))
			}
		} else {
			conf = config.GetDefaultConfig()
		}
		overwriteConfig(cmd, conf)
		if err = conf.Validate(); err != nil {
			log.Logger().Fatal("invalid config", zap.Error(err))
		}
		if conf.Data.Path == "" {
			log.Logger().Fatal("no interaction log, set --load-csv or `data.path`")
		}

		// load interactions
		var since time.Time
		if conf.Data.Since != "" {
			if since, err = dateparse.ParseAny(conf.Data.Since); err != nil {
				log.Logger().Fatal("failed to parse date", zap.String("since", conf.Data.Since), zap.Error(err))
			}
		}
		data, err := dataset.LoadCSV(conf.Data.Path, config.ParseSep(conf.Data.Sep), conf.Data.Header, since)
		if err != nil {
			log.Logger().Fatal("failed to load interactions", zap.Error(err))
		}

		// split
		trainSet, testSet := data.Split(conf.Split.TestUsers, conf.Split.Seed)

		// fit or load model
		als := cf.NewALS(conf.GetParams())
		if cmd.PersistentFlags().Changed("load-model") {
			modelPath, _ := cmd.PersistentFlags().GetString("load-model")
			if err = loadModel(als, modelPath); err != nil {
				log.Logger().Fatal("failed to load model", zap.String("path", modelPath), zap.Error(err))
			}
			log.Logger().Info("load model", zap.String("path", modelPath))
		} else {
			als.Fit(trainSet, testSet, conf.GetFitConfig())
		}
		if cmd.PersistentFlags().Changed("save-model") {
			modelPath, _ := cmd.PersistentFlags().GetString("save-model")
			if err = saveModel(als, modelPath); err != nil {
				log.Logger().Fatal("failed to save model", zap.String("path", modelPath), zap.Error(err))
			}
			log.Logger().Info("save model", zap.String("path", modelPath))
		}

		// recommend
		topK := conf.Eval.TopK
		predictions, err := als.Recommend(trainSet, topK, conf.Fit.Jobs)
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}

		// evaluate
		users := lo.Map(base.RangeInt(testSet.Users()), func(userIndex int, _ int) string {
			userId, _ := testSet.UserIndex.String(int32(userIndex))
			return userId
		})
		if err = eval.ValidateAlignment(testSet, users); err != nil {
			log.Logger().Fatal("misaligned prediction rows", zap.Error(err))
		}
		precision, recall, err := eval.Evaluate(testSet, predictions, topK, conf.Fit.Jobs)
		if err != nil {
			log.Logger().Fatal("failed to evaluate", zap.Error(err))
		}
		meanAP, meanNDCG, err := eval.EvaluateRank(testSet, predictions, topK, conf.Fit.Jobs)
		if err != nil {
			log.Logger().Fatal("failed to evaluate", zap.Error(err))
		}

		// render table
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Metric", fmt.Sprintf("@%d", topK))
		for _, row := range [][]string{
			{"Precision", fmt.Sprintf("%.6f", precision)},
			{"Recall", fmt.Sprintf("%.6f", recall)},
			{"MAP", fmt.Sprintf("%.6f", meanAP)},
			{"NDCG", fmt.Sprintf("%.6f", meanNDCG)},
		} {
			if err = table.Append(row); err != nil {
				log.Logger().Fatal("failed to render table", zap.Error(err))
			}
		}
		if err = table.Render(); err != nil {
			log.Logger().Fatal("failed to render table", zap.Error(err))
		}
	},
}

// overwriteConfig overrides config values by command line flags.
func overwriteConfig(cmd *cobra.Command, conf *config.Config) {
	flags := cmd.PersistentFlags()
	if flags.Changed("load-csv") {
		conf.Data.Path, _ = flags.GetString("load-csv")
	}
	if flags.Changed("csv-sep") {
		conf.Data.Sep, _ = flags.GetString("csv-sep")
	}
	if flags.Changed("csv-header") {
		conf.Data.Header, _ = flags.GetBool("csv-header")
	}
	if flags.Changed("since") {
		conf.Data.Since, _ = flags.GetString("since")
	}
	if flags.Changed("test-users") {
		conf.Split.TestUsers, _ = flags.GetInt("test-users")
	}
	if flags.Changed("seed") {
		conf.Split.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("epochs") {
		conf.Fit.Epochs, _ = flags.GetInt("epochs")
	}
	if flags.Changed("factors") {
		conf.Fit.Factors, _ = flags.GetInt("factors")
	}
	if flags.Changed("jobs") {
		conf.Fit.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("reg") {
		conf.Fit.Reg, _ = flags.GetFloat64("reg")
	}
	if flags.Changed("alpha") {
		conf.Fit.Alpha, _ = flags.GetFloat64("alpha")
	}
	if flags.Changed("top") {
		conf.Eval.TopK, _ = flags.GetInt("top")
	}
}

func saveModel(m cf.MatrixFactorization, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Marshal(f)
}

func loadModel(m cf.MatrixFactorization, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Unmarshal(f)
}

func init() {
	log.AddFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "irec version")
	rootCmd.PersistentFlags().StringP("config", "c", "", "configuration file path")
	// data loader
	rootCmd.PersistentFlags().String("load-csv", "", "load interactions from CSV file")
	rootCmd.PersistentFlags().String("csv-sep", ",", "load CSV file with separator")
	rootCmd.PersistentFlags().Bool("csv-header", false, "load CSV file with header")
	rootCmd.PersistentFlags().String("since", "", "drop interactions before this date")
	// splitter
	rootCmd.PersistentFlags().Int("test-users", 0, "number of users with held-out interactions, 0 holds out for all users")
	rootCmd.PersistentFlags().Int64("seed", 0, "random seed of the split")
	// hyper-parameters
	rootCmd.PersistentFlags().Int("epochs", 10, "number of training epochs")
	rootCmd.PersistentFlags().Int("factors", 16, "number of latent factors")
	rootCmd.PersistentFlags().Float64("reg", 0.06, "strength of regularization")
	rootCmd.PersistentFlags().Float64("alpha", 0.001, "weight of negative samples")
	// evaluator
	rootCmd.PersistentFlags().Int("top", 10, "evaluate top N recommendations")
	rootCmd.PersistentFlags().Int("jobs", 1, "number of parallel jobs")
	// model persistence
	rootCmd.PersistentFlags().String("load-model", "", "load model from file instead of fitting")
	rootCmd.PersistentFlags().String("save-model", "", "save fitted model to file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
