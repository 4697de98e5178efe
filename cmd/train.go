package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jmorrell-unl/wildlife-grad/internal/gold"
	"github.com/jmorrell-unl/wildlife-grad/internal/logger"
	"github.com/jmorrell-unl/wildlife-grad/internal/model"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
	"github.com/jmorrell-unl/wildlife-grad/internal/train"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the discipline model from gold labels and decide promotion",
	Run: func(cmd *cobra.Command, _ []string) {
		runTrain(cmd)
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().Float64("min-macro-f1-improvement", 0.005, "macro F1 gain required to promote over the current model")
	trainCmd.Flags().Float64("min-accuracy-improvement", 0, "accuracy gain accepted while macro F1 holds")
	trainCmd.Flags().Float64("pseudo-weight", 0.35, "sample weight for pseudo-labeled rows")
	trainCmd.Flags().Int("max-pseudo-per-class", 300, "cap on pseudo-labeled rows per discipline")
	trainCmd.Flags().Bool("no-pseudo", false, "train on gold labels only")
	trainCmd.Flags().Bool("no-bootstrap", false, "ignore the legacy training-data export")
	trainCmd.Flags().Bool("force-promote", false, "promote the candidate regardless of validation metrics")
	trainCmd.Flags().Bool("auto-seed-from-positions", false, "seed gold labels from unambiguous high-confidence postings")
	trainCmd.Flags().Int("auto-seed-max-per-class", 3, "cap on auto-seeded labels per discipline")
	trainCmd.Flags().Float64("auto-seed-min-grad-confidence", 0.85, "graduate confidence floor for auto-seeding")
}

func runTrain(cmd *cobra.Command) {
	log0, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log0.Fatal("getting a config", zap.Error(err))
	}

	opts := train.DefaultOptions(config.ModelDir)
	opts.PositionsFile = config.PositionsFile
	opts.BootstrapFile = config.BootstrapFile
	opts.MinMacroF1Improvement, _ = cmd.Flags().GetFloat64("min-macro-f1-improvement")
	opts.MinAccuracyImprovement, _ = cmd.Flags().GetFloat64("min-accuracy-improvement")
	opts.PseudoWeight, _ = cmd.Flags().GetFloat64("pseudo-weight")
	opts.MaxPseudoPerClass, _ = cmd.Flags().GetInt("max-pseudo-per-class")
	opts.ForcePromote, _ = cmd.Flags().GetBool("force-promote")
	opts.AutoSeed, _ = cmd.Flags().GetBool("auto-seed-from-positions")
	opts.AutoSeedMaxPerClass, _ = cmd.Flags().GetInt("auto-seed-max-per-class")
	opts.AutoSeedMinGradConf, _ = cmd.Flags().GetFloat64("auto-seed-min-grad-confidence")
	if noPseudo, _ := cmd.Flags().GetBool("no-pseudo"); noPseudo {
		opts.UsePseudo = false
	}
	if noBootstrap, _ := cmd.Flags().GetBool("no-bootstrap"); noBootstrap {
		opts.UseBootstrap = false
	}

	// A missing positions file only disables pseudo-labels and auto-seeding;
	// training proceeds on the gold set alone.
	var batch []*posting.Posting
	postings, err := posting.FromFile(config.PositionsFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log0.Fatal("loading postings", zap.Error(err), zap.String("file", config.PositionsFile))
		}
		log0.Warn("positions file not found", zap.String("file", config.PositionsFile))
		opts.PositionsFile = ""
	} else {
		batch = postings.Items
	}

	store, err := gold.Load(config.GoldFile)
	if err != nil {
		log0.Fatal("loading the gold label store", zap.Error(err))
	}

	report, artifact, err := train.New(opts, log0).Run(batch, store)
	if err != nil {
		log0.Fatal("training run failed", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(pretty))

	if len(batch) == 0 {
		return
	}

	// The queue prefers the promoted model; a rejected candidate still makes
	// suggestions when nothing is promoted yet.
	queueModel := model.NewStore(model.DefaultStoreConfig(manifestPath(config)), log0)
	if !queueModel.Available() && artifact != nil {
		queueModel = model.NewStoreWithArtifact(model.DefaultStoreConfig(manifestPath(config)), artifact, log0)
	}
	if postings != nil {
		if err := rebuildQueue(config, postings, queueModel, log0); err != nil {
			log0.Fatal("rebuilding the confidence queue", zap.Error(err))
		}
	}
}
