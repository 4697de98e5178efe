package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/jmorrell-unl/wildlife-grad/internal/gold"
	"github.com/jmorrell-unl/wildlife-grad/internal/logger"
	"github.com/jmorrell-unl/wildlife-grad/internal/review"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var importReviewsCmd = &cobra.Command{
	Use:   "import-reviews [reviewed-queue.csv]",
	Short: "Import a reviewed confidence queue into the gold label store",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runImportReviews(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(importReviewsCmd)

	importReviewsCmd.Flags().Bool("dry-run", false, "report what would be imported without touching the gold store")
}

func runImportReviews(cmd *cobra.Command, args []string) {
	log0, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log0.Fatal("getting a config", zap.Error(err))
	}

	input := config.QueueCSV
	if len(args) == 1 {
		input = args[0]
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	rows, err := review.ReadCSV(input)
	if err != nil {
		log0.Fatal("reading the reviewed queue", zap.Error(err), zap.String("file", input))
	}

	store, err := gold.Load(config.GoldFile)
	if err != nil {
		log0.Fatal("loading the gold label store", zap.Error(err))
	}

	summary, err := review.NewImporter(log0).Apply(rows, store, dryRun)
	if err != nil {
		log0.Fatal("applying reviews", zap.Error(err))
	}
	for _, warning := range summary.Warnings {
		log0.Warn("review row skipped", zap.String("cause", warning))
	}

	pretty, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(pretty))
}
