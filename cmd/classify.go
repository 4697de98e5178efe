package cmd

import (
	"log"
	"path/filepath"

	"github.com/jmorrell-unl/wildlife-grad/internal/classify"
	"github.com/jmorrell-unl/wildlife-grad/internal/logger"
	"github.com/jmorrell-unl/wildlife-grad/internal/model"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
	"github.com/jmorrell-unl/wildlife-grad/internal/queue"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify scraped postings and rebuild the review queue",
	Run: func(cmd *cobra.Command, _ []string) {
		runClassify(cmd)
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringP("input", "i", "", "positions file to classify (default from config)")
	classifyCmd.Flags().Bool("from-capture", false, "classify pending postings from the capture database instead of a file")
	classifyCmd.Flags().Bool("no-queue", false, "skip rebuilding the confidence queue")
}

func runClassify(cmd *cobra.Command) {
	log0, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log0.Fatal("getting a config", zap.Error(err))
	}

	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		input = config.PositionsFile
	}
	fromCapture, _ := cmd.Flags().GetBool("from-capture")
	noQueue, _ := cmd.Flags().GetBool("no-queue")

	capture, err := posting.OpenCaptureStore(config.CaptureDB)
	if err != nil {
		log0.Fatal("opening the capture database", zap.Error(err))
	}
	defer capture.Close()

	var postings *posting.Postings
	if fromCapture {
		postings, err = capture.LoadByStatus("pending")
		if err != nil {
			log0.Fatal("loading pending postings", zap.Error(err))
		}
	} else {
		postings, err = posting.FromFile(input)
		if err != nil {
			log0.Fatal("loading postings", zap.Error(err), zap.String("file", input))
		}
	}
	if postings.Len() == 0 {
		log0.Info("nothing to classify")
		return
	}

	promoted := model.NewStore(model.DefaultStoreConfig(manifestPath(config)), log0)
	pipeline := classify.NewPipeline(classify.DefaultConfig(), promoted, log0)
	stats := pipeline.Run(postings)

	log0.Info("classification finished",
		zap.Int("postings", stats.Total),
		zap.Int("graduate", stats.Graduate),
		zap.Int("left_other", stats.LeftOther),
		zap.Any("resolved_by", stats.ResolvedBy),
	)

	if !fromCapture {
		if err := postings.ToFile(input); err != nil {
			log0.Fatal("writing classified postings", zap.Error(err), zap.String("file", input))
		}
	}
	saved, err := capture.SaveClassified(postings)
	if err != nil {
		log0.Fatal("saving classified postings to the capture database", zap.Error(err))
	}
	log0.Debug("capture database updated", zap.Int("saved", saved))

	if noQueue {
		return
	}
	if err := rebuildQueue(config, postings, promoted, log0); err != nil {
		log0.Fatal("rebuilding the confidence queue", zap.Error(err))
	}
}

func manifestPath(config *Config) string {
	return filepath.Join(config.ModelDir, "manifest.json")
}

// rebuildQueue regenerates both queue files over the graduate postings.
func rebuildQueue(config *Config, postings *posting.Postings, store *model.Store, log0 *zap.Logger) error {
	var graduates []*posting.Posting
	for _, p := range postings.Items {
		if p.IsGraduatePosition {
			graduates = append(graduates, p)
		}
	}

	items := queue.Build(queue.DefaultConfig(), graduates, store)
	if err := queue.WriteJSON(config.QueueJSON, items); err != nil {
		return err
	}
	if err := queue.WriteCSV(config.QueueCSV, items); err != nil {
		return err
	}

	log0.Info("confidence queue rebuilt",
		zap.Int("items", len(items)),
		zap.String("json", config.QueueJSON),
		zap.String("csv", config.QueueCSV),
	)
	return nil
}
