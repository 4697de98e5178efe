package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jmorrell-unl/wildlife-grad/internal/gold"
	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/logger"
	"github.com/jmorrell-unl/wildlife-grad/internal/queue"
	"github.com/jmorrell-unl/wildlife-grad/internal/review"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptAcceptModel = "Accept model suggestion"
	PromptKeepFinal   = "Keep final label"
	PromptOverride    = "Set another discipline"
	PromptSkip        = "Skip"
	PromptQuit        = "Quit and save"
)

var errExit = errors.New("exit requested")

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Walk the confidence queue interactively and record decisions",
	Run: func(cmd *cobra.Command, _ []string) {
		runReview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().String("reviewer", "", "reviewer name recorded on imported labels")
	reviewCmd.Flags().Int("limit", 0, "review at most this many items (0 reviews everything)")
}

func runReview(cmd *cobra.Command) {
	log0, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log0.Fatal("getting a config", zap.Error(err))
	}

	reviewer, _ := cmd.Flags().GetString("reviewer")
	limit, _ := cmd.Flags().GetInt("limit")

	items, err := queue.ReadJSON(config.QueueJSON)
	if err != nil {
		log0.Fatal("loading the confidence queue", zap.Error(err), zap.String("file", config.QueueJSON))
	}
	if len(items) == 0 {
		log0.Info("confidence queue is empty")
		return
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	rows, err := walkQueue(items, reviewer)
	if err != nil && !errors.Is(err, errExit) {
		log0.Fatal("reviewing the queue", zap.Error(err))
	}
	if len(rows) == 0 {
		log0.Info("no decisions recorded")
		return
	}

	store, err := gold.Load(config.GoldFile)
	if err != nil {
		log0.Fatal("loading the gold label store", zap.Error(err))
	}
	summary, err := review.NewImporter(log0).Apply(rows, store, false)
	if err != nil {
		log0.Fatal("saving decisions", zap.Error(err))
	}
	log0.Info("review session saved",
		zap.Int("decided", summary.Imported),
		zap.Int("skipped", summary.Skipped),
	)
}

// walkQueue prompts for one decision per item. Quit keeps everything decided
// so far.
func walkQueue(items []queue.Item, reviewer string) ([]review.Row, error) {
	var rows []review.Row
	for i, item := range items {
		fmt.Printf("\n[%d/%d] %s\n", i+1, len(items), logger.TruncateForLog(item.Title, 100))
		fmt.Printf("  organization: %s\n", item.Organization)
		fmt.Printf("  final: %s  model: %s (conf %.2f, margin %.2f)\n",
			item.DisciplineFinal, item.DisciplineModelSuggested, item.ModelConfidence, item.ModelMargin)
		fmt.Printf("  reasons: %s\n", strings.Join(item.Reasons, ", "))

		choices := []string{PromptKeepFinal, PromptOverride, PromptSkip, PromptQuit}
		if item.DisciplineModelSuggested != "" && item.DisciplineModelSuggested != lexicon.Other {
			choices = append([]string{PromptAcceptModel}, choices...)
		}
		_, choice, err := (&promptui.Select{Label: "Decision", Items: choices}).Run()
		if err != nil {
			return rows, err
		}

		row := review.Row{
			PositionKey:     item.PositionKey,
			Title:           item.Title,
			Organization:    item.Organization,
			URL:             item.URL,
			DisciplineFinal: item.DisciplineFinal,
			ModelSuggested:  item.DisciplineModelSuggested,
			Reviewer:        reviewer,
		}
		switch choice {
		case PromptAcceptModel:
			row.ReviewStatus = review.StatusAcceptModel
		case PromptKeepFinal:
			row.ReviewStatus = review.StatusKeepFinal
		case PromptOverride:
			discipline, err := pickDiscipline()
			if err != nil {
				return rows, err
			}
			row.ReviewStatus = review.StatusOverride
			row.ReviewedDiscipline = discipline
		case PromptSkip:
			continue
		case PromptQuit:
			return rows, errExit
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func pickDiscipline() (string, error) {
	_, choice, err := (&promptui.Select{Label: "Discipline", Items: lexicon.Disciplines}).Run()
	return choice, err
}
