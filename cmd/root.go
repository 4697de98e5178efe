package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "wildlife-grad"
)

// Config is the file-backed configuration. Every path has a working default,
// so the cli runs without a config file in a standard data layout.
type Config struct {
	PositionsFile string `mapstructure:"positions-file"`
	CaptureDB     string `mapstructure:"capture-db"`
	GoldFile      string `mapstructure:"gold-file"`
	BootstrapFile string `mapstructure:"bootstrap-file"`
	ModelDir      string `mapstructure:"model-dir"`
	QueueJSON     string `mapstructure:"queue-json"`
	QueueCSV      string `mapstructure:"queue-csv"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "wildlife-grad classifies wildlife job postings and manages the discipline model lifecycle",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is wildlife-grad.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	viper.SetDefault("positions-file", "data/processed/verified_graduate_assistantships.json")
	viper.SetDefault("capture-db", "data/capture/postings.db")
	viper.SetDefault("gold-file", "data/processed/discipline_labels_gold.json")
	viper.SetDefault("bootstrap-file", "data/ml_training_data.json")
	viper.SetDefault("model-dir", "data/models/discipline")
	viper.SetDefault("queue-json", "data/processed/discipline_confidence_queue.json")
	viper.SetDefault("queue-csv", "data/processed/discipline_confidence_queue.csv")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// The config file is optional; defaults cover the standard layout. A
	// present but unparsable file is still fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
