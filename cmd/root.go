package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hh-interviewer"
)

type Config struct {
	AI          *AIConfig         `mapstructure:"ai"`
	Evaluation  *EvaluationConfig `mapstructure:"evaluation"`
	Storage     *StorageConfig    `mapstructure:"storage"`
	CatalogFile string            `mapstructure:"catalog-file"`
	MetricsAddr string            `mapstructure:"metrics-addr"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string   `mapstructure:"api-key-file"`
	Model        string   `mapstructure:"model"`
	MaxRetries   int      `mapstructure:"max-retries"`
	MaxLogLength int      `mapstructure:"max-log-length"`
	Temperature  *float32 `mapstructure:"temperature"`
}

type EvaluationConfig struct {
	CallTimeout        time.Duration `mapstructure:"call-timeout"`
	MaxConcurrentCalls int64         `mapstructure:"max-concurrent-calls"`
}

type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite-path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-interviewer runs adaptive technical interviews and scores the answers with an LLM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("evaluation.call-timeout", "30s")
	viper.SetDefault("evaluation.max-concurrent-calls", 6)
	viper.SetDefault("storage.driver", "memory")
	viper.SetDefault("storage.sqlite-path", app+".db")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every setting has a default, so only an explicit or unparseable config is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Evaluation == nil {
		config.Evaluation = &EvaluationConfig{}
	}
	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}

	return config, nil
}
