package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/gpuscout/internal/logging"
	"github.com/ppiankov/gpuscout/internal/model"
)

const version = "gpuscout v0.1.0"

var (
	cfgFile string
	verbose bool
)

// envKeys are the scalar settings that can be set through GPUSCOUT_* variables
// even when no config file mentions them
var envKeys = []string{
	"concurrency.workers",
	"cache.enabled",
	"cache.dir",
	"http.user_agent",
	"http.respect_robots",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
	"rate_limiting.requests_per_second",
	"output.format",
	"output.min_confidence",
	"store.driver",
	"store.dsn",
	"server.addr",
	"logging.level",
	"logging.development",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gpuscout",
	Short: "gpuscout - GPU listing standardization engine",
	Long: `gpuscout turns free-text second-hand graphics card listings into
structured records: manufacturer, series, model, VRAM, board partner,
price and condition, each with quality flags and a confidence score.

It does not fetch prices on a schedule, predict values or classify
listings with machine learning. Every decision is a table lookup you
can read in the configuration.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of gpuscout.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.gpuscout/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// A missing .env is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".gpuscout"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// GPUSCOUT_STORE_DSN -> store.dsn
	viper.SetEnvPrefix("GPUSCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) (logging.Logger, error) {
	return logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
}

func banner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}
