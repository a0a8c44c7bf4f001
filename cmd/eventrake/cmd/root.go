package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eventrake/eventrake/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "eventrake",
	Short: "Eventrake: an event scraping pipeline",
	Long: `Eventrake renders event listing pages in a headless browser, extracts
structured events with an LLM, enriches them from their detail pages, and
stores them in Postgres. Instagram post sources go through a dedicated
adapter chain instead of the browser.

Commands:
  scrape   Scrape one source or all due sources
  sources  Manage configured sources
  logo     Detect a source's logo with the vision model`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// A local .env is convenient in development; absence is not an error.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/eventrake")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// EVENTRAKE_DATABASE_DSN -> database.dsn
	viper.SetEnvPrefix("EVENTRAKE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("database.dsn", "EVENTRAKE_DATABASE_DSN")
	viper.BindEnv("llm.base_url", "EVENTRAKE_LLM_BASE_URL")
	viper.BindEnv("llm.api_key", "EVENTRAKE_LLM_API_KEY")
	viper.BindEnv("llm.model", "EVENTRAKE_LLM_MODEL")
	viper.BindEnv("llm.vision_model", "EVENTRAKE_LLM_VISION_MODEL")
	viper.BindEnv("browser.exec_path", "EVENTRAKE_BROWSER_EXEC_PATH")
	viper.BindEnv("browser.nav_timeout", "EVENTRAKE_BROWSER_NAV_TIMEOUT")
	viper.BindEnv("enrich.enabled", "EVENTRAKE_ENRICH_ENABLED")
	viper.BindEnv("instagram.doc_id", "EVENTRAKE_INSTAGRAM_DOC_ID")
	viper.BindEnv("scrape.lock_stale_after", "EVENTRAKE_SCRAPE_LOCK_STALE_AFTER")
	viper.BindEnv("scrape.batch_delay", "EVENTRAKE_SCRAPE_BATCH_DELAY")
	viper.BindEnv("archive.enabled", "EVENTRAKE_ARCHIVE_ENABLED")
	viper.BindEnv("archive.endpoint", "EVENTRAKE_ARCHIVE_ENDPOINT")
	viper.BindEnv("archive.bucket", "EVENTRAKE_ARCHIVE_BUCKET")
	viper.BindEnv("archive.access_key_id", "EVENTRAKE_ARCHIVE_ACCESS_KEY_ID")
	viper.BindEnv("archive.secret_access_key", "EVENTRAKE_ARCHIVE_SECRET_ACCESS_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}
}
