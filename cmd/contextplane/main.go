package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/planehq/contextplane/pkg/catalog"
	"github.com/planehq/contextplane/pkg/contexts"
	"github.com/planehq/contextplane/pkg/db"
	"github.com/planehq/contextplane/pkg/db/migrations"
	"github.com/planehq/contextplane/pkg/embeddings"
	"github.com/planehq/contextplane/pkg/logger"
	"github.com/planehq/contextplane/pkg/presenter"
	"github.com/planehq/contextplane/pkg/suggest"
)

func init() {
	viper.SetEnvPrefix("CONTEXTPLANE")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.contextplane")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "contextplane",
	Short: "Skill discovery and context search for AI coding assistants",
	Long: `Contextplane suggests organizational skills relevant to a stated task,
detects new and updated skills since your last check, and searches stored
work-session context records by structured and free-text filters.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if level, err := cmd.Flags().GetString("log-level"); err == nil {
			logger.SetLogLevel(level)
		}
		if format, err := cmd.Flags().GetString("log-format"); err == nil {
			logger.SetLogFormat(format)
		}
	},
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(updatesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "command failed")
		os.Exit(1)
	}
}

// openDatabase opens the database at its default path and applies pending
// migrations.
func openDatabase(ctx context.Context) (*sqlx.DB, error) {
	dbPath, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	runner := db.NewMigrationRunner(database)
	if err := runner.Run(ctx, migrations.All()); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}

// openStores opens the shared database and wraps it with both stores. The
// caller closes the returned handle once, both stores share it.
func openStores(ctx context.Context) (*sqlx.DB, *catalog.SQLiteStore, *contexts.SQLiteStore, error) {
	database, err := openDatabase(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return database, catalog.NewSQLiteStore(database), contexts.NewSQLiteStore(database), nil
}

// newSuggestService builds the suggestion engine with thresholds from
// config when set.
func newSuggestService(skills catalog.Store) *suggest.Service {
	var opts []suggest.Option
	if viper.IsSet("suggest.threshold") {
		opts = append(opts, suggest.WithThreshold(viper.GetFloat64("suggest.threshold")))
	}
	if viper.IsSet("suggest.fallback_threshold") {
		opts = append(opts, suggest.WithFallbackThreshold(viper.GetFloat64("suggest.fallback_threshold")))
	}
	if viper.IsSet("suggest.max_suggestions") {
		opts = append(opts, suggest.WithMaxSuggestions(viper.GetInt("suggest.max_suggestions")))
	}
	return suggest.NewService(skills, newEmbeddingProvider(), opts...)
}

// newEmbeddingProvider builds the OpenAI embedding provider from config. An
// empty API key is allowed: provider calls will fail and the suggestion
// engine degrades to keyword matching.
func newEmbeddingProvider() *embeddings.OpenAIProvider {
	apiKey := viper.GetString("openai_api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	var opts []embeddings.OpenAIOption
	if baseURL := viper.GetString("openai_base_url"); baseURL != "" {
		opts = append(opts, embeddings.WithBaseURL(baseURL))
	}
	return embeddings.NewOpenAIProvider(apiKey, opts...)
}
