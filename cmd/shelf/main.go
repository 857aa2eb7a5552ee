package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/shelf/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "shelf",
	Short:   "Authenticated item storage API",
	Long: `Shelf serves a small JSON API for per-user items. Requests are
authenticated with bearer tokens issued by Amazon Cognito or signed with
a shared HMAC key, and items are kept in one of several storage backends.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("config", nil, "config file path, repeat to merge (default: ./config.yaml)")
	flags.String("db-type", "", "database type: sqlite, postgres, dynamodb, redis, s3, file (env: SHELF_DATABASE_TYPE)")
	flags.String("db-dsn", "", "database connection string, bucket or directory (env: SHELF_DATABASE_DSN)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env: SHELF_LOG_LEVEL)")
	flags.String("log-format", "", "log format: text, json (env: SHELF_LOG_FORMAT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
