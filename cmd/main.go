package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/darkomike/bloggie-sub001/config"
)

var (
	envFile  string
	logLevel string

	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bloggie",
	Short: "Auth state cache with cross-context sync and a debug panel",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		if cfg, err = config.Load(envFile); err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		lvl, err := cfg.Level()
		if err != nil {
			return err
		}
		logrus.SetLevel(lvl)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(
		&envFile,
		"env-file", "e",
		".env",
		"dotenv file read before the environment",
	)
	rootCmd.PersistentFlags().StringVarP(
		&logLevel,
		"log-level", "l",
		"info",
		"log level (overrides BLOGGIE_LOG_LEVEL)",
	)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
