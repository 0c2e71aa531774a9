// Package cmd implements the command-line interface for fblstner.
// It provides the root command and subcommands for running the monitor and
// managing delivery destinations.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Rierra/fblstner/cmd/destinations"
	"github.com/Rierra/fblstner/cmd/monitor"
	"github.com/Rierra/fblstner/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands.
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "fblstner",
		Short: "A keyword monitor with per-destination alert delivery",
		Long: `fblstner watches social search results for tracked keywords and
fans matching posts out to Telegram destinations, backfilling a bounded
batch on first encounter and delivering only new posts afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to flag parsing.
	_ = godotenv.Load()

	// Parse flags early to get the debug flag before creating the logger.
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fblstner version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(monitor.Command())
	rootCmd.AddCommand(destinations.Command())
}

// initConfig reads the config file and environment variables into viper.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// godotenv.Load is idempotent and never overwrites variables already set
	// in the environment.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env file not found: %v\n", err)
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.SetDefaults(viper.GetViper())

	// The config file is optional: environment variables and defaults cover
	// every key.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := bindEnvVars(); err != nil {
		return err
	}

	if Debug || viper.GetBool("logging.development") {
		viper.Set("logging.level", "debug")
	}
	return nil
}

// bindEnvVars maps the conventional environment variable names onto config
// keys.
func bindEnvVars() error {
	bindings := map[string][]string{
		"telegram.bot_token": {"TELEGRAM_BOT_TOKEN"},
		"redis.addr":         {"REDIS_ADDR"},
		"redis.password":     {"REDIS_PASSWORD"},
		"fetch.cookies_file": {"COOKIES_FILE"},
		"logging.level":      {"LOG_LEVEL"},
		"logging.encoding":   {"LOG_FORMAT"},
	}
	for key, envs := range bindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", envs[0], err)
		}
	}
	return nil
}
