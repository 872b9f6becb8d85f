// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the concept-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/internal/secrets"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// cfg is the merged configuration (file, environment, flags).
var cfg types.Config

// rootCmd is the base command for the concept-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "concept-engine",
	Short: "Match UI concepts and patterns against observed candidates",
	Long: `concept-engine scores candidate UI elements against concept definitions
using a hybrid logit model, decides whether the best candidate is an
acceptable match, and resolves multi-concept patterns (such as a whole login
form) against one shared pool of candidates.

Documents are YAML or JSON files. Concepts and patterns can be stored in a
local library, and the engine can run as an HTTP service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("decoding config: %w", err)
		}

		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		logging.Init(level, cfg.Log.Format)

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logging.New("cli").Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./concept-engine.yaml or ~/.config/concept-engine/concept-engine.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("library-dir", "", "directory holding library.db")

	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))
	viper.BindPFlag("library.dir", pf.Lookup("library-dir"))

	viper.SetDefault("engine.top_k", types.DefaultPatternTopK)
	viper.SetDefault("engine.max_repairs", types.DefaultMaxRepairs)
	viper.SetDefault("engine.workers", 4)
	viper.SetDefault("server.addr", "0.0.0.0:8787")
	viper.SetDefault("server.rate_limit", 0)
	viper.SetDefault("server.burst", 20)
	viper.SetDefault("server.max_body_bytes", 4<<20)
	viper.SetDefault("server.api_token", "")
	viper.SetDefault("library.dir", "data")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("concept-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "concept-engine"))
		}
	}

	viper.SetEnvPrefix("CONCEPT_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// secretDefault returns fallback when set, otherwise the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
