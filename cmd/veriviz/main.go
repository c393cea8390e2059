// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the veriviz CLI. veriviz researches a
// topic with a web-grounded model, structures the findings into a chart
// and summary for a chosen audience, and illustrates the report.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/veriviz/internal/logging"
	"github.com/pdiddy/veriviz/internal/secrets"
	"github.com/pdiddy/veriviz/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration, filled before any command runs.
	cfg types.Config

	// logger is the shared logger, built from cfg.Log.
	logger *logrus.Logger

	// closeLog releases the log file, if any.
	closeLog = func() error { return nil }

	// loadedSecrets holds values read from .secrets/ at startup.
	loadedSecrets map[string]string
)

// flagKeys maps each command's flags to the config keys they override.
var flagKeys = map[*cobra.Command]map[string]string{}

// bindFlag records that flag on cmd overrides the config key.
func bindFlag(cmd *cobra.Command, flag, key string) {
	if flagKeys[cmd] == nil {
		flagKeys[cmd] = map[string]string{}
	}
	flagKeys[cmd][flag] = key
}

// rootCmd is the base command for the veriviz CLI.
var rootCmd = &cobra.Command{
	Use:   "veriviz",
	Short: "Grounded research reports with charts and illustrations",
	Long: `veriviz turns a topic into a short visual report. It runs three stages
against the Gemini API: grounded web research, structuring into a summary
and chart data for the chosen audience, and an illustration.

Research and structuring failures stop the run. A failed illustration does
not: the report is still written, without an image.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for flag, key := range flagKeys[cmd] {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return fmt.Errorf("binding flag %s: %w", flag, err)
			}
		}

		c, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = c

		l, closer, err := logging.New(cfg.Log.Level, cfg.Log.File, os.Stderr)
		if err != nil {
			return err
		}
		logger, closeLog = l, closer
		if f := viper.ConfigFileUsed(); f != "" {
			logger.WithField("file", f).Debug("using config file")
		}

		s, err := secrets.Load(secrets.DefaultDir, logger)
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
			logger.WithField("keys", strings.Join(keys, ",")).Debug("loaded secrets")
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./veriviz.yaml or ~/.config/veriviz/veriviz.yaml)")
	rootCmd.PersistentFlags().String("api-key", "", "Gemini API key (default: .secrets/gemini-api-key, $GEMINI_API_KEY, $GOOGLE_API_KEY)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("ai.api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("veriviz")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "veriviz"))
		}
	}

	setupViper(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

// setupViper registers defaults and the VERIVIZ_ environment mapping.
// Every key gets a default so AutomaticEnv can see it.
func setupViper(v *viper.Viper) {
	d := types.DefaultConfig()
	defaults := map[string]any{
		"ai.api_key":             d.AI.APIKey,
		"ai.base_url":            d.AI.BaseURL,
		"ai.requests_per_minute": d.AI.RequestsPerMinute,
		"research.model":         d.Research.Model,
		"research.reasoning":     d.Research.Reasoning,
		"structuring.model":      d.Structuring.Model,
		"image.model":            d.Image.Model,
		"image.aspect_ratio":     d.Image.AspectRatio,
		"pipeline.run_timeout":   d.Pipeline.RunTimeout,
		"pipeline.concurrency":   d.Pipeline.Concurrency,
		"output.dir":             d.Output.Dir,
		"output.format":          string(d.Output.Format),
		"log.level":              d.Log.Level,
		"log.file":               d.Log.File,
		"serve.addr":             d.Serve.Addr,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("VERIVIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig decodes v into a Config and checks the values that would
// otherwise fail late.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	switch c.Output.Format {
	case types.OutputMarkdown, types.OutputJSON, types.OutputYAML, types.OutputCSL:
	default:
		return c, fmt.Errorf("invalid output.format %q (want markdown, json, yaml or csl)", c.Output.Format)
	}
	if c.Pipeline.Concurrency < 1 {
		return c, fmt.Errorf("pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency)
	}
	if c.Pipeline.RunTimeout < 0 {
		return c, fmt.Errorf("pipeline.run_timeout must not be negative")
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
