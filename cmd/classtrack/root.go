package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/attendly/classtrack/pkg/config"
	"github.com/attendly/classtrack/pkg/logging"
)

// Version is the application version.
const Version = "0.1.0"

var (
	cfg        *config.Config
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:     "classtrack",
	Short:   "Face recognition attendance for the classroom",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configFile != "" {
			cfg, err = config.Load(configFile)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
			cfg = config.DefaultConfig()
		}

		cfg.ExpandPaths()

		logLevel := cfg.Logging.Level
		if debug {
			logLevel = "debug"
		}
		if err := logging.Init(logLevel, cfg.Logging.File); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
		}

		logging.Debugf("classtrack v%s starting", Version)
		logging.Debugf("Config loaded, storage dir: %s", cfg.Storage.DataDir)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
