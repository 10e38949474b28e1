package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/xiaonanln/protopatch/engine/config"
	"github.com/xiaonanln/protopatch/engine/gwlog"
)

var args struct {
	configFile string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "patchctl",
	Short: "Validate and apply prototype patch files",
	Long:  "patchctl loads prototype definitions, applies the patch files of the [patch] config section to them and records the outcome in the ledger.",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		config.SetConfigFile(args.configFile)
		config.Reload()
		setupGWLog()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&args.configFile, "config", "c", "protopatch.ini", "config file path")
	rootCmd.PersistentFlags().StringVar(&args.logLevel, "log-level", "", "override [log].level")
}

func setupGWLog() {
	logCfg := config.GetLog()
	level := logCfg.Level
	if args.logLevel != "" {
		level = args.logLevel
	}
	gwlog.SetSource("patchctl")
	gwlog.SetLevel(gwlog.ParseLevel(level))

	var outputs []string
	if logCfg.Stderr {
		outputs = append(outputs, "stderr")
	}
	if logCfg.File != "" {
		outputs = append(outputs, logCfg.File)
	}
	if len(outputs) > 0 {
		gwlog.SetOutput(outputs)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	gwlog.Sync()
}
