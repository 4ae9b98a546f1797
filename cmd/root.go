package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dKV-connector/cmd/tree"
	"github.com/ValentinKolb/dKV-connector/cmd/util"
	"github.com/ValentinKolb/dKV-connector/connector"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dkvc",
		Short: "dKV connector",
		Long: fmt.Sprintf(`dkvc (v%s)

Command line client of the dKV connector. It stores a tree of containers
(trees and sets) below a project key of a dKV database and reuses one
cached connection per invocation.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
		PersistentPostRun: printMetrics,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dkvc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dkvc v%s\n", Version)
		},
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := util.LoadConfig()
			if err != nil {
				return err
			}
			fmt.Print(config.String())
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	// Add Commands
	RootCmd.AddCommand(tree.Commands...)
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "config"
	RootCmd.PersistentFlags().String(key, "", util.WrapString(fmt.Sprintf("config file to merge over the bundled default (default $%s or ~/%s/%s)", connector.ConfigEnvVar, connector.HomeConfigDir, connector.ConfigFileName)))
	key = "project"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("project key to use instead of the configured one"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("log level (debug, info, warn, error), overrides the configured one"))
	key = "embedded"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("serve an empty in-memory database in process instead of connecting to a server (for trying out commands and bench)"))
	key = "print-metrics"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("print the connector metrics when the command is done"))
}

// initLogging sets the log levels of all loggers from the flag or the config
func initLogging(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	level := viper.GetString("log-level")
	if level == "" {
		if config, err := util.LoadConfig(); err == nil {
			level = config.LogLevel
		} else {
			level = "warn"
		}
	}
	return common.InitLoggers(level)
}

// printMetrics writes the connector metrics to stdout if requested
func printMetrics(_ *cobra.Command, _ []string) {
	if viper.GetBool("print-metrics") {
		fmt.Println()
		connector.WriteMetrics(os.Stdout)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
