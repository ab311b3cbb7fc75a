package main

import (
	"github.com/spf13/cobra"

	"github.com/sefa-b/go-bill-ledger/internal/config"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

const serviceName = "go-bill-ledger"

var (
	Version = "dev"

	configPath string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:          "billsd",
	Version:      Version,
	Short:        "Bill ledger service",
	Long:         "billsd records bills against users and income or expense transactions and serves them over HTTP.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(migrateCmd)
	RootCmd.AddCommand(seedCmd)
}

// loadConfig loads the configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	utils.InitLogger(cfg.Environment, serviceName, cfg.LogLevel)
	return cfg, nil
}
