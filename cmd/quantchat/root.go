package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "quantchat",
	Short:        "Quantitative investment chat service",
	Long:         "quantchat serves a conversational assistant for investment analysis,\nstrategy design and risk assessment, backed by OpenAI-compatible models\nand Tushare market data.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; environment overrides still apply without it
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug level)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAskCommand())
}
