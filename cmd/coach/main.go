package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "coach",
	Short: "Portfolio Coach - daily portfolio decision pipeline",
	Long: `Portfolio Coach reads brokerage holdings and market quotes every morning,
derives allocation signals, asks an LLM for trade ideas, filters them through
a risk gate and a critic, and delivers a markdown report with ready-to-place
GTT orders.`,
}

func init() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
