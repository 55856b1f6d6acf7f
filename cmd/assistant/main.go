package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/campus-assistant/internal/config"
	"github.com/kailas-cloud/campus-assistant/internal/version"
)

var envName string

var rootCmd = &cobra.Command{
	Use:           "assistant",
	Short:         "Conversational FAQ assistant for a school campus tour",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(),
		"Config environment; reads config/<env>.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(refreshVocabCmd)
	rootCmd.AddCommand(ensureIndexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
