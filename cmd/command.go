// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/frostworks/thawd/pkg/utils"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "thawd",
	Short: "Thawd - cold-archive restore worker",
	Long: `Thawd restores users' cold-archived result files on demand.
It consumes restore-request notifications from a queue, resolves the
requesting user's archived objects, and initiates tiered Glacier retrievals
for them, recording each retrieval job against the object's record.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
