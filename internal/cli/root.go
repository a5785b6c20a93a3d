// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-dkg.
//
// go-dkg is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the dkg command tree.
func NewRootCommand() *cobra.Command {
	cfg := NewConfig()

	rootCmd := &cobra.Command{
		Use:   "dkg",
		Short: "Simplified joint key generation over polynomial secret sharing",
		Long: `dkg runs a simplified distributed key generation session.

Each participant draws a random polynomial of degree t-1 and sends every
participant one share. Participants can then be removed one at a time;
after each removal the remaining participants' summed shares are
interpolated back into the sum polynomial and its secret is reported.

The arithmetic is exact over the rationals. This is a teaching tool and
provides no cryptographic security.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "",
		"config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputFormat, "output", "o", string(OutputFormatText),
		"output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&cfg.Server, "server", "",
		"dkg-server URL; sessions run in process when empty")

	rootCmd.AddCommand(newRunCommand(cfg))
	rootCmd.AddCommand(newCombineCommand(cfg))
	rootCmd.AddCommand(newVersionCommand(cfg))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
