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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jeremyhahn/go-dkg/pkg/threshold/shamir"
	"github.com/spf13/cobra"
)

func newCombineCommand(cfg *Config) *cobra.Command {
	var holders []string

	cmd := &cobra.Command{
		Use:   "combine [file]",
		Short: "Recover an escrowed joint secret",
		Long: `Recover a joint secret from escrow shares.

The input is read from the file argument or stdin and may be the JSON
output of "dkg run --escrow -o json", an escrow object, or a bare array of
shares. --holder restricts recovery to the named holders' shares.`,
		Example: `  dkg run -t 2 -p Alice,Bob,Carol -r Bob --escrow -o json | dkg combine
  dkg combine escrow.json --holder Alice --holder Carol`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cfg.Format()
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 1 {
				// #nosec G304 - path is supplied by the user
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read shares: %w", err)
			}

			escrow, err := parseEscrow(data)
			if err != nil {
				return err
			}

			shares := escrow.Shares
			if len(holders) > 0 {
				shares = make([]*shamir.Share, 0, len(holders))
				for _, name := range holders {
					share, ok := escrow.Holder(name)
					if !ok {
						return fmt.Errorf("no share held by %q", name)
					}
					shares = append(shares, share)
				}
			}

			secret, err := shamir.RecoverSecret(shares)
			if err != nil {
				return err
			}
			return NewPrinter(format, cmd.OutOrStdout()).PrintSecret(secret)
		},
	}

	cmd.Flags().StringArrayVar(&holders, "holder", nil,
		"use only this holder's share (repeatable)")
	return cmd
}

// parseEscrow accepts a run result, an escrow object or a share array.
func parseEscrow(data []byte) (*shamir.Escrow, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, shamir.ErrNoShares
	}

	if data[0] == '[' {
		var shares []*shamir.Share
		if err := json.Unmarshal(data, &shares); err != nil {
			return nil, fmt.Errorf("failed to parse shares: %w", err)
		}
		return &shamir.Escrow{Shares: shares}, nil
	}

	var result RunResult
	if err := json.Unmarshal(data, &result); err == nil && result.Escrow != nil {
		return result.Escrow, nil
	}

	var escrow shamir.Escrow
	if err := json.Unmarshal(data, &escrow); err != nil {
		return nil, fmt.Errorf("failed to parse shares: %w", err)
	}
	if len(escrow.Shares) == 0 {
		return nil, shamir.ErrNoShares
	}
	return &escrow, nil
}
