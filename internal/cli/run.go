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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/spf13/cobra"
)

type runOptions struct {
	threshold    int
	participants []string
	coefficients []string
	removals     []string
	escrow       bool
	seed         uint64
	enforce      bool
	convention   string
}

func newRunCommand(cfg *Config) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a key generation session",
		Long: `Run a key generation session.

Missing threshold or participant flags are prompted for on stdin. Unless
--remove is given, participants to remove are then read from stdin one per
line; an empty line, "done" or end of input finalizes the session.`,
		Example: `  dkg run -t 2 -p Alice,Bob,Carol
  dkg run -t 2 -p Alice,Bob,Carol --remove Bob --escrow -o json
  dkg run -t 2 -p Alice,Bob --coefficients 3,7 --coefficients 2,5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, cfg, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.threshold, "threshold", "t", 0,
		"minimum number of participants needed to reconstruct")
	cmd.Flags().StringSliceVarP(&opts.participants, "participants", "p", nil,
		"comma separated participant names")
	cmd.Flags().StringArrayVar(&opts.coefficients, "coefficients", nil,
		"fixed coefficients for one participant, lowest degree first (repeat per participant)")
	cmd.Flags().StringArrayVarP(&opts.removals, "remove", "r", nil,
		"participant to remove instead of reading stdin (repeatable)")
	cmd.Flags().BoolVar(&opts.escrow, "escrow", false,
		"split the joint secret among the surviving participants")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0,
		"deterministic PRNG seed (0 draws a random key)")
	cmd.Flags().BoolVar(&opts.enforce, "enforce-threshold", true,
		"reject removals that leave fewer than threshold participants")
	cmd.Flags().StringVar(&opts.convention, "convention", "",
		"reported secret: constant or reference (default from config)")

	return cmd
}

func runSession(cmd *cobra.Command, cfg *Config, opts *runOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := cfg.Format()
	if err != nil {
		return err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	stdin := bufio.NewReader(cmd.InOrStdin())
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	printer := NewPrinter(format, stdout)
	errPrinter := NewPrinter(OutputFormatText, stderr)

	req, err := buildCreateRequest(cmd, opts, stdin, stderr)
	if err != nil {
		return err
	}

	driver, err := cfg.NewDriver(settings, opts.seed, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Close(context.WithoutCancel(ctx)); err != nil && cfg.Verbose {
			fmt.Fprintf(stderr, "failed to release session: %v\n", err)
		}
	}()

	id, snap, err := driver.Start(ctx, req)
	if err != nil {
		return err
	}
	result := &RunResult{Session: snap}
	if cfg.IsRemote() {
		result.SessionID = id
	}
	if err := printer.PrintDistribution(snap); err != nil {
		return err
	}

	handle := func(input string) (bool, error) {
		outcome, err := driver.Submit(ctx, input)
		if err != nil {
			_ = errPrinter.PrintError(err)
			return false, nil
		}
		if outcome.Step != nil {
			result.Steps = append(result.Steps, outcome.Step)
			return false, printer.PrintStep(outcome.Step)
		}
		result.Final = outcome.Final
		return true, printer.PrintFinal(outcome.Final)
	}

	if cmd.Flags().Changed("remove") {
		done := false
		for _, name := range opts.removals {
			if done, err = handle(name); err != nil {
				return err
			}
			if done {
				break
			}
		}
		if !done {
			if _, err := handle(dkg.FinishToken); err != nil {
				return err
			}
		}
	} else {
		for {
			fmt.Fprint(stderr, "Participant to remove (blank or \"done\" to finish): ")
			line, readErr := stdin.ReadString('\n')
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				return fmt.Errorf("failed to read input: %w", readErr)
			}
			if errors.Is(readErr, io.EOF) && strings.TrimSpace(line) == "" {
				fmt.Fprintln(stderr)
				line = dkg.FinishToken
			}
			done, err := handle(line)
			if err != nil {
				return err
			}
			if done {
				break
			}
			if errors.Is(readErr, io.EOF) {
				line = dkg.FinishToken
				if _, err := handle(line); err != nil {
					return err
				}
				break
			}
		}
	}

	if result.Final == nil {
		return fmt.Errorf("session did not finalize")
	}

	if opts.escrow {
		escrow, err := driver.Escrow(ctx)
		if err != nil {
			return fmt.Errorf("escrow failed: %w", err)
		}
		result.Escrow = escrow
		if err := printer.PrintEscrow(escrow); err != nil {
			return err
		}
	}

	return printer.PrintResult(result)
}

func buildCreateRequest(cmd *cobra.Command, opts *runOptions, stdin *bufio.Reader, prompt io.Writer) (*session.CreateRequest, error) {
	threshold := opts.threshold
	if !cmd.Flags().Changed("threshold") {
		fmt.Fprint(prompt, "Threshold: ")
		line, err := readLine(stdin)
		if err != nil {
			return nil, err
		}
		threshold, err = strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", dkg.ErrInvalidThreshold, line)
		}
	}

	participants := opts.participants
	if len(participants) == 0 {
		fmt.Fprint(prompt, "Participants (comma separated): ")
		line, err := readLine(stdin)
		if err != nil {
			return nil, err
		}
		participants = splitList(line)
	}

	req := &session.CreateRequest{
		Threshold:    threshold,
		Participants: participants,
		Convention:   opts.convention,
	}
	if cmd.Flags().Changed("enforce-threshold") {
		enforce := opts.enforce
		req.EnforceThreshold = &enforce
	}
	if len(opts.coefficients) > 0 {
		if len(opts.coefficients) != len(participants) {
			return nil, fmt.Errorf("%w: %d coefficient lists for %d participants",
				dkg.ErrInvalidPolynomial, len(opts.coefficients), len(participants))
		}
		for _, c := range opts.coefficients {
			req.Polynomials = append(req.Polynomials, splitList(c))
		}
	}
	return req, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
