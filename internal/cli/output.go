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
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/jeremyhahn/go-dkg/pkg/threshold/shamir"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// OutputFormatText is human-readable, printed as the session progresses
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is a single JSON document printed at the end
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates an output format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputFormatText, OutputFormatJSON:
		return f, nil
	case "":
		return OutputFormatText, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new printer with the specified format
func NewPrinter(format OutputFormat, writer io.Writer) *Printer {
	return &Printer{
		format: format,
		writer: writer,
	}
}

// RunResult collects a complete session for JSON output.
type RunResult struct {
	SessionID string            `json:"session_id,omitempty"`
	Session   *dkg.Snapshot     `json:"session"`
	Steps     []*dkg.StepReport `json:"steps"`
	Final     *dkg.FinalReport  `json:"final,omitempty"`
	Escrow    *shamir.Escrow    `json:"escrow,omitempty"`
}

// PrintDistribution prints each participant's polynomial and the shares
// it sent out.
func (p *Printer) PrintDistribution(snap *dkg.Snapshot) error {
	if p.format == OutputFormatJSON {
		return nil
	}
	enforced := "enforced"
	if !snap.Enforced {
		enforced = "not enforced"
	}
	fmt.Fprintf(p.writer, "Threshold %d of %d participants (threshold %s, %s secret)\n",
		snap.Threshold, snap.Total, enforced, snap.Convention)
	for _, v := range snap.Participants {
		fmt.Fprintf(p.writer, "%s's polynomial: %s\n", v.Name, v.Expression)
		shares := make([]string, len(v.Shares))
		for i, s := range v.Shares {
			shares[i] = s.String()
		}
		fmt.Fprintf(p.writer, "  Shares: %s\n", strings.Join(shares, " "))
	}
	fmt.Fprintln(p.writer)
	return nil
}

// PrintStep prints the sum points and reconstruction after a removal.
func (p *Printer) PrintStep(step *dkg.StepReport) error {
	if p.format == OutputFormatJSON {
		return nil
	}
	fmt.Fprintf(p.writer, "Removed %s. Active: %s\n", step.Removed, strings.Join(step.Active, ", "))
	p.printReconstruction(&step.Reconstruction)
	if step.BelowThreshold {
		fmt.Fprintln(p.writer, "Warning: fewer than threshold participants remain; the reconstruction may not match the true sum")
	}
	fmt.Fprintf(p.writer, "Current secret: %s\n\n", step.Secret.RatString())
	return nil
}

// PrintFinal prints the final sum polynomial and joint secret.
func (p *Printer) PrintFinal(final *dkg.FinalReport) error {
	if p.format == OutputFormatJSON {
		return nil
	}
	if final.Recomputed {
		p.printReconstruction(&final.Reconstruction)
	}
	fmt.Fprintf(p.writer, "Final sum polynomial: %s\n", final.Polynomial)
	if len(final.Removed) > 0 {
		fmt.Fprintf(p.writer, "Removed: %s\n", strings.Join(final.Removed, ", "))
	}
	fmt.Fprintf(p.writer, "Joint secret: %s\n", final.Secret.RatString())
	return nil
}

func (p *Printer) printReconstruction(rec *dkg.Reconstruction) {
	for _, pt := range rec.Points {
		fmt.Fprintf(p.writer, "  %s's point on the sum polynomial: %s\n", pt.Holder, pt)
	}
	fmt.Fprintf(p.writer, "Reconstructed polynomial: %s\n", rec.Polynomial)
}

// PrintEscrow prints escrow shares one per line.
func (p *Printer) PrintEscrow(escrow *shamir.Escrow) error {
	if p.format == OutputFormatJSON {
		return nil
	}
	fmt.Fprintf(p.writer, "\nEscrow: any %d of %d shares recover the joint secret\n",
		escrow.Threshold, len(escrow.Shares))
	for _, s := range escrow.Shares {
		fmt.Fprintf(p.writer, "  %s: %s\n", s.Holder(), s.Value)
	}
	return nil
}

// PrintResult prints the collected JSON document. Text output has already
// been written incrementally.
func (p *Printer) PrintResult(result *RunResult) error {
	if p.format != OutputFormatJSON {
		return nil
	}
	if result.Steps == nil {
		result.Steps = []*dkg.StepReport{}
	}
	return p.printJSON(result)
}

// PrintSecret prints a recovered secret.
func (p *Printer) PrintSecret(secret *big.Rat) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]string{"secret": secret.RatString()})
	}
	fmt.Fprintf(p.writer, "Recovered secret: %s\n", secret.RatString())
	return nil
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	}
	fmt.Fprintf(p.writer, "Error: %v\n", err)
	return nil
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
