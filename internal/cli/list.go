package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/tbench/internal/benches"
	"github.com/roach88/tbench/internal/dut"
)

// PortInfo describes one model port.
type PortInfo struct {
	Name  string `json:"name"`
	Dir   string `json:"dir"`
	Width uint   `json:"width"`
}

// ModelInfo describes one DUT model and its bench.
type ModelInfo struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Clock           string           `json:"clock"`
	Reset           string           `json:"reset,omitempty"`
	ResetActiveHigh bool             `json:"reset_active_high"`
	Params          map[string]int64 `json:"params"`
	Ports           []PortInfo       `json:"ports"`
	// BenchParams lists the parameters the bench introspects.
	BenchParams []string `json:"bench_params,omitempty"`
	HasBench    bool     `json:"has_bench"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List DUT models and their testbenches",
		Long: `List every DUT model with its clock, reset, parameters and ports.

Examples:
  tbench list
  tbench list --verbose
  tbench list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := listModels()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to describe models", err)
			}
			out := rootOpts.formatter(cmd)
			if out.JSON() {
				return out.Success(models)
			}
			printModels(cmd.OutOrStdout(), models, rootOpts.Verbose)
			return nil
		},
	}
	return cmd
}

func listModels() ([]ModelInfo, error) {
	var models []ModelInfo
	for _, name := range dut.Names() {
		info, err := dut.Lookup(name)
		if err != nil {
			return nil, err
		}
		m, err := info.New(nil)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		mi := ModelInfo{
			Name:            info.Name,
			Description:     info.Description,
			Clock:           info.Clock,
			Reset:           info.Reset,
			ResetActiveHigh: info.ResetActiveHigh,
			Params:          m.Params(),
		}
		for _, p := range m.Ports() {
			mi.Ports = append(mi.Ports, PortInfo{Name: p.Name, Dir: p.Dir.String(), Width: p.Width})
		}
		if e, err := benches.Lookup(name); err == nil {
			mi.HasBench = true
			mi.BenchParams = e.Params
		}
		models = append(models, mi)
	}
	return models, nil
}

func printModels(w io.Writer, models []ModelInfo, verbose bool) {
	for _, m := range models {
		fmt.Fprintf(w, "%s - %s\n", m.Name, m.Description)
		reset := "none"
		if m.Reset != "" {
			polarity := "active low"
			if m.ResetActiveHigh {
				polarity = "active high"
			}
			reset = fmt.Sprintf("%s (%s)", m.Reset, polarity)
		}
		fmt.Fprintf(w, "  clock: %s  reset: %s\n", m.Clock, reset)

		names := make([]string, 0, len(m.Params))
		for n := range m.Params {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(w, "  param %s = %d\n", n, m.Params[n])
		}
		if verbose {
			for _, p := range m.Ports {
				fmt.Fprintf(w, "  port %-14s %-3s %d\n", p.Name, p.Dir, p.Width)
			}
		}
		if !m.HasBench {
			fmt.Fprintln(w, "  (no testbench)")
		}
	}
}
