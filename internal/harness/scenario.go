package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

// Scenario describes one testbench run: which DUT to build, how to clock
// and reset it, what to drive, what to expect and what to assert afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// DUT is the model kind, e.g. "timer".
	DUT string `yaml:"dut"`

	// Params overrides the model's parameter defaults.
	Params map[string]int64 `yaml:"params,omitempty"`

	Clock *ClockConfig `yaml:"clock,omitempty"`
	Reset *ResetConfig `yaml:"reset,omitempty"`

	// Strict defaults to true.
	Strict *bool `yaml:"strict,omitempty"`

	// Timeout is the absolute simulated time limit passed to WaitEnd.
	Timeout Timeout `yaml:"timeout"`

	// AssignParams lists extra parameters to introspect beyond the ones the
	// bench reads itself.
	AssignParams []string `yaml:"assign_params,omitempty"`

	// Drivers and Monitors load explicit queues, keyed by driver or
	// monitor name. They cannot be combined with Generate.
	Drivers  map[string][]ItemRow   `yaml:"drivers,omitempty"`
	Monitors map[string][]ExpectRow `yaml:"monitors,omitempty"`

	// Generate lets the bench produce random stimulus and the reference
	// expectations.
	Generate *Generate `yaml:"generate,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ClockConfig overrides the bench's clock binding.
type ClockConfig struct {
	// Signal defaults to the model's clock port.
	Signal string `yaml:"signal,omitempty"`
	Period int64  `yaml:"period,omitempty"`
	Unit   string `yaml:"unit,omitempty"`
}

// ResetConfig overrides the bench's reset binding.
type ResetConfig struct {
	// Signal defaults to the model's reset port.
	Signal     string `yaml:"signal,omitempty"`
	ActiveHigh *bool  `yaml:"active_high,omitempty"`
}

// Timeout is a time value with a unit.
type Timeout struct {
	Value int64  `yaml:"value"`
	Unit  string `yaml:"unit,omitempty"`
}

// Duration converts t to simulated time. The unit defaults to ns.
func (t Timeout) Duration() (sim.Time, error) {
	u, err := sim.ParseUnit(orDefault(t.Unit, string(sim.NS)))
	if err != nil {
		return 0, err
	}
	return sim.Duration(t.Value, u)
}

// Generate asks the bench for random stimulus.
type Generate struct {
	Batches int    `yaml:"batches"`
	Seed    uint64 `yaml:"seed,omitempty"`
}

// ItemRow is one driver item. A scalar is shorthand for a one-value row.
type ItemRow []uint64

func (r *ItemRow) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		var v uint64
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: item value: %w", n.Line, err)
		}
		*r = ItemRow{v}
		return nil
	}
	var vs []uint64
	if err := n.Decode(&vs); err != nil {
		return fmt.Errorf("line %d: item: %w", n.Line, err)
	}
	*r = vs
	return nil
}

// Item converts r to a driver item.
func (r ItemRow) Item() tb.Item { return tb.Item(r) }

// ExpectRow is one expected monitor transaction. A scalar is shorthand for
// a one-value row.
type ExpectRow []ExpectValue

func (r *ExpectRow) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		var v ExpectValue
		if err := v.UnmarshalYAML(n); err != nil {
			return err
		}
		*r = ExpectRow{v}
		return nil
	}
	row := make(ExpectRow, len(n.Content))
	for i, c := range n.Content {
		if err := row[i].UnmarshalYAML(c); err != nil {
			return err
		}
	}
	*r = row
	return nil
}

// Expectation converts r to a monitor expectation.
func (r ExpectRow) Expectation() tb.Expectation {
	e := make(tb.Expectation, len(r))
	for i, v := range r {
		e[i] = tb.Expect(v)
	}
	return e
}

// ExpectValue is one expected signal value. It is written as a number, as
// "x" for don't-care, or as a mapping with value and tolerance.
type ExpectValue tb.Expect

func (v *ExpectValue) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if strings.EqualFold(n.Value, "x") {
			*v = ExpectValue{DontCare: true}
			return nil
		}
		u, err := strconv.ParseUint(n.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: expected value %q: must be an unsigned integer or x", n.Line, n.Value)
		}
		*v = ExpectValue{Value: u}
		return nil
	case yaml.MappingNode:
		var out ExpectValue
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			var dst *uint64
			switch key.Value {
			case "value":
				dst = &out.Value
			case "tolerance":
				dst = &out.Tolerance
			default:
				return fmt.Errorf("line %d: field %s not found in expected value", key.Line, key.Value)
			}
			if err := val.Decode(dst); err != nil {
				return fmt.Errorf("line %d: %s: %w", val.Line, key.Value, err)
			}
		}
		*v = out
		return nil
	default:
		return fmt.Errorf("line %d: expected value must be a scalar or a mapping", n.Line)
	}
}

// LoadScenario reads a scenario file. Files ending in .cue are evaluated
// with CUE; anything else is parsed as YAML. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := ReadScenarioSource(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// ReadScenarioSource returns the document ParseScenario accepts for the
// file at path: the file itself for YAML, the exported JSON for CUE.
func ReadScenarioSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	if filepath.Ext(path) == ".cue" {
		return cueToJSON(path, data)
	}
	return data, nil
}

// ParseScenario parses and validates a YAML (or JSON) scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// cueToJSON evaluates a CUE scenario and exports it as JSON, which the YAML
// decoder accepts unchanged. Definitions and hidden fields are dropped.
func cueToJSON(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE scenario: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}
	js, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("exporting CUE scenario: %w", err)
	}
	return js, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.DUT == "" {
		return fmt.Errorf("dut is required")
	}
	if s.Timeout.Value <= 0 {
		return fmt.Errorf("timeout.value must be positive")
	}
	if _, err := s.Timeout.Duration(); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	if c := s.Clock; c != nil {
		if c.Period < 0 {
			return fmt.Errorf("clock.period must be positive")
		}
		if _, err := sim.ParseUnit(orDefault(c.Unit, string(sim.NS))); err != nil {
			return fmt.Errorf("clock: %w", err)
		}
	}
	if g := s.Generate; g != nil {
		if g.Batches < 1 {
			return fmt.Errorf("generate.batches must be positive")
		}
		if len(s.Drivers) > 0 || len(s.Monitors) > 0 {
			return fmt.Errorf("generate cannot be combined with drivers or monitors")
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
