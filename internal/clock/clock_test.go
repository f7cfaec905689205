package clock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbench/internal/sim"
)

func TestNew_Validation(t *testing.T) {
	k := sim.New()
	clk, err := k.NewSignal("clk", 1)
	require.NoError(t, err)
	bus, err := k.NewSignal("bus", 8)
	require.NoError(t, err)

	_, err = New(nil, 10, sim.NS)
	assert.Error(t, err)

	_, err = New(bus, 10, sim.NS)
	assert.Error(t, err, "multi-bit signal cannot be a clock")

	_, err = New(clk, 3, sim.PS)
	assert.Error(t, err, "odd period has no integer half period")

	_, err = New(clk, 10, sim.Unit("fs"))
	assert.Error(t, err)

	s, err := New(clk, DefaultPeriod, DefaultUnit)
	require.NoError(t, err)
	assert.Equal(t, sim.Time(10_000), s.Period())
	assert.Same(t, clk, s.Signal())
}

func TestSource_Toggles(t *testing.T) {
	k := sim.New()
	clk, err := k.NewSignal("clk", 1)
	require.NoError(t, err)
	s, err := New(clk, 10, sim.NS)
	require.NoError(t, err)

	var rises, falls []sim.Time
	err = k.Run(context.Background(), func(p *sim.Proc) error {
		require.NoError(t, s.Start(p))
		assert.True(t, s.Started())
		p.Spawn("falls", func(p *sim.Proc) error {
			for {
				if err := p.FallingEdge(clk); err != nil {
					return nil
				}
				falls = append(falls, p.Now())
			}
		})
		for i := 0; i < 3; i++ {
			if err := p.RisingEdge(clk); err != nil {
				return err
			}
			rises = append(rises, p.Now())
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []sim.Time{0, 10_000, 20_000}, rises)
	assert.Equal(t, []sim.Time{5_000, 15_000}, falls)
}

func TestSource_StartTwice(t *testing.T) {
	k := sim.New()
	clk, err := k.NewSignal("clk", 1)
	require.NoError(t, err)
	s, err := New(clk, 2, sim.PS)
	require.NoError(t, err)

	err = k.Run(context.Background(), func(p *sim.Proc) error {
		if err := s.Start(p); err != nil {
			return err
		}
		return s.Start(p)
	})
	assert.Error(t, err)
}
