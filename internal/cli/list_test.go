package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListText(t *testing.T) {
	out, err := execute(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "timer - count-down timer")
	assert.Contains(t, out, "clock: clk_i  reset: rst_i (active high)")
	assert.Contains(t, out, "param WIDTH = 32")
	assert.Contains(t, out, "segtest - seven-segment decoder")
	assert.Contains(t, out, "reset: none")
	assert.NotContains(t, out, "port ")
}

func TestListVerboseShowsPorts(t *testing.T) {
	out, err := execute(t, "", "list", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "port readout_o")
	assert.Contains(t, out, "port seg_o")
}

func TestListJSON(t *testing.T) {
	out, err := execute(t, "", "list", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []ModelInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	byName := make(map[string]ModelInfo)
	for _, m := range resp.Data {
		byName[m.Name] = m
	}
	require.Contains(t, byName, "timer")
	require.Contains(t, byName, "fifo")
	require.Contains(t, byName, "tlc")
	require.Contains(t, byName, "segtest")

	timer := byName["timer"]
	assert.True(t, timer.HasBench)
	assert.True(t, timer.ResetActiveHigh)
	assert.Equal(t, int64(32), timer.Params["WIDTH"])
	assert.Contains(t, timer.Ports, PortInfo{Name: "idle_o", Dir: "out", Width: 1})

	assert.False(t, byName["tlc"].ResetActiveHigh)
}
