package tb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSignal records every write.
type fakeSignal struct {
	name   string
	value  uint64
	writes []uint64
}

func (s *fakeSignal) Name() string { return s.name }
func (s *fakeSignal) Width() uint { return 64 }
func (s *fakeSignal) Get() uint64 { return s.value }
func (s *fakeSignal) Set(v uint64) {
	s.value = v
	s.writes = append(s.writes, v)
}

func TestStreamDriver_FIFO(t *testing.T) {
	data := &fakeSignal{name: "data"}
	valid := &fakeSignal{name: "valid"}
	d := NewDriver("d", []Signal{data}, WithValid(valid))

	require.NoError(t, d.Load(Item{0xa}, Item{0xb}))
	require.NoError(t, d.Load(Item{0xc}))
	assert.Equal(t, 3, d.Pending())

	for i := 0; i < 3; i++ {
		tx := d.Drive(0)
		require.NotNil(t, tx)
		assert.Equal(t, i, tx.Index)
	}
	assert.Equal(t, []uint64{0xa, 0xb, 0xc}, data.writes)
	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, 3, d.Sent())

	assert.Nil(t, d.Drive(0))
	assert.Equal(t, []uint64{0xa, 0xb, 0xc}, data.writes, "data unchanged when idle")
	assert.Equal(t, []uint64{1, 1, 1, 0}, valid.writes)
}

func TestStreamDriver_ItemWidth(t *testing.T) {
	d := NewDriver("d", []Signal{&fakeSignal{name: "a"}, &fakeSignal{name: "b"}})
	assert.Error(t, d.Load(Item{1}))
	assert.NoError(t, d.Load(Item{1, 2}))
	assert.Len(t, d.Targets(), 2)
}

func TestStreamDriver_HoldsUntilReady(t *testing.T) {
	data := &fakeSignal{name: "data"}
	ready := &fakeSignal{name: "ready"}
	d := NewDriver("d", []Signal{data}, WithReady(ready))
	require.NoError(t, d.Load(Item{1}, Item{2}))

	require.NotNil(t, d.Drive(0))
	assert.Equal(t, 2, d.Pending(), "presented item counts until accepted")
	assert.Equal(t, 0, d.NextPending())

	// ready was low when the item was presented, so it was not taken.
	ready.value = 1
	assert.Nil(t, d.Drive(0))
	assert.Equal(t, 2, d.Pending())
	assert.Equal(t, 0, d.NextPending())

	tx := d.Drive(0)
	require.NotNil(t, tx)
	assert.Equal(t, []uint64{2}, tx.Values)
	assert.Equal(t, []uint64{1, 2}, data.writes)
	assert.Equal(t, 1, d.NextPending())

	assert.Nil(t, d.Drive(0))
	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, 2, d.NextPending())
}

func TestStreamMonitor_MismatchReportsKthExpectation(t *testing.T) {
	data := &fakeSignal{name: "data"}
	m := NewMonitor("m", []Signal{data})
	require.NoError(t, m.Load(Values(1), Values(2), Values(3)))

	tx, err := m.Sample(0)
	assert.Nil(t, tx, "not armed")
	assert.NoError(t, err)
	m.Arm()

	for _, v := range []uint64{1, 2} {
		data.value = v
		tx, err := m.Sample(0)
		require.NoError(t, err)
		assert.True(t, tx.Match)
	}
	assert.True(t, m.InFlight())

	data.value = 9
	_, err = m.Sample(7)
	var cf *CheckingFailure
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, 2, cf.Index)
	assert.Equal(t, Values(3), cf.Expected)
	assert.Equal(t, []uint64{9}, cf.Observed)
	assert.Contains(t, cf.Error(), "monitor m: transaction 2 mismatch")
	assert.False(t, m.InFlight())
}

func TestStreamMonitor_ValidAndReady(t *testing.T) {
	data := &fakeSignal{name: "data"}
	valid := &fakeSignal{name: "valid"}
	ready := &fakeSignal{name: "ready"}
	m := NewMonitor("m", []Signal{data}, SampleOnValid(valid), DriveReady(ready))
	require.NoError(t, m.Load(Values(4)))
	m.Arm()
	assert.Equal(t, uint64(1), ready.value)
	require.Len(t, m.Targets(), 1)

	tx, err := m.Sample(0)
	assert.Nil(t, tx)
	assert.NoError(t, err)

	valid.value, data.value = 1, 4
	tx, err = m.Sample(0)
	require.NoError(t, err)
	assert.True(t, tx.Match)

	// nothing queued: observed and ignored
	tx, err = m.Sample(0)
	require.NoError(t, err)
	assert.Nil(t, tx.Expected)
	assert.Equal(t, -1, tx.Index)
}

func TestExpect_Matches(t *testing.T) {
	assert.True(t, Exact(5).Matches(5))
	assert.False(t, Exact(5).Matches(6))
	assert.True(t, Expect{Value: 5, Tolerance: 2}.Matches(3))
	assert.True(t, Expect{Value: 5, Tolerance: 2}.Matches(7))
	assert.False(t, Expect{Value: 5, Tolerance: 2}.Matches(8))
	assert.True(t, Expect{DontCare: true}.Matches(123))
	assert.False(t, Values(1, 2).Matches([]uint64{1}))
	assert.Equal(t, "[1 5±2 x]", Expectation{Exact(1), {Value: 5, Tolerance: 2}, {DontCare: true}}.String())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "TIMED_OUT", StateTimedOut.String())
	s, ok := ParseState("COMPLETED")
	require.True(t, ok)
	assert.Equal(t, StateCompleted, s)
	assert.True(t, s.Terminal())
	assert.False(t, StateRunning.Terminal())
	_, ok = ParseState("nope")
	assert.False(t, ok)
}
