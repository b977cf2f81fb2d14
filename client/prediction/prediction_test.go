package prediction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-games/arena/config"
	"github.com/meridian-games/arena/internal/simulation"
)

var openBounds = simulation.Bounds{W: 2000, H: 2000}

func TestApplyLocalInput_PredictsImmediatelyAndEnqueues(t *testing.T) {
	s := New(simulation.Vec2{X: 100, Y: 100}, openBounds, nil)
	seq := s.ApplyLocalInput(config.InputRight)

	assert.Equal(t, int64(0), seq)
	assert.Greater(t, s.Pos.X, 100.0)
	assert.Len(t, s.pending, 1)
}

func TestApplyLocalInput_CapsPendingHistoryAt120(t *testing.T) {
	s := New(simulation.Vec2{X: 0, Y: 0}, openBounds, nil)
	for i := 0; i < 200; i++ {
		s.ApplyLocalInput(config.InputRight)
	}
	assert.Len(t, s.pending, MaxPendingInputs)
	assert.Equal(t, int64(199), s.pending[len(s.pending)-1].Seq)
}

func TestReconcile_DiscardsStaleUpdate(t *testing.T) {
	s := New(simulation.Vec2{X: 0, Y: 0}, openBounds, nil)
	s.lastProcessedSeq = 5

	s.Reconcile(ServerUpdate{X: 999, Y: 999, LastInputSeq: 5})
	assert.Equal(t, simulation.Vec2{}, s.Correction)
}

func TestReconcile_DropsAckedInputsAndReplaysRemaining(t *testing.T) {
	s := New(simulation.Vec2{X: 0, Y: 0}, openBounds, nil)
	s.ApplyLocalInput(config.InputRight) // seq 0
	s.ApplyLocalInput(config.InputRight) // seq 1
	s.ApplyLocalInput(config.InputRight) // seq 2

	s.Reconcile(ServerUpdate{X: 0, Y: 0, LastInputSeq: 1})

	assert.Len(t, s.pending, 1)
	assert.Equal(t, int64(2), s.pending[0].Seq)
	assert.Equal(t, int64(1), s.lastProcessedSeq)
}

func TestReconcile_AccumulatesCorrectionWithoutOverwritingPos(t *testing.T) {
	s := New(simulation.Vec2{X: 0, Y: 0}, openBounds, nil)
	s.ApplyLocalInput(config.InputRight)
	posBefore := s.Pos

	s.Reconcile(ServerUpdate{X: 500, Y: 0, LastInputSeq: 0})

	assert.Equal(t, posBefore, s.Pos)
	assert.Greater(t, s.Correction.X, 0.0)
}

func TestDrain_ConvergesCorrectionToZero(t *testing.T) {
	s := New(simulation.Vec2{X: 0, Y: 0}, openBounds, nil)
	s.Correction = simulation.Vec2{X: 100, Y: 0}

	for i := 0; i < 300; i++ {
		s.Drain(1.0 / 60.0)
	}
	assert.InDelta(t, 0, s.Correction.X, 0.01)
	assert.InDelta(t, 100, s.Pos.X, 0.5)
}

func TestDrain_RenderPosChasesPos(t *testing.T) {
	s := New(simulation.Vec2{X: 0, Y: 0}, openBounds, nil)
	s.Pos = simulation.Vec2{X: 50, Y: 0}

	for i := 0; i < 300; i++ {
		s.Drain(1.0 / 60.0)
	}
	assert.InDelta(t, 50, s.RenderPos.X, 0.5)
}

func TestSnapToFullState_SnapsBeyondThreshold(t *testing.T) {
	s := New(simulation.Vec2{X: 0, Y: 0}, openBounds, nil)
	s.Correction = simulation.Vec2{X: 10, Y: 10}

	s.SnapToFullState(simulation.Vec2{X: 500, Y: 0})

	assert.Equal(t, simulation.Vec2{X: 500, Y: 0}, s.Pos)
	assert.Equal(t, simulation.Vec2{X: 500, Y: 0}, s.RenderPos)
	assert.Equal(t, simulation.Vec2{}, s.Correction)
}

func TestSnapToFullState_IgnoresSmallDelta(t *testing.T) {
	s := New(simulation.Vec2{X: 0, Y: 0}, openBounds, nil)
	s.SnapToFullState(simulation.Vec2{X: 10, Y: 0})

	assert.Equal(t, simulation.Vec2{X: 0, Y: 0}, s.Pos)
}

func TestShouldSend_TriggersOnInputChange(t *testing.T) {
	s := New(simulation.Vec2{}, openBounds, nil)
	now := time.Now()
	s.MarkSent(now, 0)

	assert.True(t, s.ShouldSend(now, config.InputUp, DefaultSendHz))
}

func TestShouldSend_RateLimitsUnchangedInput(t *testing.T) {
	s := New(simulation.Vec2{}, openBounds, nil)
	now := time.Now()
	s.MarkSent(now, config.InputUp)

	assert.False(t, s.ShouldSend(now.Add(time.Millisecond), config.InputUp, 60))
	assert.True(t, s.ShouldSend(now.Add(time.Second), config.InputUp, 60))
}
