package scan

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMode_Next(t *testing.T) {
	assert.Equal(t, ModeManual, ModeAutomatic.Next())
	assert.Equal(t, ModeDisabled, ModeManual.Next())
	assert.Equal(t, ModeAutomatic, ModeDisabled.Next())
	assert.Equal(t, ModeAutomatic, Mode("bogus").Next())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeManual, ParseMode("manual"))
	assert.Equal(t, ModeDisabled, ParseMode("disabled"))
	assert.Equal(t, ModeAutomatic, ParseMode(""))
	assert.Equal(t, ModeAutomatic, ParseMode("sometimes"))
}

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (c *countingRunner) Run(trigger Trigger) (Outcome, error) {
	c.runs.Add(1)
	return OutcomeMissed, c.err
}

func TestAutoScanner_Toggle(t *testing.T) {
	rec := &recorder{}
	a := NewAutoScanner(&countingRunner{}, rec, ModeAutomatic, time.Hour, zap.NewNop())

	assert.Equal(t, ModeManual, a.Toggle())
	assert.Equal(t, ModeDisabled, a.Toggle())
	assert.Equal(t, ModeAutomatic, a.Toggle())
	assert.Equal(t, ModeAutomatic, a.Mode())

	assert.Equal(t, []string{EventMode, EventMode, EventMode}, rec.names())
	assert.Equal(t, ModeManual, rec.events[0].payload)

	a.SetMode(ModeDisabled)
	assert.Equal(t, ModeDisabled, a.Mode())
	assert.Len(t, rec.names(), 4)
}

func TestAutoScanner_ScansOnlyInAutomaticMode(t *testing.T) {
	runner := &countingRunner{err: ErrGameNotOpen}
	a := NewAutoScanner(runner, &recorder{}, ModeAutomatic, 5*time.Millisecond, zap.NewNop())

	a.Start()
	a.Start()
	assert.Eventually(t, func() bool { return runner.runs.Load() >= 2 }, time.Second, time.Millisecond)

	a.SetMode(ModeManual)
	// Let any tick already past the mode check finish.
	time.Sleep(20 * time.Millisecond)
	before := runner.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, runner.runs.Load())

	a.Stop()
	a.Stop()
}
