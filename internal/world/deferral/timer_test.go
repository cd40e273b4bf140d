package deferral

import (
	"testing"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCallback struct {
	key     string
	calls   int
	targets []Target
}

func (c *countingCallback) DeferralKey() string { return c.key }

func (c *countingCallback) OnDeferTimeElapsed(target Target) {
	c.calls++
	c.targets = append(c.targets, target)
}

func TestRegisterFromTickFiresOnce(t *testing.T) {
	timer := NewTimer()
	cb := &countingCallback{key: "test"}

	entry := timer.RegisterFromTick(cb, Target{}, 10)
	assert.True(t, entry.Valid())
	assert.Equal(t, uint64(10), entry.DueTick)

	timer.Update(9)
	assert.Equal(t, 0, cb.calls, "вызов не должен срабатывать раньше срока")

	timer.Update(10)
	assert.Equal(t, 1, cb.calls)

	timer.Update(11)
	assert.Equal(t, 1, cb.calls, "повторный Update не должен вызывать обработчик снова")
}

func TestUpdateCatchesUpSkippedTicks(t *testing.T) {
	timer := NewTimer()
	cb := &countingCallback{key: "test"}

	timer.RegisterAtTick(cb, Target{Coord: vec.Vec2{X: 1}}, 3)
	timer.RegisterAtTick(cb, Target{Coord: vec.Vec2{X: 2}}, 5)

	fired := timer.Update(20)
	assert.Equal(t, 2, fired)
	require.Len(t, cb.targets, 2)
	// Корзины обрабатываются в порядке возрастания тиков
	assert.Equal(t, 1, cb.targets[0].Coord.X)
	assert.Equal(t, 2, cb.targets[1].Coord.X)

	timer.Update(21)
	assert.Equal(t, 2, cb.calls)
}

func TestRemoveDeferralSuppressesCallback(t *testing.T) {
	timer := NewTimer()
	cb := &countingCallback{key: "test"}

	entry := timer.RegisterFromTick(cb, Target{}, 4)
	timer.RemoveDeferral(entry)
	timer.Update(4)

	assert.Equal(t, 0, cb.calls)
}

func TestRemoveKeepsOtherIndicesStable(t *testing.T) {
	timer := NewTimer()
	first := &countingCallback{key: "first"}
	second := &countingCallback{key: "second"}
	third := &countingCallback{key: "third"}

	e1 := timer.RegisterAtTick(first, Target{}, 2)
	e2 := timer.RegisterAtTick(second, Target{}, 2)
	e3 := timer.RegisterAtTick(third, Target{}, 2)
	assert.Equal(t, 1, e1.CallbackIndex)
	assert.Equal(t, 2, e2.CallbackIndex)
	assert.Equal(t, 3, e3.CallbackIndex)

	timer.RemoveDeferral(e1)
	// Индекс e3 по-прежнему указывает на third
	timer.RemoveDeferral(e3)

	timer.Update(2)
	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls)
}

func TestRemoveDeferralEntryInvalidatesHandle(t *testing.T) {
	timer := NewTimer()
	cb := &countingCallback{key: "test"}

	entry := timer.RegisterFromTick(cb, Target{}, 1)
	timer.RemoveDeferralEntry(&entry)
	assert.False(t, entry.Valid())

	// Повторная отмена - безопасная пустая операция
	assert.NotPanics(t, func() { timer.RemoveDeferralEntry(&entry) })

	timer.Update(1)
	assert.Equal(t, 0, cb.calls)
}

func TestInvalidAndFiredHandlesAreIgnored(t *testing.T) {
	timer := NewTimer()
	cb := &countingCallback{key: "test"}

	assert.NotPanics(t, func() { timer.RemoveDeferral(Entry{}) })

	entry := timer.RegisterFromTick(cb, Target{}, 1)
	timer.Update(1)
	assert.NotPanics(t, func() { timer.RemoveDeferral(entry) })
	assert.Equal(t, 1, cb.calls)
}

func TestRegisterInPastPanics(t *testing.T) {
	timer := NewTimer()
	cb := &countingCallback{key: "test"}
	timer.Update(5)

	assert.Panics(t, func() { timer.RegisterAtTick(cb, Target{}, 5) })
	assert.Panics(t, func() { timer.RegisterFromTick(cb, Target{}, 0) })
}

func TestCallbackRegisteringDuringUpdate(t *testing.T) {
	timer := NewTimer()
	var rearm *rearmingCallback
	rearm = &rearmingCallback{timer: timer, every: 3, limit: 3}

	timer.RegisterFromTick(rearm, Target{}, 3)
	for tick := uint64(1); tick <= 12; tick++ {
		timer.Update(tick)
	}
	assert.Equal(t, 3, rearm.calls)
	assert.Equal(t, 0, timer.Pending())
}

type rearmingCallback struct {
	timer *Timer
	every uint64
	limit int
	calls int
}

func (r *rearmingCallback) DeferralKey() string { return "rearm" }

func (r *rearmingCallback) OnDeferTimeElapsed(target Target) {
	r.calls++
	if r.calls < r.limit {
		r.timer.RegisterFromTick(r, target, r.every)
	}
}

func TestTicksRemaining(t *testing.T) {
	timer := NewTimer()
	cb := &countingCallback{key: "test"}

	entry := timer.RegisterFromTick(cb, Target{}, 10)
	timer.Update(4)

	remaining, ok := timer.TicksRemaining(entry)
	assert.True(t, ok)
	assert.Equal(t, uint64(6), remaining)

	timer.RemoveDeferral(entry)
	_, ok = timer.TicksRemaining(entry)
	assert.False(t, ok)
}

func TestSnapshotRestore(t *testing.T) {
	timer := NewTimer()
	cb := &countingCallback{key: "drill"}
	timer.Update(7)

	kept := timer.RegisterFromTick(cb, Target{Coord: vec.Vec2{X: 4, Y: -2}, Layer: 2}, 5)
	cancelled := timer.RegisterFromTick(cb, Target{}, 5)
	timer.RemoveDeferral(cancelled)

	snap := timer.Snapshot()
	require.Len(t, snap.Buckets, 1)
	assert.Equal(t, "", snap.Buckets[0].Slots[1].Key)

	restoredCb := &countingCallback{key: "drill"}
	restored := NewTimer()
	err := restored.Restore(snap, func(key string) (Callback, bool) {
		if key == "drill" {
			return restoredCb, true
		}
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), restored.LastTick())

	remaining, ok := restored.TicksRemaining(kept)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), remaining)

	restored.Update(12)
	require.Equal(t, 1, restoredCb.calls)
	assert.Equal(t, vec.Vec2{X: 4, Y: -2}, restoredCb.targets[0].Coord)

	err = NewTimer().Restore(snap, func(string) (Callback, bool) { return nil, false })
	assert.Error(t, err)
}
