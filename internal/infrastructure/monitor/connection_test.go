package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	mu  sync.Mutex
	err error
}

func (p *fakeProbe) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProbe) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type fakeOutbox int

func (o fakeOutbox) OutboxSize(context.Context) (int, error) { return int(o), nil }

func TestMonitor_NotifiesOnlyOnOfflineToOnline(t *testing.T) {
	ctx := context.Background()
	probe := &fakeProbe{err: errors.New("dial tcp: refused")}
	m := New(probe, fakeOutbox(2), time.Hour, nil)

	var fired atomic.Int32
	m.Subscribe(func() { fired.Add(1) })

	m.Refresh(ctx)
	assert.False(t, m.IsOnline())
	assert.Equal(t, "dial tcp: refused", m.GetStatus().LastError)

	probe.set(nil)
	m.Refresh(ctx)
	assert.True(t, m.IsOnline())
	assert.Equal(t, int32(1), fired.Load())

	m.Refresh(ctx)
	assert.Equal(t, int32(1), fired.Load(), "staying online is not a transition")

	probe.set(errors.New("timeout"))
	m.Refresh(ctx)
	assert.False(t, m.IsOnline())
	assert.Equal(t, int32(1), fired.Load())

	probe.set(nil)
	m.Refresh(ctx)
	assert.Equal(t, int32(2), fired.Load())

	status := m.GetStatus()
	assert.True(t, status.OutboxOK)
	assert.Equal(t, 2, status.OutboxSize)
}

func TestMonitor_FirstProbeDoesNotNotify(t *testing.T) {
	m := New(&fakeProbe{}, nil, time.Hour, nil)
	var fired atomic.Int32
	m.Subscribe(func() { fired.Add(1) })

	m.Refresh(context.Background())
	assert.True(t, m.IsOnline())
	assert.Zero(t, fired.Load())
}

func TestMonitor_SetOnlineOverridesProbe(t *testing.T) {
	ctx := context.Background()
	probe := &fakeProbe{}
	m := New(probe, nil, time.Hour, nil)
	m.Refresh(ctx)

	var fired atomic.Int32
	cancel := m.Subscribe(func() { fired.Add(1) })

	m.SetOnline(false)
	m.Refresh(ctx)
	assert.False(t, m.IsOnline())
	assert.True(t, m.GetStatus().Forced)

	m.SetOnline(true)
	assert.Equal(t, int32(1), fired.Load())

	cancel()
	m.SetOnline(false)
	m.ClearOverride(ctx)
	assert.True(t, m.IsOnline())
	assert.False(t, m.GetStatus().Forced)
	assert.Equal(t, int32(1), fired.Load(), "unsubscribed listener must not fire")
}

func TestMonitor_NoProbeIsOffline(t *testing.T) {
	m := New(nil, nil, time.Hour, nil)
	m.Refresh(context.Background())
	require.False(t, m.IsOnline())
	assert.NotEmpty(t, m.GetStatus().LastError)
}
