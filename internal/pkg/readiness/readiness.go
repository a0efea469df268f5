// Package readiness holds the only cross-thread shared state in the core:
// two boolean readiness flags and the last-assigned network address octet.
// Each is set exactly once by a bring-up collaborator and is stable from the
// perspective of every reader.
package readiness

import (
	"context"
	"sync"
	"sync/atomic"
)

type Flags struct {
	network    atomic.Bool
	timeSynced atomic.Bool
	lastQuad   atomic.Int32

	networkOnce sync.Once
	networkUp   chan struct{}
}

func New() *Flags {
	f := &Flags{networkUp: make(chan struct{})}
	f.lastQuad.Store(-1)
	return f
}

// SetNetworkReady marks the network link as up. Further calls are no-ops.
func (f *Flags) SetNetworkReady() {
	f.network.Store(true)
	f.networkOnce.Do(func() { close(f.networkUp) })
}

func (f *Flags) NetworkReady() bool {
	return f.network.Load()
}

// AwaitNetwork blocks until the network is ready or the context ends.
func (f *Flags) AwaitNetwork(ctx context.Context) error {
	select {
	case <-f.networkUp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetTimeSynced marks the wall clock as trustworthy.
func (f *Flags) SetTimeSynced() {
	f.timeSynced.Store(true)
}

func (f *Flags) TimeSynced() bool {
	return f.timeSynced.Load()
}

// SetLastQuad records the final octet of the acquired address, used only
// for per-device diagnostics and configuration lookup.
func (f *Flags) SetLastQuad(quad int32) {
	f.lastQuad.Store(quad)
}

// LastQuad returns the recorded octet, or -1 before bring-up.
func (f *Flags) LastQuad() int32 {
	return f.lastQuad.Load()
}
