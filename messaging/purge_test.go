package messaging

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerCollectible registers a handler and immediately discards both the
// owner and the Registration handle, leaving the table entry with no strong
// holder. After the next garbage collection the entry is dead.
func registerCollectible(t *testing.T, d *Dispatcher, hits *atomic.Int32) {
	t.Helper()
	owner := &testOwner{name: "transient"}
	_, err := Register(d, owner, func(p testPing) {
		hits.Add(1)
	})
	require.NoError(t, err)
}

func collect() {
	runtime.GC()
	runtime.GC()
}

func TestWeakDecay(t *testing.T) {
	t.Run("dropped handle stops dispatch without explicit unregister", func(t *testing.T) {
		d := NewDispatcher()
		var hits atomic.Int32

		registerCollectible(t, d, &hits)
		Send(d, testPing{})
		assert.Equal(t, int32(1), hits.Load())

		collect()
		Send(d, testPing{})

		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("live handle keeps the weak reference resolving", func(t *testing.T) {
		d := NewDispatcher()
		var hits atomic.Int32

		reg, err := Register(d, &testOwner{name: "a"}, func(p testPing) {
			hits.Add(1)
		})
		require.NoError(t, err)

		collect()
		Send(d, testPing{})

		assert.Equal(t, int32(1), hits.Load())
		runtime.KeepAlive(reg)
	})

	t.Run("dead entry does not block re-registration by the same owner", func(t *testing.T) {
		d := NewDispatcher()
		owner := &testOwner{name: "a"}

		// Handle discarded on purpose: only the weak reference remains.
		_, err := Register(d, owner, func(p testPing) {})
		require.NoError(t, err)
		collect()

		reg, err := Register(d, owner, func(p testPing) {})

		require.NoError(t, err)
		defer reg.Unregister()
	})

	t.Run("dead entries are skipped by send but not removed before the purge interval", func(t *testing.T) {
		d := NewDispatcher()
		var hits atomic.Int32

		registerCollectible(t, d, &hits)
		collect()

		Send(d, testPing{})

		assert.Equal(t, int32(0), hits.Load())
		assert.Equal(t, Stats{Keys: 1, Registrations: 1, Live: 0}, d.Stats())
	})

	t.Run("IsRegistered turns false once the handle is collected", func(t *testing.T) {
		d := NewDispatcher()
		owner := &testOwner{name: "t"}

		func() {
			_, err := Register(d, owner, func(p testPing) {})
			require.NoError(t, err)
		}()

		assert.True(t, IsRegistered[testPing](d, owner))

		collect()

		assert.False(t, IsRegistered[testPing](d, owner))
	})
}

func TestPurge(t *testing.T) {
	t.Run("elapsed interval triggers physical removal on the next operation", func(t *testing.T) {
		d := NewDispatcher()
		current := time.Now()
		d.now = func() time.Time { return current }
		d.lastPurge = current

		var hits atomic.Int32
		registerCollectible(t, d, &hits)
		collect()

		Send(d, testPing{})
		assert.Equal(t, Stats{Keys: 1, Registrations: 1, Live: 0}, d.Stats())

		current = current.Add(DefaultPurgeInterval + time.Second)
		Send(d, testPing{})

		assert.Equal(t, Stats{}, d.Stats())
	})

	t.Run("purge keeps live entries and drops only the dead", func(t *testing.T) {
		d := NewDispatcher()
		var transient atomic.Int32
		var hits int

		registerCollectible(t, d, &transient)
		reg, err := Register(d, &testOwner{name: "keeper"}, func(p testPing) { hits++ })
		require.NoError(t, err)
		collect()

		d.Cleanup()

		assert.Equal(t, Stats{Keys: 1, Registrations: 1, Live: 1}, d.Stats())

		Send(d, testPing{})
		assert.Equal(t, 1, hits)
		runtime.KeepAlive(reg)
	})

	t.Run("Cleanup removes dead entries regardless of the interval", func(t *testing.T) {
		d := NewDispatcher()
		var hits atomic.Int32

		registerCollectible(t, d, &hits)
		collect()
		require.Equal(t, 1, d.Stats().Registrations)

		d.Cleanup()

		assert.Equal(t, Stats{}, d.Stats())

		// Send after removal stays a no-op for the key.
		Send(d, testPing{})
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("sweep refreshes the timestamp even when nothing is removed", func(t *testing.T) {
		d := NewDispatcher()
		current := time.Now()
		d.now = func() time.Time { return current }
		d.lastPurge = current

		current = current.Add(DefaultPurgeInterval + time.Second)
		Send(d, testPing{})

		assert.Equal(t, current, d.lastPurge)
	})

	t.Run("register and unregister run the purge check", func(t *testing.T) {
		// Zero interval: every operation sweeps.
		d := NewDispatcher(WithPurgeInterval(0))
		var hits atomic.Int32

		registerCollectible(t, d, &hits)
		collect()

		reg, err := Register(d, &testOwner{name: "b"}, func(p testPong) {})
		require.NoError(t, err)
		assert.Equal(t, Stats{Keys: 1, Registrations: 1, Live: 1}, d.Stats())

		registerCollectible(t, d, &hits)
		collect()
		require.NoError(t, reg.Unregister())

		assert.Equal(t, Stats{}, d.Stats())
	})
}
