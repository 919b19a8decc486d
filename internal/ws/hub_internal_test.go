package ws

import (
	"sync"
	"testing"

	"github.com/metapool/metapool/pkg/types"
)

// A run completing while the server shuts down must not panic: closing
// a client's send channel and broadcasting to it race through the hub's
// lock, never through a bare channel.
func TestHub_BroadcastDuringShutdown(t *testing.T) {
	run := types.Run{ID: "run-1", Summary: types.Summary{Effect: 0.49, K: 6}}

	for iter := 0; iter < 50; iter++ {
		h := New(nil)
		for i := 0; i < 2000; i++ {
			c := &client{send: make(chan []byte, 1)}
			if i%2 == 0 {
				c.send <- []byte("{}") // full buffer, exercises the disconnect path
			}
			h.register(c)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Broadcast(run)
		}()
		go func() {
			defer wg.Done()
			h.closeAll()
		}()
		wg.Wait()

		if n := h.Count(); n != 0 {
			t.Fatalf("iter %d: %d clients left after shutdown", iter, n)
		}
	}
}

// A client connecting while the hub shuts down must not receive on a
// closed channel either: the on-connect send checks registration under
// the same lock.
func TestHub_SendAfterUnregisterIsDropped(t *testing.T) {
	h := New(nil)
	c := &client{send: make(chan []byte, 1)}
	h.register(c)
	h.unregister(c)

	// Must neither panic nor deliver.
	h.send(c, []byte("{}"))

	select {
	case msg, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected frame %q on unregistered client", msg)
		}
	default:
		t.Fatal("send channel left open after unregister")
	}
}
