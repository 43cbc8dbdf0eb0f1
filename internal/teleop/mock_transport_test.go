package teleop

import (
	"sync"
	"time"

	"github.com/wemo-robotics/teleopd/internal/transport"
)

// ---------------------------------------------------------------------------
// fakeHandle / fakeDialer — test doubles for the transport interfaces
// ---------------------------------------------------------------------------

// fakeHandle emits scripted output chunks, one per ReadAvailable call,
// and records everything written to it.
type fakeHandle struct {
	mu          sync.Mutex
	out         [][]byte
	writes      []string
	alive       bool
	writeErr    error
	readErr     error // returned once the scripted output is exhausted
	terminated  int
	failOnWrite string // if a write contains this, subsequent writes fail with writeErr
}

func newFakeHandle(chunks ...string) *fakeHandle {
	h := &fakeHandle{alive: true}
	for _, c := range chunks {
		h.out = append(h.out, []byte(c))
	}
	return h
}

func (h *fakeHandle) ReadAvailable(d time.Duration) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.out) == 0 {
		if h.readErr != nil {
			return nil, h.readErr
		}
		return nil, nil
	}
	chunk := h.out[0]
	h.out = h.out[1:]
	return chunk, nil
}

func (h *fakeHandle) Write(p []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes = append(h.writes, string(p))
	return h.writeErr
}

func (h *fakeHandle) IsAlive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

func (h *fakeHandle) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.terminated++
	h.alive = false
}

func (h *fakeHandle) kill() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alive = false
}

func (h *fakeHandle) wrote() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.writes...)
}

func (h *fakeHandle) terminations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminated
}

// fakeDialer hands out one scripted handle per Open call.
type fakeDialer struct {
	mu      sync.Mutex
	openErr error
	script  func() *fakeHandle
	handles []*fakeHandle
	opened  []transport.Endpoint
}

func (d *fakeDialer) Open(ep transport.Endpoint) (transport.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = append(d.opened, ep)
	if d.openErr != nil {
		return nil, d.openErr
	}
	h := d.script()
	d.handles = append(d.handles, h)
	return h, nil
}

func (d *fakeDialer) lastHandle() *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.handles) == 0 {
		return nil
	}
	return d.handles[len(d.handles)-1]
}

// happyScript is the full console transcript of a successful login and
// control grab for robot 42.
func happyScript() *fakeHandle {
	return newFakeHandle(
		"hive@10.4.12.142's password: ",
		"Welcome to Ubuntu 22.04\n",
		"hive@wemo0042:~$ ",
		"Available teleoperables:\n  [0] wemo0042\n",
		"| WARNING - WATCH OUT FOR MOVING ROBOT |\n",
	)
}
