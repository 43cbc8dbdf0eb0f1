package transport

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
)

// terminateWait bounds how long Terminate waits for the killed process to
// be reaped before giving up and releasing the terminal anyway.
const terminateWait = 5 * time.Second

// PTYDialer opens shells by running ssh under a local pseudo-terminal.
// The -tt flag forces TTY allocation so the remote side behaves as an
// interactive login even though stdin is a pipe-backed pty.
type PTYDialer struct {
	SSHBinary string // defaults to "ssh"
}

// Open spawns `ssh -tt user@addr` attached to a new pty and returns a
// Handle owning both the process and the terminal.
func (d PTYDialer) Open(ep Endpoint) (Handle, error) {
	bin := d.SSHBinary
	if bin == "" {
		bin = "ssh"
	}
	target := ep.User + "@" + ep.Addr
	cmd := exec.Command(bin, "-tt", target)

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("transport: spawn %s %s: %w", bin, target, err)
	}

	h := &ptyHandle{
		cmd:    cmd,
		f:      f,
		waitCh: make(chan error, 1),
	}

	// Reaper goroutine: observes process exit so IsAlive never has to poll
	// the OS and Terminate can wait for the reap.
	go func() {
		waitErr := cmd.Wait()
		h.exited.Store(true)
		h.waitCh <- waitErr
	}()

	return h, nil
}

// ptyHandle is the production Handle: an ssh process plus its pty master.
type ptyHandle struct {
	cmd    *exec.Cmd
	f      *os.File
	waitCh chan error // buffered(1), receives exit result
	exited atomic.Bool
	once   sync.Once
}

func (h *ptyHandle) Write(p []byte) error {
	if h.exited.Load() {
		return fmt.Errorf("transport: write to %d: process has exited", h.cmd.Process.Pid)
	}
	if _, err := h.f.Write(p); err != nil {
		return fmt.Errorf("transport: write to %d: %w", h.cmd.Process.Pid, err)
	}
	return nil
}

func (h *ptyHandle) ReadAvailable(d time.Duration) ([]byte, error) {
	if err := h.f.SetReadDeadline(time.Now().Add(d)); err != nil {
		return nil, fmt.Errorf("transport: set read deadline: %w", err)
	}
	buf := make([]byte, 4096)
	n, err := h.f.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil
		}
		// Linux reports EIO on the pty master once the child exits.
		return nil, fmt.Errorf("transport: read from %d: %w", h.cmd.Process.Pid, err)
	}
	return nil, nil
}

func (h *ptyHandle) IsAlive() bool {
	return !h.exited.Load()
}

func (h *ptyHandle) Terminate() {
	h.once.Do(func() {
		if !h.exited.Load() {
			h.cmd.Process.Kill()
		}
		select {
		case <-h.waitCh:
		case <-time.After(terminateWait):
		}
		h.f.Close()
	})
}
