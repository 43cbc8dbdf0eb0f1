package teleop

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wemo-robotics/teleopd/internal/config"
)

func testRobotConfig() config.RobotConfig {
	return config.RobotConfig{
		BaseHost:   "10.4.12",
		User:       "hive",
		Password:   "robohive",
		AddrOffset: 100,
	}
}

func testTimeouts() config.TimeoutsConfig {
	return config.TimeoutsConfig{
		Connect:      500 * time.Millisecond,
		Auth:         500 * time.Millisecond,
		ToolReady:    500 * time.Millisecond,
		ControlGrant: 500 * time.Millisecond,
		RosterSettle: time.Millisecond,
		SelectSettle: time.Millisecond,
		EndStep:      time.Millisecond,
	}
}

func newTestSequencer(d *fakeDialer) *Sequencer {
	q := NewSequencer(d, testRobotConfig(), testTimeouts())
	q.sleep = func(time.Duration) {}
	return q
}

func TestSequencerSuccess(t *testing.T) {
	d := &fakeDialer{script: happyScript}
	q := newTestSequencer(d)

	h, err := q.Run(42)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h == nil {
		t.Fatal("Run returned nil handle")
	}

	fh := d.lastHandle()
	wrote := fh.wrote()
	want := []string{"robohive\n", launchCommand + "\n", "\n", grabControlKey}
	if len(wrote) != len(want) {
		t.Fatalf("writes = %q, want %q", wrote, want)
	}
	for i := range want {
		if wrote[i] != want[i] {
			t.Errorf("write[%d] = %q, want %q", i, wrote[i], want[i])
		}
	}
	if fh.terminations() != 0 {
		t.Errorf("handle terminated %d times on success path", fh.terminations())
	}

	if len(d.opened) != 1 || d.opened[0].Addr != "10.4.12.142" || d.opened[0].User != "hive" {
		t.Errorf("opened = %+v, want one dial to hive@10.4.12.142", d.opened)
	}
}

func TestSequencerDialFailure(t *testing.T) {
	d := &fakeDialer{openErr: errors.New("no route to host")}
	q := newTestSequencer(d)

	_, err := q.Run(42)
	if KindOf(err) != KindConnectFailed {
		t.Fatalf("kind = %v, want connect_failed (err: %v)", KindOf(err), err)
	}
}

func TestSequencerConnectTimeout(t *testing.T) {
	d := &fakeDialer{script: func() *fakeHandle { return newFakeHandle() }}
	q := newTestSequencer(d)

	_, err := q.Run(42)
	if KindOf(err) != KindConnectFailed {
		t.Fatalf("kind = %v, want connect_failed (err: %v)", KindOf(err), err)
	}
	if got := d.lastHandle().terminations(); got != 1 {
		t.Errorf("terminations = %d, want 1", got)
	}
}

func TestSequencerConnectionRejected(t *testing.T) {
	d := &fakeDialer{script: func() *fakeHandle {
		return newFakeHandle("Permission denied (publickey).\n")
	}}
	q := newTestSequencer(d)

	_, err := q.Run(42)
	if KindOf(err) != KindConnectionRejected {
		t.Fatalf("kind = %v, want connection_rejected (err: %v)", KindOf(err), err)
	}
	if got := d.lastHandle().terminations(); got != 1 {
		t.Errorf("terminations = %d, want 1", got)
	}
}

func TestSequencerAuthFailed(t *testing.T) {
	d := &fakeDialer{script: func() *fakeHandle {
		return newFakeHandle(
			"hive@10.4.12.142's password: ",
			"Permission denied, please try again.\n",
		)
	}}
	q := newTestSequencer(d)

	_, err := q.Run(42)
	if KindOf(err) != KindAuthFailed {
		t.Fatalf("kind = %v, want auth_failed (err: %v)", KindOf(err), err)
	}
	if got := d.lastHandle().terminations(); got != 1 {
		t.Errorf("terminations = %d, want 1", got)
	}
}

func TestSequencerToolLaunchTimeout(t *testing.T) {
	d := &fakeDialer{script: func() *fakeHandle {
		return newFakeHandle(
			"hive@10.4.12.142's password: ",
			"Welcome to Ubuntu 22.04\n",
			"hive@wemo0042:~$ ",
		)
	}}
	q := newTestSequencer(d)

	_, err := q.Run(42)
	if KindOf(err) != KindToolLaunchTimeout {
		t.Fatalf("kind = %v, want tool_launch_timeout (err: %v)", KindOf(err), err)
	}
	if got := d.lastHandle().terminations(); got != 1 {
		t.Errorf("terminations = %d, want 1", got)
	}
}

func TestSequencerControlGrantTimeout(t *testing.T) {
	d := &fakeDialer{script: func() *fakeHandle {
		return newFakeHandle(
			"hive@10.4.12.142's password: ",
			"Welcome to Ubuntu 22.04\n",
			"hive@wemo0042:~$ ",
			"Available teleoperables:\n",
		)
	}}
	q := newTestSequencer(d)

	_, err := q.Run(42)
	if KindOf(err) != KindControlGrantTimeout {
		t.Fatalf("kind = %v, want control_grant_timeout (err: %v)", KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "another operator") {
		t.Errorf("reason %q does not mention another operator", err)
	}
	if got := d.lastHandle().terminations(); got != 1 {
		t.Errorf("terminations = %d, want 1", got)
	}
}

func TestSequencerShellPromptWithoutBanner(t *testing.T) {
	// Some controllers skip the login banner; the shell prompt alone is
	// enough to proceed.
	d := &fakeDialer{script: func() *fakeHandle {
		return newFakeHandle(
			"hive@10.4.12.142's password: ",
			"hive@wemo0042:~$ ",
			"Available teleoperables:\n",
			"| WARNING - WATCH OUT FOR MOVING ROBOT |\n",
		)
	}}
	q := newTestSequencer(d)

	if _, err := q.Run(42); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSequencerWriteFailure(t *testing.T) {
	d := &fakeDialer{script: func() *fakeHandle {
		h := newFakeHandle("hive@10.4.12.142's password: ")
		h.writeErr = errors.New("broken pipe")
		return h
	}}
	q := newTestSequencer(d)

	_, err := q.Run(42)
	if KindOf(err) != KindWriteFailed {
		t.Fatalf("kind = %v, want write_failed (err: %v)", KindOf(err), err)
	}
	if got := d.lastHandle().terminations(); got != 1 {
		t.Errorf("terminations = %d, want 1", got)
	}
}
