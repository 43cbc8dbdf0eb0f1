package teleop

import (
	"errors"
	"fmt"
	"time"

	"github.com/wemo-robotics/teleopd/internal/config"
	"github.com/wemo-robotics/teleopd/internal/expect"
	"github.com/wemo-robotics/teleopd/internal/transport"
)

// Console protocol markers. These come from the robot controller's login
// banner and the keyboard teleop console; they are the only readiness
// signals the remote side emits.
const (
	launchCommand  = "robohive_keyboard_teleop_console"
	toolReadyText  = "Available teleoperables"
	controlGranted = "WARNING - WATCH OUT FOR MOVING ROBOT"
	grabControlKey = "g"
	interruptKey   = "\x03"
)

// Sequencer drives the fixed login/launch protocol that turns a dialed
// shell into a controlled teleop console: connect, authenticate, launch
// the console, select the default robot, grab control. Each step is
// guarded by one expect call with its own deadline. On any failure the
// spawned process is terminated before the error is returned, so no
// attempt leaks a process.
type Sequencer struct {
	dialer   transport.Dialer
	robot    config.RobotConfig
	timeouts config.TimeoutsConfig

	// sleep implements the fixed settle delays; replaced in tests.
	sleep func(time.Duration)
}

// NewSequencer creates a Sequencer dialing through dialer with the given
// robot credentials and step budgets.
func NewSequencer(dialer transport.Dialer, robot config.RobotConfig, timeouts config.TimeoutsConfig) *Sequencer {
	return &Sequencer{
		dialer:   dialer,
		robot:    robot,
		timeouts: timeouts,
		sleep:    time.Sleep,
	}
}

// Run executes the full sequence for robotID and returns the live handle
// on success. The returned error is always a *Failure.
func (q *Sequencer) Run(robotID int) (transport.Handle, error) {
	ep := transport.Endpoint{Addr: q.robot.Addr(robotID), User: q.robot.User}
	h, err := q.dialer.Open(ep)
	if err != nil {
		return nil, failf(KindConnectFailed, "robot %d: %v", robotID, err)
	}

	// Every failure path below must release the process exactly once.
	fail := func(kind Kind, format string, args ...any) error {
		h.Terminate()
		return failf(kind, format, args...)
	}

	stream := expect.NewStream(h)

	// Wait for the password prompt. A permission-denied banner before the
	// prompt means the controller rejected the connection outright.
	label, err := stream.Expect([]expect.Pattern{
		expect.Literal("password", "password: "),
		expect.Literal("denied", "Permission denied"),
	}, q.timeouts.Connect)
	if err != nil {
		return nil, fail(KindConnectFailed, "robot %d is not active: %v", robotID, err)
	}
	if label == "denied" {
		return nil, fail(KindConnectionRejected, "robot %d rejected the connection before password", robotID)
	}

	if err := h.Write([]byte(q.robot.Password + "\n")); err != nil {
		return nil, fail(KindWriteFailed, "robot %d: send password: %v", robotID, err)
	}

	// Authentication result: a retry prompt means the password was wrong;
	// the login banner or the shell prompt means we are in.
	shellPrompt := fmt.Sprintf("%s@wemo%04d:~", q.robot.User, robotID)
	label, err = stream.Expect([]expect.Pattern{
		expect.Literal("retry", "Permission denied, please try again."),
		expect.Literal("welcome", "Welcome to Ubuntu"),
		expect.Literal("shell", shellPrompt),
	}, q.timeouts.Auth)
	if err != nil {
		return nil, q.setupFail(fail, robotID, err)
	}
	switch label {
	case "retry":
		return nil, fail(KindAuthFailed, "robot %d: authentication failed, incorrect password", robotID)
	case "welcome":
		if _, err := stream.Expect([]expect.Pattern{
			expect.Literal("shell", shellPrompt),
		}, q.timeouts.Auth); err != nil {
			return nil, q.setupFail(fail, robotID, err)
		}
	}

	if err := h.Write([]byte(launchCommand + "\n")); err != nil {
		return nil, fail(KindWriteFailed, "robot %d: launch console: %v", robotID, err)
	}
	if _, err := stream.Expect([]expect.Pattern{
		expect.Literal("tool", toolReadyText),
	}, q.timeouts.ToolReady); err != nil {
		if errors.Is(err, expect.ErrTimeout) {
			return nil, fail(KindToolLaunchTimeout, "robot %d: teleop console did not come up: %v", robotID, err)
		}
		return nil, q.setupFail(fail, robotID, err)
	}

	// The console populates its robot roster asynchronously with no
	// textual marker, so a fixed settle delay is the best available wait.
	q.sleep(q.timeouts.RosterSettle)

	// Accept the default robot selection, then let the platform settle.
	if err := h.Write([]byte("\n")); err != nil {
		return nil, fail(KindWriteFailed, "robot %d: select robot: %v", robotID, err)
	}
	q.sleep(q.timeouts.SelectSettle)

	if err := h.Write([]byte(grabControlKey)); err != nil {
		return nil, fail(KindWriteFailed, "robot %d: grab control: %v", robotID, err)
	}
	if _, err := stream.Expect([]expect.Pattern{
		expect.Literal("granted", controlGranted),
	}, q.timeouts.ControlGrant); err != nil {
		if errors.Is(err, expect.ErrTimeout) {
			return nil, fail(KindControlGrantTimeout,
				"robot %d: control grab failed, likely held by another operator", robotID)
		}
		return nil, q.setupFail(fail, robotID, err)
	}

	return h, nil
}

// setupFail renders a mid-sequence expect failure: timeouts at steps
// without a dedicated kind, and transport faults, both surface as
// unknown with the underlying cause in the reason.
func (q *Sequencer) setupFail(fail func(Kind, string, ...any) error, robotID int, err error) error {
	return fail(KindUnknown, "robot %d: session setup failed: %v", robotID, err)
}
