package teleop

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wemo-robotics/teleopd/internal/config"
	"github.com/wemo-robotics/teleopd/internal/transport"
)

// Outcome strings returned by session operations. Benign conditions
// ("already active", "no active session") are success variants, not
// errors, so callers can start and end unconditionally.
const (
	OutcomeStarted       = "Session started successfully"
	OutcomeAlreadyActive = "Session already active"
	OutcomeEnded         = "Session ended successfully"
	OutcomeNoSession     = "No active session"
	OutcomeCommandSent   = "Command sent successfully"
)

// Status strings returned by Status.
const (
	StatusNoSession  = "no session"
	StatusActive     = "active"
	StatusTerminated = "terminated"
)

// Recorder receives audit records for session events and commands.
// Implementations must not block the command path; errors are theirs to
// handle.
type Recorder interface {
	SessionEvent(robotID int, event, reason string)
	Command(robotID int, family, arg string)
}

// Notifier receives operator-facing session lifecycle events.
type Notifier interface {
	SessionStarted(robotID int)
	SessionEnded(robotID int)
	SessionFailed(robotID int, reason string)
}

// DebugInfo is a point-in-time snapshot of one robot's session state.
type DebugInfo struct {
	RobotID      int
	Status       string
	InRegistry   bool
	ProcessAlive *bool // nil when no session exists
	ActiveRobots []int
}

// ServiceOpts holds parameters for creating a Service.
type ServiceOpts struct {
	Dialer   transport.Dialer
	Robot    config.RobotConfig
	Timeouts config.TimeoutsConfig
	Registry *Registry // optional; a fresh one is created if nil
	Recorder Recorder  // optional
	Notifier Notifier  // optional
}

// Service owns the session registry and orchestrates the sequencer, the
// command translator, and the transport. All operations on the same
// robot are serialized through a per-robot lock: the remote console has
// no notion of interleaved input, so caller discipline is not trusted.
// Operations on different robots run concurrently.
type Service struct {
	seq *Sequencer
	reg *Registry
	end time.Duration // settle between graceful end steps

	rec Recorder
	not Notifier

	mu    sync.Mutex
	locks map[int]*sync.Mutex

	sleep func(time.Duration)
}

// NewService creates a Service.
func NewService(opts ServiceOpts) (*Service, error) {
	if opts.Dialer == nil {
		return nil, fmt.Errorf("teleop: dialer is required")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	return &Service{
		seq:   NewSequencer(opts.Dialer, opts.Robot, opts.Timeouts),
		reg:   reg,
		end:   opts.Timeouts.EndStep,
		rec:   opts.Recorder,
		not:   opts.Notifier,
		locks: make(map[int]*sync.Mutex),
		sleep: time.Sleep,
	}, nil
}

// lockFor returns the per-robot mutex, creating it on first use.
func (s *Service) lockFor(robotID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[robotID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[robotID] = l
	}
	return l
}

// Start establishes a session for robotID. Starting a robot that already
// has a live session is a no-op success. On sequencer failure nothing is
// inserted and the failure reason propagates unchanged.
func (s *Service) Start(robotID int) (string, error) {
	l := s.lockFor(robotID)
	l.Lock()
	defer l.Unlock()

	if sess, ok := s.reg.Get(robotID); ok {
		if sess.handle.IsAlive() {
			return OutcomeAlreadyActive, nil
		}
		// Dead leftover: clear it and establish a fresh session.
		s.reg.Remove(robotID)
	}

	log.Printf("teleop: starting session for robot %d", robotID)
	h, err := s.seq.Run(robotID)
	if err != nil {
		s.record(robotID, "start_failed", err.Error())
		if s.not != nil {
			s.not.SessionFailed(robotID, err.Error())
		}
		return "", err
	}

	sess := &Session{RobotID: robotID, handle: h, state: StateActive, speed: DefaultSpeed}
	if err := s.reg.Insert(robotID, sess); err != nil {
		// Unreachable while the per-robot lock is held; release the
		// process rather than leak it.
		h.Terminate()
		return "", failf(KindUnknown, "robot %d: %v", robotID, err)
	}

	log.Printf("teleop: session started for robot %d", robotID)
	s.record(robotID, "started", "")
	if s.not != nil {
		s.not.SessionStarted(robotID)
	}
	return OutcomeStarted, nil
}

// End tears down the session for robotID: best-effort control release,
// interrupt, and exit, then unconditional termination and removal.
// Ending an absent session is a success.
func (s *Service) End(robotID int) (string, error) {
	l := s.lockFor(robotID)
	l.Lock()
	defer l.Unlock()

	sess, ok := s.reg.Get(robotID)
	if !ok {
		return OutcomeNoSession, nil
	}

	// Graceful steps are advisory: the remote shell may already be gone.
	// Termination below happens regardless.
	for _, step := range [][]byte{
		[]byte(grabControlKey), // toggles control off
		[]byte(interruptKey),
		[]byte("exit\n"),
	} {
		if err := sess.handle.Write(step); err != nil {
			break
		}
		s.sleep(s.end)
	}

	sess.handle.Terminate()
	sess.state = StateTerminated
	s.reg.Remove(robotID)

	log.Printf("teleop: session ended for robot %d", robotID)
	s.record(robotID, "ended", "")
	if s.not != nil {
		s.not.SessionEnded(robotID)
	}
	return OutcomeEnded, nil
}

// Send translates cmd and writes it to robotID's console. The enum check
// happens before the session lookup so an out-of-enum value never
// reaches the transport. A dead session is removed lazily and reported
// as no-active-session; a write that fails because the process died
// mid-write also removes the session.
func (s *Service) Send(robotID int, cmd Command) (string, error) {
	keys, err := Translate(cmd)
	if err != nil {
		return "", err
	}

	l := s.lockFor(robotID)
	l.Lock()
	defer l.Unlock()

	sess, ok := s.reg.Get(robotID)
	if !ok {
		return "", failf(KindNoActiveSession, "no active session for robot %d", robotID)
	}
	if !sess.handle.IsAlive() {
		s.dropDead(robotID, sess)
		return "", failf(KindNoActiveSession, "session for robot %d is no longer active", robotID)
	}

	if len(keys) > 0 {
		if err := sess.handle.Write(keys); err != nil {
			if !sess.handle.IsAlive() {
				s.dropDead(robotID, sess)
				return "", failf(KindNoActiveSession, "session for robot %d died mid-write", robotID)
			}
			return "", failf(KindCommandFailed, "robot %d: %v", robotID, err)
		}
	}

	if cmd.Family() == FamilySpeedChange {
		sess.applySpeedStep(cmd.Arg())
	}

	s.recordCommand(robotID, cmd)
	return OutcomeCommandSent, nil
}

// Speed returns robotID's last-written speed setpoint. This is a local
// estimate: the console never echoes the real device value back.
func (s *Service) Speed(robotID int) (float64, error) {
	l := s.lockFor(robotID)
	l.Lock()
	defer l.Unlock()

	sess, ok := s.reg.Get(robotID)
	if !ok {
		return 0, failf(KindNoActiveSession, "no active session for robot %d", robotID)
	}
	if !sess.handle.IsAlive() {
		s.dropDead(robotID, sess)
		return 0, failf(KindNoActiveSession, "session for robot %d is no longer active", robotID)
	}
	return sess.speed, nil
}

// Status reports robotID's session state, removing a dead session on
// discovery so "active" is never stale.
func (s *Service) Status(robotID int) string {
	l := s.lockFor(robotID)
	l.Lock()
	defer l.Unlock()

	sess, ok := s.reg.Get(robotID)
	if !ok {
		return StatusNoSession
	}
	if !sess.handle.IsAlive() {
		s.dropDead(robotID, sess)
		return StatusTerminated
	}
	return StatusActive
}

// ListActive enumerates registry entries with per-entry liveness.
func (s *Service) ListActive() []Liveness {
	return s.reg.ListAll()
}

// Debug returns a snapshot of robotID's session for troubleshooting.
func (s *Service) Debug(robotID int) DebugInfo {
	info := DebugInfo{RobotID: robotID}
	sess, ok := s.reg.Get(robotID)
	info.InRegistry = ok
	if ok {
		alive := sess.handle.IsAlive()
		info.ProcessAlive = &alive
	}
	info.Status = s.Status(robotID)
	// Status may have removed a dead entry; re-check.
	if _, still := s.reg.Get(robotID); !still {
		info.InRegistry = false
	}
	for _, lv := range s.reg.ListAll() {
		info.ActiveRobots = append(info.ActiveRobots, lv.RobotID)
	}
	return info
}

// dropDead removes a session whose process has died. Terminate is still
// called to release the pty descriptor.
func (s *Service) dropDead(robotID int, sess *Session) {
	sess.handle.Terminate()
	sess.state = StateTerminated
	s.reg.Remove(robotID)
	s.record(robotID, "reaped", "process died")
}

func (s *Service) record(robotID int, event, reason string) {
	if s.rec != nil {
		s.rec.SessionEvent(robotID, event, reason)
	}
}

func (s *Service) recordCommand(robotID int, cmd Command) {
	if s.rec != nil {
		s.rec.Command(robotID, string(cmd.Family()), cmd.Arg())
	}
}

// applySpeedStep tracks the setpoint locally after a speed keystroke.
func (sess *Session) applySpeedStep(action string) {
	switch action {
	case "increase":
		sess.speed += speedStep
	case "decrease":
		sess.speed -= speedStep
		if sess.speed < 0 {
			sess.speed = 0
		}
	}
}
