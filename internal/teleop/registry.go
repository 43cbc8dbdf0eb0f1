package teleop

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wemo-robotics/teleopd/internal/transport"
)

// State is a session's lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateActive
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// DefaultSpeed is the console's starting linear speed limit. The speed
// field is a locally tracked setpoint, not device readback: the console
// exposes no way to read the real value at this layer.
const (
	DefaultSpeed = 0.125
	speedStep    = 0.025
)

// Session is one live interactive shell bound to one robot. The handle
// is exclusively owned by the Session; all mutation goes through the
// Service, which serializes operations per robot.
type Session struct {
	RobotID int
	handle  transport.Handle
	state   State
	speed   float64 // last-written setpoint
}

// Liveness is one registry entry with its process liveness, recomputed
// from the transport at read time.
type Liveness struct {
	RobotID int
	Alive   bool
}

// Registry maps robot IDs to live sessions. At most one session per
// robot exists at any time. A single coarse lock is enough at expected
// session counts.
type Registry struct {
	mu       sync.Mutex
	sessions map[int]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int]*Session)}
}

// Insert adds a session. The caller must have checked for an existing
// entry first; a duplicate insert is a programming error.
func (r *Registry) Insert(robotID int, sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[robotID]; ok {
		return fmt.Errorf("registry: session for robot %d already present", robotID)
	}
	r.sessions[robotID] = sess
	return nil
}

// Get returns the session for robotID, if present.
func (r *Registry) Get(robotID int) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[robotID]
	return sess, ok
}

// Remove deletes and returns the session for robotID, if present.
func (r *Registry) Remove(robotID int) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[robotID]
	if ok {
		delete(r.sessions, robotID)
	}
	return sess, ok
}

// ListAll returns every entry with liveness recomputed from the handle,
// sorted by robot ID. Liveness is never cached, so a stale "active" is
// impossible here.
func (r *Registry) ListAll() []Liveness {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Liveness, 0, len(r.sessions))
	for id, sess := range r.sessions {
		out = append(out, Liveness{RobotID: id, Alive: sess.handle.IsAlive()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RobotID < out[j].RobotID })
	return out
}
