package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/wemo-robotics/teleopd/internal/audit"
)

// mockAdapter records posted messages.
type mockAdapter struct {
	mu      sync.Mutex
	posts   []string
	postErr error
}

func (m *mockAdapter) Connect(ctx context.Context) error { return nil }
func (m *mockAdapter) Close() error                      { return nil }

func (m *mockAdapter) Post(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, text)
	return m.postErr
}

func TestNotifierFormatsEvents(t *testing.T) {
	m := &mockAdapter{}
	n := New(m)

	n.SessionStarted(42)
	n.SessionEnded(42)
	n.SessionFailed(7, "control grab failed")

	if len(m.posts) != 3 {
		t.Fatalf("posts = %q, want 3", m.posts)
	}
	if !strings.Contains(m.posts[0], "started for robot 42") {
		t.Errorf("post[0] = %q", m.posts[0])
	}
	if !strings.Contains(m.posts[1], "ended for robot 42") {
		t.Errorf("post[1] = %q", m.posts[1])
	}
	if !strings.Contains(m.posts[2], "robot 7 failed: control grab failed") {
		t.Errorf("post[2] = %q", m.posts[2])
	}
}

func TestNotifierSwallowsPostErrors(t *testing.T) {
	m := &mockAdapter{postErr: errors.New("channel archived")}
	n := New(m)

	// Must not panic or propagate; delivery is best-effort.
	n.SessionStarted(1)
}

func TestFormatDigest(t *testing.T) {
	got := formatDigest(audit.Summary{Started: 3, Ended: 2, Failed: 1, Commands: 40})
	want := "teleop daily digest: 3 sessions started, 2 ended, 1 failed, 40 commands sent"
	if got != want {
		t.Errorf("formatDigest = %q, want %q", got, want)
	}
}
