// Package notify posts session lifecycle events to a chat platform so
// operators see robots being taken over and released. Delivery is
// best-effort: a failed post is logged and dropped, never surfaced into
// the teleoperation path.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wemo-robotics/teleopd/internal/audit"
)

// Adapter is the interface platform-specific implementations satisfy.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Post delivers a plain-text message to the configured channel.
	Post(ctx context.Context, text string) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// postTimeout bounds each outbound post.
const postTimeout = 10 * time.Second

// Notifier formats core session events and posts them through an
// Adapter. It satisfies the core's Notifier interface.
type Notifier struct {
	adapter Adapter
}

// New creates a Notifier posting through adapter.
func New(adapter Adapter) *Notifier {
	return &Notifier{adapter: adapter}
}

func (n *Notifier) SessionStarted(robotID int) {
	n.post(fmt.Sprintf("teleop session started for robot %d", robotID))
}

func (n *Notifier) SessionEnded(robotID int) {
	n.post(fmt.Sprintf("teleop session ended for robot %d", robotID))
}

func (n *Notifier) SessionFailed(robotID int, reason string) {
	n.post(fmt.Sprintf("teleop session for robot %d failed: %s", robotID, reason))
}

func (n *Notifier) post(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()
	if err := n.adapter.Post(ctx, text); err != nil {
		log.Printf("notify: %v", err)
	}
}

// RunDigest blocks, posting a daily activity summary from the audit
// store on the given 5-field cron schedule until the context is
// cancelled. An empty or unparsable schedule disables the digest.
func (n *Notifier) RunDigest(ctx context.Context, store *audit.Store, schedule string) {
	if schedule == "" || store == nil {
		return
	}
	for {
		d := audit.NextCronDuration(schedule)
		if d == 0 {
			log.Printf("notify: digest schedule %q not usable; digest disabled", schedule)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
			sum, err := store.Summarize(time.Now().Add(-24 * time.Hour))
			if err != nil {
				log.Printf("notify: digest: %v", err)
				continue
			}
			n.post(formatDigest(sum))
		}
	}
}

func formatDigest(sum audit.Summary) string {
	return fmt.Sprintf(
		"teleop daily digest: %d sessions started, %d ended, %d failed, %d commands sent",
		sum.Started, sum.Ended, sum.Failed, sum.Commands)
}
