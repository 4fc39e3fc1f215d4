// Package notify delivers user-facing notifications: a line on the
// terminal, an event on the bus, and optionally a desktop notification
// through github.com/gen2brain/beeep.
package notify

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/megacloud/megacloud-cli/internal/constants"
	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/logging"
)

// Config holds notification configuration.
type Config struct {
	// Out receives one line per notification. Nil disables terminal output.
	Out io.Writer

	// EventBus receives a NotificationEvent per notification. May be nil.
	EventBus *events.EventBus

	// Desktop sends notifications to the OS notification center.
	Desktop bool
}

// Notifier fans one notification out to every configured sink.
type Notifier struct {
	out      io.Writer
	eventBus *events.EventBus
	logger   *logging.Logger

	mu      sync.RWMutex
	desktop bool

	// send is beeep in production, replaced in tests.
	send func(title, message string, alert bool) error
}

// NewNotifier creates a new notifier with the given configuration.
func NewNotifier(cfg Config, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Notifier{
		out:      cfg.Out,
		eventBus: cfg.EventBus,
		logger:   logger,
		desktop:  cfg.Desktop,
		send:     sendDesktop,
	}
}

// DesktopEnabled returns whether desktop notifications are enabled.
func (n *Notifier) DesktopEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.desktop
}

// Notify shows message as a success or failure notification.
func (n *Notifier) Notify(success bool, message string) {
	title := constants.DisplayName
	if !success {
		title = constants.DisplayName + " Error"
	}

	if n.out != nil {
		mark := "✓"
		if !success {
			mark = "✗"
		}
		fmt.Fprintf(n.out, "%s %s\n", mark, message)
	}

	n.eventBus.PublishNotification(success, title, message)

	if !n.DesktopEnabled() {
		return
	}
	if err := n.send(title, truncate(message, 200), !success); err != nil {
		n.logger.Warn().Err(err).Str("message", message).Msg("Failed to send desktop notification")
	}
}

// Success is shorthand for Notify(true, message).
func (n *Notifier) Success(message string) {
	n.Notify(true, message)
}

// Failure is shorthand for Notify(false, message).
func (n *Notifier) Failure(message string) {
	n.Notify(false, message)
}

// Saved reports a file written to disk, abbreviating long paths.
func (n *Notifier) Saved(name, path string) {
	n.Notify(true, fmt.Sprintf("%q saved to %s", name, shortenPath(path)))
}

func sendDesktop(title, message string, alert bool) error {
	if alert {
		// beeep.Alert also plays a sound on platforms that support it.
		if err := beeep.Alert(title, message, ""); err == nil {
			return nil
		}
	}
	return beeep.Notify(title, message, "")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for display in notifications.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	// Show drive/root + ... + last 2 path components
	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))
	short := filepath.Join("...", parentDir, file)

	vol := filepath.VolumeName(path)
	if vol != "" && len(vol)+len(short)+1 <= maxLen {
		short = vol + string(filepath.Separator) + short
	}

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}

	return short
}
