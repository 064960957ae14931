package daemon

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/pointer/internal/dbus"
)

// NotificationLevel is the severity of a pointerd notice.
type NotificationLevel int

const (
	NotificationLevelInfo NotificationLevel = iota
	NotificationLevelWarning
	NotificationLevelError
)

// DefaultNoticeInterval is how often the same kind of notice may repeat.
const DefaultNoticeInterval = 5 * time.Second

// levelStyle maps a level to its urgency and freedesktop icon name.
var levelStyle = map[NotificationLevel]struct {
	urgency uint8
	icon    string
}{
	NotificationLevelInfo:    {dbus.UrgencyLow, "dialog-information"},
	NotificationLevelWarning: {dbus.UrgencyNormal, "dialog-warning"},
	NotificationLevelError:   {dbus.UrgencyCritical, "dialog-error"},
}

// InternalNotifier reports pointerd's own events (config reloads, worker
// failures) as desktop notifications. Each key has its own limiter so a
// broken config file saved in a loop shows one bubble, not dozens.
type InternalNotifier struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	send     func(n dbus.Notification) error
	interval time.Duration
	limiters map[string]*rate.Limiter
}

// NewInternalNotifier creates a notifier that drops everything until a
// handler is set.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:   logger.With("component", "notifier"),
		now:      time.Now,
		interval: DefaultNoticeInterval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// SetNotifyHandler sets the function that delivers a notification.
func (n *InternalNotifier) SetNotifyHandler(handler func(n dbus.Notification) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.send = handler
}

// SetMinInterval changes the repeat interval. Zero disables limiting.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.interval = interval
	clear(n.limiters)
}

// allow reports whether key may notify now. Must hold n.mu.
func (n *InternalNotifier) allow(key string) bool {
	if n.interval <= 0 {
		return true
	}
	l, ok := n.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(n.interval), 1)
		n.limiters[key] = l
	}
	return l.AllowN(n.now(), 1)
}

// Notify sends a notice unless one with the same key went out recently.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	send := n.send
	if send == nil {
		n.mu.Unlock()
		n.logger.Debug("notice dropped, no handler", "key", key)
		return
	}
	if !n.allow(key) {
		n.mu.Unlock()
		n.logger.Debug("notice rate limited", "key", key)
		return
	}
	n.mu.Unlock()

	style := levelStyle[level]
	msg := dbus.Notification{
		AppName:       "pointer",
		AppIcon:       style.icon,
		Summary:       summary,
		Body:          body,
		Urgency:       style.urgency,
		Transient:     true,
		ExpireTimeout: 5000,
	}
	if err := send(msg); err != nil {
		n.logger.Debug("notice not delivered", "key", key, "error", err)
	}
}

func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration Reloaded",
		"pointerd configuration has been successfully reloaded.", NotificationLevelInfo)
}

func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration Error",
		"Failed to reload configuration: "+err.Error(), NotificationLevelWarning)
}

// NotifyBackendError reports a worker that failed to start.
func (n *InternalNotifier) NotifyBackendError(err error) {
	n.Notify("backend-error", "Backend Error", err.Error(), NotificationLevelError)
}
