package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a transient notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Source   string    `json:"source,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier receives transient notifications from screens.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// NotificationLog keeps the most recent notifications in a bounded ring.
type NotificationLog struct {
	mu      sync.Mutex
	limit   int
	entries []Notification
	now     func() time.Time
}

// NewNotificationLog keeps at most limit entries (default 20).
func NewNotificationLog(limit int) *NotificationLog {
	if limit <= 0 {
		limit = 20
	}
	return &NotificationLog{limit: limit, now: time.Now}
}

func (l *NotificationLog) Notify(_ context.Context, n Notification) {
	if n.At.IsZero() {
		n.At = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.limit-1]
	}
	l.entries = append(l.entries, n)
}

// Recent returns the retained notifications, oldest first.
func (l *NotificationLog) Recent() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notification, len(l.entries))
	copy(out, l.entries)
	return out
}

// Drain returns and forgets the retained notifications.
func (l *NotificationLog) Drain() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.entries
	l.entries = nil
	return out
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, note Notification) {
	logger := defaultLogger(n.Logger)
	level := slog.LevelInfo
	switch note.Severity {
	case SeverityError:
		level = slog.LevelError
	case SeverityWarning:
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, note.Message, "severity", string(note.Severity), "source", note.Source)
}

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}
