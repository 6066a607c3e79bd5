package events

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dyncards/dyncards/internal/domain"
)

// Severity classifies a notice for display purposes.
type Severity string

// Possible severity values
const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notice is one user-visible message. CardID is zero when the notice is not
// about a specific item.
type Notice struct {
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	CardID   domain.CardID `json:"card_id,omitempty"`
	At       time.Time     `json:"at"`
}

// Handler receives notices. Handlers must be fast and must not block: the
// interactive path publishes notices synchronously.
type Handler func(Notice)

// Notifier fans notices out to registered handlers. It stores handlers in
// memory and dispatches synchronously, logging every notice as well so
// diagnostics survive even when the host registers nothing.
type Notifier struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		handlers: make([]Handler, 0),
		logger:   logger.With("component", "notifier"),
	}
}

// Register adds a handler to receive all subsequent notices.
func (n *Notifier) Register(handler Handler) {
	if handler == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
	n.logger.Debug("registered notice handler", "handler_count", len(n.handlers))
}

// Publish delivers the notice to every registered handler.
func (n *Notifier) Publish(notice Notice) {
	if notice.At.IsZero() {
		notice.At = time.Now()
	}

	n.mu.RLock()
	handlers := make([]Handler, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.RUnlock()

	switch notice.Severity {
	case SeverityError:
		n.logger.Warn("notice", "message", notice.Message, "card_id", notice.CardID)
	default:
		n.logger.Info("notice", "message", notice.Message, "card_id", notice.CardID)
	}

	for _, handler := range handlers {
		handler(notice)
	}
}

// Info publishes an informational notice with a formatted message.
func (n *Notifier) Info(id domain.CardID, format string, args ...any) {
	n.Publish(Notice{
		Severity: SeverityInfo,
		Message:  fmt.Sprintf(format, args...),
		CardID:   id,
	})
}

// Error publishes an error-flavored notice with a formatted message.
func (n *Notifier) Error(id domain.CardID, format string, args ...any) {
	n.Publish(Notice{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		CardID:   id,
	})
}
