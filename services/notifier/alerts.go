package notifier

import (
	"context"
	"fmt"
	"music-api-go/logcolors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Default cooldown between alerts of the same type
	DefaultAlertCooldown = 15 * time.Minute
	sendTimeout          = 15 * time.Second
)

// AlertHandler turns bus events into notifications, rate limited per event type.
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[EventType]time.Time
	cooldownDuration time.Duration
	minSeverity      Severity
	mu               sync.Mutex
}

// AlertConfig holds configuration for the alert handler
type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
	// MinSeverity drops events below this level. Empty means warning.
	MinSeverity Severity
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(config AlertConfig) *AlertHandler {
	cooldown := config.CooldownDuration
	if cooldown == 0 {
		cooldown = DefaultAlertCooldown
	}
	minSeverity := config.MinSeverity
	if minSeverity == "" {
		minSeverity = SeverityWarning
	}

	return &AlertHandler{
		notifiers:        config.Notifiers,
		cooldowns:        make(map[EventType]time.Time),
		cooldownDuration: cooldown,
		minSeverity:      minSeverity,
	}
}

// Start subscribes the handler to the bus
func (h *AlertHandler) Start(bus *EventBus) {
	bus.SubscribeAll(h.HandleEvent)
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogNotifier, h.cooldownDuration, len(h.notifiers))
}

// HandleEvent formats and sends a single event if it passes severity and cooldown checks.
func (h *AlertHandler) HandleEvent(event *Event) {
	if severityRank(event.Severity) < severityRank(h.minSeverity) {
		return
	}

	if !h.shouldAlert(event.Type) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogNotifier, event.Type)
		return
	}

	subject, message := FormatAlert(event)
	if subject == "" {
		return
	}

	h.sendAlert(subject, message, event.Severity)
}

func (h *AlertHandler) shouldAlert(eventType EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	lastAlert, exists := h.cooldowns[eventType]
	if !exists || time.Since(lastAlert) >= h.cooldownDuration {
		h.cooldowns[eventType] = time.Now()
		return true
	}
	return false
}

// FormatAlert renders an event as a notification subject and body.
// Unknown event types return empty strings.
func FormatAlert(event *Event) (subject, message string) {
	switch event.Type {
	case EventCircuitBreakerOpen:
		subject = "Circuit Breaker OPEN"
		message = fmt.Sprintf(
			"The %v circuit breaker has tripped after %v consecutive failures.\n\n"+
				"Catalog requests will fail fast for %v.\n\n"+
				"Action: Check upstream reachability and the configured API key.",
			event.Data["name"], event.Data["failures"], event.Data["cooldown"])

	case EventServerStartupFailed:
		subject = "Server Startup FAILED"
		message = fmt.Sprintf(
			"The server failed to start.\n\nComponent: %v\nError: %v",
			event.Data["component"], event.Data["error"])

	case EventHighFailureRate:
		subject = "High Failure Rate Warning"
		message = fmt.Sprintf(
			"The %v circuit breaker has recorded %v/%v failures.",
			event.Data["name"], event.Data["failures"], event.Data["threshold"])

	case EventDatabaseBackupFailed:
		subject = "Database Backup Failed"
		message = fmt.Sprintf(
			"Failed to create a local database backup.\n\nError: %v\n\n"+
				"Action: Check disk space and permissions.",
			event.Data["error"])

	case EventSyncQueueSaturated:
		subject = "Cache Sync Queue Saturated"
		message = fmt.Sprintf(
			"The sync queue (capacity %v) is full. %v task(s) dropped so far.",
			event.Data["capacity"], event.Data["dropped"])

	case EventCircuitBreakerRecovered:
		subject = "Circuit Breaker Recovered"
		message = fmt.Sprintf("The %v circuit breaker has recovered and is now operational.", event.Data["name"])

	case EventServerStarted:
		subject = "Server Started"
		message = fmt.Sprintf("Server started on port %v (database: %v).", event.Data["port"], event.Data["database"])

	case EventDatabaseRestored:
		subject = "Database Restored"
		message = fmt.Sprintf("Local database restored from %v.", event.Data["file"])

	default:
		return "", ""
	}

	switch event.Severity {
	case SeverityCritical:
		subject = "[CRITICAL] " + subject
	case SeverityWarning:
		subject = "[WARNING] " + subject
	}

	return subject, message
}

func (h *AlertHandler) sendAlert(subject, message string, severity Severity) {
	if len(h.notifiers) == 0 {
		log.Warnf("%s No notifiers configured, skipping alert: %s", logcolors.LogNotifier, subject)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	successCount := 0
	for _, n := range h.notifiers {
		if err := n.Send(ctx, subject, message, severity); err != nil {
			log.Errorf("%s Failed to send alert via notifier: %v", logcolors.LogNotifier, err)
		} else {
			successCount++
		}
	}

	if successCount > 0 {
		log.Infof("%s Alert sent successfully via %d/%d notifiers", logcolors.LogNotifier, successCount, len(h.notifiers))
	}
}

// ResetCooldown manually resets the cooldown for a specific event type
func (h *AlertHandler) ResetCooldown(eventType EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, eventType)
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}
