package notifier

import (
	"bytes"
	"context"
	"fmt"
	"music-api-go/logcolors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Notifier delivers an alert to an operator.
type Notifier interface {
	Send(ctx context.Context, subject, message string, severity Severity) error
}

// NtfyNotifier pushes alerts to an ntfy.sh topic.
type NtfyNotifier struct {
	Topic  string
	Server string // Default: https://ntfy.sh
	Client *http.Client
}

func (n *NtfyNotifier) Send(ctx context.Context, subject, message string, severity Severity) error {
	server := n.Server
	if server == "" {
		server = "https://ntfy.sh"
	}
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	url := fmt.Sprintf("%s/%s", server, n.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}

	req.Header.Set("Title", subject)
	req.Header.Set("Priority", ntfyPriority(severity))
	req.Header.Set("Tags", ntfyTag(severity))

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	log.Infof("%s Ntfy notification sent to topic %s", logcolors.LogNotifier, n.Topic)
	return nil
}

func ntfyPriority(severity Severity) string {
	switch severity {
	case SeverityCritical:
		return "urgent"
	case SeverityWarning:
		return "high"
	default:
		return "default"
	}
}

func ntfyTag(severity Severity) string {
	switch severity {
	case SeverityCritical:
		return "rotating_light"
	case SeverityWarning:
		return "warning"
	default:
		return "information_source"
	}
}
