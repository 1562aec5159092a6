package alert

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazz-dev/urlmedic/internal/checker"
)

// Alerter sends webhook notifications when a target's URLs change status.
type Alerter struct {
	webhookURL string
	cooldown   time.Duration
	client     *http.Client
	lastAlert  map[string]time.Time
	mu         sync.Mutex
	logger     *slog.Logger
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		client:     &http.Client{Timeout: 10 * time.Second},
		lastAlert:  make(map[string]time.Time),
		logger:     logger,
	}
}

type change struct {
	URL      string `json:"url"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Redirect string `json:"redirect_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

type webhookPayload struct {
	Target    string   `json:"target"`
	Changes   []change `json:"changes"`
	CheckedAt string   `json:"checked_at"`
	Source    string   `json:"source"`
}

// Notify sends a webhook listing the status changes of one run of target,
// unless there are none or the target is still in its cooldown.
func (a *Alerter) Notify(target string, changes []checker.CompareEntry, checkedAt time.Time) {
	if len(changes) == 0 {
		return
	}

	a.mu.Lock()
	last, exists := a.lastAlert[target]
	if exists && time.Since(last) < a.cooldown {
		a.mu.Unlock()
		a.logger.Info("alert suppressed by cooldown", "target", target, "changes", len(changes))
		return
	}
	a.lastAlert[target] = time.Now()
	a.mu.Unlock()

	// Send asynchronously so Notify doesn't block the scheduler.
	go a.send(newPayload(target, changes, checkedAt))
}

func newPayload(target string, entries []checker.CompareEntry, checkedAt time.Time) webhookPayload {
	changes := make([]change, 0, len(entries))
	for _, e := range entries {
		changes = append(changes, change{
			URL:      e.Current.URL,
			Previous: e.Previous.StatusLabel(),
			Current:  e.Current.StatusLabel(),
			Redirect: e.Current.RedirectURL,
			Error:    e.Current.Error,
		})
	}
	return webhookPayload{
		Target:    target,
		Changes:   changes,
		CheckedAt: checkedAt.UTC().Format(time.RFC3339),
		Source:    "urlmedic",
	}
}

func (a *Alerter) send(payload webhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("marshaling webhook payload", "target", payload.Target, "error", err)
		return
	}

	resp, err := a.client.Post(a.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		a.logger.Error("sending webhook", "target", payload.Target, "url", a.webhookURL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.logger.Warn("webhook returned non-2xx status",
			"target", payload.Target,
			"status", resp.StatusCode,
		)
	}
}
