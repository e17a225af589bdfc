package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"happdash/internal/config"
	"happdash/internal/events"

	"github.com/rs/zerolog"
)

// Webhook forwards plan events to an external automation trigger. Strictly
// fire-and-forget: delivery runs detached from the mutation that caused it,
// and failures are logged and dropped.
type Webhook struct {
	url    string
	client *http.Client
	logger *zerolog.Logger
}

func NewWebhook(cfg config.WebhookConfig, logger *zerolog.Logger) *Webhook {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Webhook{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Register subscribes the webhook to every plan event type. A webhook with
// no URL configured subscribes to nothing.
func (w *Webhook) Register(bus *events.EventBus) {
	if w.url == "" {
		return
	}
	for _, eventType := range []string{
		events.EventPlanCreated,
		events.EventPlanUpdated,
		events.EventPlanDeleted,
	} {
		bus.Subscribe(eventType, w.handle)
	}
}

func (w *Webhook) handle(event *events.Event) error {
	go w.send(event.Type, event.Payload)
	// The mutation never waits on, or fails with, the webhook.
	return nil
}

type webhookBody struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (w *Webhook) send(eventType string, payload []byte) {
	body, err := json.Marshal(webhookBody{Event: eventType, Payload: payload})
	if err != nil {
		w.logger.Warn().Err(err).Str("event", eventType).Msg("webhook encode failed")
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.logger.Warn().Err(err).Str("event", eventType).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.logger.Warn().Int("status", resp.StatusCode).Str("event", eventType).Msg("webhook rejected")
		return
	}

	w.logger.Debug().Str("event", eventType).Msg("webhook delivered")
}
