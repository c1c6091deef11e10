package domain

import "time"

// WebhookEvent is a platform notification that passed signature verification
type WebhookEvent struct {
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	WebhookID  string    `json:"webhookId,omitempty"`
	Payload    []byte    `json:"-"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Shopify webhook topics handled by the service
const (
	TopicAppUninstalled = "app/uninstalled"
)
