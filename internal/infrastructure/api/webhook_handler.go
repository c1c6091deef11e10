package api

import (
	"io"
	"net/http"

	"archie-core-merchant-onboarding/internal/domain"
)

// ShopifyWebhook handles Shopify webhook requests
func (h *Handler) ShopifyWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.verifier.Verify(r) {
		h.logger.Warn().Str("shop", r.Header.Get("X-Shopify-Shop-Domain")).Msg("Webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read webhook payload")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	event := &domain.WebhookEvent{
		Topic:      topic,
		Shop:       r.Header.Get("X-Shopify-Shop-Domain"),
		WebhookID:  r.Header.Get("X-Shopify-Webhook-Id"),
		Payload:    payload,
		ReceivedAt: h.now(),
	}

	if h.webhookLog != nil {
		if err := h.webhookLog.LogWebhook(ctx, event); err != nil {
			h.logger.Error().Err(err).Msg("Failed to log webhook event")
		}
	}

	if err := h.webhooks.Dispatch(ctx, event); err != nil {
		h.logger.Error().
			Err(err).
			Str("topic", topic).
			Str("shop", event.Shop).
			Msg("Failed to dispatch webhook event")
		// 500 makes Shopify retry
		http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
