package api

import (
	"context"
	"net/http"
	"time"

	"archie-core-merchant-onboarding/internal/application"
	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// WebhookVerifier authenticates platform webhook requests
type WebhookVerifier interface {
	Verify(r *http.Request) bool
}

// WebhookLog records verified webhooks
type WebhookLog interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// Handler serves the JSON API
type Handler struct {
	engine      *application.AccessEngine
	onboarding  *application.OnboardingService
	connections *application.ConnectionService
	shops       *application.ShopService
	webhooks    *application.WebhookDispatcher
	verifier    WebhookVerifier
	webhookLog  WebhookLog
	events      *pubsub.ConnectionPubSub
	logger      zerolog.Logger
	heartbeat   time.Duration
	now         func() time.Time
}

// Dependencies groups what the handler needs
type Dependencies struct {
	Engine      *application.AccessEngine
	Onboarding  *application.OnboardingService
	Connections *application.ConnectionService
	Shops       *application.ShopService
	Webhooks    *application.WebhookDispatcher
	Verifier    WebhookVerifier
	// WebhookLog is optional
	WebhookLog WebhookLog
	Events     *pubsub.ConnectionPubSub
	Logger     zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		engine:      deps.Engine,
		onboarding:  deps.Onboarding,
		connections: deps.Connections,
		shops:       deps.Shops,
		webhooks:    deps.Webhooks,
		verifier:    deps.Verifier,
		webhookLog:  deps.WebhookLog,
		events:      deps.Events,
		logger:      deps.Logger,
		heartbeat:   25 * time.Second,
		now:         time.Now,
	}
}

// Routes mounts the API on r. requireUser guards every per-user route.
func (h *Handler) Routes(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Post("/webhooks/shopify", h.ShopifyWebhook)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/access", h.GetAccess)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/access/stream", h.StreamAccess)
			r.Get("/me", h.GetMe)

			r.Get("/onboarding", h.GetOnboarding)
			r.Patch("/onboarding/draft", h.QueueDraft)
			r.Put("/onboarding/draft", h.SaveDraft)
			r.Post("/onboarding/validate", h.ValidateOnboarding)
			r.Post("/onboarding/submit", h.SubmitOnboarding)

			r.Get("/connections", h.ListConnections)
			r.Post("/connections/shopify/initiate", h.InitiateShopify)
			r.Post("/connections/shopify/finalize", h.FinalizeShopify)
			r.Post("/connections/ikas", h.ConnectIkas)
			r.Post("/connections/xml", h.ConnectXMLFeed)

			r.Get("/shops/active", h.GetActiveShop)
			r.Post("/sync", h.StartSync)
			r.Get("/sync/{jobId}", h.GetSync)
		})
	})
}
