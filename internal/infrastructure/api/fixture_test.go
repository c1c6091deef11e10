package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"archie-core-merchant-onboarding/internal/application"
	"archie-core-merchant-onboarding/internal/application/webhook_handlers"
	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/middleware"
	"archie-core-merchant-onboarding/internal/infrastructure/pubsub"
	"archie-core-merchant-onboarding/internal/infrastructure/shopify"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const webhookSecret = "webhook-secret"

type onboardingStore struct {
	mu   sync.Mutex
	apps map[string]*domain.OnboardingApplication
	err  error
}

func (s *onboardingStore) Get(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	app, ok := s.apps[userID]
	if !ok {
		return nil, nil
	}
	cp := *app
	return &cp, nil
}

func (s *onboardingStore) MergeDraft(ctx context.Context, userID string, patch domain.ApplicationPatch, status domain.ApplicationStatus, currentStep int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	app, ok := s.apps[userID]
	if !ok {
		app = &domain.OnboardingApplication{UserID: userID, CurrentStep: domain.FirstStep, CreatedAt: now}
		s.apps[userID] = app
	}
	merged := domain.PatchFromApplication(app).Merge(patch)
	app.BusinessInfo, app.AddressInfo, app.TaxInfo = merged.BusinessInfo, merged.AddressInfo, merged.TaxInfo
	app.PaymentInfo, app.AgreementData = merged.PaymentInfo, merged.AgreementData
	app.Status = status
	if currentStep > 0 {
		app.CurrentStep = currentStep
	}
	return nil
}

func (s *onboardingStore) Save(ctx context.Context, app *domain.OnboardingApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *app
	s.apps[app.UserID] = &cp
	return nil
}

type connectionStore struct {
	mu    sync.Mutex
	conns []*domain.ShopConnection
}

func (s *connectionStore) Get(ctx context.Context, userID string, shopID string) (*domain.ShopConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		if c.UserID == userID && c.ShopID == shopID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *connectionStore) ListByUser(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.ShopConnection{}
	for _, c := range s.conns {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *connectionStore) Upsert(ctx context.Context, conn *domain.ShopConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		if c.UserID == conn.UserID && c.ShopID == conn.ShopID {
			*c = *conn
			return nil
		}
	}
	cp := *conn
	s.conns = append(s.conns, &cp)
	return nil
}

func (s *connectionStore) UpdateToken(ctx context.Context, userID string, shopID string, accessToken string, fetchedAt time.Time) error {
	return nil
}

func (s *connectionStore) MarkUnverifiedByShop(ctx context.Context, shopType domain.ShopType, shopID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []string
	for _, c := range s.conns {
		if c.ShopType == shopType && c.ShopID == shopID {
			c.Verified = false
			users = append(users, c.UserID)
		}
	}
	return users, nil
}

// noCache always misses so every read goes to the store
type noCache struct{}

func (noCache) Get(ctx context.Context, userID string) ([]*domain.ShopConnection, bool, error) {
	return nil, false, nil
}
func (noCache) Set(ctx context.Context, userID string, conns []*domain.ShopConnection) error {
	return nil
}
func (noCache) Invalidate(ctx context.Context, userID string) error { return nil }

type fakeBackend struct {
	startErr error
}

func (b *fakeBackend) StartOAuth(ctx context.Context, bearer string, shopDomain string) (*domain.OAuthStart, error) {
	if b.startErr != nil {
		return nil, b.startErr
	}
	return &domain.OAuthStart{RedirectURL: "https://" + shopDomain + "/admin/oauth/authorize"}, nil
}

func (b *fakeBackend) FinalizeOAuth(ctx context.Context, bearer string, state string) (*domain.OAuthFinalize, error) {
	return &domain.OAuthFinalize{AccessToken: "shpat"}, nil
}

func (b *fakeBackend) ConnectCredentials(ctx context.Context, bearer string, shopName string, clientID string, clientSecret string) error {
	return domain.NewConnectionError("invalid client credentials", nil)
}

func (b *fakeBackend) StartSync(ctx context.Context, bearer string, shopID string, accessToken string) (*domain.SyncJob, error) {
	return &domain.SyncJob{ID: "job-1", ShopID: shopID, Status: "queued"}, nil
}

func (b *fakeBackend) GetSync(ctx context.Context, bearer string, jobID string) (*domain.SyncJob, error) {
	return &domain.SyncJob{ID: jobID, Status: "done", Progress: 100}, nil
}

type failingTokens struct{}

func (failingTokens) FetchToken(ctx context.Context, shopName string, clientID string, clientSecret string) (string, error) {
	return "", errors.New("invalid_client")
}

type unusedShopify struct{}

func (unusedShopify) GetShop(ctx context.Context, shopDomain string, accessToken string) (*domain.ShopInfo, error) {
	return &domain.ShopInfo{ShopID: shopDomain, ShopType: domain.ShopTypeShopify, Name: "My Store"}, nil
}

type unusedIkas struct{}

func (unusedIkas) GetMerchant(ctx context.Context, accessToken string) (*domain.ShopInfo, error) {
	return nil, errors.New("unexpected call")
}

type recordingWebhookLog struct {
	mu     sync.Mutex
	events []*domain.WebhookEvent
}

func (l *recordingWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// testIdentity stands in for the token middleware: X-Test-User becomes the caller
func testIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := r.Header.Get("X-Test-User"); user != "" {
			ctx := domain.WithUserID(r.Context(), user)
			ctx = domain.WithBearerToken(ctx, "id-token-"+user)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

type apiFixture struct {
	onboarding  *onboardingStore
	connections *connectionStore
	backend     *fakeBackend
	webhookLog  *recordingWebhookLog
	events      *pubsub.ConnectionPubSub
	handler     *Handler
	router      http.Handler
}

func newAPIFixture() *apiFixture {
	logger := zerolog.Nop()
	f := &apiFixture{
		onboarding:  &onboardingStore{apps: map[string]*domain.OnboardingApplication{}},
		connections: &connectionStore{},
		backend:     &fakeBackend{},
		webhookLog:  &recordingWebhookLog{},
		events:      pubsub.NewConnectionPubSub(logger),
	}

	directory := application.NewConnectionDirectory(f.connections, noCache{}, f.events, logger)
	onboarding := application.NewOnboardingService(f.onboarding, logger, application.OnboardingOptions{AutoApprove: true, AutosaveDebounce: time.Hour})
	engine := application.NewAccessEngine(onboarding, directory, logger)
	connections := application.NewConnectionService(f.backend, middleware.BearerSource{}, f.connections, directory, nil, logger, application.ConnectionOptions{})
	tokens := application.NewTokenLifecycleManager(failingTokens{}, f.connections, logger)
	shops := application.NewShopService(directory, f.connections, tokens, unusedShopify{}, unusedIkas{}, f.backend, middleware.BearerSource{}, logger)
	dispatcher := application.NewWebhookDispatcher(logger, webhook_handlers.NewAppUninstalledHandler(logger, f.connections, directory))

	f.handler = NewHandler(Dependencies{
		Engine:      engine,
		Onboarding:  onboarding,
		Connections: connections,
		Shops:       shops,
		Webhooks:    dispatcher,
		Verifier:    shopify.NewWebhookVerifier(webhookSecret),
		WebhookLog:  f.webhookLog,
		Events:      f.events,
		Logger:      logger,
	})
	f.handler.heartbeat = 20 * time.Millisecond

	r := chi.NewRouter()
	r.Use(testIdentity)
	f.handler.Routes(r, middleware.RequireUser)
	f.router = r
	return f
}
