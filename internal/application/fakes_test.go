package application

import (
	"context"
	"sync"
	"time"

	"archie-core-merchant-onboarding/internal/domain"

	"github.com/stretchr/testify/mock"
)

type memOnboardingRepo struct {
	mu         sync.Mutex
	apps       map[string]*domain.OnboardingApplication
	getErr     error
	saveErr    error
	mergeErr   error
	mergeCalls int
	saveCalls  int
	// mergeHook runs inside MergeDraft before the write lands
	mergeHook func()
}

func newMemOnboardingRepo() *memOnboardingRepo {
	return &memOnboardingRepo{apps: make(map[string]*domain.OnboardingApplication)}
}

func (r *memOnboardingRepo) Get(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	app, ok := r.apps[userID]
	if !ok {
		return nil, nil
	}
	cp := *app
	return &cp, nil
}

func (r *memOnboardingRepo) MergeDraft(ctx context.Context, userID string, patch domain.ApplicationPatch, status domain.ApplicationStatus, currentStep int, now time.Time) error {
	if r.mergeHook != nil {
		r.mergeHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mergeCalls++
	if r.mergeErr != nil {
		return r.mergeErr
	}
	app, ok := r.apps[userID]
	if !ok {
		app = &domain.OnboardingApplication{UserID: userID, CurrentStep: domain.FirstStep, CreatedAt: now}
		r.apps[userID] = app
	}
	merged := domain.PatchFromApplication(app).Merge(patch)
	app.BusinessInfo = merged.BusinessInfo
	app.AddressInfo = merged.AddressInfo
	app.TaxInfo = merged.TaxInfo
	app.PaymentInfo = merged.PaymentInfo
	app.AgreementData = merged.AgreementData
	app.Status = status
	if currentStep > 0 {
		app.CurrentStep = currentStep
	}
	app.UpdatedAt = now
	return nil
}

func (r *memOnboardingRepo) Save(ctx context.Context, app *domain.OnboardingApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *app
	r.apps[app.UserID] = &cp
	return nil
}

func (r *memOnboardingRepo) stored(userID string) *domain.OnboardingApplication {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apps[userID]
}

type memConnectionRepo struct {
	mu          sync.Mutex
	conns       []*domain.ShopConnection
	listErr     error
	upsertErr   error
	updateErr   error
	listCalls   int
	updateCalls int
}

func (r *memConnectionRepo) Get(ctx context.Context, userID string, shopID string) (*domain.ShopConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		if c.UserID == userID && c.ShopID == shopID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memConnectionRepo) ListByUser(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []*domain.ShopConnection{}
	for _, c := range r.conns {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memConnectionRepo) Upsert(ctx context.Context, conn *domain.ShopConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	for _, c := range r.conns {
		if c.UserID == conn.UserID && c.ShopID == conn.ShopID {
			connectedAt := c.ConnectedAt
			*c = *conn
			c.ConnectedAt = connectedAt
			return nil
		}
	}
	cp := *conn
	r.conns = append(r.conns, &cp)
	return nil
}

func (r *memConnectionRepo) UpdateToken(ctx context.Context, userID string, shopID string, accessToken string, fetchedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	for _, c := range r.conns {
		if c.UserID == userID && c.ShopID == shopID {
			c.AccessToken = accessToken
			f := fetchedAt
			c.FetchedAt = &f
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memConnectionRepo) MarkUnverifiedByShop(ctx context.Context, shopType domain.ShopType, shopID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []string
	for _, c := range r.conns {
		if c.ShopType == shopType && c.ShopID == shopID && c.Verified {
			c.Verified = false
			users = append(users, c.UserID)
		}
	}
	return users, nil
}

func (r *memConnectionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

type memCache struct {
	mu        sync.Mutex
	snapshots map[string][]*domain.ShopConnection
	getErr    error
}

func newMemCache() *memCache {
	return &memCache{snapshots: make(map[string][]*domain.ShopConnection)}
}

func (c *memCache) Get(ctx context.Context, userID string) ([]*domain.ShopConnection, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	conns, ok := c.snapshots[userID]
	return conns, ok, nil
}

func (c *memCache) Set(ctx context.Context, userID string, conns []*domain.ShopConnection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[userID] = conns
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, userID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.ConnectionEvent
}

func (p *recordingPublisher) Publish(event *domain.ConnectionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) StartOAuth(ctx context.Context, bearer string, shopDomain string) (*domain.OAuthStart, error) {
	args := m.Called(ctx, bearer, shopDomain)
	if v := args.Get(0); v != nil {
		return v.(*domain.OAuthStart), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) FinalizeOAuth(ctx context.Context, bearer string, state string) (*domain.OAuthFinalize, error) {
	args := m.Called(ctx, bearer, state)
	if v := args.Get(0); v != nil {
		return v.(*domain.OAuthFinalize), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) ConnectCredentials(ctx context.Context, bearer string, shopName string, clientID string, clientSecret string) error {
	args := m.Called(ctx, bearer, shopName, clientID, clientSecret)
	return args.Error(0)
}

func (m *mockBackend) StartSync(ctx context.Context, bearer string, shopID string, accessToken string) (*domain.SyncJob, error) {
	args := m.Called(ctx, bearer, shopID, accessToken)
	if v := args.Get(0); v != nil {
		return v.(*domain.SyncJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) GetSync(ctx context.Context, bearer string, jobID string) (*domain.SyncJob, error) {
	args := m.Called(ctx, bearer, jobID)
	if v := args.Get(0); v != nil {
		return v.(*domain.SyncJob), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTokenClient struct {
	mock.Mock
}

func (m *mockTokenClient) FetchToken(ctx context.Context, shopName string, clientID string, clientSecret string) (string, error) {
	args := m.Called(ctx, shopName, clientID, clientSecret)
	return args.String(0), args.Error(1)
}

type staticBearer string

func (s staticBearer) BearerToken(ctx context.Context) (string, error) {
	return string(s), nil
}

type stubTagInspector struct {
	mu     sync.Mutex
	calls  []string
	result domain.TagCheckResult
	err    error
}

func (s *stubTagInspector) CheckGTM(ctx context.Context, storefrontURL string) (domain.TagCheckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storefrontURL)
	return s.result, s.err
}

type stubLoader struct {
	app *domain.OnboardingApplication
	err error
}

func (s stubLoader) LoadApplication(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	return s.app, s.err
}

// countingReader serves a fixed cached snapshot and counts authoritative reads
type countingReader struct {
	mu            sync.Mutex
	cached        []*domain.ShopConnection
	cachedErr     error
	store         []*domain.ShopConnection
	storeErr      error
	authoritative int
}

func (r *countingReader) CachedRead(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	return r.cached, r.cachedErr
}

func (r *countingReader) AuthoritativeRead(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authoritative++
	return r.store, r.storeErr
}

func verifiedShop(userID, shopID string, shopType domain.ShopType) *domain.ShopConnection {
	return &domain.ShopConnection{UserID: userID, ShopID: shopID, ShopType: shopType, Verified: true}
}
