package application

import (
	"context"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/metrics"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ApplicationLoader is the onboarding view the access engine needs
type ApplicationLoader interface {
	LoadApplication(ctx context.Context, userID string) (*domain.OnboardingApplication, error)
}

// Decide is the access decision table. Rows are evaluated top to bottom.
func Decide(authenticated, onboardingApproved, hasVerifiedShop, callbackInFlight bool) domain.AccessState {
	switch {
	case !authenticated:
		return domain.AccessUnauthenticated
	case !onboardingApproved:
		return domain.AccessNeedsOnboarding
	case hasVerifiedShop:
		return domain.AccessReady
	case callbackInFlight:
		// the handshake page must stay reachable until the new record is observed
		return domain.AccessReady
	default:
		return domain.AccessNeedsConnection
	}
}

// AccessDecision is the outcome of one navigation decision
type AccessDecision struct {
	State            domain.AccessState
	ResumeStep       int
	CallbackInFlight bool
	RepairAttempted  bool
	ActiveShop       *domain.ShopConnection
}

// AccessEngine reconciles authentication, onboarding and shop status into one state
type AccessEngine struct {
	onboarding ApplicationLoader
	shops      ports.ShopConnectionReader
	logger     zerolog.Logger
}

// NewAccessEngine creates a new access engine
func NewAccessEngine(onboarding ApplicationLoader, shops ports.ShopConnectionReader, logger zerolog.Logger) *AccessEngine {
	return &AccessEngine{
		onboarding: onboarding,
		shops:      shops,
		logger:     logger,
	}
}

// Evaluate resolves the caller's access state. It never fails: every read error
// resolves toward re-onboarding or re-connection, never toward the dashboard.
func (e *AccessEngine) Evaluate(ctx context.Context, subject domain.Subject, callback domain.CallbackParams) AccessDecision {
	ctx, span := tracer.Start(ctx, "access.Evaluate")
	defer span.End()

	decision := e.evaluate(ctx, subject, callback)

	span.SetAttributes(
		attribute.String("access.state", string(decision.State)),
		attribute.Bool("access.read_repair", decision.RepairAttempted),
	)
	metrics.RecordAccessDecision(string(decision.State))
	return decision
}

func (e *AccessEngine) evaluate(ctx context.Context, subject domain.Subject, callback domain.CallbackParams) AccessDecision {
	decision := AccessDecision{CallbackInFlight: callback.InFlight()}

	if !subject.Authenticated || subject.UserID == "" {
		decision.State = Decide(false, false, false, decision.CallbackInFlight)
		return decision
	}

	approved := false
	app, err := e.onboarding.LoadApplication(ctx, subject.UserID)
	if err != nil {
		e.logger.Warn().Err(err).Str("userId", subject.UserID).Msg("Onboarding status check failed, treating as not approved")
	} else {
		approved = app.IsApproved()
	}
	decision.ResumeStep = app.ResumeStep()
	if !approved {
		decision.State = Decide(true, false, false, decision.CallbackInFlight)
		return decision
	}

	conns, err := e.shops.CachedRead(ctx, subject.UserID)
	if err != nil {
		e.logger.Warn().Err(err).Str("userId", subject.UserID).Msg("Cached shop check failed, treating as no shops")
		conns = nil
	}
	shop := domain.FirstVerified(conns)

	if shop == nil && !decision.CallbackInFlight {
		decision.RepairAttempted = true
		shop = e.repair(ctx, subject.UserID)
	}

	decision.ActiveShop = shop
	decision.State = Decide(true, true, shop != nil, decision.CallbackInFlight)
	return decision
}

// repair performs the single authoritative read allowed per decision
func (e *AccessEngine) repair(ctx context.Context, userID string) *domain.ShopConnection {
	conns, err := e.shops.AuthoritativeRead(ctx, userID)
	if err != nil {
		metrics.RecordReadRepair("error")
		e.logger.Warn().Err(err).Str("userId", userID).Msg("Read-repair failed, treating as no shops")
		return nil
	}
	shop := domain.FirstVerified(conns)
	if shop == nil {
		metrics.RecordReadRepair("empty")
		return nil
	}
	metrics.RecordReadRepair("found")
	e.logger.Info().
		Str("userId", userID).
		Str("shop", shop.ShopID).
		Msg("Read-repair found a verified shop missing from the cached snapshot")
	return shop
}
