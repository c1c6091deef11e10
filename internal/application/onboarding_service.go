package application

import (
	"context"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/metrics"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OnboardingOptions configures the onboarding state machine
type OnboardingOptions struct {
	// AutoApprove approves on submit; when false submissions wait in pending_review
	AutoApprove      bool
	AutosaveDebounce time.Duration
}

// OnboardingService owns the single onboarding application of each user
type OnboardingService struct {
	repo        ports.OnboardingRepository
	logger      zerolog.Logger
	autoApprove bool
	locks       *userLocks
	autosaver   *AutoSaver
	now         func() time.Time
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(
	repo ports.OnboardingRepository,
	logger zerolog.Logger,
	opts OnboardingOptions,
) *OnboardingService {
	s := &OnboardingService{
		repo:        repo,
		logger:      logger,
		autoApprove: opts.AutoApprove,
		locks:       newUserLocks(),
		now:         time.Now,
	}
	s.autosaver = NewAutoSaver(s.SaveDraft, opts.AutosaveDebounce, logger)
	return s
}

// LoadApplication returns the user's application, or nil if they have not started
func (s *OnboardingService) LoadApplication(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	app, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("load onboarding application", err)
	}
	return app, nil
}

// SaveDraft merges the given sections into the user's application.
// Calls are safe to repeat and to arrive out of order; the last write wins per section.
func (s *OnboardingService) SaveDraft(ctx context.Context, userID string, patch domain.ApplicationPatch, currentStep int) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	existing, err := s.repo.Get(ctx, userID)
	if err != nil {
		return domain.NewPersistenceError("load onboarding application", err)
	}

	// drafts never move an application backwards
	status := domain.StatusDraft
	if existing != nil && existing.Status != "" {
		status = existing.Status
	}
	if existing != nil && existing.AgreementData != nil && existing.AgreementData.Accepted {
		patch.AgreementData = nil
	}
	if currentStep > domain.FinalStep {
		currentStep = domain.FinalStep
	}

	if err := s.repo.MergeDraft(ctx, userID, patch, status, currentStep, s.now()); err != nil {
		return domain.NewPersistenceError("save onboarding draft", err)
	}

	s.logger.Debug().
		Str("userId", userID).
		Int("step", currentStep).
		Str("status", string(status)).
		Msg("Saved onboarding draft")
	return nil
}

// QueueDraft schedules a debounced SaveDraft for the user
func (s *OnboardingService) QueueDraft(userID string, patch domain.ApplicationPatch, currentStep int) {
	s.autosaver.Queue(userID, patch, currentStep)
}

// FlushDrafts writes every queued draft. Used on shutdown.
func (s *OnboardingService) FlushDrafts(ctx context.Context) {
	s.autosaver.Close(ctx)
}

// Validate checks a complete application and returns the first failing rule, or nil
func (s *OnboardingService) Validate(data domain.ApplicationPatch) error {
	return ValidateApplication(data)
}

// Submit validates and finalizes the application.
// Queued or in-flight auto-saves for the user settle before the submission is written.
func (s *OnboardingService) Submit(ctx context.Context, userID string, data domain.ApplicationPatch) (*domain.OnboardingApplication, error) {
	ctx, span := tracer.Start(ctx, "onboarding.Submit", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	s.autosaver.Flush(ctx, userID)

	if err := ValidateApplication(data); err != nil {
		metrics.RecordSubmission("invalid")
		return nil, err
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	existing, err := s.repo.Get(ctx, userID)
	if err != nil {
		metrics.RecordSubmission("store_error")
		return nil, domain.NewPersistenceError("load onboarding application", err)
	}

	now := s.now()
	app := &domain.OnboardingApplication{
		UserID:        userID,
		CurrentStep:   domain.FinalStep,
		BusinessInfo:  data.BusinessInfo,
		AddressInfo:   data.AddressInfo,
		TaxInfo:       data.TaxInfo,
		PaymentInfo:   data.PaymentInfo,
		AgreementData: data.AgreementData,
		CreatedAt:     now,
		UpdatedAt:     now,
		SubmittedAt:   &now,
	}
	if existing != nil {
		if !existing.CreatedAt.IsZero() {
			app.CreatedAt = existing.CreatedAt
		}
		// the first accepted agreement is the audit record; re-submissions never replace it
		if app.AgreementData == nil || (existing.AgreementData != nil && existing.AgreementData.Accepted) {
			app.AgreementData = existing.AgreementData
		}
	}

	switch {
	case s.autoApprove:
		app.Status = domain.StatusApproved
		app.ApprovedAt = &now
		app.AutoApproved = true
	case existing.IsApproved():
		// an edit of an approved application keeps its approval
		app.Status = domain.StatusApproved
		app.ApprovedAt = existing.ApprovedAt
		app.AutoApproved = existing.AutoApproved
	default:
		app.Status = domain.StatusPendingReview
	}

	if err := s.repo.Save(ctx, app); err != nil {
		metrics.RecordSubmission("store_error")
		span.RecordError(err)
		return nil, domain.NewPersistenceError("submit onboarding application", err)
	}

	metrics.RecordSubmission(string(app.Status))
	s.logger.Info().
		Str("userId", userID).
		Str("status", string(app.Status)).
		Bool("autoApproved", app.AutoApproved).
		Bool("resubmission", existing != nil && existing.SubmittedAt != nil).
		Msg("Onboarding application submitted")

	return app, nil
}
