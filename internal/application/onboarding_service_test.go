package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"archie-core-merchant-onboarding/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOnboardingService(repo *memOnboardingRepo, autoApprove bool) *OnboardingService {
	return NewOnboardingService(repo, zerolog.Nop(), OnboardingOptions{
		AutoApprove:      autoApprove,
		AutosaveDebounce: 20 * time.Millisecond,
	})
}

func TestSaveDraft_DisjointSectionsMerge(t *testing.T) {
	ctx := context.Background()
	repo := newMemOnboardingRepo()
	svc := newTestOnboardingService(repo, true)

	require.NoError(t, svc.SaveDraft(ctx, "u1", domain.ApplicationPatch{
		BusinessInfo: &domain.BusinessInfo{LegalName: "Acme Ltd", BrandName: "Acme"},
	}, 2))
	require.NoError(t, svc.SaveDraft(ctx, "u1", domain.ApplicationPatch{
		TaxInfo: &domain.TaxInfo{TaxID: "1234567890"},
	}, 4))

	app, err := svc.LoadApplication(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, app)
	require.NotNil(t, app.BusinessInfo)
	require.NotNil(t, app.TaxInfo)
	assert.Equal(t, "Acme", app.BusinessInfo.BrandName)
	assert.Equal(t, "1234567890", app.TaxInfo.TaxID)
	assert.Equal(t, domain.StatusDraft, app.Status)
	assert.Equal(t, 4, app.CurrentStep)
}

func TestSaveDraft_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemOnboardingRepo()
	svc := newTestOnboardingService(repo, true)
	patch := domain.ApplicationPatch{AddressInfo: &domain.AddressInfo{Street: "1 Main Street", City: "Izmir"}}

	require.NoError(t, svc.SaveDraft(ctx, "u1", patch, 2))
	first := *repo.stored("u1")
	require.NoError(t, svc.SaveDraft(ctx, "u1", patch, 2))
	second := repo.stored("u1")

	assert.Equal(t, first.AddressInfo, second.AddressInfo)
	assert.Equal(t, first.CurrentStep, second.CurrentStep)
	assert.Equal(t, first.Status, second.Status)
}

func TestSaveDraft_KeepsApprovedStatus(t *testing.T) {
	ctx := context.Background()
	repo := newMemOnboardingRepo()
	repo.apps["u1"] = approvedApp("u1")
	svc := newTestOnboardingService(repo, true)

	require.NoError(t, svc.SaveDraft(ctx, "u1", domain.ApplicationPatch{
		PaymentInfo: &domain.PaymentInfo{Method: "card"},
	}, 4))

	assert.Equal(t, domain.StatusApproved, repo.stored("u1").Status)
}

func TestSaveDraft_KeepsReviewOutcome(t *testing.T) {
	for _, status := range []domain.ApplicationStatus{domain.StatusPendingReview, domain.StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			repo := newMemOnboardingRepo()
			repo.apps["u1"] = &domain.OnboardingApplication{UserID: "u1", Status: status, CurrentStep: domain.FinalStep}
			svc := newTestOnboardingService(repo, true)

			require.NoError(t, svc.SaveDraft(context.Background(), "u1", domain.ApplicationPatch{
				TaxInfo: &domain.TaxInfo{TaxID: "1234567890"},
			}, 3))

			assert.Equal(t, status, repo.stored("u1").Status)
		})
	}
}

func TestSaveDraft_AgreementIsWrittenOnce(t *testing.T) {
	ctx := context.Background()
	repo := newMemOnboardingRepo()
	svc := newTestOnboardingService(repo, true)
	accepted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, svc.SaveDraft(ctx, "u1", domain.ApplicationPatch{
		AgreementData: &domain.AgreementData{Accepted: true, AcceptedAt: accepted, IPAddress: "10.0.0.1"},
	}, 5))
	require.NoError(t, svc.SaveDraft(ctx, "u1", domain.ApplicationPatch{
		AgreementData: &domain.AgreementData{Accepted: true, AcceptedAt: accepted.Add(time.Hour), IPAddress: "10.0.0.2"},
	}, 5))

	agreement := repo.stored("u1").AgreementData
	require.NotNil(t, agreement)
	assert.Equal(t, "10.0.0.1", agreement.IPAddress)
	assert.True(t, agreement.AcceptedAt.Equal(accepted))
}

func TestSaveDraft_ClampsStep(t *testing.T) {
	ctx := context.Background()
	repo := newMemOnboardingRepo()
	svc := newTestOnboardingService(repo, true)

	require.NoError(t, svc.SaveDraft(ctx, "u1", domain.ApplicationPatch{}, 9))

	assert.Equal(t, domain.FinalStep, repo.stored("u1").CurrentStep)
}

func TestSaveDraft_StoreFailureIsPersistenceError(t *testing.T) {
	repo := newMemOnboardingRepo()
	repo.mergeErr = errors.New("write conflict")
	svc := newTestOnboardingService(repo, true)

	err := svc.SaveDraft(context.Background(), "u1", validPatch(), 2)

	var perr *domain.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestLoadApplication_NotStarted(t *testing.T) {
	svc := newTestOnboardingService(newMemOnboardingRepo(), true)

	app, err := svc.LoadApplication(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Nil(t, app)
	assert.Equal(t, domain.FirstStep, app.ResumeStep())
}

func TestSubmit_AutoApproves(t *testing.T) {
	ctx := context.Background()
	repo := newMemOnboardingRepo()
	svc := newTestOnboardingService(repo, true)

	app, err := svc.Submit(ctx, "u1", validPatch())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, app.Status)
	assert.True(t, app.AutoApproved)
	assert.NotNil(t, app.ApprovedAt)
	assert.NotNil(t, app.SubmittedAt)
	assert.Equal(t, domain.FinalStep, app.CurrentStep)
	assert.True(t, repo.stored("u1").IsApproved())
}

func TestSubmit_WithoutAutoApproveWaitsForReview(t *testing.T) {
	repo := newMemOnboardingRepo()
	svc := newTestOnboardingService(repo, false)

	app, err := svc.Submit(context.Background(), "u1", validPatch())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingReview, app.Status)
	assert.False(t, app.AutoApproved)
	assert.Nil(t, app.ApprovedAt)
}

func TestSubmit_ResubmissionKeepsApproval(t *testing.T) {
	repo := newMemOnboardingRepo()
	existing := approvedApp("u1")
	approvedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	existing.ApprovedAt = &approvedAt
	existing.CreatedAt = approvedAt.Add(-time.Hour)
	repo.apps["u1"] = existing
	svc := newTestOnboardingService(repo, false)

	app, err := svc.Submit(context.Background(), "u1", validPatch())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, app.Status)
	assert.Equal(t, &approvedAt, app.ApprovedAt)
	assert.True(t, app.CreatedAt.Equal(existing.CreatedAt))
}

func TestSubmit_ResubmissionKeepsFirstAgreement(t *testing.T) {
	repo := newMemOnboardingRepo()
	svc := newTestOnboardingService(repo, true)
	first := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	p := validPatch()
	p.AgreementData = &domain.AgreementData{Accepted: true, AcceptedAt: first, IPAddress: "1.1.1.1", UserAgent: "ua-1", Version: "v1"}
	_, err := svc.Submit(context.Background(), "u1", p)
	require.NoError(t, err)

	p = validPatch()
	p.AgreementData = &domain.AgreementData{Accepted: true, AcceptedAt: first.Add(48 * time.Hour), IPAddress: "9.9.9.9", UserAgent: "ua-2", Version: "v2"}
	app, err := svc.Submit(context.Background(), "u1", p)
	require.NoError(t, err)

	for _, agreement := range []*domain.AgreementData{app.AgreementData, repo.stored("u1").AgreementData} {
		require.NotNil(t, agreement)
		assert.Equal(t, "1.1.1.1", agreement.IPAddress)
		assert.Equal(t, "ua-1", agreement.UserAgent)
		assert.Equal(t, "v1", agreement.Version)
		assert.True(t, agreement.AcceptedAt.Equal(first))
	}
}

func TestSubmit_InvalidLeavesStoreUntouched(t *testing.T) {
	repo := newMemOnboardingRepo()
	svc := newTestOnboardingService(repo, true)
	p := validPatch()
	p.TaxInfo.TaxID = "123"

	app, err := svc.Submit(context.Background(), "u1", p)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, app)
	assert.Zero(t, repo.saveCalls)
}

func TestSubmit_StoreFailure(t *testing.T) {
	repo := newMemOnboardingRepo()
	repo.saveErr = errors.New("unavailable")
	svc := newTestOnboardingService(repo, true)

	_, err := svc.Submit(context.Background(), "u1", validPatch())

	var perr *domain.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestSubmit_FlushesQueuedDraftFirst(t *testing.T) {
	repo := newMemOnboardingRepo()
	svc := NewOnboardingService(repo, zerolog.Nop(), OnboardingOptions{AutoApprove: true, AutosaveDebounce: time.Hour})

	svc.QueueDraft("u1", domain.ApplicationPatch{TaxInfo: &domain.TaxInfo{TaxID: "9999999999"}}, 3)

	app, err := svc.Submit(context.Background(), "u1", validPatch())
	require.NoError(t, err)

	assert.Equal(t, 1, repo.mergeCalls, "queued draft is written before submission")
	assert.Equal(t, domain.StatusApproved, repo.stored("u1").Status)
	assert.Equal(t, "1234567890", app.TaxInfo.TaxID, "submission data wins over the earlier draft")
	assert.Equal(t, "1234567890", repo.stored("u1").TaxInfo.TaxID)
}
