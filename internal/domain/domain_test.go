package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicationPatch_Merge(t *testing.T) {
	base := ApplicationPatch{
		BusinessInfo: &BusinessInfo{LegalName: "Old"},
		TaxInfo:      &TaxInfo{TaxID: "1234567890"},
	}

	merged := base.Merge(ApplicationPatch{BusinessInfo: &BusinessInfo{LegalName: "New"}})

	assert.Equal(t, "New", merged.BusinessInfo.LegalName)
	assert.Equal(t, "1234567890", merged.TaxInfo.TaxID)
	assert.Equal(t, "Old", base.BusinessInfo.LegalName, "receiver is not modified")
	assert.True(t, ApplicationPatch{}.IsEmpty())
	assert.False(t, merged.IsEmpty())
}

func TestOnboardingApplication_ResumeStep(t *testing.T) {
	var missing *OnboardingApplication
	assert.Equal(t, FirstStep, missing.ResumeStep())
	assert.False(t, missing.IsApproved())

	assert.Equal(t, FirstStep, (&OnboardingApplication{CurrentStep: 0}).ResumeStep())
	assert.Equal(t, 3, (&OnboardingApplication{CurrentStep: 3}).ResumeStep())
	assert.Equal(t, FinalStep, (&OnboardingApplication{CurrentStep: 9}).ResumeStep())
}

func TestFirstVerified(t *testing.T) {
	conns := []*ShopConnection{
		nil,
		{ShopID: "a", Verified: false},
		{ShopID: "b", Verified: true},
		{ShopID: "c", Verified: true},
	}

	assert.Equal(t, "b", FirstVerified(conns).ShopID)
	assert.Len(t, VerifiedConnections(conns), 2)
	assert.Nil(t, FirstVerified(nil))
}

func TestCallbackParams_InFlight(t *testing.T) {
	assert.True(t, CallbackParams{Shop: "x", State: "y"}.InFlight())
	assert.False(t, CallbackParams{Shop: "x"}.InFlight())
	assert.False(t, CallbackParams{State: "y"}.InFlight())
}

func TestErrorsUnwrap(t *testing.T) {
	inner := ErrNotFound
	assert.ErrorIs(t, NewPersistenceError("load", inner), ErrNotFound)
	assert.ErrorIs(t, &TokenRefreshError{ShopID: "s", Err: inner}, ErrNotFound)
	assert.ErrorIs(t, NewConnectionError("x", inner), ErrNotFound)
	assert.Equal(t, "plain", NewConnectionError("plain", nil).Error())
}
