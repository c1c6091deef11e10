package api

import (
	"net/http"

	"archie-core-merchant-onboarding/internal/domain"
)

type draftRequest struct {
	domain.ApplicationPatch
	CurrentStep int `json:"currentStep"`
}

type submitResponse struct {
	Application *domain.OnboardingApplication `json:"application"`
	// RefreshCredential tells the client to force-refresh its ID token
	RefreshCredential bool `json:"refreshCredential"`
}

// GetOnboarding returns the caller's application, or null if not started
func (h *Handler) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	app, err := h.onboarding.LoadApplication(r.Context(), domain.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"application": app,
		"resumeStep":  app.ResumeStep(),
	})
}

// QueueDraft enqueues a debounced auto-save
func (h *Handler) QueueDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.stampAgreement(r, req.AgreementData)

	h.onboarding.QueueDraft(domain.GetUserIDFromContext(r.Context()), req.ApplicationPatch, req.CurrentStep)
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

// SaveDraft writes a draft immediately
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.stampAgreement(r, req.AgreementData)

	if err := h.onboarding.SaveDraft(r.Context(), domain.GetUserIDFromContext(r.Context()), req.ApplicationPatch, req.CurrentStep); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// ValidateOnboarding checks an application without saving it
func (h *Handler) ValidateOnboarding(w http.ResponseWriter, r *http.Request) {
	var patch domain.ApplicationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.onboarding.Validate(patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// SubmitOnboarding validates and submits the application
func (h *Handler) SubmitOnboarding(w http.ResponseWriter, r *http.Request) {
	var patch domain.ApplicationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.stampAgreement(r, patch.AgreementData)

	app, err := h.onboarding.Submit(r.Context(), domain.GetUserIDFromContext(r.Context()), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Application: app, RefreshCredential: true})
}

// stampAgreement records where an agreement was accepted from
func (h *Handler) stampAgreement(r *http.Request, agreement *domain.AgreementData) {
	if agreement == nil || !agreement.Accepted {
		return
	}
	if agreement.AcceptedAt.IsZero() {
		agreement.AcceptedAt = h.now().UTC()
	}
	agreement.IPAddress = r.RemoteAddr
	agreement.UserAgent = r.UserAgent()
}
