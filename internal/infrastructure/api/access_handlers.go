package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"archie-core-merchant-onboarding/internal/application"
	"archie-core-merchant-onboarding/internal/domain"
)

type accessResponse struct {
	State            domain.AccessState     `json:"state"`
	Navigation       application.Navigation `json:"navigation"`
	CallbackInFlight bool                   `json:"callbackInFlight"`
	ActiveShop       *domain.ShopConnection `json:"activeShop,omitempty"`
}

type meResponse struct {
	UserID string        `json:"userId"`
	Claims domain.Claims `json:"claims"`
}

func (h *Handler) evaluateAccess(r *http.Request, path string, callback domain.CallbackParams) accessResponse {
	decision := h.engine.Evaluate(r.Context(), domain.SubjectFromContext(r.Context()), callback)
	return accessResponse{
		State:            decision.State,
		Navigation:       application.ResolveNavigation(decision, path),
		CallbackInFlight: decision.CallbackInFlight,
		ActiveShop:       decision.ActiveShop,
	}
}

// GetAccess evaluates which screen the caller may see
func (h *Handler) GetAccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	callback := domain.CallbackParams{
		Shop:  q.Get(domain.CallbackShopParam),
		State: q.Get(domain.CallbackStateParam),
	}
	writeJSON(w, http.StatusOK, h.evaluateAccess(r, q.Get("path"), callback))
}

// StreamAccess pushes a fresh access state whenever the user's connections change
func (h *Handler) StreamAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := domain.GetUserIDFromContext(ctx)
	path := r.URL.Query().Get("path")
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func() error {
		payload, err := json.Marshal(h.evaluateAccess(r, path, domain.CallbackParams{}))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: access\ndata: %s\n\n", payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	sub := h.events.Subscribe(ctx, userID)
	defer h.events.Unsubscribe(sub.ID)

	if err := send(); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := send(); err != nil {
				h.logger.Debug().Err(err).Str("userId", userID).Msg("Access stream closed")
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// GetMe returns the caller's identity and display claims
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, meResponse{
		UserID: domain.GetUserIDFromContext(r.Context()),
		Claims: domain.GetClaimsFromContext(r.Context()),
	})
}
