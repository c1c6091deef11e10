package api

import (
	"net/http"

	"archie-core-merchant-onboarding/internal/domain"

	"github.com/go-chi/chi/v5"
)

type initiateShopifyRequest struct {
	Domain string `json:"domain"`
}

type finalizeShopifyRequest struct {
	Shop  string `json:"shop"`
	State string `json:"state"`
}

type connectIkasRequest struct {
	ShopName     string `json:"shopName"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type connectXMLRequest struct {
	SourceURL string `json:"sourceUrl"`
}

// ListConnections returns the caller's verified connections
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.connections.ListConnections(r.Context(), domain.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, domain.NewPersistenceError("list connections", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": conns})
}

// InitiateShopify starts the Shopify redirect handshake
func (h *Handler) InitiateShopify(w http.ResponseWriter, r *http.Request) {
	var req initiateShopifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.connections.InitiateShopify(r.Context(), domain.GetUserIDFromContext(r.Context()), req.Domain)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// FinalizeShopify completes the handshake with the echoed callback parameters
func (h *Handler) FinalizeShopify(w http.ResponseWriter, r *http.Request) {
	var req finalizeShopifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.connections.FinalizeShopify(r.Context(), domain.GetUserIDFromContext(r.Context()), req.Shop, req.State)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ConnectIkas connects an Ikas store with API credentials
func (h *Handler) ConnectIkas(w http.ResponseWriter, r *http.Request) {
	var req connectIkasRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.connections.ConnectIkas(r.Context(), domain.GetUserIDFromContext(r.Context()), req.ShopName, req.ClientID, req.ClientSecret)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ConnectXMLFeed connects a product feed
func (h *Handler) ConnectXMLFeed(w http.ResponseWriter, r *http.Request) {
	var req connectXMLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.connections.ConnectXMLFeed(r.Context(), domain.GetUserIDFromContext(r.Context()), req.SourceURL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetActiveShop returns live info of the caller's active shop
func (h *Handler) GetActiveShop(w http.ResponseWriter, r *http.Request) {
	info, err := h.shops.ShopInfo(r.Context(), domain.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// StartSync starts a catalog sync of the active shop
func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	job, err := h.shops.StartSync(r.Context(), domain.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// GetSync polls a catalog sync job
func (h *Handler) GetSync(w http.ResponseWriter, r *http.Request) {
	job, err := h.shops.SyncStatus(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
