package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/medvault/medvault/internal/domain"
)

type grantAccessRequest struct {
	Provider string `json:"provider" binding:"required"`
}

func (h *Handler) grantAccess(c *gin.Context) {
	var req grantAccessRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerFrom(c)
	provider := domain.NormalizeAddress(req.Provider)
	if err := h.ledger.GrantAccess(c.Request.Context(), caller.Address, provider); err != nil {
		h.col.DeniedCallsTotal.WithLabelValues("grant_access").Inc()
		respondServiceError(c, err)
		return
	}

	h.col.AccessChangesTotal.WithLabelValues("grant").Inc()
	respondOK(c, gin.H{"patient": caller.Address, "provider": provider, "granted": true})
}

func (h *Handler) revokeAccess(c *gin.Context) {
	provider, ok := parseAddress(c, "provider")
	if !ok {
		return
	}

	caller := callerFrom(c)
	if err := h.ledger.RevokeAccess(c.Request.Context(), caller.Address, provider); err != nil {
		h.col.DeniedCallsTotal.WithLabelValues("revoke_access").Inc()
		respondServiceError(c, err)
		return
	}

	h.col.AccessChangesTotal.WithLabelValues("revoke").Inc()
	respondOK(c, gin.H{"patient": caller.Address, "provider": provider, "granted": false})
}

func (h *Handler) hasAccess(c *gin.Context) {
	patient, ok := parseAddress(c, "patient")
	if !ok {
		return
	}
	provider, ok := parseAddress(c, "provider")
	if !ok {
		return
	}

	respondOK(c, gin.H{
		"patient":  patient,
		"provider": provider,
		"granted":  h.ledger.HasAccess(patient, provider),
	})
}
