package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/medvault/medvault/internal/domain"
	"github.com/medvault/medvault/internal/domain/identity"
)

type registerPatientRequest struct {
	Name        string `json:"name" binding:"required"`
	DateOfBirth int64  `json:"date_of_birth"`
	ContactInfo string `json:"contact_info"`
}

func (h *Handler) registerPatient(c *gin.Context) {
	var req registerPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerFrom(c)
	p, err := h.ledger.RegisterPatient(c.Request.Context(), caller.Address, identity.RegisterPatientCommand{
		Name:        req.Name,
		DateOfBirth: req.DateOfBirth,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		h.col.DeniedCallsTotal.WithLabelValues("register_patient").Inc()
		respondServiceError(c, err)
		return
	}

	h.col.PatientsRegisteredTotal.Inc()
	respondCreated(c, p)
}

func (h *Handler) getMyInfo(c *gin.Context) {
	caller := callerFrom(c)
	respondOK(c, h.ledger.GetMyInfo(caller.Address))
}

type registerProviderRequest struct {
	Address string `json:"address" binding:"required"`
}

func (h *Handler) registerProvider(c *gin.Context) {
	var req registerProviderRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerFrom(c)
	provider := domain.NormalizeAddress(req.Address)
	if err := h.ledger.RegisterProvider(c.Request.Context(), caller.Address, provider); err != nil {
		h.col.DeniedCallsTotal.WithLabelValues("register_provider").Inc()
		respondServiceError(c, err)
		return
	}

	h.col.ProvidersRegisteredTotal.Inc()
	respondCreated(c, identity.Provider{Address: provider, IsRegistered: true})
}

func (h *Handler) isRegisteredProvider(c *gin.Context) {
	addr, ok := parseAddress(c, "address")
	if !ok {
		return
	}
	respondOK(c, gin.H{
		"address":       addr,
		"is_registered": h.ledger.IsRegisteredProvider(addr),
	})
}
