package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/medvault/medvault/internal/domain"
)

type issueTokenRequest struct {
	Address string `json:"address" binding:"required"`
	Role    string `json:"role" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

func (h *Handler) issueToken(c *gin.Context) {
	var req issueTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.tokenSvc.Issue(domain.NormalizeAddress(req.Address), domain.Role(req.Role), req.Secret)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req refreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.tokenSvc.Refresh(req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}
