package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medvault/medvault/internal/domain"
	"github.com/medvault/medvault/internal/domain/access"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/domain/record"
	"github.com/medvault/medvault/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps core errors onto the HTTP taxonomy:
// duplicate registration conflicts, invalid input rejections, missing
// records, and every authorization failure the gating layer produces.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, record.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})

	case errors.Is(err, identity.ErrPatientAlreadyRegistered):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "ALREADY_EXISTS"})

	case errors.Is(err, identity.ErrNameRequired),
		errors.Is(err, identity.ErrInvalidProviderAddress),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})

	case errors.Is(err, identity.ErrPatientNotRegistered),
		errors.Is(err, identity.ErrProviderNotRegistered):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "NOT_REGISTERED"})

	case errors.Is(err, identity.ErrNotOwner),
		errors.Is(err, record.ErrOnlyProvidersCanAdd),
		errors.Is(err, record.ErrNotAuthorizedToView),
		errors.Is(err, record.ErrNotAuthorizedToList),
		errors.Is(err, access.ErrNoGrant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "UNAUTHORIZED"})

	case errors.Is(err, service.ErrInvalidSecret):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseAddress(c *gin.Context, param string) (domain.Address, bool) {
	addr := domain.NormalizeAddress(c.Param(param))
	if addr == domain.ZeroAddress {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a non-empty address"})
		return domain.ZeroAddress, false
	}
	return addr, true
}

func parseRecordID(c *gin.Context, param string) (uint64, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a positive integer"})
		return 0, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
