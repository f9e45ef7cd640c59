package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/domain"
)

// listAuditEvents serves the durable event history. The events are the
// system's only queryable past; indexers page through them by seq order.
func (h *Handler) listAuditEvents(c *gin.Context) {
	if h.events == nil {
		respondError(c, http.StatusServiceUnavailable, "audit store is disabled")
		return
	}

	q := &audit.Query{
		Kind:     audit.Kind(c.Query("kind")),
		Actor:    domain.NormalizeAddress(c.Query("actor")),
		Subject:  domain.NormalizeAddress(c.Query("subject")),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 100),
	}
	if raw := c.Query("record_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			q.RecordID = id
		}
	}

	page, err := h.events.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}
