package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/medvault/medvault/internal/domain/record"
)

type addRecordRequest struct {
	RecordType  string `json:"record_type" binding:"required"`
	Description string `json:"description"`
	ExternalRef string `json:"external_ref"`
}

func (h *Handler) addMedicalRecord(c *gin.Context) {
	patient, ok := parseAddress(c, "address")
	if !ok {
		return
	}
	var req addRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerFrom(c)
	r, err := h.ledger.AddMedicalRecord(c.Request.Context(), caller.Address, patient, record.AddRecordCommand{
		RecordType:  req.RecordType,
		Description: req.Description,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		h.col.DeniedCallsTotal.WithLabelValues("add_record").Inc()
		respondServiceError(c, err)
		return
	}

	h.col.RecordsAddedTotal.Inc()
	respondCreated(c, r)
}

func (h *Handler) getPatientRecords(c *gin.Context) {
	patient, ok := parseAddress(c, "address")
	if !ok {
		return
	}

	caller := callerFrom(c)
	ids, err := h.ledger.GetPatientRecords(caller.Address, patient)
	if err != nil {
		h.col.DeniedCallsTotal.WithLabelValues("get_patient_records").Inc()
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"patient": patient, "record_ids": ids})
}

func (h *Handler) getMedicalRecord(c *gin.Context) {
	patient, ok := parseAddress(c, "address")
	if !ok {
		return
	}
	id, ok := parseRecordID(c, "id")
	if !ok {
		return
	}

	caller := callerFrom(c)
	r, err := h.ledger.GetMedicalRecord(caller.Address, id, patient)
	if err != nil {
		h.col.DeniedCallsTotal.WithLabelValues("get_record").Inc()
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

// accessMedicalRecord records a provable read event without returning
// the record itself. Reads produce no durable trace on their own, so a
// caller that needs its access recorded calls this explicitly.
func (h *Handler) accessMedicalRecord(c *gin.Context) {
	patient, ok := parseAddress(c, "address")
	if !ok {
		return
	}
	id, ok := parseRecordID(c, "id")
	if !ok {
		return
	}

	caller := callerFrom(c)
	if err := h.ledger.LogRecordAccess(c.Request.Context(), caller.Address, id, patient); err != nil {
		h.col.DeniedCallsTotal.WithLabelValues("access_record").Inc()
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"patient": patient, "record_id": id, "logged": true})
}

func (h *Handler) getTotalRecords(c *gin.Context) {
	respondOK(c, gin.H{"total_records": h.ledger.TotalRecords()})
}
