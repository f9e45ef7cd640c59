package ledger

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/domain/access"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/domain/record"
)

// Replay rebuilds ledger state from a previously emitted event stream.
// The stream is the durable source of truth: every mutation carries
// enough detail to reconstruct the table it touched. Events are applied
// directly, without re-validation or re-emission, because they were
// validated when first committed.
//
// Replay must run on a fresh ledger, before it serves any call.
func (l *Ledger) Replay(events []audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range events {
		e := &events[i]
		if e.Seq != l.eventSeq+1 {
			return fmt.Errorf("audit stream gap: expected seq %d, got %d", l.eventSeq+1, e.Seq)
		}
		if err := l.apply(e); err != nil {
			return fmt.Errorf("applying event seq %d (%s): %w", e.Seq, e.Kind, err)
		}
		l.eventSeq = e.Seq
	}

	l.log.Info("ledger state rebuilt from audit stream",
		zap.Uint64("events", l.eventSeq),
		zap.Int("patients", len(l.patients)),
		zap.Int("providers", len(l.providers)),
		zap.Uint64("records", l.recordCount),
	)
	return nil
}

func (l *Ledger) apply(e *audit.Event) error {
	switch e.Kind {
	case audit.KindPatientRegistered:
		dob, err := strconv.ParseInt(e.Detail["date_of_birth"], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing date_of_birth: %w", err)
		}
		l.patients[e.Actor] = &identity.Patient{
			Address:      e.Actor,
			Name:         e.Detail["name"],
			DateOfBirth:  dob,
			ContactInfo:  e.Detail["contact_info"],
			IsRegistered: true,
			RecordIDs:    []uint64{},
		}

	case audit.KindProviderRegistered:
		l.providers[e.Subject] = &identity.Provider{Address: e.Subject, IsRegistered: true}

	case audit.KindAccessGranted:
		l.grants[access.Key{Patient: e.Actor, Provider: e.Subject}] = true

	case audit.KindAccessRevoked:
		l.grants[access.Key{Patient: e.Actor, Provider: e.Subject}] = false

	case audit.KindRecordAdded:
		p, ok := l.patients[e.Subject]
		if !ok {
			return fmt.Errorf("record %d references unknown patient %s", e.RecordID, e.Subject)
		}
		l.records[e.RecordID] = &record.MedicalRecord{
			ID:             e.RecordID,
			PatientAddress: e.Subject,
			RecordType:     e.Detail["record_type"],
			Description:    e.Detail["description"],
			ExternalRef:    e.Detail["external_ref"],
			Timestamp:      e.OccurredAt,
			AddedBy:        e.Actor,
		}
		p.RecordIDs = append(p.RecordIDs, e.RecordID)
		if e.RecordID > l.recordCount {
			l.recordCount = e.RecordID
		}

	case audit.KindRecordAccessed:
		// Read audit facts carry no state.

	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}
