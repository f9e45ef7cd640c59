// Package ledger implements the permissioned record store: four entity
// tables (patients, providers, grants, records) behind a single gating
// layer that validates the caller before touching state, with every
// mutation and logged access emitted as an ordered audit fact.
//
// All mutating operations are serialized by one writer lock, so each call
// either fully applies (state change + audit emission) or fully fails with
// no partial effect. The audit fact is appended to the sink before state
// is mutated; a sink failure aborts the operation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/domain"
	"github.com/medvault/medvault/internal/domain/access"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/domain/record"
)

var ErrAdminRequired = errors.New("administrator address is required")

type Ledger struct {
	mu sync.RWMutex

	admin domain.Address
	sink  audit.Sink
	log   *zap.Logger
	now   func() time.Time

	patients    map[domain.Address]*identity.Patient
	providers   map[domain.Address]*identity.Provider
	grants      map[access.Key]bool
	records     map[uint64]*record.MedicalRecord
	recordCount uint64
	eventSeq    uint64
}

// New creates an empty ledger owned by the given administrator. The
// administrator is fixed for the lifetime of the ledger and is the only
// identity permitted to register providers.
func New(admin domain.Address, sink audit.Sink, log *zap.Logger) (*Ledger, error) {
	if admin.IsZero() {
		return nil, ErrAdminRequired
	}
	if sink == nil {
		sink = audit.SinkFunc(func(context.Context, *audit.Event) error { return nil })
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		admin:     admin,
		sink:      sink,
		log:       log,
		now:       time.Now,
		patients:  make(map[domain.Address]*identity.Patient),
		providers: make(map[domain.Address]*identity.Provider),
		grants:    make(map[access.Key]bool),
		records:   make(map[uint64]*record.MedicalRecord),
	}, nil
}

func (l *Ledger) Admin() domain.Address {
	return l.admin
}

// emit durably records an event. It must be called with the write lock
// held, after all validation has passed and before state is mutated, so
// that a sink failure aborts the operation cleanly.
func (l *Ledger) emit(ctx context.Context, e *audit.Event) error {
	e.Seq = l.eventSeq + 1
	e.RequestID = audit.RequestIDFrom(ctx)
	if err := l.sink.Append(ctx, e); err != nil {
		return fmt.Errorf("appending audit event %s: %w", e.Kind, err)
	}
	l.eventSeq = e.Seq
	return nil
}

// RegisterPatient creates the caller's patient entry. A caller registers
// at most once; the name must be non-empty. DateOfBirth and ContactInfo
// are opaque to the core.
func (l *Ledger) RegisterPatient(ctx context.Context, caller domain.Address, cmd identity.RegisterPatientCommand) (identity.Patient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.patients[caller]; ok && p.IsRegistered {
		return identity.Patient{}, identity.ErrPatientAlreadyRegistered
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return identity.Patient{}, identity.ErrNameRequired
	}

	now := l.now().UTC()
	err := l.emit(ctx, &audit.Event{
		Kind:       audit.KindPatientRegistered,
		Actor:      caller,
		OccurredAt: now,
		Detail: map[string]string{
			"name":          name,
			"date_of_birth": strconv.FormatInt(cmd.DateOfBirth, 10),
			"contact_info":  cmd.ContactInfo,
		},
	})
	if err != nil {
		return identity.Patient{}, err
	}

	p := &identity.Patient{
		Address:      caller,
		Name:         name,
		DateOfBirth:  cmd.DateOfBirth,
		ContactInfo:  cmd.ContactInfo,
		IsRegistered: true,
		RecordIDs:    []uint64{},
	}
	l.patients[caller] = p

	l.log.Info("patient registered", zap.String("patient", caller.String()))
	return p.Clone(), nil
}

// RegisterProvider onboards a provider. Only the administrator may call
// it. Re-registering an already-registered provider is a permitted no-op
// on state but still emits an event, keeping grant-style idempotence.
func (l *Ledger) RegisterProvider(ctx context.Context, caller, provider domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return identity.ErrNotOwner
	}
	if provider.IsZero() {
		return identity.ErrInvalidProviderAddress
	}

	now := l.now().UTC()
	err := l.emit(ctx, &audit.Event{
		Kind:       audit.KindProviderRegistered,
		Actor:      caller,
		Subject:    provider,
		OccurredAt: now,
	})
	if err != nil {
		return err
	}

	l.providers[provider] = &identity.Provider{Address: provider, IsRegistered: true}

	l.log.Info("provider registered", zap.String("provider", provider.String()))
	return nil
}

func (l *Ledger) IsRegisteredProvider(addr domain.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isProvider(addr)
}

// GetMyInfo returns the caller's own patient snapshot. An identity that
// never registered gets the zero-value snapshot with IsRegistered false
// rather than an error, matching the non-throwing read pattern of the
// other pure lookups.
func (l *Ledger) GetMyInfo(caller domain.Address) identity.Patient {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p, ok := l.patients[caller]; ok {
		return p.Clone()
	}
	return identity.Patient{Address: caller, RecordIDs: []uint64{}}
}

// GrantAccess sets the caller's grant for the provider. Granting twice
// leaves state unchanged and still emits the event.
func (l *Ledger) GrantAccess(ctx context.Context, caller, provider domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isPatient(caller) {
		return identity.ErrPatientNotRegistered
	}
	if !l.isProvider(provider) {
		return identity.ErrProviderNotRegistered
	}

	now := l.now().UTC()
	err := l.emit(ctx, &audit.Event{
		Kind:       audit.KindAccessGranted,
		Actor:      caller,
		Subject:    provider,
		OccurredAt: now,
	})
	if err != nil {
		return err
	}

	l.grants[access.Key{Patient: caller, Provider: provider}] = true

	l.log.Info("access granted",
		zap.String("patient", caller.String()),
		zap.String("provider", provider.String()),
	)
	return nil
}

// RevokeAccess clears the caller's grant for the provider regardless of
// its prior value or the provider's current registration state.
func (l *Ledger) RevokeAccess(ctx context.Context, caller, provider domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isPatient(caller) {
		return identity.ErrPatientNotRegistered
	}

	now := l.now().UTC()
	err := l.emit(ctx, &audit.Event{
		Kind:       audit.KindAccessRevoked,
		Actor:      caller,
		Subject:    provider,
		OccurredAt: now,
	})
	if err != nil {
		return err
	}

	l.grants[access.Key{Patient: caller, Provider: provider}] = false

	l.log.Info("access revoked",
		zap.String("patient", caller.String()),
		zap.String("provider", provider.String()),
	)
	return nil
}

// HasAccess reports whether the patient currently grants the provider
// access. Grant existence is a public lookup; record contents are not.
func (l *Ledger) HasAccess(patient, provider domain.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasGrant(patient, provider)
}

// AddMedicalRecord appends an immutable record for the patient. The
// caller must be a registered provider holding a current grant from the
// patient. Record ids are strictly increasing and globally unique.
func (l *Ledger) AddMedicalRecord(ctx context.Context, caller, patient domain.Address, cmd record.AddRecordCommand) (record.MedicalRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isProvider(caller) {
		return record.MedicalRecord{}, record.ErrOnlyProvidersCanAdd
	}
	if !l.hasGrant(patient, caller) {
		return record.MedicalRecord{}, access.ErrNoGrant
	}

	id := l.recordCount + 1
	now := l.now().UTC()
	err := l.emit(ctx, &audit.Event{
		Kind:       audit.KindRecordAdded,
		Actor:      caller,
		Subject:    patient,
		RecordID:   id,
		OccurredAt: now,
		Detail: map[string]string{
			"record_type":  cmd.RecordType,
			"description":  cmd.Description,
			"external_ref": cmd.ExternalRef,
		},
	})
	if err != nil {
		return record.MedicalRecord{}, err
	}

	r := &record.MedicalRecord{
		ID:             id,
		PatientAddress: patient,
		RecordType:     cmd.RecordType,
		Description:    cmd.Description,
		ExternalRef:    cmd.ExternalRef,
		Timestamp:      now,
		AddedBy:        caller,
	}
	l.records[id] = r
	l.recordCount = id
	l.patients[patient].RecordIDs = append(l.patients[patient].RecordIDs, id)

	l.log.Info("medical record added",
		zap.Uint64("record_id", id),
		zap.String("patient", patient.String()),
		zap.String("provider", caller.String()),
	)
	return r.Clone(), nil
}

// GetPatientRecords returns the patient's record ids in creation order.
// Only the patient themselves or a currently-granted provider may call
// it; revoking a grant removes future access even to records the
// provider previously added.
func (l *Ledger) GetPatientRecords(caller, patient domain.Address) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if caller != patient && !l.hasGrant(patient, caller) {
		return nil, record.ErrNotAuthorizedToList
	}
	p, ok := l.patients[patient]
	if !ok {
		return []uint64{}, nil
	}
	return append([]uint64(nil), p.RecordIDs...), nil
}

// GetMedicalRecord returns the record snapshot. Ownership is part of the
// existence check: an id that exists but belongs to a different patient
// is reported as not found, never leaked.
func (l *Ledger) GetMedicalRecord(caller domain.Address, recordID uint64, patient domain.Address) (record.MedicalRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, err := l.lookupRecord(recordID, patient)
	if err != nil {
		return record.MedicalRecord{}, err
	}
	if caller != patient && !l.hasGrant(patient, caller) {
		return record.MedicalRecord{}, record.ErrNotAuthorizedToView
	}
	return r.Clone(), nil
}

// TotalRecords returns the global record counter.
func (l *Ledger) TotalRecords() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.recordCount
}

// LogRecordAccess emits a RecordAccessed fact for a read that needs to be
// provably recorded. It requires the same authorization as the read
// itself and mutates no table state.
func (l *Ledger) LogRecordAccess(ctx context.Context, caller domain.Address, recordID uint64, patient domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.lookupRecord(recordID, patient); err != nil {
		return err
	}
	if caller != patient && !l.hasGrant(patient, caller) {
		return record.ErrNotAuthorizedToView
	}

	return l.emit(ctx, &audit.Event{
		Kind:       audit.KindRecordAccessed,
		Actor:      caller,
		Subject:    patient,
		RecordID:   recordID,
		OccurredAt: l.now().UTC(),
	})
}

func (l *Ledger) isPatient(addr domain.Address) bool {
	p, ok := l.patients[addr]
	return ok && p.IsRegistered
}

func (l *Ledger) isProvider(addr domain.Address) bool {
	p, ok := l.providers[addr]
	return ok && p.IsRegistered
}

func (l *Ledger) hasGrant(patient, provider domain.Address) bool {
	return l.grants[access.Key{Patient: patient, Provider: provider}]
}

func (l *Ledger) lookupRecord(recordID uint64, patient domain.Address) (*record.MedicalRecord, error) {
	r, ok := l.records[recordID]
	if !ok || r.PatientAddress != patient {
		return nil, record.ErrRecordNotFound
	}
	return r, nil
}
