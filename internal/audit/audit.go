// Package audit defines the durable, ordered facts the core emits for
// every mutation and every explicitly logged read. The event stream is
// the system's only externally queryable history; sinks must therefore
// persist an event before the emitting operation is allowed to commit.
package audit

import (
	"context"
	"time"

	"github.com/medvault/medvault/internal/domain"
)

type Kind string

// Event kind names and their field sets are a compatibility contract for
// external indexers; do not rename.
const (
	KindPatientRegistered  Kind = "PatientRegistered"
	KindProviderRegistered Kind = "ProviderRegistered"
	KindAccessGranted      Kind = "AccessGranted"
	KindAccessRevoked      Kind = "AccessRevoked"
	KindRecordAdded        Kind = "RecordAdded"
	KindRecordAccessed     Kind = "RecordAccessed"
)

type Event struct {
	// Seq is the position of the event in the total order of committed
	// operations, assigned by the core starting at 1.
	Seq        uint64         `json:"seq"`
	Kind       Kind           `json:"kind"`
	Actor      domain.Address `json:"actor"`
	Subject    domain.Address `json:"subject,omitempty"`
	RecordID   uint64         `json:"record_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	RequestID  string         `json:"request_id,omitempty"`

	// Detail carries kind-specific fields (patient name on registration,
	// record type and external ref on addition). Sinks that rehydrate
	// state depend on it being complete.
	Detail map[string]string `json:"detail,omitempty"`
}

// Sink persists a single event. Append must be atomic: either the event
// is durably recorded or an error is returned and the emitting operation
// fails without mutating state.
type Sink interface {
	Append(ctx context.Context, e *Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e *Event) error

func (f SinkFunc) Append(ctx context.Context, e *Event) error {
	return f(ctx, e)
}

// MultiSink fans an event out to every sink in order, failing fast on the
// first error. Durable sinks should be listed before best-effort ones.
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, e *Event) error {
	for _, s := range m {
		if err := s.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

type Query struct {
	Kind     Kind
	Actor    domain.Address
	Subject  domain.Address
	RecordID uint64
	Page     int
	PageSize int
}

type Page struct {
	Events     []Event `json:"events"`
	TotalCount int64   `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}

// Reader serves the audit history query surface from a durable sink.
type Reader interface {
	List(ctx context.Context, q *Query) (*Page, error)
}
