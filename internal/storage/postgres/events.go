package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/domain"
)

// eventRow is the append-only persistence shape of an audit fact. Rows
// are only ever inserted; there is no update or delete path.
type eventRow struct {
	Seq        uint64    `gorm:"column:seq;primaryKey;autoIncrement:false"`
	Kind       string    `gorm:"column:kind;type:varchar(40);not null;index"`
	Actor      string    `gorm:"column:actor;type:varchar(128);not null;index"`
	Subject    string    `gorm:"column:subject;type:varchar(128);index"`
	RecordID   uint64    `gorm:"column:record_id;index"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index"`
	RequestID  string    `gorm:"column:request_id;type:varchar(64)"`

	Detail map[string]string `gorm:"column:detail;serializer:json"`
}

func (eventRow) TableName() string {
	return "audit.events"
}

func (r *eventRow) toEvent() audit.Event {
	return audit.Event{
		Seq:        r.Seq,
		Kind:       audit.Kind(r.Kind),
		Actor:      domain.Address(r.Actor),
		Subject:    domain.Address(r.Subject),
		RecordID:   r.RecordID,
		OccurredAt: r.OccurredAt,
		RequestID:  r.RequestID,
		Detail:     r.Detail,
	}
}

// EventStore is the durable audit sink. Its Append runs inside the
// emitting operation, so a failed insert fails the operation itself and
// no state change is observable without its audit fact.
type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, e *audit.Event) error {
	row := &eventRow{
		Seq:        e.Seq,
		Kind:       string(e.Kind),
		Actor:      e.Actor.String(),
		Subject:    e.Subject.String(),
		RecordID:   e.RecordID,
		OccurredAt: e.OccurredAt,
		RequestID:  e.RequestID,
		Detail:     e.Detail,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// ListAll streams the full event history in commit order, for ledger
// replay on startup.
func (s *EventStore) ListAll(ctx context.Context) ([]audit.Event, error) {
	var rows []eventRow
	if err := s.db.WithContext(ctx).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading audit events: %w", err)
	}
	events := make([]audit.Event, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].toEvent())
	}
	return events, nil
}

// List returns a filtered, paginated slice of the event history for the
// audit query API.
func (s *EventStore) List(ctx context.Context, q *audit.Query) (*audit.Page, error) {
	if q.PageSize <= 0 || q.PageSize > 500 {
		q.PageSize = 100
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	tx := s.db.WithContext(ctx).Model(&eventRow{})
	if q.Kind != "" {
		tx = tx.Where("kind = ?", string(q.Kind))
	}
	if q.Actor != "" {
		tx = tx.Where("actor = ?", q.Actor.String())
	}
	if q.Subject != "" {
		tx = tx.Where("subject = ?", q.Subject.String())
	}
	if q.RecordID != 0 {
		tx = tx.Where("record_id = ?", q.RecordID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting audit events: %w", err)
	}

	var rows []eventRow
	err := tx.Order("seq ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}

	events := make([]audit.Event, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].toEvent())
	}
	return &audit.Page{
		Events:     events,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}
