package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogSink mirrors every audit fact into the structured log. It never
// fails, so it is safe to compose after a durable sink.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("audit")}
}

func (s *LogSink) Append(_ context.Context, e *Event) error {
	fields := []zap.Field{
		zap.Uint64("seq", e.Seq),
		zap.String("kind", string(e.Kind)),
		zap.String("actor", e.Actor.String()),
		zap.Time("occurred_at", e.OccurredAt),
	}
	if e.Subject != "" {
		fields = append(fields, zap.String("subject", e.Subject.String()))
	}
	if e.RecordID != 0 {
		fields = append(fields, zap.Uint64("record_id", e.RecordID))
	}
	if e.RequestID != "" {
		fields = append(fields, zap.String("request_id", e.RequestID))
	}
	for k, v := range e.Detail {
		fields = append(fields, zap.String(k, v))
	}
	s.log.Info("audit event", fields...)
	return nil
}
