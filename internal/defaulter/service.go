package defaulter

import (
	"context"
	"errors"
	"log/slog"

	id "outpass/pkg/domain"
	dErrors "outpass/pkg/domain-errors"
	"outpass/pkg/platform/audit"
	"outpass/pkg/platform/sentinel"
	"outpass/pkg/requestcontext"
)

// Service exposes the warden-facing discipline operations. Records are
// created by the gate flow; here they are listed and cleared.
type Service struct {
	records Store
	audit   *audit.Emitter
	logger  *slog.Logger
}

func NewService(records Store, emitter *audit.Emitter, logger *slog.Logger) *Service {
	return &Service{records: records, audit: emitter, logger: logger}
}

// ListActive returns every uncleared record, newest first.
func (s *Service) ListActive(ctx context.Context) ([]*Record, error) {
	records, err := s.records.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing defaulter records failed")
	}
	return records, nil
}

// Clear lifts the block a record places on its student. Clearing an already
// cleared record is a conflict, not a no-op, so double submissions surface.
func (s *Service) Clear(ctx context.Context, recordID id.DefaulterID) (*Record, error) {
	now := requestcontext.Now(ctx)
	wardenID := id.WardenID(requestcontext.ActorID(ctx))

	record, err := s.records.Clear(ctx, recordID, wardenID, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "defaulter record not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "defaulter record is already cleared")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "clearing defaulter record failed")
		}
	}

	s.audit.Emit(ctx, audit.Event{
		PassID:    record.PassID,
		StudentID: record.StudentID,
		ActorID:   wardenID.String(),
		Action:    string(audit.EventDefaulterCleared),
	})
	return record, nil
}
