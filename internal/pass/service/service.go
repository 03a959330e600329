// Package service implements the pass lifecycle: student applications with
// their entry checks, the guardian token stage, warden decisions, and
// owner cancellation.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"outpass/internal/defaulter"
	"outpass/internal/directory"
	passmetrics "outpass/internal/pass/metrics"
	"outpass/internal/pass/models"
	"outpass/internal/pass/store"
	"outpass/internal/sysconfig"
	id "outpass/pkg/domain"
	dErrors "outpass/pkg/domain-errors"
	"outpass/pkg/platform/audit"
	"outpass/pkg/platform/sentinel"
	"outpass/pkg/requestcontext"
)

// Dispatcher sends lifecycle notifications fire-and-forget.
type Dispatcher interface {
	GuardianApprovalRequest(guardianEmail, studentName, baseURL, token string)
	PassDecision(studentEmail string, approved bool, reason string)
}

// Service orchestrates pass applications and decisions.
type Service struct {
	passes     store.Store
	tokens     store.GuardianTokenStore
	defaulters defaulter.Store
	config     sysconfig.Store
	directory  directory.Directory
	dispatch   Dispatcher
	audit      *audit.Emitter
	metrics    *passmetrics.Metrics
	logger     *slog.Logger
	baseURL    string
	tracer     trace.Tracer
}

func New(
	passes store.Store,
	tokens store.GuardianTokenStore,
	defaulters defaulter.Store,
	config sysconfig.Store,
	dir directory.Directory,
	dispatch Dispatcher,
	emitter *audit.Emitter,
	metrics *passmetrics.Metrics,
	logger *slog.Logger,
	baseURL string) *Service {
	return &Service{
		passes:     passes,
		tokens:     tokens,
		defaulters: defaulters,
		config:     config,
		directory:  dir,
		dispatch:   dispatch,
		audit:      emitter,
		metrics:    metrics,
		logger:     logger,
		baseURL:    baseURL,
		tracer:     otel.Tracer("outpass/internal/pass"),
	}
}

// ApplyDayInput is a day pass application. Clock fields are "HH:MM" in
// hostel-local time on the requested date.
type ApplyDayInput struct {
	Date        time.Time
	OutClock    string
	InClock     string
	Reason      string
	Destination string
}

// ApplyHomeInput is a multi-day home pass application.
type ApplyHomeInput struct {
	FromDate    time.Time
	ToDate      time.Time
	Reason      string
	Destination string
}

// ApplyDay runs the apply-time entry checks and creates a day pass for the
// student in the request context. With auto-approve policy the pass comes
// back APPROVED and carries its QR code.
func (s *Service) ApplyDay(ctx context.Context, in ApplyDayInput) (*models.Pass, error) {
	ctx, span := s.tracer.Start(ctx, "pass.ApplyDay")
	defer span.End()

	now := requestcontext.Now(ctx)
	studentID := id.StudentID(requestcontext.ActorID(ctx))

	cfg, err := s.entryChecks(ctx, studentID, models.KindDay, in.Date)
	if err != nil {
		s.metrics.RecordApplication(string(models.KindDay), "rejected")
		return nil, err
	}

	outMinute, err := sysconfig.ParseClock(in.OutClock)
	if err != nil {
		return nil, err
	}
	inMinute, err := sysconfig.ParseClock(in.InClock)
	if err != nil {
		return nil, err
	}
	if !cfg.WithinDayWindow(outMinute, inMinute) {
		s.metrics.RecordApplication(string(models.KindDay), "outside_window")
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"requested times must fall between %s and %s",
			sysconfig.FormatClock(cfg.DayPassStartMinute),
			sysconfig.FormatClock(cfg.DayPassEndMinute))
	}

	pass, err := models.NewDayPass(
		id.PassID(uuid.New()), studentID,
		in.Date, clockOn(in.Date, outMinute), clockOn(in.Date, inMinute),
		in.Reason, in.Destination,
		cfg.DayPassAutoApprove, now,
	)
	if err != nil {
		return nil, err
	}
	if err := s.passes.Create(ctx, pass); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating pass failed")
	}
	span.SetAttributes(attribute.String("pass_id", pass.ID.String()))

	s.emit(ctx, pass, audit.EventPassApplied, "")
	s.metrics.RecordApplication(string(models.KindDay), "ok")
	return pass, nil
}

// ApplyHome runs the entry checks, creates a home pass awaiting its guardian,
// and emails the guardian a single-use decision link.
func (s *Service) ApplyHome(ctx context.Context, in ApplyHomeInput) (*models.Pass, error) {
	ctx, span := s.tracer.Start(ctx, "pass.ApplyHome")
	defer span.End()

	now := requestcontext.Now(ctx)
	studentID := id.StudentID(requestcontext.ActorID(ctx))

	cfg, err := s.entryChecks(ctx, studentID, models.KindHome, in.FromDate)
	if err != nil {
		s.metrics.RecordApplication(string(models.KindHome), "rejected")
		return nil, err
	}

	contact, err := s.directory.Student(ctx, studentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no directory record for student")
	}
	if contact.GuardianEmail == "" {
		return nil, dErrors.New(dErrors.CodeConflict, "student has no guardian email on file")
	}

	pass, err := models.NewHomePass(
		id.PassID(uuid.New()), studentID,
		in.FromDate, in.ToDate,
		in.Reason, in.Destination, now,
	)
	if err != nil {
		return nil, err
	}
	if err := s.passes.Create(ctx, pass); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating pass failed")
	}
	span.SetAttributes(attribute.String("pass_id", pass.ID.String()))

	plaintext, token := models.NewGuardianToken(pass.ID, contact.GuardianEmail, cfg.GuardianTokenTTL, now)
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating guardian token failed")
	}
	s.dispatch.GuardianApprovalRequest(contact.GuardianEmail, contact.Name, s.baseURL, plaintext)

	s.emit(ctx, pass, audit.EventPassApplied, "")
	s.metrics.RecordApplication(string(models.KindHome), "ok")
	return pass, nil
}

// entryChecks enforces the apply-time policy shared by both pass kinds.
func (s *Service) entryChecks(ctx context.Context, studentID id.StudentID, kind models.Kind, date time.Time) (sysconfig.Config, error) {
	blocked, err := s.defaulters.HasActive(ctx, studentID)
	if err != nil {
		return sysconfig.Config{}, dErrors.Wrap(err, dErrors.CodeInternal, "defaulter lookup failed")
	}
	if blocked {
		return sysconfig.Config{}, dErrors.New(dErrors.CodeForbidden, "student has an active defaulter record")
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return sysconfig.Config{}, dErrors.Wrap(err, dErrors.CodeInternal, "reading policy failed")
	}
	if cfg.EmergencyFreeze {
		return sysconfig.Config{}, dErrors.New(dErrors.CodeForbidden, "new pass requests are frozen")
	}

	// Only day passes are limited to one open request per date. A pass
	// that already ran to completion does not block reapplying.
	if kind == models.KindDay {
		duplicate, err := s.passes.HasActiveOnDate(ctx, studentID, kind, date)
		if err != nil {
			return sysconfig.Config{}, dErrors.Wrap(err, dErrors.CodeInternal, "duplicate check failed")
		}
		if duplicate {
			return sysconfig.Config{}, dErrors.Newf(dErrors.CodeConflict, "student already has a %s pass for this date", kind)
		}
	}
	return cfg, nil
}

// GuardianAction is a guardian's decision on an emailed link.
type GuardianAction string

const (
	GuardianApprove GuardianAction = "approve"
	GuardianReject  GuardianAction = "reject"
)

// GuardianDecide consumes the emailed token and applies the guardian's
// decision. The token burns on first use even when the pass itself can no
// longer accept the decision.
func (s *Service) GuardianDecide(ctx context.Context, plaintext string, action GuardianAction, reason string) (*models.Pass, error) {
	ctx, span := s.tracer.Start(ctx, "pass.GuardianDecide",
		trace.WithAttributes(attribute.String("action", string(action))))
	defer span.End()

	if action != GuardianApprove && action != GuardianReject {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown action %q", action)
	}

	now := requestcontext.Now(ctx)
	token, err := s.tokens.Consume(ctx, models.HashGuardianToken(plaintext), now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown or invalid token")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "this link has already been used")
		case errors.Is(err, sentinel.ErrExpired):
			return nil, dErrors.New(dErrors.CodeConflict, "this link has expired")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token lookup failed")
		}
	}

	pass, err := s.passes.FindByID(ctx, token.PassID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pass lookup failed")
	}
	if s.expireIfLapsed(ctx, pass, now) {
		return nil, dErrors.New(dErrors.CodeConflict, "pass has expired")
	}
	if err := pass.CanGuardianDecide(); err != nil {
		return nil, err
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reading policy failed")
	}

	expected := pass.Status
	updated := *pass
	event := audit.EventPassGuardianApproved
	if action == GuardianApprove {
		updated.ApplyGuardianApproval(cfg.HomePassAutoApprove, now)
	} else {
		updated.ApplyGuardianRejection(reason, now)
		event = audit.EventPassGuardianRejected
	}
	if err := s.casUpdate(ctx, &updated, expected); err != nil {
		return nil, err
	}

	s.emit(ctx, &updated, event, updated.RejectionReason)
	s.metrics.RecordDecision("guardian", string(action))
	s.notifyDecision(ctx, &updated, action == GuardianApprove, updated.RejectionReason)
	return &updated, nil
}

// WardenAction is a warden's decision on a queued request.
type WardenAction string

const (
	WardenApprove WardenAction = "approve"
	WardenReject  WardenAction = "reject"
)

// WardenDecide applies a warden decision to a pass in the warden's block.
// Approval issues the QR code exactly once; rejection requires a reason.
func (s *Service) WardenDecide(ctx context.Context, passID id.PassID, action WardenAction, reason string) (*models.Pass, error) {
	ctx, span := s.tracer.Start(ctx, "pass.WardenDecide",
		trace.WithAttributes(
			attribute.String("pass_id", passID.String()),
			attribute.String("action", string(action))))
	defer span.End()

	if action != WardenApprove && action != WardenReject {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown action %q", action)
	}
	if action == WardenReject && reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}

	now := requestcontext.Now(ctx)
	wardenID := id.WardenID(requestcontext.ActorID(ctx))

	pass, err := s.passes.FindByID(ctx, passID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "pass not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pass lookup failed")
	}

	if err := s.checkBlockScope(ctx, pass.StudentID); err != nil {
		return nil, err
	}
	if s.expireIfLapsed(ctx, pass, now) {
		return nil, dErrors.New(dErrors.CodeConflict, "pass has expired")
	}
	if err := pass.CanWardenDecide(); err != nil {
		return nil, err
	}

	expected := pass.Status
	updated := *pass
	event := audit.EventPassWardenApproved
	if action == WardenApprove {
		updated.ApplyWardenApproval(wardenID, now)
	} else {
		updated.ApplyWardenRejection(wardenID, reason, now)
		event = audit.EventPassWardenRejected
	}
	if err := s.casUpdate(ctx, &updated, expected); err != nil {
		return nil, err
	}

	s.emit(ctx, &updated, event, reason)
	s.metrics.RecordDecision("warden", string(action))
	s.notifyDecision(ctx, &updated, action == WardenApprove, reason)
	return &updated, nil
}

// checkBlockScope confirms the pass owner lives in the warden's assigned
// block. Wardens with no block assignment see nothing.
func (s *Service) checkBlockScope(ctx context.Context, studentID id.StudentID) error {
	block := requestcontext.Block(ctx)
	if block == "" {
		return dErrors.New(dErrors.CodeForbidden, "warden has no block assignment")
	}
	contact, err := s.directory.Student(ctx, studentID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "no directory record for student")
	}
	if contact.Block != block {
		return dErrors.New(dErrors.CodeForbidden, "pass belongs to another block")
	}
	return nil
}

// Cancel withdraws the student's own pending pass.
func (s *Service) Cancel(ctx context.Context, passID id.PassID) (*models.Pass, error) {
	now := requestcontext.Now(ctx)
	studentID := id.StudentID(requestcontext.ActorID(ctx))

	pass, err := s.passes.FindByID(ctx, passID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "pass not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pass lookup failed")
	}
	if pass.StudentID != studentID {
		return nil, dErrors.New(dErrors.CodeForbidden, "pass belongs to another student")
	}
	if s.expireIfLapsed(ctx, pass, now) {
		return nil, dErrors.New(dErrors.CodeConflict, "pass has expired")
	}
	if err := pass.CanCancel(); err != nil {
		return nil, err
	}

	expected := pass.Status
	updated := *pass
	updated.ApplyCancellation(now)
	if err := s.casUpdate(ctx, &updated, expected); err != nil {
		return nil, err
	}

	s.emit(ctx, &updated, audit.EventPassCancelled, "")
	s.metrics.Cancelled.Inc()
	return &updated, nil
}

// ListOwn returns the student's passes, newest first, with lapsed pending
// passes expired on read.
func (s *Service) ListOwn(ctx context.Context) ([]*models.Pass, error) {
	now := requestcontext.Now(ctx)
	studentID := id.StudentID(requestcontext.ActorID(ctx))

	passes, err := s.passes.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing passes failed")
	}
	for _, pass := range passes {
		s.expireIfLapsed(ctx, pass, now)
	}
	return passes, nil
}

// ListForWarden returns the pending requests from the warden's block.
func (s *Service) ListForWarden(ctx context.Context) ([]*models.Pass, error) {
	now := requestcontext.Now(ctx)
	block := requestcontext.Block(ctx)
	if block == "" {
		return nil, dErrors.New(dErrors.CodeForbidden, "warden has no block assignment")
	}

	pending, err := s.passes.ListByStatuses(ctx, models.StatusPending, models.StatusPendingWarden)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing pending passes failed")
	}

	var out []*models.Pass
	for _, pass := range pending {
		if s.expireIfLapsed(ctx, pass, now) {
			continue
		}
		contact, err := s.directory.Student(ctx, pass.StudentID)
		if err != nil || contact.Block != block {
			continue
		}
		out = append(out, pass)
	}
	return out, nil
}

// casUpdate persists a status transition conditional on the status the
// decision was made against, translating a lost race to a conflict.
func (s *Service) casUpdate(ctx context.Context, pass *models.Pass, expected models.Status) error {
	if err := s.passes.UpdateStatus(ctx, pass, expected); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeConflict, "pass was updated concurrently, re-fetch and retry")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "updating pass failed")
	}
	return nil
}

func (s *Service) expireIfLapsed(ctx context.Context, pass *models.Pass, now time.Time) bool {
	if !pass.WindowLapsed(now) {
		return false
	}
	expected := pass.Status
	expired := *pass
	expired.ApplyExpiry(now)
	if err := s.passes.UpdateStatus(ctx, &expired, expected); err != nil {
		s.logger.WarnContext(ctx, "failed to persist lazy expiry",
			"pass_id", pass.ID.String(),
			"error", err,
		)
	} else {
		s.emit(ctx, &expired, audit.EventPassExpired, "")
		s.metrics.Expired.Inc()
	}
	*pass = expired
	return true
}

func (s *Service) notifyDecision(ctx context.Context, pass *models.Pass, approved bool, reason string) {
	contact, err := s.directory.Student(ctx, pass.StudentID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping decision notification, student not in directory",
			"student_id", pass.StudentID.String(),
		)
		return
	}
	s.dispatch.PassDecision(contact.Email, approved, reason)
}

func (s *Service) emit(ctx context.Context, pass *models.Pass, action audit.LedgerEvent, reason string) {
	s.audit.Emit(ctx, audit.Event{
		PassID:    pass.ID,
		StudentID: pass.StudentID,
		ActorID:   requestcontext.ActorID(ctx).String(),
		Action:    string(action),
		Reason:    reason,
	})
}

// clockOn anchors a minute-of-day onto the given date in its location.
func clockOn(date time.Time, minute int) time.Time {
	year, month, day := date.Date()
	return time.Date(year, month, day, minute/60, minute%60, 0, 0, date.Location())
}
