// Package service implements gate scan verification: resolving a scanned
// payload to a pass, applying the check-out or check-in transition, and
// producing the defaulter and notification side effects.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"outpass/internal/defaulter"
	"outpass/internal/directory"
	gatemetrics "outpass/internal/gate/metrics"
	"outpass/internal/gate/models"
	gatestore "outpass/internal/gate/store"
	passmodels "outpass/internal/pass/models"
	passstore "outpass/internal/pass/store"
	id "outpass/pkg/domain"
	dErrors "outpass/pkg/domain-errors"
	"outpass/pkg/platform/audit"
	"outpass/pkg/platform/sentinel"
	"outpass/pkg/requestcontext"
)

// Service runs the gate verification flow.
type Service struct {
	passes     passstore.Store
	logs       gatestore.Store
	defaulters defaulter.Store
	directory  directory.Directory
	dispatch   Dispatcher
	audit      *audit.Emitter
	metrics    *gatemetrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Dispatcher sends guardian notifications fire-and-forget.
type Dispatcher interface {
	CheckedOut(guardianEmail, studentName string, at time.Time)
	Returned(guardianEmail, studentName string, at time.Time, late bool)
}

func New(
	passes passstore.Store,
	logs gatestore.Store,
	defaulters defaulter.Store,
	dir directory.Directory,
	dispatch Dispatcher,
	emitter *audit.Emitter,
	metrics *gatemetrics.Metrics,
	logger *slog.Logger) *Service {
	return &Service{
		passes:     passes,
		logs:       logs,
		defaulters: defaulters,
		directory:  dir,
		dispatch:   dispatch,
		audit:      emitter,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("outpass/internal/gate"),
	}
}

// Result is the outcome of a successful scan.
type Result struct {
	Pass       *passmodels.Pass `json:"pass"`
	ScanType   models.ScanType  `json:"scan_type"`
	MissedExit bool             `json:"missed_exit,omitempty"`
	Late       bool             `json:"late,omitempty"`
	Message    string           `json:"message"`
}

// scanEnvelope is the JSON wrapper some scanner clients send instead of the
// bare identifier.
type scanEnvelope struct {
	ID string `json:"id"`
}

// ExtractScanID pulls the pass identifier out of a raw scanned payload,
// accepting both a bare identifier and the JSON envelope form. The
// identifier is strictly validated before any lookup.
func ExtractScanID(payload string) (id.PassID, error) {
	raw := strings.TrimSpace(payload)
	if strings.HasPrefix(raw, "{") {
		var envelope scanEnvelope
		if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
			return id.PassID{}, dErrors.New(dErrors.CodeValidation, "malformed scan payload")
		}
		raw = strings.TrimSpace(envelope.ID)
	}
	passID, err := id.ParsePassID(raw)
	if err != nil {
		return id.PassID{}, dErrors.Wrap(err, dErrors.CodeValidation, "scanned identifier is not a valid pass id")
	}
	return passID, nil
}

// VerifyScan runs a single CHECK_OUT or CHECK_IN attempt end to end.
// The guard's identity comes from the request context.
func (s *Service) VerifyScan(ctx context.Context, scanType models.ScanType, payload, location string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "gate.VerifyScan",
		trace.WithAttributes(attribute.String("scan_type", string(scanType))))
	defer span.End()

	now := requestcontext.Now(ctx)
	guardID := id.GuardID(requestcontext.ActorID(ctx))

	if !scanType.Valid() {
		s.metrics.RecordScan(string(scanType), "invalid_type")
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown scan type %q", scanType)
	}

	passID, err := ExtractScanID(payload)
	if err != nil {
		s.metrics.RecordScan(string(scanType), "malformed")
		return nil, err
	}
	span.SetAttributes(attribute.String("pass_id", passID.String()))

	pass, err := s.resolvePass(ctx, passID, payload)
	if err != nil {
		s.metrics.RecordScan(string(scanType), "not_found")
		return nil, err
	}

	var result *Result
	switch scanType {
	case models.ScanCheckOut:
		// Expiry only blocks departures. A student presenting at the gate
		// on the way in is always recorded, however late the pass is.
		if s.expireIfLapsed(ctx, pass, now) {
			s.denyWithLog(ctx, pass, guardID, scanType, location, "pass expired", now)
			s.metrics.RecordScan(string(scanType), "expired")
			return nil, dErrors.New(dErrors.CodeConflict, "pass has expired")
		}
		result, err = s.checkOut(ctx, pass, guardID, location, now)
	case models.ScanCheckIn:
		result, err = s.checkIn(ctx, pass, guardID, location, now)
	}
	if err != nil {
		span.SetAttributes(attribute.String("outcome", "denied"))
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", "ok"))
	return result, nil
}

// resolvePass finds the pass behind a scanned identifier. The identifier is
// normally the pass id; older printed passes carry the QR token instead, so
// an id miss falls back to a QR lookup before reporting not found.
func (s *Service) resolvePass(ctx context.Context, passID id.PassID, payload string) (*passmodels.Pass, error) {
	pass, err := s.passes.FindByID(ctx, passID)
	if err == nil {
		return pass, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pass lookup failed")
	}
	pass, qrErr := s.passes.FindByQRCode(ctx, passID.String())
	if qrErr == nil {
		return pass, nil
	}
	if errors.Is(qrErr, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no pass matches the scanned code")
	}
	return nil, dErrors.Wrap(qrErr, dErrors.CodeInternal, "pass lookup failed")
}

func (s *Service) checkOut(ctx context.Context, pass *passmodels.Pass, guardID id.GuardID, location string, now time.Time) (*Result, error) {
	if err := pass.CanCheckOut(); err != nil {
		s.denyWithLog(ctx, pass, guardID, models.ScanCheckOut, location, err.Error(), now)
		s.metrics.RecordScan(string(models.ScanCheckOut), "denied")
		return nil, err
	}

	updated := *pass
	updated.ApplyCheckOut(now)
	if err := s.passes.CheckOut(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			// Cross-pass invariant: the student is already out on another
			// pass. Denied without a gate log row.
			s.emit(ctx, pass, audit.EventGateDenied, "denied", "student already out on another pass")
			s.metrics.RecordScan(string(models.ScanCheckOut), "already_out_conflict")
			return nil, dErrors.New(dErrors.CodeConflict, "student is already out on another pass")
		case errors.Is(err, sentinel.ErrInvalidState):
			s.denyWithLog(ctx, pass, guardID, models.ScanCheckOut, location, "pass state changed during scan", now)
			s.metrics.RecordScan(string(models.ScanCheckOut), "denied")
			return nil, dErrors.New(dErrors.CodeConflict, "pass is no longer approved")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check-out failed")
		}
	}

	s.appendLog(ctx, models.NewGateLog(updated.ID, updated.StudentID, guardID, models.ScanCheckOut, location, "", now))
	s.emit(ctx, &updated, audit.EventGateCheckOut, "ok", "")
	s.metrics.RecordScan(string(models.ScanCheckOut), "ok")
	s.notifyCheckedOut(ctx, &updated, now)

	return &Result{
		Pass:     &updated,
		ScanType: models.ScanCheckOut,
		Message:  "checked out",
	}, nil
}

func (s *Service) checkIn(ctx context.Context, pass *passmodels.Pass, guardID id.GuardID, location string, now time.Time) (*Result, error) {
	disposition := pass.ClassifyCheckIn()
	switch disposition {
	case passmodels.CheckInAlreadyCompleted:
		s.denyWithLog(ctx, pass, guardID, models.ScanCheckIn, location, "pass already used", now)
		s.metrics.RecordScan(string(models.ScanCheckIn), "denied")
		return nil, dErrors.New(dErrors.CodeConflict, "pass has already been checked in")
	case passmodels.CheckInInvalid:
		s.denyWithLog(ctx, pass, guardID, models.ScanCheckIn, location, "pass not eligible for check-in", now)
		s.metrics.RecordScan(string(models.ScanCheckIn), "denied")
		return nil, dErrors.Newf(dErrors.CodeConflict, "pass is %s and cannot be checked in", pass.Status)
	}

	expected := pass.Status
	missedExit := disposition == passmodels.CheckInMissedExit

	updated := *pass
	late := updated.ApplyCheckIn(now)
	if err := s.passes.UpdateStatus(ctx, &updated, expected); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			s.denyWithLog(ctx, pass, guardID, models.ScanCheckIn, location, "pass state changed during scan", now)
			s.metrics.RecordScan(string(models.ScanCheckIn), "denied")
			return nil, dErrors.New(dErrors.CodeConflict, "pass state changed during scan")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check-in failed")
	}

	comment := ""
	if missedExit {
		comment = models.CommentMissedExit
		s.metrics.MissedExits.Inc()
	}
	s.appendLog(ctx, models.NewGateLog(updated.ID, updated.StudentID, guardID, models.ScanCheckIn, location, comment, now))
	s.emit(ctx, &updated, audit.EventGateCheckIn, "ok", comment)
	s.metrics.RecordScan(string(models.ScanCheckIn), "ok")

	if late {
		s.recordDefaulter(ctx, &updated, now)
		s.metrics.LateReturns.Inc()
	}
	s.notifyReturned(ctx, &updated, now, late)

	message := "checked in"
	if late {
		message = "checked in late; defaulter record created"
	}
	return &Result{
		Pass:       &updated,
		ScanType:   models.ScanCheckIn,
		MissedExit: missedExit,
		Late:       late,
		Message:    message,
	}, nil
}

// recordDefaulter opens the late-return discipline record. A failure here is
// logged loudly but does not undo the completed check-in.
func (s *Service) recordDefaulter(ctx context.Context, pass *passmodels.Pass, now time.Time) {
	record := defaulter.New(id.DefaulterID(uuid.New()), pass.StudentID, pass.ID, defaulter.ReasonLateReturn, now)
	if err := s.defaulters.Create(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to create defaulter record",
			"pass_id", pass.ID.String(),
			"student_id", pass.StudentID.String(),
			"error", err,
		)
		return
	}
	s.emit(ctx, pass, audit.EventDefaulterCreated, "ok", defaulter.ReasonLateReturn)
}

func (s *Service) expireIfLapsed(ctx context.Context, pass *passmodels.Pass, now time.Time) bool {
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
		s.emit(ctx, &expired, audit.EventPassExpired, "ok", "")
	}
	*pass = expired
	return true
}

// denyWithLog writes the DENIED row and ledger event for a scan rejected on
// pass state.
func (s *Service) denyWithLog(ctx context.Context, pass *passmodels.Pass, guardID id.GuardID, requested models.ScanType, location, reason string, now time.Time) {
	comment := string(requested) + ": " + reason
	s.appendLog(ctx, models.NewGateLog(pass.ID, pass.StudentID, guardID, models.ScanDenied, location, comment, now))
	s.emit(ctx, pass, audit.EventGateDenied, "denied", reason)
}

func (s *Service) appendLog(ctx context.Context, log *models.GateLog) {
	if err := s.logs.Append(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to append gate log",
			"scan_type", string(log.ScanType),
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, pass *passmodels.Pass, action audit.LedgerEvent, outcome, reason string) {
	s.audit.Emit(ctx, audit.Event{
		PassID:    pass.ID,
		StudentID: pass.StudentID,
		ActorID:   requestcontext.ActorID(ctx).String(),
		Action:    string(action),
		Outcome:   outcome,
		Reason:    reason,
	})
}

func (s *Service) notifyCheckedOut(ctx context.Context, pass *passmodels.Pass, at time.Time) {
	contact, err := s.directory.Student(ctx, pass.StudentID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping check-out notification, student not in directory",
			"student_id", pass.StudentID.String(),
		)
		return
	}
	s.dispatch.CheckedOut(contact.GuardianEmail, contact.Name, at)
}

func (s *Service) notifyReturned(ctx context.Context, pass *passmodels.Pass, at time.Time, late bool) {
	contact, err := s.directory.Student(ctx, pass.StudentID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping check-in notification, student not in directory",
			"student_id", pass.StudentID.String(),
		)
		return
	}
	s.dispatch.Returned(contact.GuardianEmail, contact.Name, at, late)
}

// ListRecentLogs returns the newest scan rows for the guard console.
func (s *Service) ListRecentLogs(ctx context.Context, limit int) ([]*models.GateLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	logs, err := s.logs.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing gate logs failed")
	}
	return logs, nil
}
