package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"outpass/internal/defaulter"
	"outpass/internal/directory"
	passmetrics "outpass/internal/pass/metrics"
	"outpass/internal/pass/models"
	"outpass/internal/pass/service/mocks"
	"outpass/internal/pass/store"
	"outpass/internal/sysconfig"
	id "outpass/pkg/domain"
	dErrors "outpass/pkg/domain-errors"
	"outpass/pkg/platform/audit"
	"outpass/pkg/requestcontext"
)

var testMetrics = passmetrics.New()

const testBaseURL = "https://outpass.example.edu"

type fixture struct {
	service    *Service
	passes     *store.InMemoryStore
	tokens     *store.InMemoryGuardianTokenStore
	defaulters *defaulter.InMemoryStore
	config     *sysconfig.InMemoryStore
	directory  *directory.InMemoryDirectory
	dispatch   *mocks.MockDispatcher
	events     chan audit.Event
	now        time.Time
}

func newFixture(t *testing.T, cfg sysconfig.Config) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		passes:     store.NewInMemory(),
		tokens:     store.NewInMemoryGuardianTokens(),
		defaulters: defaulter.NewInMemory(),
		config:     sysconfig.NewInMemory(cfg),
		directory:  directory.NewInMemory(),
		dispatch:   mocks.NewMockDispatcher(ctrl),
		events:     make(chan audit.Event, 100),
		now:        time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC),
	}
	f.service = New(
		f.passes, f.tokens, f.defaulters, f.config, f.directory, f.dispatch,
		audit.NewEmitter(f.events, logger), testMetrics, logger, testBaseURL,
	)
	return f
}

func (f *fixture) studentCtx(studentID id.StudentID) context.Context {
	ctx := requestcontext.WithActor(context.Background(), uuid.UUID(studentID), requestcontext.RoleStudent)
	return requestcontext.WithTime(ctx, f.now)
}

func (f *fixture) wardenCtx(wardenID id.WardenID, block string) context.Context {
	ctx := requestcontext.WithActor(context.Background(), uuid.UUID(wardenID), requestcontext.RoleWarden)
	ctx = requestcontext.WithBlock(ctx, block)
	return requestcontext.WithTime(ctx, f.now)
}

func (f *fixture) anonCtx() context.Context {
	return requestcontext.WithTime(context.Background(), f.now)
}

func (f *fixture) enroll(studentID id.StudentID, block string) *directory.Contact {
	contact := &directory.Contact{
		StudentID:     studentID,
		Name:          "Rohan Iyer",
		Email:         "rohan@example.edu",
		GuardianEmail: "guardian@example.com",
		Block:         block,
	}
	f.directory.Register(contact)
	return contact
}

func (f *fixture) drainActions() []string {
	var actions []string
	for {
		select {
		case ev := <-f.events:
			actions = append(actions, ev.Action)
		default:
			return actions
		}
	}
}

func dayInput(date time.Time) ApplyDayInput {
	return ApplyDayInput{
		Date:        date,
		OutClock:    "09:00",
		InClock:     "18:00",
		Reason:      "project work",
		Destination: "city library",
	}
}

func homeInput(now time.Time) ApplyHomeInput {
	return ApplyHomeInput{
		FromDate:    now.Add(24 * time.Hour),
		ToDate:      now.Add(96 * time.Hour),
		Reason:      "festival at home",
		Destination: "home town",
	}
}

func TestApplyDay(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, pass.Status)
	assert.Equal(t, models.KindDay, pass.Kind)
	assert.Empty(t, pass.QRCode)
	assert.Equal(t, 9, pass.ExpectedOut.Hour())
	assert.Equal(t, 18, pass.ExpectedIn.Hour())

	assert.Contains(t, f.drainActions(), string(audit.EventPassApplied))
}

func TestApplyDay_AutoApprove(t *testing.T) {
	cfg := sysconfig.Default()
	cfg.DayPassAutoApprove = true
	f := newFixture(t, cfg)
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, pass.Status)
	assert.NotEmpty(t, pass.QRCode)
}

func TestApplyDay_ActiveDefaulterBlocked(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	record := defaulter.New(id.DefaulterID(uuid.New()), studentID, id.PassID(uuid.New()), defaulter.ReasonLateReturn, f.now)
	require.NoError(t, f.defaulters.Create(context.Background(), record))

	_, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeForbidden))
	assert.Contains(t, err.Error(), "defaulter")
}

func TestApplyDay_EmergencyFreeze(t *testing.T) {
	cfg := sysconfig.Default()
	cfg.EmergencyFreeze = true
	f := newFixture(t, cfg)
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	_, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeForbidden))
	assert.Contains(t, err.Error(), "frozen")
}

func TestApplyDay_OutsideWindow(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	in := dayInput(f.now)
	in.OutClock = "04:00"
	_, err := f.service.ApplyDay(f.studentCtx(studentID), in)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestApplyDay_BadClock(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	in := dayInput(f.now)
	in.InClock = "quarter past nine"
	_, err := f.service.ApplyDay(f.studentCtx(studentID), in)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestApplyDay_DuplicateSameDay(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	_, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	_, err = f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestApplyDay_CompletedPassDoesNotBlockReapply(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	ctx := context.Background()

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	// the first pass runs its full course the same day
	pass.ApplyWardenApproval(id.WardenID(uuid.New()), f.now)
	require.NoError(t, f.passes.UpdateStatus(ctx, pass, models.StatusPending))
	pass.ApplyCheckOut(f.now.Add(time.Hour))
	require.NoError(t, f.passes.UpdateStatus(ctx, pass, models.StatusApproved))
	pass.ApplyCheckIn(f.now.Add(2 * time.Hour))
	require.NoError(t, f.passes.UpdateStatus(ctx, pass, models.StatusCurrentlyOut))

	second, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, second.Status)
}

func TestApplyHome_NoSameDateLimit(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	f.dispatch.EXPECT().
		GuardianApprovalRequest(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Times(2)

	_, err := f.service.ApplyHome(f.studentCtx(studentID), homeInput(f.now))
	require.NoError(t, err)

	// only day passes carry the one-open-request-per-date rule
	_, err = f.service.ApplyHome(f.studentCtx(studentID), homeInput(f.now))
	require.NoError(t, err)
}

func TestApplyHome(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	contact := f.enroll(studentID, "A")

	var plaintext string
	f.dispatch.EXPECT().
		GuardianApprovalRequest(contact.GuardianEmail, contact.Name, testBaseURL, gomock.Any()).
		Do(func(_, _, _ string, token string) { plaintext = token })

	pass, err := f.service.ApplyHome(f.studentCtx(studentID), homeInput(f.now))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingGuardian, pass.Status)
	assert.Equal(t, models.KindHome, pass.Kind)
	require.NotEmpty(t, plaintext)

	token, err := f.tokens.FindByHash(context.Background(), models.HashGuardianToken(plaintext))
	require.NoError(t, err)
	assert.Equal(t, pass.ID, token.PassID)
	assert.Nil(t, token.ConsumedAt)
}

func TestApplyHome_NoDirectoryRecord(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())

	_, err := f.service.ApplyHome(f.studentCtx(studentID), homeInput(f.now))
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

// applyHomeWithToken creates a home pass and returns it with the guardian's
// plaintext token.
func applyHomeWithToken(t *testing.T, f *fixture, studentID id.StudentID) (*models.Pass, string) {
	t.Helper()
	var plaintext string
	f.dispatch.EXPECT().
		GuardianApprovalRequest(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_, _, _ string, token string) { plaintext = token })
	pass, err := f.service.ApplyHome(f.studentCtx(studentID), homeInput(f.now))
	require.NoError(t, err)
	return pass, plaintext
}

func TestGuardianDecide_Approve(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	pass, plaintext := applyHomeWithToken(t, f, studentID)
	f.drainActions()

	f.dispatch.EXPECT().PassDecision("rohan@example.edu", true, "")

	updated, err := f.service.GuardianDecide(f.anonCtx(), plaintext, GuardianApprove, "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingWarden, updated.Status)
	assert.True(t, updated.IsGuardianApproved)
	assert.Empty(t, updated.QRCode)

	stored, err := f.passes.FindByID(context.Background(), pass.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingWarden, stored.Status)
	assert.Contains(t, f.drainActions(), string(audit.EventPassGuardianApproved))
}

func TestGuardianDecide_ApproveWithAutoApprove(t *testing.T) {
	cfg := sysconfig.Default()
	cfg.HomePassAutoApprove = true
	f := newFixture(t, cfg)
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	_, plaintext := applyHomeWithToken(t, f, studentID)

	f.dispatch.EXPECT().PassDecision(gomock.Any(), true, "")

	updated, err := f.service.GuardianDecide(f.anonCtx(), plaintext, GuardianApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.NotEmpty(t, updated.QRCode)
}

func TestGuardianDecide_Reject(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	_, plaintext := applyHomeWithToken(t, f, studentID)

	f.dispatch.EXPECT().PassDecision(gomock.Any(), false, "exams next week")

	updated, err := f.service.GuardianDecide(f.anonCtx(), plaintext, GuardianReject, "exams next week")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Equal(t, "exams next week", updated.RejectionReason)
}

func TestGuardianDecide_TokenSingleUse(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	_, plaintext := applyHomeWithToken(t, f, studentID)

	f.dispatch.EXPECT().PassDecision(gomock.Any(), true, "")
	_, err := f.service.GuardianDecide(f.anonCtx(), plaintext, GuardianApprove, "")
	require.NoError(t, err)

	_, err = f.service.GuardianDecide(f.anonCtx(), plaintext, GuardianApprove, "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
	assert.Contains(t, err.Error(), "already been used")
}

func TestGuardianDecide_TokenBurnsOnUndecidablePass(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	pass, plaintext := applyHomeWithToken(t, f, studentID)

	// Student cancels before the guardian clicks the link.
	_, err := f.service.Cancel(f.studentCtx(studentID), pass.ID)
	require.NoError(t, err)

	_, err = f.service.GuardianDecide(f.anonCtx(), plaintext, GuardianApprove, "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvariantViolation))

	// The link is spent even though the decision could not land.
	_, err = f.service.GuardianDecide(f.anonCtx(), plaintext, GuardianApprove, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already been used")
}

func TestGuardianDecide_ExpiredToken(t *testing.T) {
	cfg := sysconfig.Default()
	cfg.GuardianTokenTTL = time.Hour
	f := newFixture(t, cfg)
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	_, plaintext := applyHomeWithToken(t, f, studentID)

	f.now = f.now.Add(2 * time.Hour)
	_, err := f.service.GuardianDecide(f.anonCtx(), plaintext, GuardianApprove, "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
	assert.Contains(t, err.Error(), "expired")
}

func TestGuardianDecide_UnknownToken(t *testing.T) {
	f := newFixture(t, sysconfig.Default())

	_, err := f.service.GuardianDecide(f.anonCtx(), "deadbeef", GuardianApprove, "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestWardenDecide_Approve(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	wardenID := id.WardenID(uuid.New())

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)
	f.drainActions()

	f.dispatch.EXPECT().PassDecision("rohan@example.edu", true, "")

	updated, err := f.service.WardenDecide(f.wardenCtx(wardenID, "A"), pass.ID, WardenApprove, "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, wardenID, *updated.ApprovedBy)
	assert.NotEmpty(t, updated.QRCode)
	assert.Contains(t, f.drainActions(), string(audit.EventPassWardenApproved))
}

func TestWardenDecide_WrongBlock(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	_, err = f.service.WardenDecide(f.wardenCtx(id.WardenID(uuid.New()), "B"), pass.ID, WardenApprove, "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeForbidden))
}

func TestWardenDecide_RejectRequiresReason(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	_, err = f.service.WardenDecide(f.wardenCtx(id.WardenID(uuid.New()), "A"), pass.ID, WardenReject, "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestWardenDecide_Reject(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	f.dispatch.EXPECT().PassDecision(gomock.Any(), false, "too many recent passes")

	updated, err := f.service.WardenDecide(f.wardenCtx(id.WardenID(uuid.New()), "A"), pass.ID, WardenReject, "too many recent passes")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Equal(t, "too many recent passes", updated.RejectionReason)
}

func TestWardenDecide_GuardianStageNotActionable(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")
	pass, _ := applyHomeWithToken(t, f, studentID)

	_, err := f.service.WardenDecide(f.wardenCtx(id.WardenID(uuid.New()), "A"), pass.ID, WardenApprove, "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvariantViolation))
	assert.Contains(t, err.Error(), "guardian")
}

func TestWardenDecide_NotFound(t *testing.T) {
	f := newFixture(t, sysconfig.Default())

	_, err := f.service.WardenDecide(f.wardenCtx(id.WardenID(uuid.New()), "A"), id.PassID(uuid.New()), WardenApprove, "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestCancel(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)
	f.drainActions()

	updated, err := f.service.Cancel(f.studentCtx(studentID), pass.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Contains(t, f.drainActions(), string(audit.EventPassCancelled))
}

func TestCancel_NotOwner(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	_, err = f.service.Cancel(f.studentCtx(id.StudentID(uuid.New())), pass.ID)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeForbidden))
}

func TestCancel_ApprovedPassNotCancellable(t *testing.T) {
	cfg := sysconfig.Default()
	cfg.DayPassAutoApprove = true
	f := newFixture(t, cfg)
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, pass.Status)

	_, err = f.service.Cancel(f.studentCtx(studentID), pass.ID)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvariantViolation))
}

func TestListForWarden(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	inBlock := id.StudentID(uuid.New())
	outOfBlock := id.StudentID(uuid.New())
	f.enroll(inBlock, "A")
	f.enroll(outOfBlock, "B")

	_, err := f.service.ApplyDay(f.studentCtx(inBlock), dayInput(f.now))
	require.NoError(t, err)
	_, err = f.service.ApplyDay(f.studentCtx(outOfBlock), dayInput(f.now))
	require.NoError(t, err)

	queue, err := f.service.ListForWarden(f.wardenCtx(id.WardenID(uuid.New()), "A"))
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, inBlock, queue[0].StudentID)
}

func TestListForWarden_ExpiresLapsedRequests(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	pass, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	f.now = f.now.Add(48 * time.Hour)
	queue, err := f.service.ListForWarden(f.wardenCtx(id.WardenID(uuid.New()), "A"))
	require.NoError(t, err)
	assert.Empty(t, queue)

	stored, err := f.passes.FindByID(context.Background(), pass.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, stored.Status)
}

func TestListOwn(t *testing.T) {
	f := newFixture(t, sysconfig.Default())
	studentID := id.StudentID(uuid.New())
	f.enroll(studentID, "A")

	_, err := f.service.ApplyDay(f.studentCtx(studentID), dayInput(f.now))
	require.NoError(t, err)

	own, err := f.service.ListOwn(f.studentCtx(studentID))
	require.NoError(t, err)
	require.Len(t, own, 1)

	other, err := f.service.ListOwn(f.studentCtx(id.StudentID(uuid.New())))
	require.NoError(t, err)
	assert.Empty(t, other)
}
