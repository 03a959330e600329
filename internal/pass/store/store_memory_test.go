package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass/internal/pass/models"
	id "outpass/pkg/domain"
	"outpass/pkg/platform/sentinel"
)

func newApprovedDayPass(t *testing.T, studentID id.StudentID, now time.Time) *models.Pass {
	t.Helper()
	date := now.Add(time.Hour)
	pass, err := models.NewDayPass(
		id.PassID(uuid.New()), studentID,
		date, date, date.Add(6*time.Hour),
		"library visit", "city library",
		true, now,
	)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, pass.Status)
	return pass
}

func TestInMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()

	pass := newApprovedDayPass(t, id.StudentID(uuid.New()), now)
	require.NoError(t, store.Create(ctx, pass))

	found, err := store.FindByID(ctx, pass.ID)
	require.NoError(t, err)
	assert.Equal(t, pass.ID, found.ID)
	assert.Equal(t, pass.QRCode, found.QRCode)

	byQR, err := store.FindByQRCode(ctx, pass.QRCode)
	require.NoError(t, err)
	assert.Equal(t, pass.ID, byQR.ID)

	_, err = store.FindByID(ctx, id.PassID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.FindByQRCode(ctx, "no-such-code")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	pass := newApprovedDayPass(t, id.StudentID(uuid.New()), time.Now())
	require.NoError(t, store.Create(ctx, pass))
	assert.ErrorIs(t, store.Create(ctx, pass), sentinel.ErrConflict)
}

func TestInMemoryStore_UpdateStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()

	pass := newApprovedDayPass(t, id.StudentID(uuid.New()), now)
	require.NoError(t, store.Create(ctx, pass))

	// the pass transitions with the correct expectation
	pass.ApplyCheckOut(now)
	require.NoError(t, store.CheckOut(ctx, pass))

	// a stale write against the old status loses
	stale := *pass
	stale.Status = models.StatusCompleted
	err := store.UpdateStatus(ctx, &stale, models.StatusApproved)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	// a write against the current status wins
	pass.ApplyCheckIn(now.Add(time.Hour))
	require.NoError(t, store.UpdateStatus(ctx, pass, models.StatusCurrentlyOut))

	found, err := store.FindByID(ctx, pass.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, found.Status)
}

func TestInMemoryStore_CheckOutSecondPassDenied(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()
	studentID := id.StudentID(uuid.New())

	first := newApprovedDayPass(t, studentID, now)
	second := newApprovedDayPass(t, studentID, now.Add(time.Minute))
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	first.ApplyCheckOut(now)
	require.NoError(t, store.CheckOut(ctx, first))

	// the second approved pass cannot be checked out while the first is open
	second.ApplyCheckOut(now)
	err := store.CheckOut(ctx, second)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStore_CheckOutRequiresApproved(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()

	pass := newApprovedDayPass(t, id.StudentID(uuid.New()), now)
	require.NoError(t, store.Create(ctx, pass))

	pass.ApplyCheckOut(now)
	require.NoError(t, store.CheckOut(ctx, pass))

	err := store.CheckOut(ctx, pass)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

// Two gate scans race for the same student. Exactly one may win the
// CURRENTLY_OUT slot.
func TestInMemoryStore_ConcurrentCheckOut(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()
	studentID := id.StudentID(uuid.New())

	passes := make([]*models.Pass, 8)
	for i := range passes {
		passes[i] = newApprovedDayPass(t, studentID, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, store.Create(ctx, passes[i]))
	}

	var wg sync.WaitGroup
	results := make(chan error, len(passes))
	for _, pass := range passes {
		wg.Add(1)
		go func(p *models.Pass) {
			defer wg.Done()
			clone := *p
			clone.ApplyCheckOut(now)
			results <- store.CheckOut(ctx, &clone)
		}(pass)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			conflicts++
		}
	}
	assert.Equal(t, 1, wins, "exactly one scan may win")
	assert.Equal(t, len(passes)-1, conflicts)
}

func TestInMemoryStore_HasActiveOnDate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()
	studentID := id.StudentID(uuid.New())

	pass := newApprovedDayPass(t, studentID, now)
	require.NoError(t, store.Create(ctx, pass))

	has, err := store.HasActiveOnDate(ctx, studentID, models.KindDay, pass.Date)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.HasActiveOnDate(ctx, studentID, models.KindDay, pass.Date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, has)

	has, err = store.HasActiveOnDate(ctx, id.StudentID(uuid.New()), models.KindDay, pass.Date)
	require.NoError(t, err)
	assert.False(t, has)

	// a cancelled pass no longer blocks the date
	pass.ApplyCancellation(now)
	require.NoError(t, store.UpdateStatus(ctx, pass, models.StatusApproved))

	has, err = store.HasActiveOnDate(ctx, studentID, models.KindDay, pass.Date)
	require.NoError(t, err)
	assert.False(t, has)

	// a pass that ran to completion releases the date as well
	done := newApprovedDayPass(t, studentID, now)
	require.NoError(t, store.Create(ctx, done))
	done.ApplyCheckOut(now)
	require.NoError(t, store.CheckOut(ctx, done))
	done.ApplyCheckIn(now.Add(time.Hour))
	require.NoError(t, store.UpdateStatus(ctx, done, models.StatusCurrentlyOut))

	has, err = store.HasActiveOnDate(ctx, studentID, models.KindDay, done.Date)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestInMemoryStore_ListByStudentAndStatuses(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()
	studentID := id.StudentID(uuid.New())

	first := newApprovedDayPass(t, studentID, now)
	second := newApprovedDayPass(t, studentID, now.Add(time.Minute))
	other := newApprovedDayPass(t, id.StudentID(uuid.New()), now)
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, other))

	mine, err := store.ListByStudent(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	approved, err := store.ListByStatuses(ctx, models.StatusApproved)
	require.NoError(t, err)
	assert.Len(t, approved, 3)

	none, err := store.ListByStatuses(ctx, models.StatusRejected)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryGuardianTokenStore_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryGuardianTokens()
	now := time.Now()

	plaintext, token := models.NewGuardianToken(id.PassID(uuid.New()), "guardian@example.com", 48*time.Hour, now)
	require.NoError(t, store.Create(ctx, token))

	hash := models.HashGuardianToken(plaintext)
	consumed, err := store.Consume(ctx, hash, now.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, consumed.ConsumedAt)

	_, err = store.Consume(ctx, hash, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestInMemoryGuardianTokenStore_Expired(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryGuardianTokens()
	now := time.Now()

	plaintext, token := models.NewGuardianToken(id.PassID(uuid.New()), "guardian@example.com", time.Hour, now)
	require.NoError(t, store.Create(ctx, token))

	_, err := store.Consume(ctx, models.HashGuardianToken(plaintext), now.Add(2*time.Hour))
	assert.ErrorIs(t, err, sentinel.ErrExpired)
}

func TestInMemoryGuardianTokenStore_UnknownHash(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryGuardianTokens()

	_, err := store.Consume(ctx, models.HashGuardianToken("never-issued"), time.Now())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.FindByHash(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
