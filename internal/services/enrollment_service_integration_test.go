package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DRrook/YallaFit/internal/models"
	"github.com/DRrook/YallaFit/internal/repository"
)

func TestEnrollAdmitsUpToCapacityUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationEnrollmentService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	clientA := createTestAccount(t, ctx, pool, models.RoleClient)
	clientB := createTestAccount(t, ctx, pool, models.RoleClient)
	clientC := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID, clientA, clientB, clientC) })

	session := createTestSession(t, ctx, pool, coachID, 2, 25)

	clients := []int64{clientA, clientB, clientC}
	results := make([]error, len(clients))
	var wg sync.WaitGroup
	for i, clientID := range clients {
		wg.Add(1)
		go func(i int, clientID int64) {
			defer wg.Done()
			_, err := service.Enroll(ctx, models.Principal{ID: clientID, Role: models.RoleClient}, session.ID, "")
			results[i] = err
		}(i, clientID)
	}
	wg.Wait()

	admitted, full := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, ErrSessionFull):
			full++
		default:
			t.Fatalf("unexpected enroll error: %v", err)
		}
	}
	if admitted != 2 || full != 1 {
		t.Fatalf("expected 2 admissions and 1 rejection, got %d admitted, %d full", admitted, full)
	}

	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	count, err := enrollmentRepo.CountActive(ctx, session.ID)
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected enrolled count 2, got %d", count)
	}
}

func TestEnrollRejectsDuplicateEvenAfterCancellation(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationEnrollmentService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	clientID := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID, clientID) })

	session := createTestSession(t, ctx, pool, coachID, 5, 30)
	client := models.Principal{ID: clientID, Role: models.RoleClient}

	enrollment, err := service.Enroll(ctx, client, session.ID, "")
	if err != nil {
		t.Fatalf("first Enroll: %v", err)
	}
	if enrollment.Status != models.EnrollmentStatusConfirmed {
		t.Fatalf("expected confirmed enrollment, got %q", enrollment.Status)
	}
	if enrollment.PaidAmount != 30 {
		t.Fatalf("expected paid amount 30, got %.2f", enrollment.PaidAmount)
	}

	if _, err := service.Enroll(ctx, client, session.ID, ""); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled on duplicate, got %v", err)
	}

	if _, err := service.Cancel(ctx, client, enrollment.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// A cancelled row still blocks re-enrollment.
	if _, err := service.Enroll(ctx, client, session.ID, ""); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled after cancellation, got %v", err)
	}
}

func TestCancellationFreesCapacitySlot(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationEnrollmentService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	clientA := createTestAccount(t, ctx, pool, models.RoleClient)
	clientB := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID, clientA, clientB) })

	session := createTestSession(t, ctx, pool, coachID, 1, 20)

	first, err := service.Enroll(ctx, models.Principal{ID: clientA, Role: models.RoleClient}, session.ID, "")
	if err != nil {
		t.Fatalf("first Enroll: %v", err)
	}

	second := models.Principal{ID: clientB, Role: models.RoleClient}
	if _, err := service.Enroll(ctx, second, session.ID, ""); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("expected ErrSessionFull, got %v", err)
	}

	if _, err := service.Cancel(ctx, models.Principal{ID: clientA, Role: models.RoleClient}, first.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := service.Enroll(ctx, second, session.ID, ""); err != nil {
		t.Fatalf("expected admission after slot freed, got %v", err)
	}
}

func TestEnrollRejectsCompletedSession(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationEnrollmentService(pool)
	sessionService := newIntegrationSessionService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	clientID := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID, clientID) })

	session := createTestSession(t, ctx, pool, coachID, 5, 15)
	completed := models.SessionStatusCompleted
	if _, err := sessionService.UpdateSession(ctx, models.Principal{ID: coachID, Role: models.RoleCoach}, session.ID, UpdateSessionInput{Status: &completed}); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	_, err := service.Enroll(ctx, models.Principal{ID: clientID, Role: models.RoleClient}, session.ID, "")
	if !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
}

func TestEnrollmentLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationEnrollmentService(pool)

	coachID := createTestAccount(t, ctx, pool, models.RoleCoach)
	clientID := createTestAccount(t, ctx, pool, models.RoleClient)
	otherClientID := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coachID, clientID, otherClientID) })

	session := createTestSession(t, ctx, pool, coachID, 5, 40)
	client := models.Principal{ID: clientID, Role: models.RoleClient}
	coach := models.Principal{ID: coachID, Role: models.RoleCoach}

	enrollment, err := service.Enroll(ctx, client, session.ID, "pending")
	if err != nil {
		t.Fatalf("Enroll pending: %v", err)
	}
	if enrollment.Status != models.EnrollmentStatusPending {
		t.Fatalf("expected pending enrollment, got %q", enrollment.Status)
	}

	// Only the owning coach may confirm.
	if _, err := service.UpdateStatus(ctx, client, enrollment.ID, "confirmed"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client confirm, got %v", err)
	}

	confirmed, err := service.UpdateStatus(ctx, coach, enrollment.ID, "confirm")
	if err != nil {
		t.Fatalf("coach confirm: %v", err)
	}
	if confirmed.Status != models.EnrollmentStatusConfirmed {
		t.Fatalf("expected confirmed, got %q", confirmed.Status)
	}

	// Pending-only transition no longer applies.
	if _, err := service.UpdateStatus(ctx, coach, enrollment.ID, "confirm"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on double confirm, got %v", err)
	}

	// An unrelated client may not cancel.
	if _, err := service.Cancel(ctx, models.Principal{ID: otherClientID, Role: models.RoleClient}, enrollment.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unrelated cancel, got %v", err)
	}

	done, err := service.UpdateStatus(ctx, coach, enrollment.ID, "complete")
	if err != nil {
		t.Fatalf("coach complete: %v", err)
	}
	if done.Status != models.EnrollmentStatusCompleted {
		t.Fatalf("expected completed, got %q", done.Status)
	}

	// Completed is terminal.
	if _, err := service.Cancel(ctx, client, enrollment.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition cancelling completed, got %v", err)
	}
}
