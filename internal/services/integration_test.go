package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/DRrook/YallaFit/internal/models"
	"github.com/DRrook/YallaFit/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("TEST_DB_URL")
		if dbURL == "" {
			dbURL = os.Getenv("DB_URL")
		}
		if dbURL == "" {
			testDBErr = fmt.Errorf("TEST_DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationSessionService(pool *pgxpool.Pool) *SessionService {
	return NewSessionService(
		pool,
		repository.NewSessionRepository(pool),
		repository.NewEnrollmentRepository(pool),
	)
}

func newIntegrationEnrollmentService(pool *pgxpool.Pool) *EnrollmentService {
	return NewEnrollmentService(
		pool,
		repository.NewSessionRepository(pool),
		repository.NewEnrollmentRepository(pool),
	)
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Name:         fmt.Sprintf("Test %s", role),
		Email:        fmt.Sprintf("enroll-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}
	return user.ID
}

func createTestSession(
	t *testing.T,
	ctx context.Context,
	pool *pgxpool.Pool,
	coachID int64,
	capacity int,
	price float64,
) *models.Session {
	t.Helper()

	sessionRepo := repository.NewSessionRepository(pool)
	session, err := sessionRepo.Create(ctx, repository.CreateSessionInput{
		Title:       "Test Session",
		Description: "Integration test session",
		Date:        time.Now().UTC().AddDate(0, 0, 7),
		Time:        "09:00 AM",
		Capacity:    capacity,
		Price:       price,
		CoachID:     coachID,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM enrollments WHERE user_id = ANY($1) OR session_id IN (SELECT id FROM fitness_sessions WHERE coach_id = ANY($1))", userIDs); err != nil {
		t.Fatalf("cleanup enrollments: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM fitness_sessions WHERE coach_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup sessions: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
