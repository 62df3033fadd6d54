package services

import (
	"context"
	"path/filepath"
	"testing"

	"whatido/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *database.DB, email string) string {
	t.Helper()

	userService := NewUserService(db)
	user, err := userService.CreateUser(context.Background(), email, "argon2id$c2FsdA$aGFzaA", "user")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user.ID
}
