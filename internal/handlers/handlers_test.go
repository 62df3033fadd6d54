package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"whatido/internal/database"
	"whatido/internal/middleware"
	"whatido/internal/models"
	"whatido/internal/services"
	"whatido/pkg/auth"
)

// fakeLLM returns a canned summary and counts calls
type fakeLLM struct {
	calls int
	text  string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.text, nil
}

type testEnv struct {
	db        *database.DB
	jwtAuth   *auth.JWTAuth
	users     *services.UserService
	posts     *services.PostService
	summaries *services.SummaryService
	profiles  *services.ProfileService
	llm       *fakeLLM
}

func setupTestApp(t *testing.T) (*fiber.App, *testEnv) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	jwtAuth, err := auth.NewJWTAuth("test-secret", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create JWT auth: %v", err)
	}

	env := &testEnv{
		db:       db,
		jwtAuth:  jwtAuth,
		users:    services.NewUserService(db),
		posts:    services.NewPostService(db, 6, nil),
		profiles: services.NewProfileService(db, 24*time.Hour),
		llm:      &fakeLLM{text: "A productive day."},
	}
	env.summaries = services.NewSummaryService(db, env.llm, 22, nil)

	authHandler := NewAuthHandler(jwtAuth, env.users)
	postHandler := NewPostHandler(env.posts)
	summaryHandler := NewSummaryHandler(env.summaries)
	profileHandler := NewProfileHandler(env.profiles)

	app := fiber.New()

	authRoutes := app.Group("/api/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/refresh", authHandler.RefreshToken)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", middleware.AuthMiddleware(jwtAuth), authHandler.GetCurrentUser)

	api := app.Group("/api", middleware.AuthMiddleware(jwtAuth))
	api.Post("/posts", postHandler.Create)
	api.Get("/posts", postHandler.Feed)
	api.Get("/summaries/:date", summaryHandler.Get)
	api.Get("/profile", profileHandler.Get)
	api.Put("/profile", profileHandler.UpdateUsername)

	return app, env
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any, token string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	var parsed map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("Failed to parse response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, parsed
}

func registerUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	status, body := doJSON(t, app, "POST", "/api/auth/register",
		RegisterRequest{Email: email, Password: "Passw0rd123"}, "")
	if status != fiber.StatusCreated {
		t.Fatalf("Register failed with status %d: %v", status, body)
	}
	return body["access_token"].(string)
}

func TestRegisterAndMe(t *testing.T) {
	app, _ := setupTestApp(t)

	token := registerUser(t, app, "alice@test.com")

	status, body := doJSON(t, app, "GET", "/api/auth/me", nil, token)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["email"] != "alice@test.com" {
		t.Errorf("Expected alice@test.com, got %v", body["email"])
	}
	// First registered user becomes admin
	if body["role"] != "admin" {
		t.Errorf("Expected first user to be admin, got %v", body["role"])
	}
}

func TestRegisterValidation(t *testing.T) {
	app, _ := setupTestApp(t)

	tests := []struct {
		name           string
		body           RegisterRequest
		expectedStatus int
	}{
		{"missing email", RegisterRequest{Password: "Passw0rd123"}, fiber.StatusBadRequest},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "Passw0rd123"}, fiber.StatusBadRequest},
		{"weak password", RegisterRequest{Email: "x@y.com", Password: "short"}, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doJSON(t, app, "POST", "/api/auth/register", tt.body, "")
			if status != tt.expectedStatus {
				t.Errorf("Expected %d, got %d", tt.expectedStatus, status)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app, _ := setupTestApp(t)
	registerUser(t, app, "dup@test.com")

	status, _ := doJSON(t, app, "POST", "/api/auth/register",
		RegisterRequest{Email: "dup@test.com", Password: "Passw0rd123"}, "")
	if status != fiber.StatusConflict {
		t.Errorf("Expected 409, got %d", status)
	}
}

func TestLogin(t *testing.T) {
	app, _ := setupTestApp(t)
	registerUser(t, app, "login@test.com")

	status, body := doJSON(t, app, "POST", "/api/auth/login",
		LoginRequest{Email: "login@test.com", Password: "Passw0rd123"}, "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["access_token"] == "" {
		t.Error("Expected access token")
	}

	status, body = doJSON(t, app, "POST", "/api/auth/login",
		LoginRequest{Email: "login@test.com", Password: "WrongPass1"}, "")
	if status != fiber.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", status)
	}
	if body["error"] != "Invalid email or password" {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	app, _ := setupTestApp(t)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/posts"},
		{"POST", "/api/posts"},
		{"GET", "/api/summaries/2025-06-09"},
		{"GET", "/api/profile"},
		{"PUT", "/api/profile"},
	} {
		status, _ := doJSON(t, app, route.method, route.path, nil, "")
		if status != fiber.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, status)
		}
	}
}

func TestCreatePostAndFeed(t *testing.T) {
	app, _ := setupTestApp(t)
	token := registerUser(t, app, "poster@test.com")

	status, body := doJSON(t, app, "POST", "/api/posts",
		models.CreatePostRequest{Content: "  hello world  "}, token)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d: %v", status, body)
	}
	if body["content"] != "hello world" {
		t.Errorf("Expected trimmed content, got %v", body["content"])
	}

	status, feedBody := doJSON(t, app, "GET", "/api/posts", nil, token)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	days := feedBody["days"].([]any)
	if len(days) != 1 {
		t.Fatalf("Expected 1 day group, got %d", len(days))
	}
	if feedBody["posts_left"].(float64) != 5 {
		t.Errorf("Expected 5 posts left, got %v", feedBody["posts_left"])
	}
}

func TestCreatePostRejections(t *testing.T) {
	app, _ := setupTestApp(t)
	token := registerUser(t, app, "limited@test.com")

	status, _ := doJSON(t, app, "POST", "/api/posts",
		models.CreatePostRequest{Content: "   "}, token)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for whitespace content, got %d", status)
	}

	for i := 0; i < 6; i++ {
		status, _ := doJSON(t, app, "POST", "/api/posts",
			models.CreatePostRequest{Content: fmt.Sprintf("post %d", i)}, token)
		if status != fiber.StatusCreated {
			t.Fatalf("Post %d failed with %d", i, status)
		}
	}

	status, body := doJSON(t, app, "POST", "/api/posts",
		models.CreatePostRequest{Content: "over quota"}, token)
	if status != fiber.StatusTooManyRequests {
		t.Errorf("Expected 429 over quota, got %d: %v", status, body)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	app, env := setupTestApp(t)
	token := registerUser(t, app, "sum@test.com")

	status, _ := doJSON(t, app, "GET", "/api/summaries/not-a-date", nil, token)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", status)
	}

	// Before the cutoff today's summary is a fixed message
	now := time.Date(2025, 6, 10, 21, 59, 0, 0, time.Local)
	env.summaries.SetClock(func() time.Time { return now })
	env.posts.SetClock(func() time.Time { return now })

	doJSON(t, app, "POST", "/api/posts", models.CreatePostRequest{Content: "work"}, token)

	status, body := doJSON(t, app, "GET", "/api/summaries/2025-06-10", nil, token)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["generated"] != false {
		t.Errorf("Expected generated=false before cutoff, got %v", body)
	}
	if env.llm.calls != 0 {
		t.Errorf("Expected no LLM calls before cutoff, got %d", env.llm.calls)
	}

	// At the cutoff the summary is generated and persisted
	env.summaries.SetClock(func() time.Time {
		return time.Date(2025, 6, 10, 22, 0, 0, 0, time.Local)
	})

	status, body = doJSON(t, app, "GET", "/api/summaries/2025-06-10", nil, token)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["content"] != "A productive day." || body["generated"] != true {
		t.Errorf("Expected generated summary, got %v", body)
	}

	// Repeat request stays at one LLM call
	doJSON(t, app, "GET", "/api/summaries/2025-06-10", nil, token)
	if env.llm.calls != 1 {
		t.Errorf("Expected 1 LLM call, got %d", env.llm.calls)
	}
}

func TestProfileFlow(t *testing.T) {
	app, _ := setupTestApp(t)
	token := registerUser(t, app, "profile@test.com")

	status, body := doJSON(t, app, "GET", "/api/profile", nil, token)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["username"] != "" {
		t.Errorf("Expected empty username, got %v", body["username"])
	}

	status, _ = doJSON(t, app, "PUT", "/api/profile",
		models.UpdateProfileRequest{Username: "has space"}, token)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for invalid charset, got %d", status)
	}

	status, body = doJSON(t, app, "PUT", "/api/profile",
		models.UpdateProfileRequest{Username: "alice_1"}, token)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["username"] != "alice_1" {
		t.Errorf("Expected alice_1, got %v", body["username"])
	}

	// A second change inside the 24h window is rejected
	status, _ = doJSON(t, app, "PUT", "/api/profile",
		models.UpdateProfileRequest{Username: "alice_2"}, token)
	if status != fiber.StatusTooManyRequests {
		t.Errorf("Expected 429 within cooldown, got %d", status)
	}
}
