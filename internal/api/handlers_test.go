package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/terraincognita07/sipwell/internal/bot"
	"github.com/terraincognita07/sipwell/internal/db"
	"github.com/terraincognita07/sipwell/internal/i18n"
	"github.com/terraincognita07/sipwell/internal/metrics"
	"github.com/terraincognita07/sipwell/internal/models"
	"github.com/terraincognita07/sipwell/internal/services"
	"golang.org/x/crypto/bcrypt"
)

const (
	testWebhookSecret = "webhook-secret-for-tests"
	testSecretKey     = "0123456789abcdef0123456789abcdef"
	testAdminPassword = "correct horse"
)

type recordedMessage struct {
	chatID int64
	text   string
}

type fakeTransport struct {
	sent []recordedMessage
}

func (transport *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, _ *bot.InlineKeyboard) (bot.MessageRef, error) {
	transport.sent = append(transport.sent, recordedMessage{chatID: chatID, text: text})
	return bot.MessageRef{ChatID: chatID, MessageID: len(transport.sent)}, nil
}

func (transport *fakeTransport) AnswerCallback(context.Context, string, string) error {
	return nil
}

type noopPlanner struct{}

func (noopPlanner) ScheduleForUser(models.User) {}
func (noopPlanner) CancelForUser(uint)          {}

type testEnv struct {
	app       *fiber.App
	transport *fakeTransport
	profiles  *services.ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	repos := db.NewRepositories(database)

	translator, err := i18n.NewManager("en", filepath.Join("..", "i18n", "locales"))
	if err != nil {
		t.Fatalf("load locales: %v", err)
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	clock := services.NewSystemClock(time.UTC)
	bounds := services.GoalBounds{MinLiters: models.GoalMinLiters, MaxLiters: models.GoalMaxLiters}

	profiles := services.NewProfileService(repos.Users, clock, noopPlanner{}, bounds)
	intakes := services.NewIntakeService(repos.Users, repos.Intakes, clock, models.AmountMaxLiters)

	transport := &fakeTransport{}
	botHandler := bot.NewHandler(transport, profiles, intakes, translator, recorder, bounds, models.AmountMaxLiters)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}

	handler, err := NewHandler(botHandler, profiles, repos.Users, testWebhookSecret, testSecretKey, string(passwordHash), registry)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app, handler)

	return &testEnv{app: app, transport: transport, profiles: profiles}
}

func (env *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"password": testAdminPassword})
	request := httptest.NewRequest(fiber.MethodPost, "/admin/login", bytes.NewReader(body))
	request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("login returned %d", response.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("expected a token")
	}
	return payload.Token
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	response, err := env.app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	env := newTestEnv(t)

	request := httptest.NewRequest(fiber.MethodPost, "/webhook/not-the-secret", strings.NewReader("{}"))
	request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if response.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", response.StatusCode)
	}
	if len(env.transport.sent) != 0 {
		t.Fatalf("expected no outbound messages, got %d", len(env.transport.sent))
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	request := httptest.NewRequest(fiber.MethodPost, "/webhook/"+testWebhookSecret, strings.NewReader("{not json"))
	request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if response.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", response.StatusCode)
	}
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	env := newTestEnv(t)

	update := `{"update_id":1,"message":{"message_id":5,"text":"/start","chat":{"id":42},"from":{"id":42,"language_code":"en"}}}`
	request := httptest.NewRequest(fiber.MethodPost, "/webhook/"+testWebhookSecret, strings.NewReader(update))
	request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	if len(env.transport.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(env.transport.sent))
	}
	if env.transport.sent[0].chatID != 42 {
		t.Fatalf("expected reply to chat 42, got %d", env.transport.sent[0].chatID)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	response, err := env.app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "sipwell_reminders_sent_total") {
		t.Fatalf("expected reminder counter in metrics output, got:\n%s", body)
	}
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(map[string]string{"password": "nope"})
	request := httptest.NewRequest(fiber.MethodPost, "/admin/login", bytes.NewReader(body))
	request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if response.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", response.StatusCode)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	response, err := env.app.Test(httptest.NewRequest(fiber.MethodGet, "/admin/users", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if response.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", response.StatusCode)
	}

	request := httptest.NewRequest(fiber.MethodGet, "/admin/users", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer not.a.token")
	response, err = env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if response.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 with bogus token, got %d", response.StatusCode)
	}
}

func TestAdminListAndDeleteUsers(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.profiles.SetGoal(100, 2.0, "en"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := env.profiles.SetGoal(200, 2.5, "ru"); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	token := env.adminToken(t)

	request := httptest.NewRequest(fiber.MethodGet, "/admin/users", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	var listed []adminUserView
	if err := json.NewDecoder(response.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected two users, got %d", len(listed))
	}
	if listed[1].ChatID != 200 || listed[1].DailyGoalLiters != 2.5 {
		t.Fatalf("unexpected second user %+v", listed[1])
	}

	request = httptest.NewRequest(fiber.MethodDelete, "/admin/users/100", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	response, err = env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("delete request: %v", err)
	}
	if response.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", response.StatusCode)
	}

	if _, err := env.profiles.Get(100); err == nil {
		t.Fatal("expected the profile to be gone")
	}

	request = httptest.NewRequest(fiber.MethodDelete, "/admin/users/100", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	response, err = env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("second delete request: %v", err)
	}
	if response.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for a missing user, got %d", response.StatusCode)
	}
}

func TestAdminDisabledWithoutPasswordHash(t *testing.T) {
	env := newTestEnv(t)

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	repos := db.NewRepositories(database)

	handler, err := NewHandler(nil, env.profiles, repos.Users, testWebhookSecret, "", "", prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	app := fiber.New()
	RegisterRoutes(app, handler)

	for _, route := range []struct {
		method string
		path   string
	}{
		{method: fiber.MethodPost, path: "/admin/login"},
		{method: fiber.MethodGet, path: "/admin/users"},
	} {
		request := httptest.NewRequest(route.method, route.path, strings.NewReader("{}"))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		response, err := app.Test(request, -1)
		if err != nil {
			t.Fatalf("request %s %s: %v", route.method, route.path, err)
		}
		if response.StatusCode != fiber.StatusNotFound {
			t.Fatalf("expected 404 for %s %s, got %d", route.method, route.path, response.StatusCode)
		}
	}
}

func TestNewHandlerRequiresSecretKeyForAdmin(t *testing.T) {
	if _, err := NewHandler(nil, nil, nil, testWebhookSecret, "short", "some-hash", prometheus.NewRegistry()); err == nil {
		t.Fatal("expected short secret key to be rejected")
	}
	if _, err := NewHandler(nil, nil, nil, "", testSecretKey, "", prometheus.NewRegistry()); err == nil {
		t.Fatal("expected empty webhook secret to be rejected")
	}
}
