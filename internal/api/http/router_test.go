package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/notification"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/service"
	"github.com/spec-kit/user-service/internal/validation"
)

type testServer struct {
	app     *fiber.App
	metrics *observability.Metrics
	tokens  *auth.TokenManager
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	store, err := repository.NewMemoryStore()
	require.NoError(t, err)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	svc := service.NewUserService(service.UserDependencies{
		Store:  store,
		Sender: notification.NewLogSender(logger),
		Logger: logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)

	tokens := auth.NewTokenManager("test-secret", 5)
	cfg := RouteConfig{
		Health:  handlers.NewHealthHandler("user-service", "test", handlers.Check{Name: "store", Target: store}),
		Users:   handlers.NewUsersHandler(svc, validation.New()),
		Metrics: handlers.NewMetricsHandler(metrics),
	}
	if withAuth {
		cfg.AuthMiddleware = auth.NewAuthMiddleware(tokens)
	} else {
		cfg.AllowAnonymous = true
	}
	RegisterRoutes(app, cfg)
	return &testServer{app: app, metrics: metrics, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func TestUserLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, "POST", "/users", `{"firstName":"John","lastName":"Doe","email":"john@example.com"}`, "")
	require.Equal(t, 201, status)
	id := int64(body["data"].(map[string]any)["id"].(float64))
	require.NotZero(t, id)
	path := "/users/" + strconv.FormatInt(id, 10)

	status, body = s.do(t, "GET", "/users", "", "")
	require.Equal(t, 200, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, "PUT", path, `{"firstName":"Johnny","lastName":"Doe","email":"john@example.com","status":"active"}`, "")
	require.Equal(t, 204, status)

	status, body = s.do(t, "GET", path, "", "")
	require.Equal(t, 200, status)
	assert.Equal(t, "Johnny", body["data"].(map[string]any)["firstName"])

	status, _ = s.do(t, "DELETE", path, "", "")
	require.Equal(t, 204, status)

	status, body = s.do(t, "GET", "/users", "", "")
	require.Equal(t, 200, status)
	assert.Equal(t, []any{}, body["data"])

	status, body = s.do(t, "GET", path, "", "")
	require.Equal(t, 200, status)
	assert.Equal(t, string(domain.UserStatusInactive), body["data"].(map[string]any)["status"])

	status, _ = s.do(t, "DELETE", path+"?purge=true", "", "")
	require.Equal(t, 204, status)

	status, body = s.do(t, "GET", path, "", "")
	require.Equal(t, 404, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errBody["code"])
	assert.Equal(t, "user not found", errBody["message"])
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, "POST", "/users", `{"lastName":"Doe"}`, "")
	require.Equal(t, 400, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	fields := errBody["details"].(map[string]any)["fields"].([]any)
	assert.Len(t, fields, 2)

	status, body = s.do(t, "GET", "/nowhere", "", "")
	require.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])

	status, body = s.do(t, "GET", "/metrics", "", "")
	require.Equal(t, 200, status)
	assert.NotEmpty(t, body["data"].(map[string]any)["errors"])
}

func TestPanicIsRecovered(t *testing.T) {
	logger := zap.NewNop()
	app := fiber.New()
	RegisterMiddlewares(app, logger, nil, 0)
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	var body map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body["error"]["code"])
	assert.Equal(t, "internal server error", body["error"]["message"])
}

func TestRequestTimeoutMapsToGatewayTimeout(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 10*time.Millisecond)
	app.Get("/slow", func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		return c.UserContext().Err()
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/slow", nil), 2000)
	require.NoError(t, err)
	assert.Equal(t, 504, resp.StatusCode)
}

func TestAuthProtectsUsers(t *testing.T) {
	s := newTestServer(t, true)

	status, body := s.do(t, "GET", "/users", "", "")
	require.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	reader, _, err := s.tokens.GenerateToken("reader", auth.ScopeUsersRead)
	require.NoError(t, err)
	status, _ = s.do(t, "GET", "/users", "", reader)
	assert.Equal(t, 200, status)

	status, body = s.do(t, "POST", "/users", `{"firstName":"a","lastName":"b","email":"c"}`, reader)
	require.Equal(t, 403, status)
	assert.Equal(t, "FORBIDDEN", body["error"].(map[string]any)["code"])

	writer, _, err := s.tokens.GenerateToken("writer", auth.AllScopes...)
	require.NoError(t, err)
	status, _ = s.do(t, "POST", "/users", `{"firstName":"a","lastName":"b","email":"c"}`, writer)
	assert.Equal(t, 201, status)

	status, _ = s.do(t, "GET", "/health/live", "", "")
	assert.Equal(t, 200, status)
}

func TestReadyReportsStore(t *testing.T) {
	s := newTestServer(t, false)
	status, body := s.do(t, "GET", "/health/ready", "", "")
	require.Equal(t, 200, status)
	store := body["dependencies"].(map[string]any)["store"].(map[string]any)
	assert.Equal(t, "ok", store["status"])
}

func TestUsersClosedWithoutAuthOrAnonymous(t *testing.T) {
	store, err := repository.NewMemoryStore()
	require.NoError(t, err)
	svc := service.NewUserService(service.UserDependencies{Store: store})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("user-service", "test"),
		Users:  handlers.NewUsersHandler(svc, validation.New()),
	})

	for _, method := range []string{"GET", "POST"} {
		resp, err := app.Test(httptest.NewRequest(method, "/users", strings.NewReader(`{}`)))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode, method)
	}
	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
