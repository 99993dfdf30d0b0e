package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newsroom-labs/cms-service/internal/api/http/handlers"
	"github.com/newsroom-labs/cms-service/internal/auth"
	"github.com/newsroom-labs/cms-service/internal/events"
	"github.com/newsroom-labs/cms-service/internal/observability"
	"github.com/newsroom-labs/cms-service/internal/repository"
	"github.com/newsroom-labs/cms-service/internal/service"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

type serverOptions struct {
	debug     bool
	rateLimit int
	deps      map[string]handlers.Pinger
}

type testServer struct {
	app     *fiber.App
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager("router-secret", 60*time.Minute, auth.NewMemoryDenylist(), auth.WithLeeway(30*time.Second))

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   repository.NewMemoryUserRepository(),
		Hasher:     auth.NewPasswordHasher(4),
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	categoryService := service.NewCategoryService(repository.NewMemoryCategoryRepository(), dispatcher, logger)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, opts.debug)})
	RegisterMiddlewares(app, MiddlewareConfig{Logger: logger, Metrics: metrics, Timeout: 5 * time.Second, Debug: opts.debug})
	RegisterRoutes(app, RouteConfig{
		Health:             handlers.NewHealthHandler("cms-service", "test", opts.deps, opts.debug),
		Auth:               handlers.NewAuthHandler(authService),
		Categories:         handlers.NewCategoryHandler(categoryService),
		AuthMiddleware:     auth.NewAuthMiddleware(tokens),
		RateLimitPerMinute: opts.rateLimit,
	})
	return &testServer{app: app, metrics: metrics}
}

type response struct {
	status int
	header nethttp.Header
	body   map[string]any
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, header: resp.Header, body: map[string]any{}}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func dig(t *testing.T, m map[string]any, keys ...string) any {
	t.Helper()
	var cur any = m
	for _, key := range keys {
		obj, ok := cur.(map[string]any)
		require.True(t, ok, "expected object at %q", key)
		cur = obj[key]
	}
	return cur
}

func registerAndLogin(t *testing.T, s *testServer, email string) string {
	t.Helper()
	res := s.do(t, fiber.MethodPost, "/register", "", map[string]string{
		"name": "Ada", "email": email, "password": "correct-horse", "password_confirmation": "correct-horse",
	})
	require.Equal(t, nethttp.StatusCreated, res.status, res.body)
	res = s.do(t, fiber.MethodPost, "/login", "", map[string]string{"email": email, "password": "correct-horse"})
	require.Equal(t, nethttp.StatusOK, res.status, res.body)
	return dig(t, res.body, "data", "authorization", "token").(string)
}

func TestAuthFlowEndToEnd(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	res := s.do(t, fiber.MethodPost, "/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "correct-horse", "password_confirmation": "correct-horse",
	})
	require.Equal(t, nethttp.StatusCreated, res.status)
	assert.Equal(t, "User registered successfully.", res.body["message"])
	assert.Equal(t, "user", dig(t, res.body, "user", "role"))
	assert.Equal(t, "ada@example.com", dig(t, res.body, "user", "email"))
	assert.NotContains(t, res.body["user"], "password_hash")

	res = s.do(t, fiber.MethodPost, "/login", "", map[string]string{"email": "ada@example.com", "password": "correct-horse"})
	require.Equal(t, nethttp.StatusOK, res.status)
	assert.Equal(t, "success", res.body["status"])
	assert.Equal(t, "bearer", dig(t, res.body, "data", "authorization", "type"))
	assert.Equal(t, float64(60*60), dig(t, res.body, "data", "authorization", "expires_in"))
	userID := dig(t, res.body, "data", "user", "id").(string)
	token := dig(t, res.body, "data", "authorization", "token").(string)

	res = s.do(t, fiber.MethodGet, "/user", token, nil)
	require.Equal(t, nethttp.StatusOK, res.status)
	assert.Equal(t, userID, dig(t, res.body, "data", "user", "id"))
	assert.Equal(t, "ada@example.com", dig(t, res.body, "data", "user", "email"))

	res = s.do(t, fiber.MethodPost, "/logout", token, nil)
	require.Equal(t, nethttp.StatusOK, res.status)
	assert.Equal(t, "Successfully logged out", res.body["message"])

	res = s.do(t, fiber.MethodGet, "/user", token, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, res.status)
	assert.Equal(t, "error", res.body["status"])
	assert.Equal(t, apperrors.CodeUnauthorized, res.body["code"])
	assert.Equal(t, auth.UnauthorizedMessage, res.body["message"])
	assert.Contains(t, res.header.Get(fiber.HeaderWWWAuthenticate), "Bearer")
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	registerAndLogin(t, s, "taken@example.com")

	res := s.do(t, fiber.MethodPost, "/register", "", map[string]string{
		"name": "Ada", "email": "taken@example.com", "password": "correct-horse", "password_confirmation": "correct-horse",
	})
	assert.Equal(t, nethttp.StatusConflict, res.status)
	assert.Equal(t, []any{"This email is already taken."}, dig(t, res.body, "errors", "email"))

	res = s.do(t, fiber.MethodPost, "/register", "", map[string]string{
		"name": "Ada", "email": "new@example.com", "password": "short", "password_confirmation": "short",
	})
	assert.Equal(t, nethttp.StatusUnprocessableEntity, res.status)
	assert.Equal(t, apperrors.CodeValidationFailed, res.body["code"])
	assert.Equal(t, []any{"The password must be at least 8 characters."}, dig(t, res.body, "errors", "password"))
	assert.NotContains(t, res.body, "error")
}

func TestLoginFailuresShareBody(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	registerAndLogin(t, s, "ada@example.com")

	wrong := s.do(t, fiber.MethodPost, "/login", "", map[string]string{"email": "ada@example.com", "password": "nope-nope"})
	unknown := s.do(t, fiber.MethodPost, "/login", "", map[string]string{"email": "ghost@example.com", "password": "nope-nope"})

	assert.Equal(t, nethttp.StatusUnauthorized, wrong.status)
	assert.Equal(t, wrong.status, unknown.status)
	assert.Equal(t, wrong.body, unknown.body)
	assert.Equal(t, "Invalid credentials", wrong.body["message"])

	res := s.do(t, fiber.MethodPost, "/login", "", map[string]string{})
	assert.Equal(t, nethttp.StatusUnprocessableEntity, res.status)
	assert.Equal(t, []any{"Email is required"}, dig(t, res.body, "errors", "email"))
}

func TestRefreshTokenEndpoint(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	token := registerAndLogin(t, s, "ada@example.com")

	res := s.do(t, fiber.MethodPost, "/refresh-token", token, nil)
	require.Equal(t, nethttp.StatusOK, res.status)
	fresh := dig(t, res.body, "data", "authorization", "token").(string)
	assert.NotEqual(t, token, fresh)

	res = s.do(t, fiber.MethodPost, "/refresh-token", token, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, res.status)
	assert.Equal(t, auth.UnauthorizedMessage, res.body["message"])

	res = s.do(t, fiber.MethodGet, "/user", fresh, nil)
	assert.Equal(t, nethttp.StatusOK, res.status)

	res = s.do(t, fiber.MethodPost, "/refresh-token", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, res.status)
}

func TestCategoryEndpoints(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	token := registerAndLogin(t, s, "editor@example.com")

	res := s.do(t, fiber.MethodPost, "/create-category", "", map[string]any{"category_name": "Tech"})
	assert.Equal(t, nethttp.StatusUnauthorized, res.status)

	res = s.do(t, fiber.MethodPost, "/create-category", token, map[string]any{"category_name": "Tech", "description": "All things tech"})
	require.Equal(t, nethttp.StatusCreated, res.status, res.body)
	assert.Equal(t, "Category created successfully.", res.body["message"])
	parentID := dig(t, res.body, "data", "id").(string)
	assert.Equal(t, "Tech", dig(t, res.body, "data", "name"))
	assert.NotEmpty(t, dig(t, res.body, "data", "created_by"))

	res = s.do(t, fiber.MethodPost, "/create-category", token, map[string]any{"category_name": "Go", "parent_id": parentID})
	require.Equal(t, nethttp.StatusCreated, res.status, res.body)
	assert.Equal(t, parentID, dig(t, res.body, "data", "parent_id"))

	res = s.do(t, fiber.MethodPost, "/create-category", token, map[string]any{"category_name": "tech"})
	assert.Equal(t, nethttp.StatusConflict, res.status)
	assert.Equal(t, "Category already exists", res.body["message"])

	res = s.do(t, fiber.MethodPost, "/create-category", token, map[string]any{"description": "nameless"})
	assert.Equal(t, nethttp.StatusUnprocessableEntity, res.status)

	res = s.do(t, fiber.MethodGet, "/list-categories?per_page=1&sort_by=name&sort_order=desc", token, nil)
	require.Equal(t, nethttp.StatusOK, res.status, res.body)
	assert.Equal(t, float64(1), dig(t, res.body, "data", "current_page"))
	assert.Equal(t, float64(1), dig(t, res.body, "data", "per_page"))
	assert.Equal(t, float64(2), dig(t, res.body, "data", "total"))
	assert.Equal(t, float64(2), dig(t, res.body, "data", "last_page"))
	items := dig(t, res.body, "data", "data").([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Tech", items[0].(map[string]any)["name"])

	for _, query := range []string{"per_page=abc", "per_page=1000", "sort_by=password", "sort_order=up", "page=9223372036854775807"} {
		res = s.do(t, fiber.MethodGet, "/list-categories?"+query, token, nil)
		assert.Equal(t, nethttp.StatusUnprocessableEntity, res.status, query)
	}
}

func TestInternalErrorsHonourDebugFlag(t *testing.T) {
	for _, debugMode := range []bool{false, true} {
		s := newTestServer(t, serverOptions{debug: debugMode})
		s.app.Get("/boom", func(*fiber.Ctx) error {
			return apperrors.NewInternalError(errors.New("db exploded"))
		})
		s.app.Get("/panic", func(*fiber.Ctx) error {
			panic("kaboom")
		})

		res := s.do(t, fiber.MethodGet, "/boom", "", nil)
		assert.Equal(t, nethttp.StatusInternalServerError, res.status)
		assert.Equal(t, apperrors.CodeInternal, res.body["code"])
		if debugMode {
			assert.Equal(t, "db exploded", res.body["error"])
		} else {
			assert.Equal(t, "Internal server error", res.body["error"])
		}

		res = s.do(t, fiber.MethodGet, "/panic", "", nil)
		assert.Equal(t, nethttp.StatusInternalServerError, res.status)
		if debugMode {
			assert.Equal(t, "panic: kaboom", res.body["error"])
		}
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	res := s.do(t, fiber.MethodGet, "/nope", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, res.status)
	assert.Equal(t, apperrors.CodeNotFound, res.body["code"])
	assert.Equal(t, int64(1), s.metrics.Snapshot().Errors["/nope|GET|NOT_FOUND"])
}

func TestCredentialRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t, serverOptions{rateLimit: 2})

	for i := 0; i < 2; i++ {
		res := s.do(t, fiber.MethodPost, "/login", "", map[string]string{"email": "a@example.com", "password": "whatever"})
		assert.Equal(t, nethttp.StatusUnauthorized, res.status)
	}
	res := s.do(t, fiber.MethodPost, "/login", "", map[string]string{"email": "a@example.com", "password": "whatever"})
	assert.Equal(t, nethttp.StatusTooManyRequests, res.status)
	assert.Equal(t, apperrors.CodeTooManyRequests, res.body["code"])
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func degradedDeps() map[string]handlers.Pinger {
	return map[string]handlers.Pinger{
		"postgres": pingerFunc(func(context.Context) error { return nil }),
		"redis":    pingerFunc(func(context.Context) error { return errors.New("dial tcp 10.0.0.7:6379: connection refused") }),
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, serverOptions{deps: degradedDeps()})

	res := s.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, res.status)
	assert.Equal(t, "alive", res.body["status"])

	res = s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusServiceUnavailable, res.status)
	assert.Equal(t, "ok", dig(t, res.body, "errors", "postgres"))
	assert.Equal(t, "unavailable", dig(t, res.body, "errors", "redis"))

	healthy := newTestServer(t, serverOptions{})
	res = healthy.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, res.status)
}

func TestReadinessEchoesDependencyErrorsInDebug(t *testing.T) {
	s := newTestServer(t, serverOptions{debug: true, deps: degradedDeps()})

	res := s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusServiceUnavailable, res.status)
	assert.Equal(t, "dial tcp 10.0.0.7:6379: connection refused", dig(t, res.body, "errors", "redis"))
}
