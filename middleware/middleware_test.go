package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"agency-portal/internal/auth"
	"agency-portal/internal/testutil"
	"agency-portal/internal/user"
	"agency-portal/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupProtected(t *testing.T) (*testutil.TestServer, *user.UserService) {
	cfg := testutil.GetTestConfig()
	factory := testutil.SetupTestRepositoryFactory(t)
	users := user.NewUserService(factory.NewUserRepository(), testutil.SetupTestDBManager(t), cfg.BcryptCost, zap.NewNop())
	sessions := auth.NewSessionManager(cfg)
	m := NewMiddleware(sessions, users, zap.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Start(w, r, mux.Vars(r)["id"]); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Methods("POST")

	whoami := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserFromContext(r.Context()).Email))
	})
	protected := r.PathPrefix("/protected").Subrouter()
	protected.Use(m.RequireSession)
	protected.Handle("/me", whoami)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(m.RequireSession, m.RequireAdmin)
	admin.Handle("/me", whoami)

	return testutil.NewTestServer(t, r), users
}

func TestRequireSession(t *testing.T) {
	ts, users := setupProtected(t)

	testutil.AssertErrorResponse(t, ts.GET("/protected/me"), http.StatusUnauthorized, "Not authenticated")

	resp := ts.POST("/session/deleted-account", nil)
	resp.Body.Close()
	testutil.AssertErrorResponse(t, ts.GET("/protected/me"), http.StatusUnauthorized, "Not authenticated")

	agent, err := users.Register(context.Background(), user.RegisterInput{Email: "agent@example.com", Password: "long-enough"})
	require.NoError(t, err)
	resp = ts.POST("/session/"+agent.ID, nil)
	resp.Body.Close()

	resp = ts.GET("/protected/me")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	testutil.AssertErrorResponse(t, ts.GET("/admin/me"), http.StatusForbidden, "Admin access required")
}

func TestRequireAdmin(t *testing.T) {
	ts, users := setupProtected(t)

	_, err := users.EnsureAdmin(context.Background(), "admin@example.com", "long-enough")
	require.NoError(t, err)
	admin, err := users.Authenticate(context.Background(), "admin@example.com", "long-enough")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)

	resp := ts.POST("/session/"+admin.ID, nil)
	resp.Body.Close()

	resp = ts.GET("/admin/me")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetupCORS(t *testing.T) {
	handler := SetupCORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("AllowedOrigin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("UnknownOrigin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fine", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, int64(2), entries[0].ContextMap()["size"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
}
