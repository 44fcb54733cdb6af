package auth

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"agency-portal/internal/eventlog"
	"agency-portal/internal/testutil"
	"agency-portal/internal/user"
	"agency-portal/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type authFixture struct {
	ts     *testutil.TestServer
	users  *user.UserService
	events *eventlog.EventLogService
}

func setupAuth(t *testing.T) *authFixture {
	cfg := testutil.GetTestConfig()
	factory := testutil.SetupTestRepositoryFactory(t)
	dbManager := testutil.SetupTestDBManager(t)

	users := user.NewUserService(factory.NewUserRepository(), dbManager, cfg.BcryptCost, zap.NewNop())
	events := eventlog.NewEventLogService(factory.NewEventLogRepository(), dbManager, zap.NewNop())
	handlers := NewAuthHandlers(users, events, NewSessionManager(cfg), zap.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/user", handlers.CurrentUser).Methods("GET")
	r.HandleFunc("/api/auth/login", handlers.Login).Methods("POST")
	r.HandleFunc("/api/auth/register", handlers.Register).Methods("POST")
	r.HandleFunc("/api/auth/logout", handlers.Logout).Methods("POST")

	return &authFixture{ts: testutil.NewTestServer(t, r), users: users, events: events}
}

func (f *authFixture) eventTypes(t *testing.T) []models.EEventLogType {
	logs, err := f.events.GetLatest(context.Background(), 0)
	require.NoError(t, err)
	types := make([]models.EEventLogType, 0, len(logs))
	for _, l := range logs {
		types = append(types, l.Type)
	}
	return types
}

func TestCurrentUser_Anonymous(t *testing.T) {
	f := setupAuth(t)
	testutil.AssertErrorResponse(t, f.ts.GET("/api/auth/user"), http.StatusUnauthorized, "Not authenticated")
}

func TestRegisterLoginLogout(t *testing.T) {
	f := setupAuth(t)

	var registered userResponse
	testutil.AssertJSONResponse(t, f.ts.POST("/api/auth/register", map[string]string{
		"email":     "ada@example.com",
		"password":  "long-enough",
		"firstName": "Ada",
	}), http.StatusCreated, &registered)
	require.NotNil(t, registered.User)
	assert.Equal(t, "ada@example.com", registered.User.Email)
	assert.NotEmpty(t, f.ts.Cookies())

	var current userResponse
	testutil.AssertJSONResponse(t, f.ts.GET("/api/auth/user"), http.StatusOK, &current)
	assert.Equal(t, registered.User.ID, current.User.ID)

	resp := f.ts.POST("/api/auth/logout", nil)
	testutil.AssertJSONResponse(t, resp, http.StatusOK, nil)
	assert.Empty(t, f.ts.Cookies())
	testutil.AssertErrorResponse(t, f.ts.GET("/api/auth/user"), http.StatusUnauthorized, "Not authenticated")

	var loggedIn userResponse
	testutil.AssertJSONResponse(t, f.ts.POST("/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "long-enough",
	}), http.StatusOK, &loggedIn)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	assert.ElementsMatch(t, []models.EEventLogType{models.UserRegistered, models.LoggedOut, models.LoginSucceeded}, f.eventTypes(t))
}

func TestPasswordNeverSerialized(t *testing.T) {
	f := setupAuth(t)

	resp := f.ts.POST("/api/auth/register", map[string]string{"email": "ada@example.com", "password": "long-enough"})
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), "long-enough")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := setupAuth(t)
	_, err := f.users.Register(context.Background(), user.RegisterInput{Email: "ada@example.com", Password: "long-enough"})
	require.NoError(t, err)

	testutil.AssertErrorResponse(t, f.ts.POST("/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong-password",
	}), http.StatusBadRequest, "Invalid credentials")
	assert.Empty(t, f.ts.Cookies())
	assert.Equal(t, []models.EEventLogType{models.LoginFailed}, f.eventTypes(t))
}

func TestLogin_MalformedBody(t *testing.T) {
	f := setupAuth(t)
	resp, err := http.Post(f.ts.URL+"/api/auth/login", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid request format")
}

func TestRegister_Errors(t *testing.T) {
	f := setupAuth(t)
	_, err := f.users.Register(context.Background(), user.RegisterInput{Email: "taken@example.com", Password: "long-enough"})
	require.NoError(t, err)

	testutil.AssertErrorResponse(t, f.ts.POST("/api/auth/register", map[string]string{
		"email":    "taken@example.com",
		"password": "long-enough",
	}), http.StatusConflict, "An account with this email already exists")

	testutil.AssertErrorResponse(t, f.ts.POST("/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "short",
	}), http.StatusBadRequest, "password must be at least 8 characters")

	testutil.AssertErrorResponse(t, f.ts.POST("/api/auth/register", map[string]string{
		"password": "long-enough",
	}), http.StatusBadRequest, "email is required")
}

func TestLogout_Anonymous(t *testing.T) {
	f := setupAuth(t)
	testutil.AssertJSONResponse(t, f.ts.POST("/api/auth/logout", nil), http.StatusOK, nil)
	assert.Empty(t, f.eventTypes(t))
}

func TestCurrentUser_ForgedCookie(t *testing.T) {
	f := setupAuth(t)
	req, err := http.NewRequest(http.MethodGet, f.ts.URL+"/api/auth/user", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: testutil.GetTestConfig().SessionName, Value: "forged"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Not authenticated")
}
