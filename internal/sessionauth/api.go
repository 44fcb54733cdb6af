package sessionauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	userPath     = "/api/auth/user"
	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"
	logoutPath   = "/api/auth/logout"

	defaultTimeout = 10 * time.Second
	maxResponse    = 1 << 20
)

// RegisterInput is the registration payload. Empty optional fields are
// omitted; the backend decides what is required.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type userEnvelope struct {
	User  *User  `json:"user"`
	Error string `json:"error,omitempty"`
}

// API is the HTTP transport for the auth endpoints. Every request goes
// through the same cookie jar, so the session cookie set by login or
// register is sent on later calls.
type API struct {
	baseURL *url.URL
	client  *http.Client
}

// NewAPI builds a transport for baseURL. If httpClient is nil a client with
// a public-suffix aware cookie jar and a 10s timeout is created. A client
// without a jar gets one. The jar is wrapped to record cookie expiry for
// SaveCookies.
func NewAPI(baseURL string, httpClient *http.Client) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}
	if _, ok := httpClient.Jar.(*expiryJar); !ok {
		httpClient.Jar = newExpiryJar(httpClient.Jar)
	}

	return &API{baseURL: u, client: httpClient}, nil
}

// Jar exposes the cookie jar so callers can persist the session.
func (a *API) Jar() http.CookieJar {
	return a.client.Jar
}

// BaseURL returns the API root every path is resolved against.
func (a *API) BaseURL() *url.URL {
	u := *a.baseURL
	return &u
}

// FetchUser reads the current identity. It never fails: anything other than
// a 2xx with a well-formed body resolves to a nil user. checkFailed is false
// only when the answer is definitive, that is a 2xx or a 401/403.
func (a *API) FetchUser(ctx context.Context) (user *User, checkFailed bool) {
	resp, err := a.do(ctx, http.MethodGet, userPath, nil)
	if err != nil {
		return nil, true
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, false
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, true
	}

	var env userEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponse)).Decode(&env); err != nil {
		return nil, true
	}
	return env.User, false
}

func (a *API) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	return a.postForUser(ctx, "login", loginPath, body, defaultLoginMessage)
}

func (a *API) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return a.postForUser(ctx, "register", registerPath, in, defaultRegisterMessage)
}

func (a *API) Logout(ctx context.Context) error {
	resp, err := a.do(ctx, http.MethodPost, logoutPath, nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AuthenticationError{Op: "logout", StatusCode: resp.StatusCode, Message: defaultLogoutMessage}
	}
	return nil
}

func (a *API) postForUser(ctx context.Context, op, path string, payload any, defaultMessage string) (*User, error) {
	resp, err := a.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer drain(resp)

	var env userEnvelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponse)).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := defaultMessage
		if decodeErr == nil && env.Error != "" {
			msg = env.Error
		}
		return nil, &AuthenticationError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", op, decodeErr)
	}
	if env.User == nil {
		return nil, fmt.Errorf("%s: response has no user", op)
	}
	return env.User, nil
}

func (a *API) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.client.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponse))
	resp.Body.Close()
}
