package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestServer wraps httptest.Server with a client that keeps cookies across
// requests, so a test behaves like one browser session.
type TestServer struct {
	*httptest.Server
	t      *testing.T
	client *http.Client
}

func NewTestServer(t *testing.T, handler http.Handler) *TestServer {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := server.Client()
	client.Jar = jar

	return &TestServer{
		Server: server,
		t:      t,
		client: client,
	}
}

// Cookies returns the cookies the session client would send to the server
func (ts *TestServer) Cookies() []*http.Cookie {
	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(ts.t, err)
	return ts.client.Jar.Cookies(req.URL)
}

func (ts *TestServer) do(method, path string, body interface{}) *http.Response {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(ts.t, err)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, ts.URL+path, bodyReader)
	require.NoError(ts.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.client.Do(req)
	require.NoError(ts.t, err)
	return resp
}

func (ts *TestServer) GET(path string) *http.Response {
	return ts.do(http.MethodGet, path, nil)
}

func (ts *TestServer) POST(path string, body interface{}) *http.Response {
	return ts.do(http.MethodPost, path, body)
}

func (ts *TestServer) PUT(path string, body interface{}) *http.Response {
	return ts.do(http.MethodPut, path, body)
}

func AssertJSONResponse(t *testing.T, resp *http.Response, expectedStatus int, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, expectedStatus, resp.StatusCode)

	if target != nil {
		err := json.NewDecoder(resp.Body).Decode(target)
		require.NoError(t, err)
	}
}

func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, expectedStatus, resp.StatusCode)

	var errorResp map[string]interface{}
	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	require.NoError(t, err)

	if expectedMessage != "" {
		require.Equal(t, expectedMessage, errorResp["error"])
	}
}
