package sitesettings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"agency-portal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingsServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	body   atomic.Value
}

func newSettingsServer(t *testing.T, body string) *settingsServer {
	s := &settingsServer{}
	s.status.Store(http.StatusOK)
	s.body.Store(body)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.URL.Path != settingsPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(s.status.Load()))
		_, _ = w.Write([]byte(s.body.Load().(string)))
	}))
	t.Cleanup(s.Close)
	return s
}

func TestGet_StoredValueOverridesDefault(t *testing.T) {
	srv := newSettingsServer(t, `{"settings":{"company_name":"Acme Life","custom_banner":"Open house"}}`)
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, "Acme Life", c.Get(ctx, "company_name"))
	assert.Equal(t, "Open house", c.Get(ctx, "custom_banner"))
	assert.Equal(t, models.DefaultSiteSettings()["hero_title"], c.Get(ctx, "hero_title"))
	assert.Equal(t, "", c.Get(ctx, "no_such_key"))
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestAll_MergesDefaults(t *testing.T) {
	srv := newSettingsServer(t, `{"settings":{"phone_number":"123"}}`)
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	all := c.All(context.Background())
	assert.Equal(t, "123", all["phone_number"])
	for k := range models.DefaultSiteSettings() {
		assert.Contains(t, all, k)
	}

	all["phone_number"] = "mutated"
	assert.Equal(t, "123", c.Get(context.Background(), "phone_number"))
}

func TestFailureFallsBackToDefaults(t *testing.T) {
	srv := newSettingsServer(t, `oops`)
	srv.status.Store(http.StatusInternalServerError)
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, models.DefaultSiteSettings(), c.All(context.Background()))
}

func TestStaleness(t *testing.T) {
	srv := newSettingsServer(t, `{"settings":{"company_name":"First"}}`)
	clock := clockwork.NewFakeClock()
	c, err := New(Options{BaseURL: srv.URL, Clock: clock})
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "First", c.Get(ctx, "company_name"))
	srv.body.Store(`{"settings":{"company_name":"Second"}}`)

	clock.Advance(4 * time.Minute)
	assert.Equal(t, "First", c.Get(ctx, "company_name"))
	assert.Equal(t, int32(1), srv.hits.Load())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, "Second", c.Get(ctx, "company_name"))
	assert.Equal(t, int32(2), srv.hits.Load())

	// a failed refetch keeps serving the last good values
	srv.status.Store(http.StatusBadGateway)
	clock.Advance(DefaultStaleTime)
	assert.Equal(t, "Second", c.Get(ctx, "company_name"))
}

func TestInvalidate(t *testing.T) {
	srv := newSettingsServer(t, `{"settings":{}}`)
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	c.All(context.Background())
	c.Invalidate()
	c.All(context.Background())
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}
