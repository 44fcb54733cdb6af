package sessionauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type cookieMeta struct {
	expires time.Time
	secure  bool
}

// expiryJar remembers the Expires and Secure attributes of cookies set
// through it, which http.CookieJar.Cookies does not report. Entries are
// keyed by cookie name; the API talks to a single host.
type expiryJar struct {
	http.CookieJar

	mu   sync.Mutex
	meta map[string]cookieMeta
}

func newExpiryJar(jar http.CookieJar) *expiryJar {
	return &expiryJar{CookieJar: jar, meta: make(map[string]cookieMeta)}
}

func (j *expiryJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.CookieJar.SetCookies(u, cookies)

	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		switch {
		case c.MaxAge < 0:
			delete(j.meta, c.Name)
		case c.MaxAge > 0:
			j.meta[c.Name] = cookieMeta{expires: now.Add(time.Duration(c.MaxAge) * time.Second), secure: c.Secure}
		case !c.Expires.IsZero() && !c.Expires.After(now):
			delete(j.meta, c.Name)
		default:
			j.meta[c.Name] = cookieMeta{expires: c.Expires, secure: c.Secure}
		}
	}
}

func (j *expiryJar) lookup(name string) cookieMeta {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.meta[name]
}

// savedCookies is the JSON structure written to disk.
type savedCookies struct {
	BaseURL string        `json:"base_url"`
	Cookies []savedCookie `json:"cookies"`
	SavedAt time.Time     `json:"saved_at"`
}

// savedCookie keeps Expires and Secure when the jar recorded them. Session
// cookies have no expiry and are kept until the server rejects them.
type savedCookie struct {
	Name    string     `json:"name"`
	Value   string     `json:"value"`
	Expires *time.Time `json:"expires,omitempty"`
	Secure  bool       `json:"secure,omitempty"`
}

// SaveCookies writes the cookies the jar holds for the API to path with
// owner-only permissions. An empty jar removes the file.
func (a *API) SaveCookies(path string) error {
	cookies := a.client.Jar.Cookies(a.baseURL)
	if len(cookies) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	tracked, _ := a.client.Jar.(*expiryJar)
	sc := make([]savedCookie, len(cookies))
	for i, c := range cookies {
		sc[i] = savedCookie{Name: c.Name, Value: c.Value}
		if tracked == nil {
			continue
		}
		meta := tracked.lookup(c.Name)
		sc[i].Secure = meta.secure
		if !meta.expires.IsZero() {
			expires := meta.expires.UTC()
			sc[i].Expires = &expires
		}
	}

	data, err := json.MarshalIndent(savedCookies{
		BaseURL: a.baseURL.String(),
		Cookies: sc,
		SavedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating cookie directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadCookies restores cookies saved by SaveCookies, skipping expired ones.
// It returns false when the file is missing, was saved for a different API
// or holds no live cookie.
func (a *API) LoadCookies(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	var saved savedCookies
	if err := json.Unmarshal(data, &saved); err != nil {
		return false, fmt.Errorf("parsing cookie file %s: %w", path, err)
	}
	if saved.BaseURL != a.baseURL.String() {
		return false, nil
	}

	now := time.Now()
	var cookies []*http.Cookie
	for _, sc := range saved.Cookies {
		c := &http.Cookie{Name: sc.Name, Value: sc.Value, Path: "/", Secure: sc.Secure}
		if sc.Expires != nil {
			if !sc.Expires.After(now) {
				continue
			}
			c.Expires = *sc.Expires
		}
		cookies = append(cookies, c)
	}
	if len(cookies) == 0 {
		return false, nil
	}
	a.client.Jar.SetCookies(a.baseURL, cookies)
	return true, nil
}
