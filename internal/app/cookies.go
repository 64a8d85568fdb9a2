package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aussiebroadwan/sessionkit/internal/store"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
)

// cookieKey holds the jar between process runs, the way a browser keeps its
// cookie storage. It lives beside the session keys, not under them, and
// stores the refresh cookie value as is.
const cookieKey = "transport.cookies"

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path"`
}

// cookieScopes are the paths the backend sets cookies on, broadest first.
func cookieScopes() []string {
	return []string{"/", path.Dir(strings.TrimSuffix(authsdk.PathRefresh, "/"))}
}

func (app *Application) baseURL(scope string) (*url.URL, error) {
	u, err := url.Parse(app.Client.BaseURL + scope)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	return u, nil
}

func (app *Application) saveCookies(ctx context.Context) error {
	var saved []savedCookie
	seen := make(map[string]bool)

	for _, scope := range cookieScopes() {
		probe := scope
		if !strings.HasSuffix(probe, "/") {
			probe += "/"
		}
		u, err := app.baseURL(probe)
		if err != nil {
			return err
		}
		for _, c := range app.jar.Cookies(u) {
			if seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			saved = append(saved, savedCookie{Name: c.Name, Value: c.Value, Path: scope})
		}
	}

	if len(saved) == 0 {
		return app.kv.Delete(ctx, cookieKey)
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return app.kv.Set(ctx, cookieKey, string(data))
}

func (app *Application) restoreCookies(ctx context.Context) error {
	raw, err := app.kv.Get(ctx, cookieKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var saved []savedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		_ = app.kv.Delete(ctx, cookieKey)
		return err
	}

	u, err := app.baseURL("/")
	if err != nil {
		return err
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: s.Path, HttpOnly: true})
	}
	app.jar.SetCookies(u, cookies)
	return nil
}
