package authsdk

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// CookieJar is an http.CookieJar that can be emptied in place, so logging
// out does not require swapping the jar under in-flight requests.
type CookieJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

// NewCookieJar returns an empty jar scoped with the public suffix list.
func NewCookieJar() *CookieJar {
	return &CookieJar{jar: newJar()}
}

func newJar() *cookiejar.Jar {
	// cookiejar.New never fails with non-nil options
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// SetCookies implements http.CookieJar.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Reset discards every cookie.
func (j *CookieJar) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = newJar()
}
