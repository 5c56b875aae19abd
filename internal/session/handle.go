package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	CookieName = "storefront_session"

	keySID        = "sid"
	KeyOAuthState = "oauth_state"
	KeyRedirect   = "oauth_redirect"
	KeyMergedFor  = "merged_for"
)

// Handles reads and writes the signed session cookie that carries the
// anonymous session id and a few short-lived flow values.
type Handles struct {
	store sessions.Store
}

func NewHandles(secret []byte, ttl time.Duration, secure bool) *Handles {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Handles{store: cs}
}

func (h *Handles) session(r *http.Request) *sessions.Session {
	// A cookie that fails to decode yields a fresh session, which is what
	// we want for a tampered or rotated-secret cookie.
	s, _ := h.store.Get(r, CookieName)
	return s
}

// ID returns the session id carried by the request, or "" when there is none.
func (h *Handles) ID(r *http.Request) string {
	v, _ := h.session(r).Values[keySID].(string)
	return v
}

// EnsureID returns the session id, issuing a new one when the request has
// none. The cookie is written every time so its lifetime slides along with
// the server-side TTL that each write renews.
func (h *Handles) EnsureID(w http.ResponseWriter, r *http.Request) (string, error) {
	s := h.session(r)
	sid, _ := s.Values[keySID].(string)
	if sid == "" {
		sid = uuid.NewString()
		s.Values[keySID] = sid
	}
	if err := s.Save(r, w); err != nil {
		return "", err
	}
	return sid, nil
}

func (h *Handles) Get(r *http.Request, key string) string {
	v, _ := h.session(r).Values[key].(string)
	return v
}

func (h *Handles) Set(w http.ResponseWriter, r *http.Request, key, value string) error {
	s := h.session(r)
	s.Values[key] = value
	return s.Save(r, w)
}

func (h *Handles) Delete(w http.ResponseWriter, r *http.Request, key string) error {
	s := h.session(r)
	if _, ok := s.Values[key]; !ok {
		return nil
	}
	delete(s.Values, key)
	return s.Save(r, w)
}
