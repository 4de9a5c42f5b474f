// Package session persists per-browser state in a single encrypted,
// httpOnly cookie. The server is the only party that can read or mint the
// cookie; the browser just echoes it back.
package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quidfin/web/internal/web/apiclient"
	"github.com/quidfin/web/pkg/cryptox"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// Data is the session payload. TempToken is only ever set between a password
// being accepted with an OTP challenge and the challenge being answered; a
// fully authenticated session never carries one.
type Data struct {
	AccessToken string          `json:"accessToken,omitempty"`
	TempToken   string          `json:"tempToken,omitempty"`
	User        *apiclient.User `json:"user,omitempty"`
}

// IsEmpty reports whether the session holds nothing worth persisting.
func (d Data) IsEmpty() bool {
	return d.AccessToken == "" && d.TempToken == "" && d.User == nil
}

// Manager seals session data into the cookie and opens it back up.
type Manager struct {
	sealer *cryptox.Sealer
	// Secure marks the cookie Secure; enable whenever serving over TLS.
	Secure bool
}

// NewManager builds a Manager from the configured session secret.
// Secrets under 32 bytes are rejected.
func NewManager(secret []byte, secure bool) (*Manager, error) {
	sealer, err := cryptox.NewSealer(secret)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Manager{sealer: sealer, Secure: secure}, nil
}

// Get reads the session from the request cookie. A missing, malformed or
// tampered cookie reads as an empty session rather than an error: the user
// is simply treated as unauthenticated.
func (m *Manager) Get(r *http.Request) Data {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Data{}
	}

	sealed, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return Data{}
	}

	plaintext, err := m.sealer.Open(sealed)
	if err != nil {
		return Data{}
	}

	var data Data
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return Data{}
	}
	return data
}

// Save seals data into the response cookie, replacing whatever was there.
func (m *Manager) Save(w http.ResponseWriter, data Data) error {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	sealed, err := m.sealer.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("session: seal: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(sealed),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy expires the session cookie. Safe to call with no session present.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
