// Package apistub is an in-process stand-in for the remote account API,
// backing the front-end's tests. It issues real tokens, runs a real TOTP
// enrollment (pquerna/otp) and keeps accounts in memory, so the full
// login -> challenge -> verify path can be exercised without a live backend.
package apistub

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/pquerna/otp/totp"
	"github.com/quidfin/web/pkg/cryptox"
	"github.com/quidfin/web/pkg/idx"
)

// Account is a stored user record.
type Account struct {
	ID         string
	Email      string
	Password   string
	FullName   string
	OTPEnabled bool

	totpSecret    string
	pendingSecret string
}

// Server is the fake account API.
type Server struct {
	HTTP *httptest.Server

	mu         sync.Mutex
	accounts   map[string]*Account // by email
	tokens     map[string]string   // access token -> email
	tempTokens map[string]string   // temp token -> email
	requests   int
}

// New starts the stub. Callers own shutdown via Close.
func New() *Server {
	s := &Server{
		accounts:   make(map[string]*Account),
		tokens:     make(map[string]string),
		tempTokens: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/access-token", s.handleLogin)
	mux.HandleFunc("POST /login/access-token/otp", s.handleVerifyOTP)
	mux.HandleFunc("POST /users/signup", s.handleSignup)
	mux.HandleFunc("GET /users/me", s.handleMe)
	mux.HandleFunc("PATCH /users/me", s.handleUpdateMe)
	mux.HandleFunc("PATCH /users/me/password", s.handleChangePassword)
	mux.HandleFunc("GET /auth/otp/generate", s.handleGenerateQR)
	mux.HandleFunc("PUT /auth/otp/enable", s.handleEnableOTP)

	s.HTTP = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	return s
}

// URL returns the stub's base URL.
func (s *Server) URL() string { return s.HTTP.URL }

// Close shuts the stub down.
func (s *Server) Close() { s.HTTP.Close() }

// RequestCount reports how many API calls the stub has received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// AddAccount registers an account directly, bypassing signup.
func (s *Server) AddAccount(email, password, fullName string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := &Account{
		ID:       idx.New().String(),
		Email:    email,
		Password: password,
		FullName: fullName,
	}
	s.accounts[email] = acct
	return acct
}

// EnableTOTP provisions a working TOTP secret on the account and returns it,
// so tests can mint valid codes with totp.GenerateCode.
func (s *Server) EnableTOTP(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "quidfin-stub", AccountName: email})
	if err != nil {
		panic(err)
	}
	acct := s.accounts[email]
	acct.totpSecret = key.Secret()
	acct.OTPEnabled = true
	return key.Secret()
}

// IssueToken mints an access token for an existing account.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(email)
}

func (s *Server) issueTokenLocked(email string) string {
	token := cryptox.MustGenerateToken(cryptox.TokenSize128)
	s.tokens[token] = email
	return token
}

func (s *Server) authed(r *http.Request) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if len(authz) <= len(prefix) || authz[:len(prefix)] != prefix {
		return nil
	}
	email, ok := s.tokens[authz[len(prefix):]]
	if !ok {
		return nil
	}
	return s.accounts[email]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid form body")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[r.FormValue("username")]
	if !ok || acct.Password != r.FormValue("password") {
		s.mu.Unlock()
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if acct.OTPEnabled {
		temp := cryptox.MustGenerateToken(cryptox.TokenSize128)
		s.tempTokens[temp] = acct.Email
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"requires_totp": true,
			"temp_token":    temp,
		})
		return
	}

	token := s.issueTokenLocked(acct.Email)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid form body")
		return
	}

	s.mu.Lock()
	email, ok := s.tempTokens[r.FormValue("temp_token")]
	if !ok {
		s.mu.Unlock()
		writeMessage(w, http.StatusUnauthorized, "Invalid OTP")
		return
	}
	acct := s.accounts[email]

	if !totp.Validate(r.FormValue("totp_code"), acct.totpSecret) {
		s.mu.Unlock()
		writeMessage(w, http.StatusUnauthorized, "Invalid OTP")
		return
	}

	delete(s.tempTokens, r.FormValue("temp_token"))
	token := s.issueTokenLocked(email)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": map[string][]string{"email": {"Email is already registered"}},
		})
		return
	}
	acct := &Account{
		ID:       idx.New().String(),
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}
	s.accounts[req.Email] = acct
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, userPayload(acct))
}

func userPayload(acct *Account) map[string]any {
	return map[string]any{
		"id":          acct.ID,
		"email":       acct.Email,
		"full_name":   acct.FullName,
		"otp_enabled": acct.OTPEnabled,
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acct := s.authed(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, userPayload(acct))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	acct := s.authed(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	if req.Email != acct.Email {
		delete(s.accounts, acct.Email)
		acct.Email = req.Email
		s.accounts[acct.Email] = acct
	}
	acct.FullName = req.FullName
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, userPayload(acct))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	acct := s.authed(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.Password != req.CurrentPassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": map[string][]string{"current_password": {"Current password is incorrect"}},
		})
		return
	}
	acct.Password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (s *Server) handleGenerateQR(w http.ResponseWriter, r *http.Request) {
	acct := s.authed(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "quidfin-stub", AccountName: acct.Email})
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to generate secret")
		return
	}

	s.mu.Lock()
	acct.pendingSecret = key.Secret()
	s.mu.Unlock()

	img, err := key.Image(200, 200)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to render QR")
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to encode QR")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleEnableOTP(w http.ResponseWriter, r *http.Request) {
	acct := s.authed(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		TOTPCode string `json:"totp_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.pendingSecret == "" {
		writeMessage(w, http.StatusBadRequest, "no enrollment in progress")
		return
	}
	if !totp.Validate(req.TOTPCode, acct.pendingSecret) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": map[string][]string{"totp_code": {"Invalid TOTP code"}},
		})
		return
	}

	acct.totpSecret = acct.pendingSecret
	acct.pendingSecret = ""
	acct.OTPEnabled = true
	writeJSON(w, http.StatusOK, map[string]string{"message": "MFA enabled"})
}

// PendingSecret exposes the secret from the last QR generation so tests can
// compute a valid confirmation code.
func (s *Server) PendingSecret(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email].pendingSecret
}
