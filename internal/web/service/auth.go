package service

import (
	"context"
	"strings"

	"github.com/quidfin/web/internal/web/apiclient"
	"github.com/quidfin/web/internal/web/validate"
)

// AuthService drives the login, OTP verification and signup flows.
type AuthService struct {
	API *apiclient.Client
}

// LoginResult describes the outcome of a password login. Exactly one of
// AccessToken, TempToken, FieldErrors or Message is meaningful.
type LoginResult struct {
	// AccessToken is set when the user is fully authenticated.
	AccessToken string
	// TempToken and RequiresTOTP are set when the password was accepted but
	// an OTP challenge is pending.
	TempToken    string
	RequiresTOTP bool

	FieldErrors validate.Errors
	Message     string
}

// Authenticated reports whether the login completed without a challenge.
func (r LoginResult) Authenticated() bool { return r.AccessToken != "" }

// Login validates credentials and exchanges them with the account API.
// Validation failures return before any network call. On failure the result
// carries an error annotation only; no token fields are set.
func (s *AuthService) Login(ctx context.Context, email, password string) LoginResult {
	email = strings.TrimSpace(email)

	fieldErrs := validate.Errors{}
	validate.Email("username", email, fieldErrs)
	validate.PasswordLength("password", password, fieldErrs)
	if len(fieldErrs) > 0 {
		return LoginResult{FieldErrors: fieldErrs}
	}

	tok, err := s.API.Login(ctx, email, password)
	if err != nil {
		fields, msg := apiFailure(ctx, err, "Invalid email or password")
		return LoginResult{FieldErrors: fields, Message: msg}
	}

	if tok.RequiresTOTP {
		return LoginResult{RequiresTOTP: true, TempToken: tok.TempToken}
	}
	return LoginResult{AccessToken: tok.AccessToken}
}

// OTPResult describes the outcome of answering an OTP challenge.
type OTPResult struct {
	AccessToken string

	// MissingChallenge is set when no temp token was pending; the form was
	// submitted outside a login flow and no network call was made.
	MissingChallenge bool

	FieldErrors validate.Errors
	Message     string
}

// Authenticated reports whether the challenge was answered successfully.
func (r OTPResult) Authenticated() bool { return r.AccessToken != "" }

// VerifyOTP exchanges the pending temp token plus code for an access token.
// On failure the caller keeps the temp token so the user may retry.
func (s *AuthService) VerifyOTP(ctx context.Context, tempToken, code string) OTPResult {
	fieldErrs := validate.Errors{}
	validate.OTPCode("totp_code", code, fieldErrs)
	if len(fieldErrs) > 0 {
		return OTPResult{FieldErrors: fieldErrs}
	}

	if tempToken == "" {
		return OTPResult{MissingChallenge: true, Message: "Error verifying OTP"}
	}

	tok, err := s.API.VerifyOTP(ctx, tempToken, code)
	if err != nil {
		fields, msg := apiFailure(ctx, err, "Invalid OTP")
		return OTPResult{FieldErrors: fields, Message: msg}
	}
	if tok.AccessToken == "" {
		return OTPResult{Message: "Invalid OTP"}
	}

	return OTPResult{AccessToken: tok.AccessToken}
}

// SignupResult describes the outcome of a signup attempt.
type SignupResult struct {
	Created bool

	FieldErrors validate.Errors
	Message     string
}

// Signup validates the registration form and creates the account.
// A successful signup does not authenticate; the caller sends the user to
// the login page.
func (s *AuthService) Signup(ctx context.Context, email, password, confirm, fullName string) SignupResult {
	email = strings.TrimSpace(email)

	fieldErrs := validate.Errors{}
	validate.Email("email", email, fieldErrs)
	validate.PasswordComplexity("password", password, fieldErrs)
	validate.PasswordsMatch("confirm_password", password, confirm, fieldErrs)
	validate.FullName("full_name", fullName, fieldErrs)
	if len(fieldErrs) > 0 {
		return SignupResult{FieldErrors: fieldErrs}
	}

	_, err := s.API.Signup(ctx, apiclient.SignupRequest{
		Email:    email,
		Password: password,
		FullName: strings.TrimSpace(fullName),
	})
	if err != nil {
		fields, msg := apiFailure(ctx, err, GenericFailureMessage)
		return SignupResult{FieldErrors: fields, Message: msg}
	}

	return SignupResult{Created: true}
}
