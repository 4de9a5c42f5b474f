package service

import (
	"context"
	"strings"

	"github.com/quidfin/web/internal/web/apiclient"
	"github.com/quidfin/web/internal/web/validate"
)

// ProfileService drives the profile, password and MFA enrollment flows for
// an authenticated user. The access token comes from the caller's session.
type ProfileService struct {
	API *apiclient.Client
}

// FetchUser loads the current profile from the account API.
func (s *ProfileService) FetchUser(ctx context.Context, token string) (*apiclient.User, error) {
	return s.API.Me(ctx, token)
}

// UpdateResult is the outcome of a profile-field update.
type UpdateResult struct {
	Updated bool

	FieldErrors validate.Errors
	Message     string
}

// UpdateProfile validates and patches full name and email. On success the
// cached user is stale; callers refetch via FetchUser.
func (s *ProfileService) UpdateProfile(ctx context.Context, token, fullName, email string) UpdateResult {
	email = strings.TrimSpace(email)

	fieldErrs := validate.Errors{}
	validate.FullName("full_name", fullName, fieldErrs)
	validate.Email("email", email, fieldErrs)
	if len(fieldErrs) > 0 {
		return UpdateResult{FieldErrors: fieldErrs}
	}

	_, err := s.API.UpdateMe(ctx, token, apiclient.UpdateUserRequest{
		Email:    email,
		FullName: strings.TrimSpace(fullName),
	})
	if err != nil {
		fields, msg := apiFailure(ctx, err, GenericFailureMessage)
		return UpdateResult{FieldErrors: fields, Message: msg}
	}

	return UpdateResult{Updated: true}
}

// ChangePassword validates length bounds on both passwords and submits the
// change. The account API performs the actual current-password check; a
// wrong current password comes back as a form error, not a validation one.
func (s *ProfileService) ChangePassword(ctx context.Context, token, current, newPassword string) UpdateResult {
	fieldErrs := validate.Errors{}
	validate.PasswordLength("current_password", current, fieldErrs)
	validate.PasswordLength("new_password", newPassword, fieldErrs)
	if len(fieldErrs) > 0 {
		return UpdateResult{FieldErrors: fieldErrs}
	}

	if err := s.API.ChangePassword(ctx, token, current, newPassword); err != nil {
		fields, msg := apiFailure(ctx, err, GenericFailureMessage)
		return UpdateResult{FieldErrors: fields, Message: msg}
	}

	return UpdateResult{Updated: true}
}

// MFAResult is the outcome of an MFA enrollment confirmation.
type MFAResult struct {
	Enabled bool

	// AlreadyEnabled is set when enrollment was requested for a user whose
	// profile already has OTP enabled; no network call was made.
	AlreadyEnabled bool

	FieldErrors validate.Errors
	Message     string
}

// TOTPQR fetches the provisioning QR code image for the enrollment dialog.
func (s *ProfileService) TOTPQR(ctx context.Context, token string) ([]byte, error) {
	return s.API.TOTPQR(ctx, token)
}

// EnableMFA confirms TOTP enrollment with the submitted code. Enrollment is
// idempotent: a user that already has OTP enabled short-circuits before any
// network call. On success the profile is stale (otp_enabled flipped) and
// callers refetch it.
func (s *ProfileService) EnableMFA(ctx context.Context, token string, user *apiclient.User, code string) MFAResult {
	if user != nil && user.OTPEnabled {
		return MFAResult{AlreadyEnabled: true}
	}

	fieldErrs := validate.Errors{}
	validate.MFAEnableCode("totp_code", code, fieldErrs)
	if len(fieldErrs) > 0 {
		return MFAResult{FieldErrors: fieldErrs}
	}

	if err := s.API.EnableTOTP(ctx, token, code); err != nil {
		fields, msg := apiFailure(ctx, err, GenericFailureMessage)
		return MFAResult{FieldErrors: fields, Message: msg}
	}

	return MFAResult{Enabled: true}
}
