package apiclient

// User is the account profile as served by GET /users/me.
type User struct {
	ID         string `json:"id,omitempty"`
	Email      string `json:"email"`
	FullName   string `json:"full_name,omitempty"`
	OTPEnabled bool   `json:"otp_enabled,omitempty"`
}

// TokenResponse is the result of either token endpoint. A password login
// yields exactly one of the two shapes: an access token, or an OTP challenge
// carrying a temp token.
type TokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	RequiresTOTP bool   `json:"requires_totp,omitempty"`
	TempToken    string `json:"temp_token,omitempty"`
}

// SignupRequest is the body for POST /users/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// UpdateUserRequest is the body for PATCH /users/me.
type UpdateUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// ChangePasswordRequest is the body for PATCH /users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// EnableTOTPRequest is the body for PUT /auth/otp/enable.
type EnableTOTPRequest struct {
	TOTPCode string `json:"totp_code"`
}
