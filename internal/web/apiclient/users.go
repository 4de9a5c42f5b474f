package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

var jsonHeaders = map[string]string{
	"Content-Type": "application/json",
	"Accept":       "application/json",
}

// Signup registers a new account via POST /users/signup.
// A successful signup does not authenticate the user.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/users/signup", "",
		bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me fetches the authenticated user's profile via GET /users/me.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/users/me", token, nil,
		map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe patches the profile fields via PATCH /users/me.
func (c *Client) UpdateMe(ctx context.Context, token string, req UpdateUserRequest) (*User, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPatch, "/users/me", token,
		bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword submits a password change via PATCH /users/me/password.
// The API performs the current-password check.
func (c *Client) ChangePassword(ctx context.Context, token, current, newPassword string) error {
	body, err := json.Marshal(ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPatch, "/users/me/password", token,
		bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return err
	}

	return decodeJSON(resp, nil, http.StatusOK)
}
