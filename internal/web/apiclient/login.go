package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

var formHeaders = map[string]string{
	"Content-Type": "application/x-www-form-urlencoded",
	"Accept":       "application/json",
}

// Login exchanges credentials for tokens via POST /login/access-token.
// The response either carries an access token or a TOTP challenge.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	resp, err := c.doRequest(ctx, http.MethodPost, "/login/access-token", "",
		strings.NewReader(form.Encode()), formHeaders)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}

// VerifyOTP exchanges a temp token plus TOTP code for an access token via
// POST /login/access-token/otp.
func (c *Client) VerifyOTP(ctx context.Context, tempToken, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("totp_code", code)
	form.Set("temp_token", tempToken)

	resp, err := c.doRequest(ctx, http.MethodPost, "/login/access-token/otp", "",
		strings.NewReader(form.Encode()), formHeaders)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}
