package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TOTPQR fetches the TOTP provisioning QR code image via
// GET /auth/otp/generate. The returned bytes are a PNG.
func (c *Client) TOTPQR(ctx context.Context, token string) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/auth/otp/generate", token, nil,
		map[string]string{"Accept": "image/png"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, parseErrorResponse(resp.StatusCode, body)
	}

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read QR image: %w", err)
	}
	return img, nil
}

// EnableTOTP confirms TOTP enrollment with a code via PUT /auth/otp/enable.
// On success the API flips otp_enabled on the profile.
func (c *Client) EnableTOTP(ctx context.Context, token, code string) error {
	body, err := json.Marshal(EnableTOTPRequest{TOTPCode: code})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPut, "/auth/otp/enable", token,
		bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return err
	}

	return decodeJSON(resp, nil, http.StatusOK)
}
