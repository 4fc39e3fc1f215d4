package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// Validation messages for the login flow.
const (
	InvalidEmailMessage = "Please enter a valid email."
	MissingOTPMessage   = "Please enter the OTP."
	InvalidOTPMessage   = "The OTP is a 6-digit code."
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// LoginResult is the server's answer to a successful OTP verification.
type LoginResult struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// RequestOTP asks the server to email a one-time code. It returns the
// server's acknowledgement, which may be plain text.
func (c *Client) RequestOTP(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return "", NewValidationError(AuthFailed, InvalidEmailMessage)
	}

	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return "", newTransportError(AuthFailed, "POST /request_otp", err)
	}

	r := request{
		method:      nethttp.MethodPost,
		path:        "/request_otp",
		body:        body,
		contentType: "application/json",
		accept:      "application/json, text/plain",
		kind:        AuthFailed,
		csrfPage:    LoginPage,
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", serverErrorFrom(resp, r)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newTransportError(AuthFailed, r.op(), fmt.Errorf("failed to read response: %w", err))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil {
		if env.Error != "" {
			return "", newServerError(AuthFailed, r.op(), resp.StatusCode, env.Error)
		}
		return env.Message, nil
	}
	return strings.TrimSpace(string(data)), nil
}

// VerifyOTP submits the code and establishes the session cookie.
func (c *Client) VerifyOTP(ctx context.Context, otp string) (*LoginResult, error) {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return nil, NewValidationError(AuthFailed, MissingOTPMessage)
	}
	if !otpPattern.MatchString(otp) {
		return nil, NewValidationError(AuthFailed, InvalidOTPMessage)
	}

	body, err := json.Marshal(map[string]string{"otp": otp})
	if err != nil {
		return nil, newTransportError(AuthFailed, "POST /verify_otp", err)
	}

	var result LoginResult
	_, err = c.doJSON(ctx, request{
		method:      nethttp.MethodPost,
		path:        "/verify_otp",
		body:        body,
		contentType: "application/json",
		kind:        AuthFailed,
		csrfPage:    LoginPage,
	}, &result)
	if err != nil {
		return nil, WithKind(err, AuthFailed, "Verification failed.")
	}

	// The dashboard page renders a fresh token for the logged-in session.
	c.resetCSRFToken()
	return &result, nil
}

// Logout ends the server session and forgets local cookies, even when
// the server call fails.
func (c *Client) Logout(ctx context.Context) (string, error) {
	env, err := c.doJSON(ctx, request{
		method: nethttp.MethodGet,
		path:   "/logout",
		kind:   AuthFailed,
	}, nil)

	if clearErr := c.ClearSession(); clearErr != nil {
		c.logger.Warn().Err(clearErr).Msg("failed to clear local session")
	}

	if err != nil {
		return "", WithKind(err, AuthFailed, "Logout failed.")
	}
	return env.Message, nil
}
