package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/youthloop/webgate/internal/domain"
)

// OTP purposes accepted by the backend.
const (
	OTPPurposeRegister      = "register"
	OTPPurposeLogin         = "login"
	OTPPurposeResetPassword = "reset_password"
)

// AuthAPI is the authentication namespace of the backend API.
type AuthAPI struct {
	client *Client
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func (t tokenResponse) credential() domain.Credential {
	return domain.Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
	}
}

// SendEmailOTP asks the backend to mail a one-time code.
func (a *AuthAPI) SendEmailOTP(ctx context.Context, email, purpose string) error {
	body := map[string]string{"email": email, "purpose": purpose}
	if err := a.client.do(ctx, http.MethodPost, "/api/v1/auth/otp/email", "", nil, body, nil); err != nil {
		return fmt.Errorf("send email otp: %w", err)
	}
	return nil
}

// RegisterWithEmail creates an account and returns its first credential.
func (a *AuthAPI) RegisterWithEmail(ctx context.Context, email, password, otpCode, nickname string) (domain.Credential, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"otpCode":       otpCode,
		"nickname":      nickname,
		"agreedToTerms": true,
	}
	var tokens tokenResponse
	if err := a.client.do(ctx, http.MethodPost, "/api/v1/auth/register/email", "", nil, body, &tokens); err != nil {
		return domain.Credential{}, fmt.Errorf("register with email: %w", err)
	}
	return tokens.credential(), nil
}

// LoginWithPassword exchanges account+password for a credential. The
// account may be an email address or a phone number.
func (a *AuthAPI) LoginWithPassword(ctx context.Context, account, password string) (domain.Credential, error) {
	body := map[string]string{"account": account, "password": password}
	var tokens tokenResponse
	if err := a.client.do(ctx, http.MethodPost, "/api/v1/auth/login/password", "", nil, body, &tokens); err != nil {
		return domain.Credential{}, fmt.Errorf("login with password: %w", err)
	}
	return tokens.credential(), nil
}

// LoginWithEmailOTP exchanges an emailed one-time code for a credential.
func (a *AuthAPI) LoginWithEmailOTP(ctx context.Context, email, otpCode string) (domain.Credential, error) {
	body := map[string]string{"email": email, "otpCode": otpCode}
	var tokens tokenResponse
	if err := a.client.do(ctx, http.MethodPost, "/api/v1/auth/login/otp", "", nil, body, &tokens); err != nil {
		return domain.Credential{}, fmt.Errorf("login with email otp: %w", err)
	}
	return tokens.credential(), nil
}

// LoginWithGoogle exchanges a Google ID token for a credential.
func (a *AuthAPI) LoginWithGoogle(ctx context.Context, googleCredential string) (domain.Credential, error) {
	body := map[string]string{"credential": googleCredential}
	var tokens tokenResponse
	if err := a.client.do(ctx, http.MethodPost, "/api/v1/auth/login/google", "", nil, body, &tokens); err != nil {
		return domain.Credential{}, fmt.Errorf("login with google: %w", err)
	}
	return tokens.credential(), nil
}

// ResetPassword exchanges an OTP for a new password.
func (a *AuthAPI) ResetPassword(ctx context.Context, account, otpCode, newPassword string) error {
	body := map[string]string{"account": account, "otpCode": otpCode, "newPassword": newPassword}
	if err := a.client.do(ctx, http.MethodPost, "/api/v1/auth/password/reset", "", nil, body, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// RefreshToken exchanges a refresh token for a fresh credential.
func (a *AuthAPI) RefreshToken(ctx context.Context, refreshToken string) (domain.Credential, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var tokens tokenResponse
	if err := a.client.do(ctx, http.MethodPost, "/api/v1/auth/token/refresh", "", nil, body, &tokens); err != nil {
		return domain.Credential{}, fmt.Errorf("refresh token: %w", err)
	}
	return tokens.credential(), nil
}
