package dto

import (
	"github.com/youthloop/webgate/internal/domain"
)

// PasswordLoginRequest is the password login form. Account may be an
// email address or a phone number.
type PasswordLoginRequest struct {
	Account  string `json:"account" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// OTPLoginRequest is the email one-time-code login form.
type OTPLoginRequest struct {
	Email   string `json:"email" binding:"required,email"`
	OTPCode string `json:"otpCode" binding:"required,len=6"`
}

// GoogleLoginRequest carries a Google ID token.
type GoogleLoginRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// SendOTPRequest asks the backend to mail a one-time code.
type SendOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required,oneof=register login reset_password"`
}

// RegisterRequest is the email registration form.
type RegisterRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8"`
	OTPCode       string `json:"otpCode" binding:"required,len=6"`
	Nickname      string `json:"nickname" binding:"required,max=30"`
	AgreedToTerms bool   `json:"agreedToTerms" binding:"required"`
}

// ResetPasswordRequest is the forgotten-password form.
type ResetPasswordRequest struct {
	Account     string `json:"account" binding:"required"`
	OTPCode     string `json:"otpCode" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// UpdateProfileRequest is a partial profile edit. Absent fields are left
// untouched.
type UpdateProfileRequest struct {
	Nickname  *string `json:"nickname,omitempty" binding:"omitempty,max=30"`
	AvatarURL *string `json:"avatarUrl,omitempty" binding:"omitempty,url"`
	Bio       *string `json:"bio,omitempty" binding:"omitempty,max=500"`
	Gender    *string `json:"gender,omitempty" binding:"omitempty,oneof=MALE FEMALE OTHER"`
	BirthDate *string `json:"birthDate,omitempty"`
	Hometown  *string `json:"hometown,omitempty" binding:"omitempty,max=100"`
}

// Patch converts the request into a domain patch.
func (r UpdateProfileRequest) Patch() domain.ProfilePatch {
	return domain.ProfilePatch{
		Nickname:  r.Nickname,
		AvatarURL: r.AvatarURL,
		Bio:       r.Bio,
		Gender:    r.Gender,
		BirthDate: r.BirthDate,
		Hometown:  r.Hometown,
	}
}

// MarkReadRequest marks notifications read, individually or wholesale.
type MarkReadRequest struct {
	NotificationIDs []string `json:"notificationIds,omitempty"`
	MarkAllAsRead   bool     `json:"markAllAsRead,omitempty"`
}

// SnapshotResponse is the auth snapshot as served to the web app.
type SnapshotResponse struct {
	User       *domain.Profile `json:"user"`
	Loading    bool            `json:"loading"`
	IsLoggedIn bool            `json:"isLoggedIn"`
}

// NotificationsResponse is the inbox payload.
type NotificationsResponse struct {
	Items       []domain.Notification `json:"items"`
	UnreadCount int                   `json:"unreadCount"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
