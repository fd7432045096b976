package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/youthloop/webgate/internal/domain"
)

// UserAPI is the profile namespace of the backend API.
type UserAPI struct {
	client *Client
}

type profileDTO struct {
	UserID    string `json:"userId"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatarUrl"`
	Bio       string `json:"bio"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birthDate"`
	Location  string `json:"location"`
	Points    int    `json:"points"`
	Level     int    `json:"level"`
	CreatedAt string `json:"createdAt"`
}

func (d profileDTO) profile() domain.Profile {
	joined, _ := time.Parse(time.RFC3339, d.CreatedAt)
	return domain.Profile{
		UserID:    d.UserID,
		Nickname:  d.Nickname,
		Email:     d.Email,
		Phone:     d.Phone,
		AvatarURL: d.AvatarURL,
		Bio:       d.Bio,
		Gender:    d.Gender,
		BirthDate: d.BirthDate,
		Hometown:  d.Location,
		Points:    d.Points,
		Level:     d.Level,
		JoinedAt:  joined,
	}
}

// GetMyProfile fetches the profile of the credential's owner.
func (u *UserAPI) GetMyProfile(ctx context.Context, token string) (*domain.Profile, error) {
	var dto profileDTO
	if err := u.client.do(ctx, http.MethodGet, "/api/v1/me/profile", token, nil, nil, &dto); err != nil {
		return nil, fmt.Errorf("get my profile: %w", err)
	}
	p := dto.profile()
	return &p, nil
}

// UpdateMyProfile persists a partial profile update.
func (u *UserAPI) UpdateMyProfile(ctx context.Context, token string, patch domain.ProfilePatch) error {
	body := map[string]any{}
	if patch.Nickname != nil {
		body["nickname"] = *patch.Nickname
	}
	if patch.AvatarURL != nil {
		body["avatarUrl"] = *patch.AvatarURL
	}
	if patch.Bio != nil {
		body["bio"] = *patch.Bio
	}
	if patch.Gender != nil {
		body["gender"] = *patch.Gender
	}
	if patch.BirthDate != nil {
		body["birthDate"] = *patch.BirthDate
	}
	if patch.Hometown != nil {
		body["location"] = *patch.Hometown
	}

	if err := u.client.do(ctx, http.MethodPost, "/api/v1/me/profile", token, nil, body, nil); err != nil {
		return fmt.Errorf("update my profile: %w", err)
	}
	return nil
}
