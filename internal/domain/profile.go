package domain

import "time"

// Profile represents the current user's profile as served by the YouthLoop API
type Profile struct {
	UserID    string    `json:"userId"`
	Nickname  string    `json:"nickname"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Gender    string    `json:"gender,omitempty"` // MALE, FEMALE, OTHER
	BirthDate string    `json:"birthDate,omitempty"`
	Hometown  string    `json:"hometown,omitempty"`
	Points    int       `json:"points"`
	Level     int       `json:"level"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Nickname  *string `json:"nickname,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
	Hometown  *string `json:"hometown,omitempty"`
}

// Apply merges the patch into a copy of p and returns it.
func (patch ProfilePatch) Apply(p Profile) Profile {
	if patch.Nickname != nil {
		p.Nickname = *patch.Nickname
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = *patch.AvatarURL
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.Gender != nil {
		p.Gender = *patch.Gender
	}
	if patch.BirthDate != nil {
		p.BirthDate = *patch.BirthDate
	}
	if patch.Hometown != nil {
		p.Hometown = *patch.Hometown
	}
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (patch ProfilePatch) IsEmpty() bool {
	return patch.Nickname == nil && patch.AvatarURL == nil && patch.Bio == nil &&
		patch.Gender == nil && patch.BirthDate == nil && patch.Hometown == nil
}
