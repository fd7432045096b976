package domain

import "time"

// Credential is the opaque bearer credential issued by the YouthLoop API.
// Its presence is necessary but not sufficient for a logged-in session:
// the session is logged in only once a profile has also been loaded.
type Credential struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Empty reports whether no access token is present.
func (c Credential) Empty() bool {
	return c.AccessToken == ""
}
