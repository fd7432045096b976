package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/youthloop/webgate/internal/dto"
)

func (s *Suite) login(client *http.Client) dto.SnapshotResponse {
	body, _ := json.Marshal(dto.PasswordLoginRequest{
		Account:  "user@example.com",
		Password: backendPassword,
	})

	resp, err := client.Post(s.BaseURL+"/api/v1/auth/login/password", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var snap dto.SnapshotResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func (s *Suite) TestSnapshot_AnonymousSession() {
	client := s.browser()

	resp, err := client.Get(s.BaseURL + "/api/v1/session")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var snap dto.SnapshotResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&snap))
	s.False(snap.Loading)
	s.False(snap.IsLoggedIn)
	s.Nil(snap.User)

	s.NotEmpty(resp.Cookies(), "first visit should mint a session cookie")
}

func (s *Suite) TestLogin_Success() {
	client := s.browser()

	snap := s.login(client)
	s.True(snap.IsLoggedIn)
	s.Require().NotNil(snap.User)
	s.Equal("green", snap.User.Nickname)
	s.Equal("Hangzhou", snap.User.Hometown)

	// The session survives into the next request via the cookie.
	resp, err := client.Get(s.BaseURL + "/api/v1/session")
	s.Require().NoError(err)
	defer resp.Body.Close()

	var again dto.SnapshotResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&again))
	s.True(again.IsLoggedIn)
}

func (s *Suite) TestLogin_WrongPassword() {
	client := s.browser()

	body, _ := json.Marshal(dto.PasswordLoginRequest{
		Account:  "user@example.com",
		Password: "wrong-password",
	})
	resp, err := client.Post(s.BaseURL+"/api/v1/auth/login/password", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("Incorrect account or password", errResp.Message)
}

func (s *Suite) TestUpdateProfile_Success() {
	client := s.browser()
	s.login(client)

	body, _ := json.Marshal(map[string]string{"nickname": "river"})
	req, _ := http.NewRequest(http.MethodPatch, s.BaseURL+"/api/v1/session/profile", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var snap dto.SnapshotResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&snap))
	s.Equal("river", snap.User.Nickname)
}

func (s *Suite) TestUpdateProfile_RevertsOnRejection() {
	client := s.browser()
	s.login(client)

	s.Backend.RejectUpdates(true)
	defer s.Backend.RejectUpdates(false)

	body, _ := json.Marshal(map[string]string{"nickname": "rejected"})
	req, _ := http.NewRequest(http.MethodPatch, s.BaseURL+"/api/v1/session/profile", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadGateway, resp.StatusCode)

	// The snapshot still shows the old nickname.
	again, err := client.Get(s.BaseURL + "/api/v1/session")
	s.Require().NoError(err)
	defer again.Body.Close()

	var snap dto.SnapshotResponse
	s.Require().NoError(json.NewDecoder(again.Body).Decode(&snap))
	s.Equal("green", snap.User.Nickname)
}

func (s *Suite) TestUpdateProfile_RequiresLogin() {
	client := s.browser()

	body, _ := json.Marshal(map[string]string{"nickname": "river"})
	req, _ := http.NewRequest(http.MethodPatch, s.BaseURL+"/api/v1/session/profile", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogout_RedirectsToLocalizedLogin() {
	client := s.browser()
	s.login(client)

	req, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/api/v1/session/logout?from=/en/profile", nil)
	resp, err := client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal("/en/login", resp.Header.Get("Location"))

	// The next request carries the dropped session; it resolves anonymous.
	again, err := client.Get(s.BaseURL + "/api/v1/session")
	s.Require().NoError(err)
	defer again.Body.Close()

	var snap dto.SnapshotResponse
	s.Require().NoError(json.NewDecoder(again.Body).Decode(&snap))
	s.False(snap.IsLoggedIn)
	s.Nil(snap.User)
}

func (s *Suite) TestGuard_RedirectsAnonymousVisitor() {
	client := s.browser()

	resp, err := client.Get(s.BaseURL + "/en/profile")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal("/en/login", resp.Header.Get("Location"))
}

func (s *Suite) TestGuard_AllowsLoggedInVisitor() {
	client := s.browser()
	s.login(client)

	resp, err := client.Get(s.BaseURL + "/zh/profile")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var shell struct {
		Page   string `json:"page"`
		Locale string `json:"locale"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&shell))
	s.Equal("profile", shell.Page)
	s.Equal("zh", shell.Locale)
}

func (s *Suite) TestGuard_PublicPagesStayOpen() {
	client := s.browser()

	resp, err := client.Get(s.BaseURL + "/en/activities")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}
