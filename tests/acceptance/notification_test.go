package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/youthloop/webgate/internal/dto"
)

func (s *Suite) TestNotifications_LoginFillsInbox() {
	client := s.browser()
	s.login(client)

	resp, err := client.Get(s.BaseURL + "/api/v1/me/notifications")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var inbox dto.NotificationsResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&inbox))
	s.Len(inbox.Items, 2)
	s.Equal(1, inbox.UnreadCount)
	s.Equal("Lin commented on your post", inbox.Items[0].Title)
	s.Equal("/science/a9", inbox.Items[0].LinkURL)
}

func (s *Suite) TestNotifications_AnonymousInboxIsEmpty() {
	client := s.browser()

	resp, err := client.Get(s.BaseURL + "/api/v1/me/notifications")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var inbox dto.NotificationsResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&inbox))
	s.Empty(inbox.Items)
	s.Zero(inbox.UnreadCount)
}

func (s *Suite) TestNotifications_MarkAsRead() {
	client := s.browser()
	s.login(client)

	body, _ := json.Marshal(dto.MarkReadRequest{NotificationIDs: []string{"n1"}})
	resp, err := client.Post(s.BaseURL+"/api/v1/me/notifications/read", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var inbox dto.NotificationsResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&inbox))
	s.Zero(inbox.UnreadCount)
	for _, item := range inbox.Items {
		s.True(item.IsRead)
	}
}

func (s *Suite) TestNotifications_MarkAllAsRead() {
	client := s.browser()
	s.login(client)

	body, _ := json.Marshal(dto.MarkReadRequest{MarkAllAsRead: true})
	resp, err := client.Post(s.BaseURL+"/api/v1/me/notifications/read", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var inbox dto.NotificationsResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&inbox))
	s.Zero(inbox.UnreadCount)
}

func (s *Suite) TestNotifications_MarkNothingIsRejected() {
	client := s.browser()
	s.login(client)

	body, _ := json.Marshal(dto.MarkReadRequest{})
	resp, err := client.Post(s.BaseURL+"/api/v1/me/notifications/read", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
